package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/treefix50/practicetime/internal/server"
	"github.com/treefix50/practicetime/internal/session"
)

// SaveResult stores a finished session and the phases it reached in one
// transaction.
func (s *Store) SaveResult(participantID string, result session.Result) (stored server.StoredResult, err error) {
	if s == nil || s.db == nil {
		return server.StoredResult{}, fmt.Errorf("storage: missing database connection")
	}

	stored = server.StoredResult{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		SavedAt:       time.Now(),
		Result:        result,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return server.StoredResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.Exec(`
		INSERT INTO session_results (
			id, participant_id, script_id, script_name, outcome,
			elapsed_seconds, total_seconds, started_at, ended_at, saved_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		stored.ID,
		participantID,
		result.ScriptID,
		result.ScriptName,
		string(result.Outcome),
		result.ElapsedSeconds,
		result.TotalSeconds,
		result.StartedAt.Unix(),
		result.EndedAt.Unix(),
		stored.SavedAt.Unix(),
	)
	if err != nil {
		return server.StoredResult{}, fmt.Errorf("storage: insert result: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO result_phases (result_id, phase_index, name, completed)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return server.StoredResult{}, err
	}
	defer stmt.Close()

	for _, phase := range result.PhasesReached {
		if _, err = stmt.Exec(stored.ID, phase.Index, phase.Name, boolToInt(phase.Completed)); err != nil {
			return server.StoredResult{}, fmt.Errorf("storage: insert result phase: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return server.StoredResult{}, err
	}
	return stored, nil
}

// GetResult loads a stored result with its phases.
func (s *Store) GetResult(id string) (*server.StoredResult, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, fmt.Errorf("storage: missing database connection")
	}

	row := s.db.QueryRow(`
		SELECT id, participant_id, script_id, script_name, outcome,
			elapsed_seconds, total_seconds, started_at, ended_at, saved_at
		FROM session_results
		WHERE id = ?
	`, id)
	result, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	phases, err := s.resultPhases(result.ID)
	if err != nil {
		return nil, false, err
	}
	result.PhasesReached = phases
	return &result, true, nil
}

// ListResults returns a participant's results, most recent first. An empty
// outcome lists all of them.
func (s *Store) ListResults(participantID string, outcome session.Outcome, limit, offset int) ([]server.StoredResult, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(`
		SELECT id, participant_id, script_id, script_name, outcome,
			elapsed_seconds, total_seconds, started_at, ended_at, saved_at
		FROM session_results
		WHERE participant_id = ? AND (? = '' OR outcome = ?)
		ORDER BY ended_at DESC, id
		LIMIT ? OFFSET ?
	`, participantID, string(outcome), string(outcome), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []server.StoredResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		phases, err := s.resultPhases(results[i].ID)
		if err != nil {
			return nil, err
		}
		results[i].PhasesReached = phases
	}
	return results, nil
}

// CountResults counts a participant's results; an empty outcome counts all.
func (s *Store) CountResults(participantID string, outcome session.Outcome) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("storage: missing database connection")
	}

	var count int
	var err error
	if outcome == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM session_results WHERE participant_id = ?`, participantID).Scan(&count)
	} else {
		err = s.db.QueryRow(
			`SELECT COUNT(*) FROM session_results WHERE participant_id = ? AND outcome = ?`,
			participantID,
			string(outcome),
		).Scan(&count)
	}
	return count, err
}

func (s *Store) resultPhases(resultID string) ([]session.PhaseReached, error) {
	rows, err := s.db.Query(`
		SELECT phase_index, name, completed
		FROM result_phases
		WHERE result_id = ?
		ORDER BY phase_index
	`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phases []session.PhaseReached
	for rows.Next() {
		var (
			phase     session.PhaseReached
			completed int
		)
		if err := rows.Scan(&phase.Index, &phase.Name, &completed); err != nil {
			return nil, err
		}
		phase.Completed = completed == 1
		phases = append(phases, phase)
	}
	return phases, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (server.StoredResult, error) {
	var (
		result                      server.StoredResult
		outcome                     string
		startedAt, endedAt, savedAt int64
	)
	err := row.Scan(
		&result.ID,
		&result.ParticipantID,
		&result.ScriptID,
		&result.ScriptName,
		&outcome,
		&result.ElapsedSeconds,
		&result.TotalSeconds,
		&startedAt,
		&endedAt,
		&savedAt,
	)
	if err != nil {
		return server.StoredResult{}, err
	}
	result.Outcome = session.Outcome(outcome)
	result.StartedAt = time.Unix(startedAt, 0)
	result.EndedAt = time.Unix(endedAt, 0)
	result.SavedAt = time.Unix(savedAt, 0)
	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
