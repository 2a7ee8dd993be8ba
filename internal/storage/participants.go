package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/treefix50/practicetime/internal/auth"
)

// CreateParticipant inserts a participant.
func (s *Store) CreateParticipant(p auth.Participant) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	_, err := s.db.Exec(`
		INSERT INTO participants (id, username, password_hash, created_at, last_login)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Username, p.PasswordHash, p.CreatedAt.Unix(), nullInt64FromTime(p.LastLogin))
	return err
}

// GetParticipant returns the participant with id, or nil.
func (s *Store) GetParticipant(id string) (*auth.Participant, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}
	return scanParticipant(s.db.QueryRow(`
		SELECT id, username, password_hash, created_at, last_login
		FROM participants
		WHERE id = ?
	`, id))
}

// GetParticipantByUsername returns the participant named username, or nil.
func (s *Store) GetParticipantByUsername(username string) (*auth.Participant, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}
	return scanParticipant(s.db.QueryRow(`
		SELECT id, username, password_hash, created_at, last_login
		FROM participants
		WHERE username = ?
	`, username))
}

func (s *Store) UpdateLastLogin(id string, at time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	_, err := s.db.Exec(`UPDATE participants SET last_login = ? WHERE id = ?`, nullInt64FromTime(at), id)
	return err
}

func (s *Store) CountParticipants() (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("storage: missing database connection")
	}

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM participants`).Scan(&count)
	return count, err
}

// CreateSession inserts an auth session.
func (s *Store) CreateSession(session auth.Session) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	_, err := s.db.Exec(`
		INSERT INTO auth_sessions (token, participant_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, session.Token, session.ParticipantID, session.CreatedAt.Unix(), session.ExpiresAt.Unix())
	return err
}

// GetSession returns the auth session for token, or nil.
func (s *Store) GetSession(token string) (*auth.Session, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}

	var (
		session              auth.Session
		createdAt, expiresAt int64
	)
	err := s.db.QueryRow(`
		SELECT a.token, a.participant_id, p.username, a.created_at, a.expires_at
		FROM auth_sessions a
		JOIN participants p ON p.id = a.participant_id
		WHERE a.token = ?
	`, token).Scan(&session.Token, &session.ParticipantID, &session.Username, &createdAt, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}

	session.CreatedAt = time.Unix(createdAt, 0)
	session.ExpiresAt = time.Unix(expiresAt, 0)
	return &session, nil
}

func (s *Store) DeleteSession(token string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE token = ?`, token)
	return err
}

// CleanExpiredSessions deletes auth sessions that expired before now.
func (s *Store) CleanExpiredSessions(now time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, now.Unix())
	return err
}

func scanParticipant(row rowScanner) (*auth.Participant, error) {
	var (
		p         auth.Participant
		createdAt int64
		lastLogin sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &createdAt, &lastLogin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrParticipantNotFound
		}
		return nil, err
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	if lastLogin.Valid {
		p.LastLogin = time.Unix(lastLogin.Int64, 0)
	}
	return &p, nil
}

func nullInt64FromTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
