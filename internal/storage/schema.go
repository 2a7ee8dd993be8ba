package storage

import "fmt"

const schemaParticipants = `
CREATE TABLE IF NOT EXISTS participants (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_login INTEGER
);`

const schemaAuthSessions = `
CREATE TABLE IF NOT EXISTS auth_sessions (
	token TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE
);`

const schemaSessionResults = `
CREATE TABLE IF NOT EXISTS session_results (
	id TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL DEFAULT '',
	script_id TEXT NOT NULL,
	script_name TEXT NOT NULL,
	outcome TEXT NOT NULL CHECK (outcome IN ('completed', 'stopped_early')),
	elapsed_seconds INTEGER NOT NULL CHECK (elapsed_seconds >= 0),
	total_seconds INTEGER NOT NULL CHECK (total_seconds > 0),
	started_at INTEGER NOT NULL,
	ended_at INTEGER NOT NULL,
	saved_at INTEGER NOT NULL
);`

const schemaResultPhases = `
CREATE TABLE IF NOT EXISTS result_phases (
	result_id TEXT NOT NULL,
	phase_index INTEGER NOT NULL CHECK (phase_index >= 0),
	name TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (result_id, phase_index),
	FOREIGN KEY (result_id) REFERENCES session_results(id) ON DELETE CASCADE
);`

const schemaSessionResultsIndexes = `
CREATE INDEX IF NOT EXISTS idx_session_results_participant ON session_results(participant_id, ended_at DESC);
CREATE INDEX IF NOT EXISTS idx_session_results_script ON session_results(script_id);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_expires_at ON auth_sessions(expires_at);`

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY
);`

type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			schemaParticipants,
			schemaAuthSessions,
			schemaSessionResults,
			schemaResultPhases,
		},
	},
	{
		version: 2,
		statements: []string{
			schemaSessionResultsIndexes,
		},
	},
}

func (s *Store) EnsureSchema() error {
	return s.MigrateSchema()
}

// MigrateSchema applies every migration newer than the recorded version.
func (s *Store) MigrateSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	if _, err := s.db.Exec(schemaMigrations); err != nil {
		return fmt.Errorf("storage: create schema_migrations table: %w", err)
	}

	current, err := s.currentSchemaVersion()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.version <= current {
			continue
		}
		if err := s.applyMigration(migration); err != nil {
			return err
		}
		current = migration.version
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	return s.currentSchemaVersion()
}

func (s *Store) currentSchemaVersion() (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("storage: missing database connection")
	}

	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("storage: read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) applyMigration(migration migration) (err error) {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: start migration %d: %w", migration.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, statement := range migration.statements {
		if _, err = tx.Exec(statement); err != nil {
			return fmt.Errorf("storage: migration %d failed: %w", migration.version, err)
		}
	}

	if _, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, migration.version); err != nil {
		return fmt.Errorf("storage: record migration %d: %w", migration.version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit migration %d: %w", migration.version, err)
	}
	return nil
}
