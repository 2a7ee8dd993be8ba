package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists participants, auth sessions and practice results in SQLite.
type Store struct {
	db       *sql.DB
	readOnly bool
}

const defaultBusyTimeout = 5 * time.Second

// Options are connection settings. Zero values keep SQLite's defaults
// except BusyTimeout, which defaults to five seconds.
type Options struct {
	BusyTimeout time.Duration
	Synchronous string
	CacheSize   int
	ReadOnly    bool
}

func sqliteDSN(path string, readOnly bool) (string, error) {
	if !readOnly {
		return path, nil
	}
	if path == ":memory:" {
		return "", fmt.Errorf("storage: read-only mode requires a file-backed database")
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("mode", "ro")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Open connects to the database at path, applies connection pragmas and,
// unless read-only, migrates the schema.
func Open(path string, options Options) (*Store, error) {
	dsn, err := sqliteDSN(path, options.ReadOnly)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	for _, pragma := range pragmas(options) {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, readOnly: options.ReadOnly}
	if !options.ReadOnly {
		if err := store.MigrateSchema(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return store, nil
}

func pragmas(options Options) []string {
	busyTimeout := options.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	list := []string{"PRAGMA foreign_keys=ON"}
	if !options.ReadOnly {
		synchronous := options.Synchronous
		if synchronous == "" {
			synchronous = "NORMAL"
		}
		list = append(list,
			"PRAGMA journal_mode=WAL",
			fmt.Sprintf("PRAGMA synchronous=%s", synchronous),
			"PRAGMA journal_size_limit=67108864",
		)
	}
	list = append(list,
		fmt.Sprintf("PRAGMA busy_timeout=%d", int(busyTimeout/time.Millisecond)),
		"PRAGMA temp_store=MEMORY",
	)
	if options.CacheSize != 0 {
		list = append(list, fmt.Sprintf("PRAGMA cache_size=%d", options.CacheSize))
	}
	return list
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ReadOnly reports whether the store was opened read-only.
func (s *Store) ReadOnly() bool {
	if s == nil {
		return false
	}
	return s.readOnly
}

// IntegrityCheck runs PRAGMA integrity_check and returns its rows.
func (s *Store) IntegrityCheck() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}
	rows, err := s.db.Query("PRAGMA integrity_check")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
