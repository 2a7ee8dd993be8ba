package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/treefix50/practicetime/internal/auth"
	"github.com/treefix50/practicetime/internal/session"
)

func newTestStore(t *testing.T, ensureSchema bool) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}

	store := &Store{db: db}
	if ensureSchema {
		if err := store.EnsureSchema(); err != nil {
			t.Fatalf("ensure schema: %v", err)
		}
	}

	return store
}

func TestEnsureSchema(t *testing.T) {
	store := newTestStore(t, false)

	if err := store.MigrateSchema(); err != nil {
		t.Fatalf("MigrateSchema() error = %v", err)
	}

	rows, err := store.db.Query(`
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
	`)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan sqlite_master: %v", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("sqlite_master rows: %v", err)
	}

	for _, table := range []string{"schema_migrations", "participants", "auth_sessions", "session_results", "result_phases"} {
		if !found[table] {
			t.Fatalf("expected table %q to exist", table)
		}
	}

	version, err := store.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("unexpected schema version: got %d want %d", version, len(migrations))
	}

	// running again is a no-op
	if err := store.MigrateSchema(); err != nil {
		t.Fatalf("second MigrateSchema() error = %v", err)
	}
}

func TestOpenFileBackedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "practice.db")
	store, err := Open(path, Options{BusyTimeout: time.Second, CacheSize: -2000})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	results, err := store.IntegrityCheck()
	if err != nil {
		t.Fatalf("IntegrityCheck() error = %v", err)
	}
	if len(results) != 1 || results[0] != "ok" {
		t.Fatalf("IntegrityCheck() = %v, want [ok]", results)
	}
	if store.ReadOnly() {
		t.Fatal("store opened read-write reports read-only")
	}
}

func TestOpenReadOnlyRequiresFile(t *testing.T) {
	if _, err := Open(":memory:", Options{ReadOnly: true}); err == nil {
		t.Fatal("expected error opening :memory: read-only")
	}
}

func stoppedAt500() session.Result {
	started := time.Unix(1760000000, 0)
	return session.Result{
		ScriptID:       "att-standard",
		ScriptName:     "Attention Training",
		Outcome:        session.OutcomeStoppedEarly,
		ElapsedSeconds: 500,
		TotalSeconds:   900,
		PhasesReached: []session.PhaseReached{
			{Index: 0, Name: "Introduction", Completed: true},
			{Index: 1, Name: "Selective Attention", Completed: true},
			{Index: 2, Name: "Rapid Attention Switching", Completed: true},
			{Index: 3, Name: "Divided Attention"},
		},
		StartedAt: started,
		EndedAt:   started.Add(500 * time.Second),
	}
}

func TestSaveAndGetResult(t *testing.T) {
	store := newTestStore(t, true)

	saved, err := store.SaveResult("p-1", stoppedAt500())
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated result id")
	}

	got, ok, err := store.GetResult(saved.ID)
	if err != nil || !ok {
		t.Fatalf("GetResult() = %v, %v", ok, err)
	}
	if got.ParticipantID != "p-1" || got.Outcome != session.OutcomeStoppedEarly || got.ElapsedSeconds != 500 {
		t.Fatalf("unexpected stored result: %+v", got)
	}
	if !got.StartedAt.Equal(time.Unix(1760000000, 0)) {
		t.Fatalf("unexpected started_at: %v", got.StartedAt)
	}
	if len(got.PhasesReached) != 4 || got.PhasesReached[3].Completed || !got.PhasesReached[2].Completed {
		t.Fatalf("unexpected phases: %+v", got.PhasesReached)
	}

	if _, ok, err := store.GetResult("missing"); ok || err != nil {
		t.Fatalf("GetResult(missing) = %v, %v; want not found", ok, err)
	}
}

func TestListAndCountResults(t *testing.T) {
	store := newTestStore(t, true)

	first := stoppedAt500()
	second := stoppedAt500()
	second.Outcome = session.OutcomeCompleted
	second.ElapsedSeconds = 900
	second.EndedAt = second.EndedAt.Add(time.Hour)

	for _, r := range []session.Result{first, second} {
		if _, err := store.SaveResult("p-1", r); err != nil {
			t.Fatalf("SaveResult() error = %v", err)
		}
	}
	if _, err := store.SaveResult("p-2", first); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	results, err := store.ListResults("p-1", "", 10, 0)
	if err != nil {
		t.Fatalf("ListResults() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("ListResults() returned %d results, want 2", len(results))
	}
	if results[0].Outcome != session.OutcomeCompleted {
		t.Fatalf("expected newest result first, got %+v", results[0])
	}
	if len(results[1].PhasesReached) != 4 {
		t.Fatalf("phases not loaded for listed result: %+v", results[1])
	}

	page, err := store.ListResults("p-1", "", 1, 1)
	if err != nil || len(page) != 1 || page[0].Outcome != session.OutcomeStoppedEarly {
		t.Fatalf("second page = %+v, %v", page, err)
	}

	stopped, err := store.ListResults("p-1", session.OutcomeStoppedEarly, 10, 0)
	if err != nil || len(stopped) != 1 || stopped[0].ElapsedSeconds != 500 {
		t.Fatalf("ListResults(stopped_early) = %+v, %v", stopped, err)
	}

	total, err := store.CountResults("p-1", "")
	if err != nil || total != 2 {
		t.Fatalf("CountResults(all) = %d, %v; want 2", total, err)
	}
	completed, err := store.CountResults("p-1", session.OutcomeCompleted)
	if err != nil || completed != 1 {
		t.Fatalf("CountResults(completed) = %d, %v; want 1", completed, err)
	}
}

func TestParticipantsAndSessions(t *testing.T) {
	store := newTestStore(t, true)
	created := time.Unix(1760000000, 0)

	p := auth.Participant{ID: "p-1", Username: "sam", PasswordHash: "hash", CreatedAt: created}
	if err := store.CreateParticipant(p); err != nil {
		t.Fatalf("CreateParticipant() error = %v", err)
	}
	if err := store.CreateParticipant(p); err == nil {
		t.Fatal("expected duplicate participant to fail")
	}

	got, err := store.GetParticipantByUsername("sam")
	if err != nil || got.ID != "p-1" || !got.LastLogin.IsZero() {
		t.Fatalf("GetParticipantByUsername() = %+v, %v", got, err)
	}
	if _, err := store.GetParticipant("nobody"); !errors.Is(err, auth.ErrParticipantNotFound) {
		t.Fatalf("GetParticipant(nobody) error = %v, want ErrParticipantNotFound", err)
	}

	login := created.Add(time.Hour)
	if err := store.UpdateLastLogin("p-1", login); err != nil {
		t.Fatalf("UpdateLastLogin() error = %v", err)
	}
	got, err = store.GetParticipant("p-1")
	if err != nil || !got.LastLogin.Equal(login) {
		t.Fatalf("last login = %v, %v; want %v", got.LastLogin, err, login)
	}

	count, err := store.CountParticipants()
	if err != nil || count != 1 {
		t.Fatalf("CountParticipants() = %d, %v", count, err)
	}

	live := auth.Session{Token: "live", ParticipantID: "p-1", CreatedAt: created, ExpiresAt: created.Add(48 * time.Hour)}
	old := auth.Session{Token: "old", ParticipantID: "p-1", CreatedAt: created, ExpiresAt: created.Add(time.Minute)}
	for _, s := range []auth.Session{live, old} {
		if err := store.CreateSession(s); err != nil {
			t.Fatalf("CreateSession(%s) error = %v", s.Token, err)
		}
	}

	authSession, err := store.GetSession("live")
	if err != nil || authSession.Username != "sam" {
		t.Fatalf("GetSession(live) = %+v, %v", authSession, err)
	}

	if err := store.CleanExpiredSessions(created.Add(time.Hour)); err != nil {
		t.Fatalf("CleanExpiredSessions() error = %v", err)
	}
	if _, err := store.GetSession("old"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("GetSession(old) error = %v, want ErrInvalidToken", err)
	}

	if err := store.DeleteSession("live"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := store.GetSession("live"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("GetSession(live) after delete error = %v", err)
	}
}
