package auth

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryStore struct {
	mu           sync.Mutex
	participants map[string]Participant
	sessions     map[string]Session
	getSessions  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		participants: map[string]Participant{},
		sessions:     map[string]Session{},
	}
}

func (s *memoryStore) CreateParticipant(p Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
	return nil
}

func (s *memoryStore) GetParticipant(id string) (*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return &p, nil
}

func (s *memoryStore) GetParticipantByUsername(username string) (*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.Username == username {
			p := p
			return &p, nil
		}
	}
	return nil, ErrParticipantNotFound
}

func (s *memoryStore) UpdateLastLogin(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.participants[id]
	p.LastLogin = at
	s.participants[id] = p
	return nil
}

func (s *memoryStore) CountParticipants() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants), nil
}

func (s *memoryStore) CreateSession(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

func (s *memoryStore) GetSession(token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getSessions++
	session, ok := s.sessions[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &session, nil
}

func (s *memoryStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *memoryStore) CleanExpiredSessions(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func TestEnsureBootstrapParticipant(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour)

	password, err := m.EnsureBootstrapParticipant()
	if err != nil {
		t.Fatalf("EnsureBootstrapParticipant() error = %v", err)
	}
	if password == "" {
		t.Fatal("expected a generated password on first run")
	}
	if _, err := m.Login("admin", password); err != nil {
		t.Fatalf("Login() with bootstrap password error = %v", err)
	}

	again, err := m.EnsureBootstrapParticipant()
	if err != nil || again != "" {
		t.Fatalf("second EnsureBootstrapParticipant() = %q, %v; want empty", again, err)
	}
}

func TestCreateParticipantRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	m := NewManager(newMemoryStore(), time.Hour)

	if _, err := m.CreateParticipant("sam", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak password error = %v, want ErrWeakPassword", err)
	}
	if _, err := m.CreateParticipant("sam", "long enough"); err != nil {
		t.Fatalf("CreateParticipant() error = %v", err)
	}
	if _, err := m.CreateParticipant("sam", "another one"); !errors.Is(err, ErrParticipantExists) {
		t.Fatalf("duplicate error = %v, want ErrParticipantExists", err)
	}
}

func TestLoginValidateLogout(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Hour)
	if _, err := m.CreateParticipant("sam", "correct horse"); err != nil {
		t.Fatalf("CreateParticipant() error = %v", err)
	}

	if _, err := m.Login("sam", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := m.Login("nobody", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user error = %v, want ErrInvalidCredentials", err)
	}

	session, err := m.Login("sam", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if len(session.Token) != 64 {
		t.Fatalf("token length = %d, want 64", len(session.Token))
	}

	got, err := m.Validate(session.Token)
	if err != nil || got.ParticipantID != session.ParticipantID {
		t.Fatalf("Validate() = %+v, %v", got, err)
	}
	if store.getSessions != 0 {
		t.Fatalf("Validate() hit the store %d times, want cache hit", store.getSessions)
	}

	if err := m.Logout(session.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := m.Validate(session.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate() after logout error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsExpiredSessions(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, time.Minute)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if _, err := m.CreateParticipant("sam", "correct horse"); err != nil {
		t.Fatalf("CreateParticipant() error = %v", err)
	}
	session, err := m.Login("sam", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	m.cache.Purge()
	if _, err := m.Validate(session.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Validate() error = %v, want ErrTokenExpired", err)
	}
	if _, ok := store.sessions[session.Token]; ok {
		t.Fatal("expired session should be deleted from the store")
	}
}

func TestSessionCacheHonorsSessionExpiry(t *testing.T) {
	c := NewSessionCache(4, time.Hour)
	now := time.Now()
	c.Set(&Session{Token: "t", ExpiresAt: now.Add(time.Minute)})

	if _, ok := c.Get("t", now); !ok {
		t.Fatal("expected cached session")
	}
	if _, ok := c.Get("t", now.Add(2*time.Minute)); ok {
		t.Fatal("expired session should not be served from cache")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after expiry eviction", c.Len())
	}
}
