package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantExists   = errors.New("participant already exists")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrWeakPassword        = errors.New("password must be at least 8 characters")
)

const minPasswordLength = 8

// Participant is a person practising with the program
type Participant struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLogin    time.Time `json:"lastLogin,omitempty"`
}

// Session is an authenticated bearer token
type Session struct {
	Token         string    `json:"token"`
	ParticipantID string    `json:"participantId"`
	Username      string    `json:"username"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Store defines the persistence used by Manager
type Store interface {
	CreateParticipant(p Participant) error
	GetParticipant(id string) (*Participant, error)
	GetParticipantByUsername(username string) (*Participant, error)
	UpdateLastLogin(id string, at time.Time) error
	CountParticipants() (int, error)

	CreateSession(session Session) error
	GetSession(token string) (*Session, error)
	DeleteSession(token string) error
	CleanExpiredSessions(now time.Time) error
}

// Manager handles participant authentication
type Manager struct {
	store           Store
	sessionDuration time.Duration
	cache           *SessionCache
	now             func() time.Time
}

// NewManager returns a manager whose sessions last sessionDuration.
func NewManager(store Store, sessionDuration time.Duration) *Manager {
	if sessionDuration == 0 {
		sessionDuration = 24 * time.Hour
	}
	return &Manager{
		store:           store,
		sessionDuration: sessionDuration,
		cache:           NewSessionCache(defaultCacheSize, 5*time.Minute),
		now:             time.Now,
	}
}

// GeneratePassword returns a random password for bootstrap accounts
func GeneratePassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("practice-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(bytes)[:22]
}

// HashPassword hashes password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken returns a random 256-bit hex token
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// EnsureBootstrapParticipant creates an "admin" participant when none
// exist and returns its generated password. It returns "" otherwise.
func (m *Manager) EnsureBootstrapParticipant() (string, error) {
	count, err := m.store.CountParticipants()
	if err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}

	password := GeneratePassword()
	if _, err := m.CreateParticipant("admin", password); err != nil {
		return "", err
	}
	return password, nil
}

// CreateParticipant stores a new participant with a hashed password.
func (m *Manager) CreateParticipant(username, password string) (*Participant, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	existing, err := m.store.GetParticipantByUsername(username)
	if err == nil && existing != nil {
		return nil, ErrParticipantExists
	}
	if err != nil && !errors.Is(err, ErrParticipantNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	p := Participant{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    m.now(),
	}
	if err := m.store.CreateParticipant(p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Login checks credentials and opens a session
func (m *Manager) Login(username, password string) (*Session, error) {
	p, err := m.store.GetParticipantByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrParticipantNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(password, p.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := m.now()
	if err := m.store.UpdateLastLogin(p.ID, now); err != nil {
		log.Printf("level=warn msg=\"update last login failed\" participant=%s err=%v", p.ID, err)
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	session := Session{
		Token:         token,
		ParticipantID: p.ID,
		Username:      p.Username,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.sessionDuration),
	}
	if err := m.store.CreateSession(session); err != nil {
		return nil, err
	}

	m.cache.Set(&session)
	return &session, nil
}

// Logout ends the session for token.
func (m *Manager) Logout(token string) error {
	m.cache.Delete(token)
	return m.store.DeleteSession(token)
}

// Validate resolves a bearer token, consulting the cache first
func (m *Manager) Validate(token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	now := m.now()
	if session, ok := m.cache.Get(token, now); ok {
		return session, nil
	}

	session, err := m.store.GetSession(token)
	if err != nil {
		return nil, err
	}
	if now.After(session.ExpiresAt) {
		_ = m.store.DeleteSession(token)
		m.cache.Delete(token)
		return nil, ErrTokenExpired
	}

	m.cache.Set(session)
	return session, nil
}

// CleanupExpiredSessions deletes sessions that have expired.
func (m *Manager) CleanupExpiredSessions() error {
	return m.store.CleanExpiredSessions(m.now())
}
