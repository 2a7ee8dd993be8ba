package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"strings"

	"github.com/treefix50/practicetime/internal/auth"
)

type ctxKey int

const authSessionKey ctxKey = iota

// handleAuthLogin exchanges credentials for a bearer token
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}

	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	if ok, wait := s.limiter.Allow(clientIP(r)); !ok {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
		s.writeError(w, "too many login attempts", http.StatusTooManyRequests)
		return
	}

	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, "bad request", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(payload.Username) == "" || strings.TrimSpace(payload.Password) == "" {
		s.writeError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	session, err := s.authManager.Login(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Printf("level=warn msg=\"login failed\" username=%q remote=%s", payload.Username, clientIP(r))
			s.writeError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		s.writeError(w, errInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, session)
}

// handleAuthLogout drops the caller's token
func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}

	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	token := extractToken(r)
	if token == "" {
		s.writeError(w, "missing authorization token", http.StatusUnauthorized)
		return
	}

	if err := s.authManager.Logout(token); err != nil {
		s.writeError(w, errInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

// withAuth rejects requests without a valid bearer token and hands the
// session to next through the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		session, err := s.requireAuth(r)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired) {
				s.writeError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			s.writeError(w, errInternal, http.StatusInternalServerError)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), authSessionKey, session)))
	}
}

func authSession(r *http.Request) *auth.Session {
	session, _ := r.Context().Value(authSessionKey).(*auth.Session)
	return session
}

// requireAuth validates the session and returns it
func (s *Server) requireAuth(r *http.Request) (*auth.Session, error) {
	token := extractToken(r)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}

	return s.authManager.Validate(token)
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
