package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/treefix50/practicetime/internal/session"
)

// sessionView is the JSON form of a live session.
type sessionView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ResultID  string    `json:"resultId,omitempty"`
	session.Snapshot
}

func viewOf(ls *liveSession) sessionView {
	return sessionView{
		ID:        ls.ID,
		CreatedAt: ls.CreatedAt,
		ResultID:  ls.ResultID(),
		Snapshot:  ls.controller.Snapshot(),
	}
}

// controlResponse answers a playback control request. Applied is false
// when the request was not valid in the session's state.
type controlResponse struct {
	Applied bool        `json:"applied"`
	Session sessionView `json:"session"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, POST, OPTIONS") {
		return
	}
	caller := authSession(r)

	switch r.Method {
	case http.MethodGet:
		live := s.registry.List(caller.ParticipantID)
		views := make([]sessionView, len(live))
		for i, ls := range live {
			views[i] = viewOf(ls)
		}
		writeJSON(w, views)

	case http.MethodPost:
		var payload struct {
			ScriptID string `json:"scriptId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, "bad request", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(payload.ScriptID) == "" {
			s.writeError(w, "scriptId is required", http.StatusBadRequest)
			return
		}

		sc, ok := s.catalog.Get(payload.ScriptID)
		if !ok {
			s.writeError(w, "unknown script", http.StatusNotFound)
			return
		}

		ls, err := s.registry.Create(caller.ParticipantID, sc)
		if err != nil {
			s.writeError(w, errInternal, http.StatusInternalServerError)
			return
		}
		ls.controller.Start()
		writeJSONStatus(w, http.StatusCreated, viewOf(ls))

	default:
		s.methodNotAllowed(w)
	}
}

// Routes under /sessions/{id}[/{action}]
func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/sessions/")
	if len(parts) == 0 || len(parts) > 2 {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	methods := "POST, OPTIONS"
	if action == "" {
		methods = "GET, DELETE, OPTIONS"
	} else if action == "instructions" {
		methods = "GET, OPTIONS"
	}
	if s.handleOptions(w, r, methods) {
		return
	}

	ls, ok := s.registry.Get(parts[0])
	if !ok || ls.OwnerID != authSession(r).ParticipantID {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, viewOf(ls))
		case http.MethodDelete:
			ls.controller.Stop()
			s.registry.Remove(ls.ID)
			writeJSON(w, viewOf(ls))
		default:
			s.methodNotAllowed(w)
		}

	case "instructions":
		if r.Method != http.MethodGet {
			s.methodNotAllowed(w)
			return
		}
		writeJSON(w, ls.Dispatched())

	case "start", "pause", "resume", "stop", "reset":
		if r.Method != http.MethodPost {
			s.methodNotAllowed(w)
			return
		}
		writeJSON(w, controlResponse{
			Applied: s.control(ls, action),
			Session: viewOf(ls),
		})

	default:
		s.writeError(w, errNotFound, http.StatusNotFound)
	}
}

func (s *Server) control(ls *liveSession, action string) bool {
	c := ls.controller
	switch action {
	case "start":
		return c.Start()
	case "pause":
		if !c.Pause() {
			return false
		}
		ls.markIdle(s.registry.clock.Now())
		return true
	case "resume":
		if !c.Resume() {
			return false
		}
		ls.markActive()
		return true
	case "stop":
		return c.Stop()
	case "reset":
		if !c.Reset() {
			return false
		}
		ls.markIdle(s.registry.clock.Now())
		return true
	}
	return false
}
