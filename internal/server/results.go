package server

import (
	"net/http"
	"strconv"

	"github.com/treefix50/practicetime/internal/session"
)

const maxResultsPage = 200

func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	scripts := s.catalog.All()
	summaries := make([]any, len(scripts))
	for i, sc := range scripts {
		summaries[i] = sc.Summary()
	}
	writeJSON(w, summaries)
}

func (s *Server) handleScriptDetail(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	parts := pathParts(r.URL.Path, "/scripts/")
	if len(parts) != 1 {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}
	sc, ok := s.catalog.Get(parts[0])
	if !ok {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, sc.Raw())
}

type resultsPage struct {
	Results []StoredResult `json:"results"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// handleResults lists the caller's saved results, newest first.
// Query: limit, offset, outcome (completed|stopped_early).
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	if s.results == nil {
		s.writeError(w, "not available without database", http.StatusNotImplemented)
		return
	}

	query := r.URL.Query()
	limit, err := queryInt(query.Get("limit"), 50)
	if err != nil || limit <= 0 || limit > maxResultsPage {
		s.writeError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	offset, err := queryInt(query.Get("offset"), 0)
	if err != nil || offset < 0 {
		s.writeError(w, "invalid offset", http.StatusBadRequest)
		return
	}
	outcome := session.Outcome(query.Get("outcome"))
	if outcome != "" && outcome != session.OutcomeCompleted && outcome != session.OutcomeStoppedEarly {
		s.writeError(w, "invalid outcome", http.StatusBadRequest)
		return
	}

	participantID := authSession(r).ParticipantID
	results, err := s.results.ListResults(participantID, outcome, limit, offset)
	if err != nil {
		s.writeError(w, errInternal, http.StatusInternalServerError)
		return
	}
	total, err := s.results.CountResults(participantID, outcome)
	if err != nil {
		s.writeError(w, errInternal, http.StatusInternalServerError)
		return
	}

	if results == nil {
		results = []StoredResult{}
	}
	writeJSON(w, resultsPage{Results: results, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleResultDetail(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	if s.results == nil {
		s.writeError(w, "not available without database", http.StatusNotImplemented)
		return
	}

	parts := pathParts(r.URL.Path, "/results/")
	if len(parts) != 1 {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}

	result, ok, err := s.results.GetResult(parts[0])
	if err != nil {
		s.writeError(w, errInternal, http.StatusInternalServerError)
		return
	}
	if !ok || result.ParticipantID != authSession(r).ParticipantID {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
