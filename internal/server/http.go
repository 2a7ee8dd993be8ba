package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	errInternal = "internal error"
	errNotFound = "not found"
)

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, msg string, status int) {
	writeJSONStatus(w, status, map[string]string{"error": msg})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
}

// handleOptions answers CORS preflight requests. It reports whether the
// request was handled.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request, methods string) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	w.Header().Set("Allow", methods)
	setCORSHeaders(w, s.corsEnabled)
	if s.corsEnabled {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	}
	w.WriteHeader(http.StatusNoContent)
	return true
}

// pathParts splits the path below prefix, dropping empty segments.
func pathParts(path, prefix string) []string {
	var parts []string
	for _, part := range strings.Split(strings.TrimPrefix(path, prefix), "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func setCORSHeaders(w http.ResponseWriter, enabled bool) {
	if enabled {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
}
