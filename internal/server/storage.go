package server

import (
	"time"

	"github.com/treefix50/practicetime/internal/session"
)

// ResultStore is the persistence used for finished practice sessions.
type ResultStore interface {
	SaveResult(participantID string, result session.Result) (StoredResult, error)
	GetResult(id string) (*StoredResult, bool, error)
	ListResults(participantID string, outcome session.Outcome, limit, offset int) ([]StoredResult, error)
	CountResults(participantID string, outcome session.Outcome) (int, error)
	ReadOnly() bool
}

// StoredResult is a persisted session result.
type StoredResult struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participantId"`
	SavedAt       time.Time `json:"savedAt"`
	session.Result
}
