package session

import (
	"time"

	"github.com/treefix50/practicetime/internal/script"
)

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeStoppedEarly Outcome = "stopped_early"
)

// PhaseReached records a phase the run entered.
type PhaseReached struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// Result summarizes a finished run. It is handed to OnSessionEnded and not
// kept by the controller.
type Result struct {
	ScriptID       string         `json:"scriptId"`
	ScriptName     string         `json:"scriptName"`
	Outcome        Outcome        `json:"outcome"`
	ElapsedSeconds int            `json:"elapsedSeconds"`
	TotalSeconds   int            `json:"totalSeconds"`
	PhasesReached  []PhaseReached `json:"phasesReached"`
	StartedAt      time.Time      `json:"startedAt"`
	EndedAt        time.Time      `json:"endedAt"`
}

func completedResult(s *script.Script, startedAt, endedAt time.Time) Result {
	return Result{
		ScriptID:       s.ID(),
		ScriptName:     s.Name(),
		Outcome:        OutcomeCompleted,
		ElapsedSeconds: s.TotalDurationSeconds(),
		TotalSeconds:   s.TotalDurationSeconds(),
		PhasesReached:  phasesReached(s, s.TotalDurationSeconds()),
		StartedAt:      startedAt,
		EndedAt:        endedAt,
	}
}

func stoppedResult(s *script.Script, elapsedSeconds int, startedAt, endedAt time.Time) Result {
	return Result{
		ScriptID:       s.ID(),
		ScriptName:     s.Name(),
		Outcome:        OutcomeStoppedEarly,
		ElapsedSeconds: elapsedSeconds,
		TotalSeconds:   s.TotalDurationSeconds(),
		PhasesReached:  phasesReached(s, elapsedSeconds),
		StartedAt:      startedAt,
		EndedAt:        endedAt,
	}
}

// phasesReached lists every phase whose end is at or before elapsed as
// completed, followed by the phase in progress, if any.
func phasesReached(s *script.Script, elapsedSeconds int) []PhaseReached {
	var out []PhaseReached
	for i := 0; i < s.PhaseCount(); i++ {
		start := s.PhaseStart(i)
		end := start + s.PhaseDuration(i)
		if end <= elapsedSeconds {
			out = append(out, PhaseReached{Index: i, Name: s.PhaseName(i), Completed: true})
			continue
		}
		if start <= elapsedSeconds {
			out = append(out, PhaseReached{Index: i, Name: s.PhaseName(i)})
		}
		break
	}
	return out
}

// ReachedCount returns how many phases the run entered.
func (r Result) ReachedCount() int { return len(r.PhasesReached) }
