package session

import "fmt"

// State is the playback state of a controller.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateIdle; candidate <= StateStopped; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("session: unknown state %q", text)
}

// Terminal reports whether the run has ended.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateStopped
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateRunning
	case StateRunning:
		return to == StatePaused || to == StateStopped || to == StateCompleted
	case StatePaused:
		return to == StateRunning || to == StateStopped
	case StateCompleted, StateStopped:
		return to == StateIdle
	default:
		return false
	}
}
