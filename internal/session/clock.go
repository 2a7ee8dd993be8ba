// Package session plays back practice scripts: it resolves positions from
// elapsed time, runs the start/pause/resume/stop state machine, dispatches
// each instruction exactly once and reports a Result when a run ends.
package session

import (
	"time"

	"github.com/treefix50/practicetime/internal/script"
)

// Position is where a session stands at a given elapsed time. It is always
// recomputable from the script and SessionElapsedSeconds.
type Position struct {
	PhaseIndex            int  `json:"phaseIndex"`
	PhaseElapsedSeconds   int  `json:"phaseElapsedSeconds"`
	InstructionIndex      int  `json:"instructionIndex"`
	SessionElapsedSeconds int  `json:"sessionElapsedSeconds"`
	IsComplete            bool `json:"isComplete"`
}

// Key identifies one instruction of a script.
func (p Position) Key() Key {
	return Key{Phase: p.PhaseIndex, Instruction: p.InstructionIndex}
}

// Resolve maps elapsed seconds onto s. It has no side effects. Negative
// values resolve as zero; values at or past the total resolve to the end
// of the last phase with IsComplete set.
func Resolve(s *script.Script, elapsedSeconds int) Position {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	last := s.PhaseCount() - 1
	if elapsedSeconds >= s.TotalDurationSeconds() {
		return Position{
			PhaseIndex:            last,
			PhaseElapsedSeconds:   s.PhaseDuration(last),
			InstructionIndex:      lastReached(s, last, s.PhaseDuration(last)),
			SessionElapsedSeconds: s.TotalDurationSeconds(),
			IsComplete:            true,
		}
	}

	phase := last
	for i := 0; i < s.PhaseCount(); i++ {
		if elapsedSeconds < s.PhaseStart(i)+s.PhaseDuration(i) {
			phase = i
			break
		}
	}

	phaseElapsed := elapsedSeconds - s.PhaseStart(phase)
	return Position{
		PhaseIndex:            phase,
		PhaseElapsedSeconds:   phaseElapsed,
		InstructionIndex:      lastReached(s, phase, phaseElapsed),
		SessionElapsedSeconds: elapsedSeconds,
	}
}

// lastReached returns the index of the last instruction whose offset is at
// or before phaseElapsed. Every valid phase has an instruction at offset 0.
func lastReached(s *script.Script, phase, phaseElapsed int) int {
	idx := 0
	for i := 0; i < s.InstructionCount(phase); i++ {
		if s.InstructionOffset(phase, i) > phaseElapsed {
			break
		}
		idx = i
	}
	return idx
}

// Clock supplies the current time. Elapsed time is measured as differences
// between readings, so implementations should carry a monotonic reading.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

func wholeSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
