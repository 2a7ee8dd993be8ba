package session

import "math"

// Snapshot is a point-in-time view of a controller for hosts and UIs.
type Snapshot struct {
	ScriptID         string   `json:"scriptId"`
	ScriptName       string   `json:"scriptName"`
	State            State    `json:"state"`
	Position         Position `json:"position"`
	PhaseName        string   `json:"phaseName"`
	Instruction      string   `json:"instruction"`
	ElapsedSeconds   int      `json:"elapsedSeconds"`
	RemainingSeconds int      `json:"remainingSeconds"`
	TotalSeconds     int      `json:"totalSeconds"`
	PercentComplete  float64  `json:"percentComplete"`
	Dispatched       int      `json:"dispatched"`
}

// Snapshot returns a consistent view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.script.TotalDurationSeconds()
	elapsed := wholeSeconds(c.elapsed)
	if elapsed > total {
		elapsed = total
	}
	pos := c.position

	snap := Snapshot{
		ScriptID:         c.script.ID(),
		ScriptName:       c.script.Name(),
		State:            c.state,
		Position:         pos,
		ElapsedSeconds:   elapsed,
		RemainingSeconds: total - elapsed,
		TotalSeconds:     total,
		PercentComplete:  math.Round(float64(elapsed)*1000/float64(total)) / 10,
		Dispatched:       c.dispatcher.SentCount(),
	}
	if c.state != StateIdle {
		snap.PhaseName = c.script.PhaseName(pos.PhaseIndex)
		snap.Instruction = c.script.Instruction(pos.PhaseIndex, pos.InstructionIndex).Text
	}
	return snap
}
