// Package script defines practice scripts: ordered phases of timed
// instructions, validated once at load time and immutable afterwards.
package script

// Instruction is a piece of guidance anchored to an offset within its phase.
type Instruction struct {
	OffsetSeconds int    `json:"offsetSeconds"`
	Text          string `json:"text"`
}

// Phase is a named, fixed-duration segment of a script.
type Phase struct {
	Name            string        `json:"name"`
	DurationSeconds int           `json:"durationSeconds"`
	Instructions    []Instruction `json:"instructions"`
}

// Script is a validated practice script. The zero value is not usable;
// scripts are only produced by Load.
type Script struct {
	id     string
	name   string
	total  int
	phases []Phase
	starts []int
}

func (s *Script) ID() string   { return s.id }
func (s *Script) Name() string { return s.name }

// TotalDurationSeconds is the sum of all phase durations.
func (s *Script) TotalDurationSeconds() int { return s.total }

// PhaseCount returns the number of phases.
func (s *Script) PhaseCount() int { return len(s.phases) }

// PhaseStart returns the session offset at which phase i begins.
func (s *Script) PhaseStart(i int) int { return s.starts[i] }

// PhaseName returns the name of phase i.
func (s *Script) PhaseName(i int) string { return s.phases[i].Name }

// PhaseDuration returns the length of phase i in seconds.
func (s *Script) PhaseDuration(i int) int { return s.phases[i].DurationSeconds }

// InstructionCount returns how many instructions phase holds.
func (s *Script) InstructionCount(phase int) int { return len(s.phases[phase].Instructions) }

// InstructionOffset returns the offset of instruction i within its phase.
func (s *Script) InstructionOffset(phase, i int) int {
	return s.phases[phase].Instructions[i].OffsetSeconds
}

// Instruction returns instruction i of phase.
func (s *Script) Instruction(phase, i int) Instruction {
	return s.phases[phase].Instructions[i]
}

// Phase returns a copy of phase i.
func (s *Script) Phase(i int) Phase {
	return clonePhase(s.phases[i])
}

// Phases returns a copy of every phase in order.
func (s *Script) Phases() []Phase {
	out := make([]Phase, len(s.phases))
	for i, p := range s.phases {
		out[i] = clonePhase(p)
	}
	return out
}

// Raw returns the authoring form of the script.
func (s *Script) Raw() Raw {
	return Raw{
		ID:                   s.id,
		Name:                 s.name,
		TotalDurationSeconds: s.total,
		Phases:               s.Phases(),
	}
}

// Summary is the catalog listing form of a script.
type Summary struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	TotalDurationSeconds int      `json:"totalDurationSeconds"`
	Phases               []string `json:"phases"`
}

// Summary returns the catalog listing form of the script.
func (s *Script) Summary() Summary {
	names := make([]string, len(s.phases))
	for i, p := range s.phases {
		names[i] = p.Name
	}
	return Summary{
		ID:                   s.id,
		Name:                 s.name,
		TotalDurationSeconds: s.total,
		Phases:               names,
	}
}

func clonePhase(p Phase) Phase {
	instructions := make([]Instruction, len(p.Instructions))
	copy(instructions, p.Instructions)
	p.Instructions = instructions
	return p
}
