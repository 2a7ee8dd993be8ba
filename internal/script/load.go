package script

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Raw is the authoring format of a script.
type Raw struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	TotalDurationSeconds int     `json:"totalDurationSeconds"`
	Phases               []Phase `json:"phases"`
}

// Load validates raw and returns an immutable Script. The returned
// error is a *ValidationError naming the first violated rule.
func Load(raw Raw) (*Script, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return nil, invalidf(RuleMissingID, "script id is required")
	}
	if raw.TotalDurationSeconds <= 0 {
		return nil, invalidf(RuleNonPositiveTotal, "total duration %d must be positive", raw.TotalDurationSeconds)
	}
	if len(raw.Phases) == 0 {
		return nil, invalidf(RuleNoPhases, "script has no phases")
	}

	phases := make([]Phase, len(raw.Phases))
	starts := make([]int, len(raw.Phases))
	sum := 0
	for i, p := range raw.Phases {
		if err := validatePhase(i, p); err != nil {
			return nil, err
		}
		phases[i] = clonePhase(p)
		starts[i] = sum
		sum += p.DurationSeconds
	}

	if sum != raw.TotalDurationSeconds {
		return nil, invalidf(RuleDurationSum, "phase durations sum to %d, declared total is %d", sum, raw.TotalDurationSeconds)
	}

	return &Script{
		id:     id,
		name:   raw.Name,
		total:  sum,
		phases: phases,
		starts: starts,
	}, nil
}

func validatePhase(i int, p Phase) error {
	if p.DurationSeconds <= 0 {
		return invalidPhasef(RuleNonPositivePhase, i, "duration %d must be positive", p.DurationSeconds)
	}
	if len(p.Instructions) == 0 || p.Instructions[0].OffsetSeconds != 0 {
		return invalidPhasef(RuleMissingEntryInstruction, i, "first instruction must be at offset 0")
	}
	prev := 0
	for j, in := range p.Instructions {
		if in.OffsetSeconds < 0 || in.OffsetSeconds >= p.DurationSeconds {
			return invalidInstructionf(RuleOffsetOutOfRange, i, j, "offset %d outside [0, %d)", in.OffsetSeconds, p.DurationSeconds)
		}
		if in.OffsetSeconds < prev {
			return invalidInstructionf(RuleOffsetOrder, i, j, "offset %d precedes previous offset %d", in.OffsetSeconds, prev)
		}
		prev = in.OffsetSeconds
	}
	return nil
}

// LoadJSON decodes one script in the authoring format and validates it.
func LoadJSON(r io.Reader) (*Script, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var raw Raw
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrScriptInvalid, err)
	}
	return Load(raw)
}

// MustLoad is Load for scripts compiled into the binary.
func MustLoad(raw Raw) *Script {
	s, err := Load(raw)
	if err != nil {
		panic(fmt.Sprintf("script %q: %v", raw.ID, err))
	}
	return s
}
