package script

import (
	"errors"
	"fmt"
)

// ErrScriptInvalid is the kind of every script validation failure.
var ErrScriptInvalid = errors.New("script invalid")

// Rule names the invariant a script violated.
type Rule string

const (
	RuleMissingID               Rule = "missing-id"
	RuleNonPositiveTotal        Rule = "non-positive-total"
	RuleNoPhases                Rule = "no-phases"
	RuleNonPositivePhase        Rule = "non-positive-phase-duration"
	RuleMissingEntryInstruction Rule = "missing-entry-instruction"
	RuleOffsetOutOfRange        Rule = "offset-out-of-range"
	RuleOffsetOrder             Rule = "offset-order"
	RuleDurationSum             Rule = "duration-sum"
)

// ValidationError reports the first violated invariant. Phase and
// Instruction are -1 when the rule applies to the whole script.
type ValidationError struct {
	Rule        Rule
	Phase       int
	Instruction int
	Msg         string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Phase >= 0 && e.Instruction >= 0:
		return fmt.Sprintf("%s: %s: phase %d instruction %d: %s", ErrScriptInvalid, e.Rule, e.Phase, e.Instruction, e.Msg)
	case e.Phase >= 0:
		return fmt.Sprintf("%s: %s: phase %d: %s", ErrScriptInvalid, e.Rule, e.Phase, e.Msg)
	default:
		return fmt.Sprintf("%s: %s: %s", ErrScriptInvalid, e.Rule, e.Msg)
	}
}

func (e *ValidationError) Unwrap() error { return ErrScriptInvalid }

func invalidf(rule Rule, format string, args ...any) error {
	return &ValidationError{Rule: rule, Phase: -1, Instruction: -1, Msg: fmt.Sprintf(format, args...)}
}

func invalidPhasef(rule Rule, phase int, format string, args ...any) error {
	return &ValidationError{Rule: rule, Phase: phase, Instruction: -1, Msg: fmt.Sprintf(format, args...)}
}

func invalidInstructionf(rule Rule, phase, instruction int, format string, args ...any) error {
	return &ValidationError{Rule: rule, Phase: phase, Instruction: instruction, Msg: fmt.Sprintf(format, args...)}
}
