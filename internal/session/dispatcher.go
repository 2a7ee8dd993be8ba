package session

import (
	"context"
	"fmt"
	"log"

	"github.com/treefix50/practicetime/internal/script"
)

// Key identifies an instruction by phase and index within the phase.
type Key struct {
	Phase       int `json:"phase"`
	Instruction int `json:"instruction"`
}

func (k Key) before(other Key) bool {
	if k.Phase != other.Phase {
		return k.Phase < other.Phase
	}
	return k.Instruction < other.Instruction
}

// Dispatch is one delivered instruction.
type Dispatch struct {
	Key                   Key    `json:"key"`
	PhaseName             string `json:"phaseName"`
	PhaseEntry            bool   `json:"phaseEntry"`
	OffsetSeconds         int    `json:"offsetSeconds"`
	Text                  string `json:"text"`
	SessionElapsedSeconds int    `json:"sessionElapsedSeconds"`
}

// Dispatcher tracks which instructions of a run have been delivered and
// yields every newly crossed instruction exactly once, in script order.
type Dispatcher struct {
	script    *script.Script
	announcer Announcer
	sent      map[Key]struct{}
}

// NewDispatcher returns a dispatcher with nothing delivered yet.
func NewDispatcher(s *script.Script, announcer Announcer) *Dispatcher {
	return &Dispatcher{
		script:    s,
		announcer: announcer,
		sent:      make(map[Key]struct{}),
	}
}

// Reset forgets every delivered instruction.
func (d *Dispatcher) Reset() {
	d.sent = make(map[Key]struct{})
}

// Sent reports whether k has been delivered this run.
func (d *Dispatcher) Sent(k Key) bool {
	_, ok := d.sent[k]
	return ok
}

func (d *Dispatcher) SentCount() int { return len(d.sent) }

// Advance returns the instructions crossed moving from prev to cur,
// inclusive of both ends, skipping any already delivered. A move that
// spans whole phases yields every intervening instruction in order.
func (d *Dispatcher) Advance(prev, cur Position) []Dispatch {
	end := cur.Key()
	var out []Dispatch
	k := prev.Key()
	for !end.before(k) {
		if _, done := d.sent[k]; !done {
			d.sent[k] = struct{}{}
			in := d.script.Instruction(k.Phase, k.Instruction)
			out = append(out, Dispatch{
				Key:                   k,
				PhaseName:             d.script.PhaseName(k.Phase),
				PhaseEntry:            k.Instruction == 0,
				OffsetSeconds:         in.OffsetSeconds,
				Text:                  in.Text,
				SessionElapsedSeconds: cur.SessionElapsedSeconds,
			})
		}
		next, ok := d.next(k)
		if !ok {
			break
		}
		k = next
	}
	return out
}

func (d *Dispatcher) next(k Key) (Key, bool) {
	if k.Instruction+1 < d.script.InstructionCount(k.Phase) {
		return Key{Phase: k.Phase, Instruction: k.Instruction + 1}, true
	}
	if k.Phase+1 < d.script.PhaseCount() {
		return Key{Phase: k.Phase + 1}, true
	}
	return Key{}, false
}

// Announce hands the dispatch text to the announcer. Failures and panics
// are logged and dropped.
func (d *Dispatcher) Announce(ctx context.Context, dispatch Dispatch) {
	if d.announcer == nil {
		return
	}
	if err := safeAnnounce(ctx, d.announcer, dispatch.Text); err != nil {
		log.Printf(
			"level=warn msg=\"announce failed\" script=%s phase=%d instruction=%d err=%v",
			d.script.ID(),
			dispatch.Key.Phase,
			dispatch.Key.Instruction,
			err,
		)
	}
}

func safeAnnounce(ctx context.Context, a Announcer, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("announcer panic: %v", r)
		}
	}()
	return a.Announce(ctx, text)
}
