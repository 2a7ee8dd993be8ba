package session

import (
	"context"
	"errors"
	"testing"

	"github.com/treefix50/practicetime/internal/script"
)

func keysOf(ds []Dispatch) []Key {
	keys := make([]Key, len(ds))
	for i, d := range ds {
		keys[i] = d.Key
	}
	return keys
}

func equalKeys(a, b []Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDispatcherAdvanceWithinPhase(t *testing.T) {
	s := standardScript(t)
	d := NewDispatcher(s, nil)

	start := Resolve(s, 0)
	got := d.Advance(Position{}, start)
	if want := []Key{{0, 0}}; !equalKeys(keysOf(got), want) {
		t.Fatalf("start dispatches = %v, want %v", keysOf(got), want)
	}
	if !got[0].PhaseEntry || got[0].PhaseName != "Introduction" {
		t.Fatalf("unexpected entry dispatch: %+v", got[0])
	}

	// Same position again must not dispatch anything.
	if again := d.Advance(start, start); len(again) != 0 {
		t.Fatalf("repeat dispatches = %v, want none", keysOf(again))
	}

	mid := Resolve(s, 15)
	got = d.Advance(start, mid)
	if want := []Key{{0, 1}}; !equalKeys(keysOf(got), want) {
		t.Fatalf("mid dispatches = %v, want %v", keysOf(got), want)
	}
	if got[0].PhaseEntry {
		t.Fatal("offset instruction must not be marked as phase entry")
	}
}

func TestDispatcherAdvanceAcrossPhases(t *testing.T) {
	s := standardScript(t)
	d := NewDispatcher(s, nil)
	d.Advance(Position{}, Resolve(s, 0))

	// 250s lands 40s into Rapid Attention Switching, past its 30s instruction.
	got := d.Advance(Resolve(s, 0), Resolve(s, 250))
	want := []Key{{0, 1}, {1, 0}, {1, 1}, {1, 2}, {1, 3}, {2, 0}, {2, 1}}
	if !equalKeys(keysOf(got), want) {
		t.Fatalf("dispatches = %v, want %v", keysOf(got), want)
	}
	for _, dispatch := range got {
		if dispatch.SessionElapsedSeconds != 250 {
			t.Fatalf("dispatch %v elapsed = %d, want 250", dispatch.Key, dispatch.SessionElapsedSeconds)
		}
	}
	if d.SentCount() != 8 {
		t.Fatalf("SentCount() = %d, want 8", d.SentCount())
	}
}

func TestDispatcherEqualOffsetsBothFire(t *testing.T) {
	s := script.MustLoad(script.Raw{
		ID:                   "ties",
		Name:                 "Ties",
		TotalDurationSeconds: 10,
		Phases: []script.Phase{{
			Name:            "Only",
			DurationSeconds: 10,
			Instructions: []script.Instruction{
				{OffsetSeconds: 0, Text: "a"},
				{OffsetSeconds: 4, Text: "b"},
				{OffsetSeconds: 4, Text: "c"},
			},
		}},
	})
	d := NewDispatcher(s, nil)

	got := d.Advance(Position{}, Resolve(s, 4))
	var texts []string
	for _, dispatch := range got {
		texts = append(texts, dispatch.Text)
	}
	if len(texts) != 3 || texts[0] != "a" || texts[1] != "b" || texts[2] != "c" {
		t.Fatalf("dispatched texts = %v, want [a b c]", texts)
	}
}

func TestDispatcherResetAllowsRedelivery(t *testing.T) {
	s := standardScript(t)
	d := NewDispatcher(s, nil)
	d.Advance(Position{}, Resolve(s, 0))
	if !d.Sent(Key{}) {
		t.Fatal("expected first instruction to be marked sent")
	}

	d.Reset()
	if d.Sent(Key{}) || d.SentCount() != 0 {
		t.Fatal("Reset() should clear delivered instructions")
	}
	if got := d.Advance(Position{}, Resolve(s, 0)); len(got) != 1 {
		t.Fatalf("dispatches after reset = %d, want 1", len(got))
	}
}

func TestDispatcherAnnounceSwallowsFailures(t *testing.T) {
	s := standardScript(t)
	dispatch := Dispatch{Key: Key{}, Text: "hello"}

	failing := NewDispatcher(s, AnnouncerFunc(func(context.Context, string) error {
		return errors.New("speech unavailable")
	}))
	failing.Announce(context.Background(), dispatch)

	panicking := NewDispatcher(s, AnnouncerFunc(func(context.Context, string) error {
		panic("boom")
	}))
	panicking.Announce(context.Background(), dispatch)

	var heard string
	ok := NewDispatcher(s, AnnouncerFunc(func(_ context.Context, text string) error {
		heard = text
		return nil
	}))
	ok.Announce(context.Background(), dispatch)
	if heard != "hello" {
		t.Fatalf("announced %q, want %q", heard, "hello")
	}
}
