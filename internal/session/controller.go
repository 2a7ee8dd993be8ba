package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/treefix50/practicetime/internal/script"
)

// ErrScriptRequired is returned by NewController for a nil script.
var ErrScriptRequired = errors.New("session: script is required")

// Hooks receive controller events. They run after the controller has
// released its lock, so a hook may call back into the controller. Events
// are queued under the lock and delivered by one caller at a time, which
// keeps them in the order they happened even when Tick and the control
// methods are called from different goroutines.
type Hooks struct {
	OnSessionStarted        func(startedAt time.Time)
	OnPositionChanged       func(Position)
	OnInstructionDispatched func(Dispatch)
	OnSessionEnded          func(Result)
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the system clock. A nil clock is ignored.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithAnnouncer sends the text of every dispatched instruction to a.
func WithAnnouncer(a Announcer) Option {
	return func(c *Controller) { c.announcer = a }
}

// WithHooks registers event callbacks.
func WithHooks(h Hooks) Option {
	return func(c *Controller) { c.hooks = h }
}

// Controller plays one script. Elapsed time is always derived from the
// clock as now minus a start reference; pausing freezes it and resuming
// moves the reference so the paused interval is excluded.
type Controller struct {
	script     *script.Script
	clock      Clock
	announcer  Announcer
	hooks      Hooks
	dispatcher *Dispatcher

	mu        sync.Mutex
	state     State
	startRef  time.Time
	startedAt time.Time
	elapsed   time.Duration
	position  Position

	pending  []func()
	draining bool
}

// NewController returns an idle controller for s.
func NewController(s *script.Script, opts ...Option) (*Controller, error) {
	if s == nil {
		return nil, ErrScriptRequired
	}
	c := &Controller{
		script: s,
		clock:  SystemClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dispatcher = NewDispatcher(s, c.announcer)
	return c, nil
}

func (c *Controller) Script() *script.Script { return c.script }

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns the position as of the last resolution.
func (c *Controller) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Elapsed returns the elapsed time as of the last resolution.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Start begins a run from Idle and immediately dispatches the first
// instruction.
func (c *Controller) Start() bool {
	c.mu.Lock()
	if !c.transitionable("start", StateRunning) {
		c.mu.Unlock()
		return false
	}
	now := c.clock.Now()
	c.state = StateRunning
	c.startRef = now
	c.startedAt = now
	c.elapsed = 0
	c.dispatcher.Reset()

	pos := Resolve(c.script, 0)
	events := append([]func(){c.startedEvent(now)}, c.advanceLocked(Position{}, pos)...)
	deliver := c.queueLocked(events)
	c.mu.Unlock()

	log.Printf("level=info msg=\"session started\" script=%s", c.script.ID())
	c.drain(deliver)
	return true
}

// Tick recomputes elapsed time, dispatches anything newly crossed and
// completes the run once the script's total has been reached.
func (c *Controller) Tick() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	deliver := c.queueLocked(c.syncLocked(c.clock.Now()))
	c.mu.Unlock()

	c.drain(deliver)
}

// Pause freezes elapsed time. Anything crossed up to the moment of pausing
// is dispatched first; if that reaches the end, the run completes instead.
func (c *Controller) Pause() bool {
	c.mu.Lock()
	if !c.transitionable("pause", StatePaused) {
		c.mu.Unlock()
		return false
	}
	deliver := c.queueLocked(c.syncLocked(c.clock.Now()))
	if c.state != StateRunning {
		c.mu.Unlock()
		c.drain(deliver)
		return false
	}
	c.state = StatePaused
	c.mu.Unlock()

	log.Printf("level=info msg=\"session paused\" script=%s elapsed=%s", c.script.ID(), c.elapsedString())
	c.drain(deliver)
	return true
}

// Resume continues a paused run without counting the paused interval.
func (c *Controller) Resume() bool {
	c.mu.Lock()
	if !c.transitionable("resume", StateRunning) {
		c.mu.Unlock()
		return false
	}
	c.state = StateRunning
	c.startRef = c.clock.Now().Add(-c.elapsed)
	deliver := c.queueLocked([]func(){c.positionEvent(c.position)})
	c.mu.Unlock()

	log.Printf("level=info msg=\"session resumed\" script=%s elapsed=%s", c.script.ID(), c.elapsedString())
	c.drain(deliver)
	return true
}

// Stop ends a running or paused run early.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	if !c.transitionable("stop", StateStopped) {
		c.mu.Unlock()
		return false
	}
	var events []func()
	if c.state == StateRunning {
		events = c.syncLocked(c.clock.Now())
		if c.state != StateRunning {
			deliver := c.queueLocked(events)
			c.mu.Unlock()
			c.drain(deliver)
			return false
		}
	} else {
		events = append(events, c.positionEvent(c.position))
	}
	c.state = StateStopped
	result := stoppedResult(c.script, wholeSeconds(c.elapsed), c.startedAt, c.clock.Now())
	deliver := c.queueLocked(append(events, c.endedEvent(result)))
	c.mu.Unlock()

	log.Printf(
		"level=info msg=\"session stopped\" script=%s elapsed=%ds phases_reached=%d",
		c.script.ID(),
		result.ElapsedSeconds,
		result.ReachedCount(),
	)
	c.drain(deliver)
	return true
}

// Reset returns a completed or stopped controller to Idle.
func (c *Controller) Reset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.transitionable("reset", StateIdle) {
		return false
	}
	c.state = StateIdle
	c.startRef = time.Time{}
	c.startedAt = time.Time{}
	c.elapsed = 0
	c.position = Position{}
	c.dispatcher.Reset()
	return true
}

// Run ticks the controller every interval until ctx is done or the run
// reaches a terminal state.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
			if c.State().Terminal() {
				return nil
			}
		}
	}
}

// transitionable reports whether op may move the controller to state to.
// Start and resume share a target, so each is also pinned to its source.
func (c *Controller) transitionable(op string, to State) bool {
	ok := isAllowedTransition(c.state, to)
	switch op {
	case "start":
		ok = ok && c.state == StateIdle
	case "resume":
		ok = ok && c.state == StatePaused
	}
	if ok {
		return true
	}
	log.Printf("level=debug msg=\"transition ignored\" script=%s op=%s state=%s", c.script.ID(), op, c.state)
	return false
}

// syncLocked brings a running controller up to now. Elapsed time never
// moves backwards even if the clock does.
func (c *Controller) syncLocked(now time.Time) []func() {
	elapsed := now.Sub(c.startRef)
	if elapsed < c.elapsed {
		elapsed = c.elapsed
	}
	c.elapsed = elapsed

	pos := Resolve(c.script, wholeSeconds(elapsed))
	events := c.advanceLocked(c.position, pos)
	if !pos.IsComplete {
		return events
	}

	c.state = StateCompleted
	c.elapsed = time.Duration(c.script.TotalDurationSeconds()) * time.Second
	result := completedResult(c.script, c.startedAt, now)
	log.Printf("level=info msg=\"session completed\" script=%s elapsed=%ds", c.script.ID(), result.ElapsedSeconds)
	return append(events, c.endedEvent(result))
}

func (c *Controller) advanceLocked(prev, pos Position) []func() {
	var events []func()
	for _, d := range c.dispatcher.Advance(prev, pos) {
		events = append(events, c.dispatchEvent(d))
	}
	c.position = pos
	return append(events, c.positionEvent(pos))
}

func (c *Controller) startedEvent(at time.Time) func() {
	hook := c.hooks.OnSessionStarted
	return func() {
		if hook != nil {
			hook(at)
		}
	}
}

func (c *Controller) dispatchEvent(d Dispatch) func() {
	dispatcher := c.dispatcher
	hook := c.hooks.OnInstructionDispatched
	return func() {
		dispatcher.Announce(context.Background(), d)
		if hook != nil {
			hook(d)
		}
	}
}

func (c *Controller) positionEvent(pos Position) func() {
	hook := c.hooks.OnPositionChanged
	return func() {
		if hook != nil {
			hook(pos)
		}
	}
}

func (c *Controller) endedEvent(result Result) func() {
	hook := c.hooks.OnSessionEnded
	return func() {
		if hook != nil {
			hook(result)
		}
	}
}

func (c *Controller) elapsedString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed.Truncate(time.Second).String()
}

// queueLocked appends events to the delivery queue and reports whether the
// caller has to deliver them. While another caller is delivering, it picks
// the new events up after its own.
func (c *Controller) queueLocked(events []func()) bool {
	c.pending = append(c.pending, events...)
	if c.draining || len(c.pending) == 0 {
		return false
	}
	c.draining = true
	return true
}

// drain delivers queued events without holding c.mu until the queue is
// empty. Only the caller that queueLocked elected may drain.
func (c *Controller) drain(deliver bool) {
	if !deliver {
		return
	}
	finished := false
	defer func() {
		if !finished {
			c.mu.Lock()
			c.pending = nil
			c.draining = false
			c.mu.Unlock()
		}
	}()

	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.draining = false
			c.mu.Unlock()
			finished = true
			return
		}
		fn := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]
		c.mu.Unlock()

		fn()
	}
}
