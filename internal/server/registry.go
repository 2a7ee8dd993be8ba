package server

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/treefix50/practicetime/internal/script"
	"github.com/treefix50/practicetime/internal/session"
)

// liveSession is a controller owned by one participant plus what the
// HTTP layer remembers about it.
type liveSession struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time

	controller *session.Controller

	mu         sync.Mutex
	dispatched []session.Dispatch
	idleSince  time.Time
	resultID   string
}

func (ls *liveSession) recordDispatch(d session.Dispatch) {
	ls.mu.Lock()
	ls.dispatched = append(ls.dispatched, d)
	ls.mu.Unlock()
}

func (ls *liveSession) Dispatched() []session.Dispatch {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	out := make([]session.Dispatch, len(ls.dispatched))
	copy(out, ls.dispatched)
	return out
}

func (ls *liveSession) ResultID() string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.resultID
}

// markStarted forgets the previous run's log and result. It runs from the
// controller's started hook so it is ordered after the previous run's
// dispatch and ended hooks.
func (ls *liveSession) markStarted(time.Time) {
	ls.mu.Lock()
	ls.dispatched = nil
	ls.idleSince = time.Time{}
	ls.resultID = ""
	ls.mu.Unlock()
}

// markIdle records when the session stopped making progress. Paused,
// ended and reset sessions are all idle.
func (ls *liveSession) markIdle(at time.Time) {
	ls.mu.Lock()
	ls.idleSince = at
	ls.mu.Unlock()
}

func (ls *liveSession) markActive() {
	ls.mu.Lock()
	ls.idleSince = time.Time{}
	ls.mu.Unlock()
}

// EndedFunc is called once per finished run with the owning session.
type EndedFunc func(ls *liveSession, result session.Result)

// Registry keeps the live sessions of every participant.
type Registry struct {
	clock     session.Clock
	announcer session.Announcer
	onEnded   EndedFunc

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// NewRegistry returns an empty registry. A nil clock means the system clock.
func NewRegistry(clock session.Clock, announcer session.Announcer, onEnded EndedFunc) *Registry {
	if clock == nil {
		clock = session.SystemClock
	}
	return &Registry{
		clock:     clock,
		announcer: announcer,
		onEnded:   onEnded,
		sessions:  make(map[string]*liveSession),
	}
}

// Create registers a new idle session for ownerID.
func (r *Registry) Create(ownerID string, s *script.Script) (*liveSession, error) {
	ls := &liveSession{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: r.clock.Now(),
	}
	ls.idleSince = ls.CreatedAt

	controller, err := session.NewController(s,
		session.WithClock(r.clock),
		session.WithAnnouncer(r.announcer),
		session.WithHooks(session.Hooks{
			OnSessionStarted:        ls.markStarted,
			OnInstructionDispatched: ls.recordDispatch,
			OnSessionEnded: func(result session.Result) {
				ls.markIdle(result.EndedAt)
				if r.onEnded != nil {
					r.onEnded(ls, result)
				}
			},
		}),
	)
	if err != nil {
		return nil, err
	}
	ls.controller = controller

	r.mu.Lock()
	r.sessions[ls.ID] = ls
	r.mu.Unlock()
	return ls, nil
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*liveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ls, ok := r.sessions[id]
	return ls, ok
}

// List returns ownerID's sessions, oldest first.
func (r *Registry) List(ownerID string) []*liveSession {
	r.mu.RLock()
	out := make([]*liveSession, 0, len(r.sessions))
	for _, ls := range r.sessions {
		if ls.OwnerID == ownerID {
			out = append(out, ls)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Remove drops a session and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) all() []*liveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*liveSession, 0, len(r.sessions))
	for _, ls := range r.sessions {
		out = append(out, ls)
	}
	return out
}

// TickAll advances every running session. Controllers are ticked outside
// the registry lock so their hooks may use the registry.
func (r *Registry) TickAll() {
	for _, ls := range r.all() {
		ls.controller.Tick()
	}
}

// Evict drops sessions that have sat idle, paused or ended for at least
// retention and returns how many were removed. Running sessions stay.
func (r *Registry) Evict(retention time.Duration) int {
	now := r.clock.Now()
	removed := 0
	for _, ls := range r.all() {
		state := ls.controller.State()
		if state == session.StateRunning {
			continue
		}
		ls.mu.Lock()
		since := ls.idleSince
		ls.mu.Unlock()
		if since.IsZero() || now.Sub(since) < retention {
			continue
		}
		if state == session.StatePaused {
			// Abandoned mid-run; end it so the partial result is kept.
			ls.controller.Stop()
		}
		if r.Remove(ls.ID) {
			removed++
			log.Printf("level=debug msg=\"session evicted\" id=%s owner=%s state=%s", ls.ID, ls.OwnerID, state)
		}
	}
	return removed
}
