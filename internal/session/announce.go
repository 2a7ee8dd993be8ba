package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

const defaultAnnounceTimeout = 30 * time.Second

var (
	ErrAnnounceQueueFull = errors.New("announce queue full")
	ErrAnnouncerClosed   = errors.New("announcer closed")
	ErrAnnouncerStuck    = errors.New("announcer did not finish before close")
)

// Announcer receives instruction text as it is dispatched, typically to
// speak it aloud.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// AnnouncerFunc adapts a function to an Announcer.
type AnnouncerFunc func(ctx context.Context, text string) error

func (f AnnouncerFunc) Announce(ctx context.Context, text string) error { return f(ctx, text) }

// AsyncAnnouncer queues announcements for a slow announcer so callers
// never wait on it. Announcements are delivered in order by one worker.
type AsyncAnnouncer struct {
	next    Announcer
	timeout time.Duration
	queue   chan string

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewAsyncAnnouncer starts the worker. size bounds the queue and timeout
// bounds each delivery as well as Close. A non-positive timeout means 30s.
func NewAsyncAnnouncer(next Announcer, size int, timeout time.Duration) *AsyncAnnouncer {
	if size <= 0 {
		size = 16
	}
	if timeout <= 0 {
		timeout = defaultAnnounceTimeout
	}
	a := &AsyncAnnouncer{
		next:    next,
		timeout: timeout,
		queue:   make(chan string, size),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Announce enqueues text and returns immediately.
func (a *AsyncAnnouncer) Announce(_ context.Context, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAnnouncerClosed
	}
	select {
	case a.queue <- text:
		return nil
	default:
		return ErrAnnounceQueueFull
	}
}

// Close stops accepting announcements and waits up to the delivery timeout
// for the worker to finish the one in flight. Queued announcements are
// discarded. An announcer that ignores its context is abandoned and Close
// returns ErrAnnouncerStuck.
func (a *AsyncAnnouncer) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()
	select {
	case <-a.done:
		return nil
	case <-timer.C:
		return ErrAnnouncerStuck
	}
}

func (a *AsyncAnnouncer) run() {
	defer close(a.done)
	for text := range a.queue {
		a.mu.Lock()
		closed := a.closed
		a.mu.Unlock()
		if closed {
			continue
		}
		a.deliver(text)
	}
}

func (a *AsyncAnnouncer) deliver(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := safeAnnounce(ctx, a.next, text); err != nil {
		log.Printf("level=warn msg=\"async announce failed\" err=%v", err)
	}
}
