package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/treefix50/practicetime/internal/auth"
	"github.com/treefix50/practicetime/internal/script"
	"github.com/treefix50/practicetime/internal/session"
)

const (
	authCleanupInterval = time.Hour
	defaultRetention    = 30 * time.Minute
)

// Options tunes a Server. Zero durations fall back to defaults.
type Options struct {
	Addr             string
	CORS             bool
	TickInterval     time.Duration
	SessionRetention time.Duration
	LoginInterval    time.Duration

	// Announcer is shared by every session; it should not block.
	Announcer session.Announcer
	Clock     session.Clock
}

// Server serves the practice API and drives live sessions.
type Server struct {
	addr        string
	http        *http.Server
	handler     http.Handler
	catalog     *script.Catalog
	authManager *auth.Manager
	results     ResultStore
	registry    *Registry
	limiter     *RateLimiter
	corsEnabled bool

	tickInterval time.Duration
	retention    time.Duration
	tickTicker   *time.Ticker
	tickStop     chan struct{}
	lastCleanup  time.Time
}

// New builds a server. catalog and authManager are required; results may be nil.
func New(catalog *script.Catalog, authManager *auth.Manager, results ResultStore, opts Options) (*Server, error) {
	if catalog == nil {
		return nil, errors.New("server: script catalog is required")
	}
	if authManager == nil {
		return nil, errors.New("server: auth manager is required")
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.SessionRetention <= 0 {
		opts.SessionRetention = defaultRetention
	}

	s := &Server{
		addr:         opts.Addr,
		catalog:      catalog,
		authManager:  authManager,
		results:      results,
		limiter:      NewRateLimiter(opts.LoginInterval),
		corsEnabled:  opts.CORS,
		tickInterval: opts.TickInterval,
		retention:    opts.SessionRetention,
	}
	s.registry = NewRegistry(opts.Clock, opts.Announcer, s.persistResult)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/auth/logout", s.handleAuthLogout)
	mux.HandleFunc("/scripts", s.withAuth(s.handleScripts))
	mux.HandleFunc("/scripts/", s.withAuth(s.handleScriptDetail))
	mux.HandleFunc("/sessions", s.withAuth(s.handleSessions))
	mux.HandleFunc("/sessions/", s.withAuth(s.handleSessionDetail))
	mux.HandleFunc("/results", s.withAuth(s.handleResults))
	mux.HandleFunc("/results/", s.withAuth(s.handleResultDetail))

	s.handler = logMiddleware(mux, s.corsEnabled)
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Registry returns the live session registry.
func (s *Server) Registry() *Registry { return s.registry }

// Start runs the session ticker and serves until Close.
func (s *Server) Start() error {
	s.tickTicker = time.NewTicker(s.tickInterval)
	s.tickStop = make(chan struct{})
	go s.runTicker(s.tickTicker, s.tickStop)

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops the ticker, ends every live session and shuts the listener
// down.
func (s *Server) Close() error {
	s.stopTicker()
	for _, ls := range s.registry.all() {
		ls.controller.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) runTicker(ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-stop:
			ticker.Stop()
			return
		}
	}
}

// tick is one pass of the background loop.
func (s *Server) tick() {
	s.registry.TickAll()
	if n := s.registry.Evict(s.retention); n > 0 {
		log.Printf("level=info msg=\"evicted ended sessions\" count=%d live=%d", n, s.registry.Len())
	}

	s.limiter.Prune()

	if time.Since(s.lastCleanup) < authCleanupInterval {
		return
	}
	s.lastCleanup = time.Now()
	if err := s.authManager.CleanupExpiredSessions(); err != nil {
		log.Printf("level=warn msg=\"auth session cleanup failed\" err=%v", err)
	}
}

func (s *Server) stopTicker() {
	if s.tickStop == nil {
		return
	}
	close(s.tickStop)
	s.tickStop = nil
}

// persistResult saves a finished run under its owner. It runs on whichever
// goroutine ended the run.
func (s *Server) persistResult(ls *liveSession, result session.Result) {
	if s.results == nil {
		return
	}
	if s.results.ReadOnly() {
		log.Printf("level=warn msg=\"result not saved\" reason=read-only session=%s script=%s", ls.ID, result.ScriptID)
		return
	}

	stored, err := s.results.SaveResult(ls.OwnerID, result)
	if err != nil {
		log.Printf("level=error msg=\"save result failed\" session=%s script=%s err=%v", ls.ID, result.ScriptID, err)
		return
	}

	ls.mu.Lock()
	ls.resultID = stored.ID
	ls.mu.Unlock()
	log.Printf(
		"level=info msg=\"result saved\" id=%s session=%s outcome=%s elapsed=%ds",
		stored.ID,
		ls.ID,
		result.Outcome,
		result.ElapsedSeconds,
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", textContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
