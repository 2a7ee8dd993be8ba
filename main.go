package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/treefix50/practicetime/internal/auth"
	"github.com/treefix50/practicetime/internal/config"
	"github.com/treefix50/practicetime/internal/script"
	"github.com/treefix50/practicetime/internal/server"
	"github.com/treefix50/practicetime/internal/session"
	"github.com/treefix50/practicetime/internal/speech"
	"github.com/treefix50/practicetime/internal/storage"
)

const usage = `usage: practicetime [serve|play] [flags]

  serve   run the HTTP API (default)
  play    play one script in this terminal
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "play":
		err = runPlay(args)
	case "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runServe(args []string) error {
	cfg, err := config.ParseServe(flag.NewFlagSet("serve", flag.ExitOnError), args)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg.ScriptsDir)
	if err != nil {
		return err
	}

	if !cfg.DBReadOnly {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return err
		}
	}
	store, err := storage.Open(cfg.DBPath, storage.Options{
		BusyTimeout: cfg.BusyTimeout,
		ReadOnly:    cfg.DBReadOnly,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if results, err := store.IntegrityCheck(); err != nil {
		log.Printf("level=warn msg=\"integrity check failed\" err=%v", err)
	} else if len(results) != 1 || results[0] != "ok" {
		log.Printf("level=warn msg=\"integrity check reported problems\" results=%q", results)
	}

	manager := auth.NewManager(store, cfg.AuthSessionTTL)
	if !cfg.DBReadOnly {
		password, err := manager.EnsureBootstrapParticipant()
		if err != nil {
			return fmt.Errorf("bootstrap participant: %w", err)
		}
		if password != "" {
			log.Printf("level=info msg=\"created participant\" username=admin password=%s", password)
		}
	}

	announcer, closeAnnouncer := speechAnnouncer(cfg)
	defer closeAnnouncer()

	s, err := server.New(catalog, manager, store, server.Options{
		Addr:             cfg.Addr,
		CORS:             cfg.CORS,
		TickInterval:     cfg.TickInterval,
		SessionRetention: cfg.SessionRetention,
		LoginInterval:    cfg.LoginInterval,
		Announcer:        announcer,
	})
	if err != nil {
		return err
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Println("level=info msg=\"shutting down\"")
		_ = s.Close()
	}()

	log.Printf(
		"level=info msg=\"PracticeTime listening\" addr=%s db=%s scripts=%d read_only=%t",
		cfg.Addr,
		cfg.DBPath,
		catalog.Len(),
		cfg.DBReadOnly,
	)
	return s.Start()
}

// loadCatalog returns the canonical scripts plus any found in dir. Bad
// files are logged and skipped.
func loadCatalog(dir string) (*script.Catalog, error) {
	catalog := script.DefaultCatalog()
	if dir == "" {
		return catalog, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scripts dir: %w", err)
	}

	n, err := catalog.LoadDir(dir)
	if err != nil {
		log.Printf("level=warn msg=\"some scripts failed to load\" dir=%s err=%q", dir, err)
	}
	log.Printf("level=info msg=\"scripts loaded\" dir=%s count=%d", dir, n)
	return catalog, nil
}

// speechAnnouncer builds the configured text-to-speech announcer behind a
// queue, so slow speech never holds up a session.
func speechAnnouncer(cfg config.Config) (session.Announcer, func()) {
	noop := func() {}
	if !cfg.Speech {
		return nil, noop
	}

	bin, err := speech.Locate(cfg.TTSBin)
	if err != nil {
		log.Printf("level=warn msg=\"speech disabled\" err=%v", err)
		return nil, noop
	}
	sp, err := speech.New(bin, cfg.TTSRate)
	if err != nil {
		log.Printf("level=warn msg=\"speech disabled\" err=%v", err)
		return nil, noop
	}
	log.Printf("level=info msg=\"speech enabled\" bin=%s rate=%d", bin, cfg.TTSRate)

	queued := session.NewAsyncAnnouncer(sp, 32, 30*time.Second)
	return queued, func() {
		if err := queued.Close(); err != nil {
			log.Printf("level=warn msg=\"speech shutdown\" err=%v", err)
		}
	}
}
