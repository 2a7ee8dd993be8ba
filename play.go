package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/treefix50/practicetime/internal/config"
	"github.com/treefix50/practicetime/internal/session"
)

func runPlay(args []string) error {
	cfg, err := config.ParsePlay(flag.NewFlagSet("play", flag.ExitOnError), args)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg.ScriptsDir)
	if err != nil {
		return err
	}
	sc, ok := catalog.Get(cfg.ScriptID)
	if !ok {
		ids := make([]string, 0, catalog.Len())
		for _, s := range catalog.All() {
			ids = append(ids, s.ID())
		}
		return fmt.Errorf("unknown script %q (available: %s)", cfg.ScriptID, strings.Join(ids, ", "))
	}

	announcer, closeAnnouncer := speechAnnouncer(cfg)
	defer closeAnnouncer()

	out := os.Stdout
	var result *session.Result
	controller, err := session.NewController(sc,
		session.WithAnnouncer(announcer),
		session.WithHooks(session.Hooks{
			OnInstructionDispatched: func(d session.Dispatch) { printDispatch(out, d) },
			OnSessionEnded:          func(r session.Result) { result = &r },
		}),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "%s (%s)\n\n", sc.Name(), clockString(sc.TotalDurationSeconds()))
	controller.Start()
	if err := controller.Run(ctx, cfg.TickInterval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if !controller.State().Terminal() {
		controller.Stop()
	}

	if result != nil {
		printResult(out, *result)
	}
	return nil
}

func printDispatch(w io.Writer, d session.Dispatch) {
	if d.PhaseEntry {
		fmt.Fprintf(w, "\n== %s ==\n", d.PhaseName)
	}
	fmt.Fprintf(w, "[%s] %s\n", clockString(d.SessionElapsedSeconds), d.Text)
}

func printResult(w io.Writer, r session.Result) {
	fmt.Fprintf(w, "\n%s: %s of %s\n", r.Outcome, clockString(r.ElapsedSeconds), clockString(r.TotalSeconds))
	for _, p := range r.PhasesReached {
		mark := "partial"
		if p.Completed {
			mark = "done"
		}
		fmt.Fprintf(w, "  %d. %-28s %s\n", p.Index+1, p.Name, mark)
	}
}

// clockString formats seconds as m:ss.
func clockString(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
