package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/treefix50/practicetime/internal/session"
)

func TestClockString(t *testing.T) {
	tests := map[int]string{0: "0:00", 9: "0:09", 75: "1:15", 900: "15:00"}
	for in, want := range tests {
		if got := clockString(in); got != want {
			t.Fatalf("clockString(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestPrintDispatchAndResult(t *testing.T) {
	var buf bytes.Buffer
	printDispatch(&buf, session.Dispatch{PhaseName: "Closing", PhaseEntry: true, Text: "Well done.", SessionElapsedSeconds: 110})
	printResult(&buf, session.Result{
		Outcome:        session.OutcomeStoppedEarly,
		ElapsedSeconds: 30,
		TotalSeconds:   120,
		PhasesReached: []session.PhaseReached{
			{Index: 0, Name: "Grounding", Completed: true},
			{Index: 1, Name: "Selective Attention"},
		},
	})

	got := buf.String()
	for _, want := range []string{"== Closing ==", "[1:50] Well done.", "stopped_early: 0:30 of 2:00", "Grounding", "partial"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestLoadCatalogMissingDir(t *testing.T) {
	if _, err := loadCatalog(t.TempDir() + "/missing"); err == nil {
		t.Fatal("expected error for missing scripts dir")
	}
	catalog, err := loadCatalog("")
	if err != nil {
		t.Fatalf("loadCatalog(\"\") error = %v", err)
	}
	if catalog.Len() != 4 {
		t.Fatalf("loadCatalog(\"\") has %d scripts, want 4", catalog.Len())
	}
}
