package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeBinary writes a shell script that records its arguments, one per
// line, to out.
func fakeBinary(t *testing.T, dir, name, out string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a unix shell")
	}
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\nfor a in \"$@\"; do printf '%s\\n' \"$a\" >> " + out + "; done\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func TestLocatePrefersCandidatesOnPath(t *testing.T) {
	dir := t.TempDir()
	fakeBinary(t, dir, "espeak", filepath.Join(dir, "out"))
	t.Setenv("PATH", dir)

	got, err := Locate("")
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if got != filepath.Join(dir, "espeak") {
		t.Fatalf("Locate() = %q", got)
	}
}

func TestLocateNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	if _, err := Locate(""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Locate() error = %v, want ErrNotFound", err)
	}
	if _, err := Locate("festival"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Locate(festival) error = %v, want ErrNotFound", err)
	}
	if _, err := Locate(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Locate(missing path) error = %v, want ErrNotFound", err)
	}
}

func TestLocateConfiguredPath(t *testing.T) {
	dir := t.TempDir()
	bin := fakeBinary(t, dir, "tts", filepath.Join(dir, "out"))

	got, err := Locate(bin)
	if err != nil || got != bin {
		t.Fatalf("Locate(%q) = %q, %v", bin, got, err)
	}
}

func TestAnnounceRunsBinary(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	bin := fakeBinary(t, dir, "espeak-ng", out)

	a, err := New(bin, 150)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Announce(context.Background(), "-focus on the ticking"); err != nil {
		t.Fatalf("Announce() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{"-s", "150", "--", "-focus on the ticking"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestAnnounceBlankTextIsNoop(t *testing.T) {
	a, err := New(filepath.Join(t.TempDir(), "missing"), 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Announce(context.Background(), "   "); err != nil {
		t.Fatalf("Announce(blank) error = %v", err)
	}
}

func TestAnnounceFailure(t *testing.T) {
	a, err := New(filepath.Join(t.TempDir(), "missing"), 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Announce(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from missing binary")
	}
}

func TestSayUsesRateFlag(t *testing.T) {
	a := &Announcer{bin: "/usr/bin/say", rate: 180}
	got := a.args("breathe")
	if len(got) != 4 || got[0] != "-r" || got[1] != "180" {
		t.Fatalf("args = %q", got)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New("", 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
	if _, err := New("espeak", -1); err == nil {
		t.Fatal("expected error for negative rate")
	}
}
