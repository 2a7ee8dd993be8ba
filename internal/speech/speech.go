// Package speech speaks instruction text through a local text-to-speech
// binary such as espeak-ng or macOS say.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// ErrNotFound is returned by Locate when no speech binary is available.
var ErrNotFound = errors.New("speech: no text-to-speech binary found")

// candidates are tried in order when no binary is configured.
var candidates = []string{"espeak-ng", "espeak", "say"}

// Locate returns the path of a usable text-to-speech binary. A configured
// binary is used as given (name or path); otherwise the first candidate on
// PATH wins.
func Locate(configured string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		if strings.ContainsRune(configured, os.PathSeparator) {
			if fileExists(configured) {
				return configured, nil
			}
			return "", fmt.Errorf("%w: %s does not exist", ErrNotFound, configured)
		}
		p, err := exec.LookPath(exe(configured))
		if err != nil {
			return "", fmt.Errorf("%w: %s not in PATH", ErrNotFound, configured)
		}
		return p, nil
	}

	for _, name := range candidates {
		if p, err := exec.LookPath(exe(name)); err == nil {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// Announcer runs the binary once per announcement and waits for it to
// finish speaking.
type Announcer struct {
	bin  string
	rate int
}

// New builds an Announcer. rate is words per minute; zero keeps the
// binary's default.
func New(bin string, rate int) (*Announcer, error) {
	if bin == "" {
		return nil, fmt.Errorf("speech: binary path is empty")
	}
	if rate < 0 {
		return nil, fmt.Errorf("speech: rate must not be negative")
	}
	return &Announcer{bin: bin, rate: rate}, nil
}

func (a *Announcer) Bin() string { return a.bin }

// Announce speaks text and waits for the binary to exit.
func (a *Announcer) Announce(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, a.bin, a.args(text)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("speech: %s failed: %w (output: %s)", filepath.Base(a.bin), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// args builds the command line. espeak takes -s for words per minute,
// say takes -r.
func (a *Announcer) args(text string) []string {
	var args []string
	if a.rate > 0 {
		flag := "-s"
		if strings.TrimSuffix(filepath.Base(a.bin), ".exe") == "say" {
			flag = "-r"
		}
		args = append(args, flag, strconv.Itoa(a.rate))
	}
	// "--" keeps text starting with a dash from being read as a flag
	return append(args, "--", text)
}

func exe(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(name, ".exe") {
		return name + ".exe"
	}
	return name
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
