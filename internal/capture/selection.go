package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// DefaultSelectionTimeout bounds one selection read.
const DefaultSelectionTimeout = 500 * time.Millisecond

var errUnsupported = errors.New("not supported on this platform")

// CommandSelection reads the selection by running an external command and
// taking its stdout. The first candidate whose binary is on PATH is used.
type CommandSelection struct {
	candidates [][]string
	timeout    time.Duration
}

// NewCommandSelection returns a reader that runs argv. An empty argv selects
// the platform default candidates.
func NewCommandSelection(argv []string, timeout time.Duration) *CommandSelection {
	if timeout <= 0 {
		timeout = DefaultSelectionTimeout
	}
	candidates := defaultSelectionCommands()
	if len(argv) > 0 {
		candidates = [][]string{argv}
	}
	return &CommandSelection{candidates: candidates, timeout: timeout}
}

// ParseCommand splits a configured command line on whitespace.
func ParseCommand(s string) []string {
	return strings.Fields(s)
}

func defaultSelectionCommands() [][]string {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		return [][]string{
			{"wl-paste", "--primary", "--no-newline"},
			{"xclip", "-o", "-selection", "primary"},
			{"xsel", "--primary", "--output"},
		}
	default:
		return nil
	}
}

func (s *CommandSelection) ReadSelection() (string, error) {
	argv, err := s.resolve()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: timed out after %s", argv[0], s.timeout)
		}
		return "", fmt.Errorf("%s: %w, output: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (s *CommandSelection) resolve() ([]string, error) {
	for _, argv := range s.candidates {
		if len(argv) == 0 {
			continue
		}
		if _, err := exec.LookPath(argv[0]); err == nil {
			return argv, nil
		}
	}
	return nil, errUnsupported
}
