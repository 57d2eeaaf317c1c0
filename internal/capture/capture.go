// Package capture takes best-effort snapshots of ambient text context: the
// system clipboard and the current text selection. Every failure collapses
// to "absent"; nothing here returns an error to the enhancement path.
package capture

import (
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/thoth/internal/prompts"
)

// ClipboardReader returns the current plain-text clipboard payload.
type ClipboardReader interface {
	ReadClipboard() (string, error)
}

// SelectionReader returns the text currently selected in the foreground
// application.
type SelectionReader interface {
	ReadSelection() (string, error)
}

// Snapshot is the context captured for one enhancement request. It is
// never persisted or reused across requests.
type Snapshot struct {
	Clipboard  string    `json:"clipboard,omitempty"`
	Selection  string    `json:"selection,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Empty reports whether no context was available.
func (s Snapshot) Empty() bool {
	return s.Clipboard == "" && s.Selection == ""
}

// Prompt converts the snapshot into the render input.
func (s Snapshot) Prompt() prompts.Snapshot {
	return prompts.Snapshot{Clipboard: s.Clipboard, Selection: s.Selection}
}

// Capturer reads the configured context sources. Nil readers are treated as
// permanently absent.
type Capturer struct {
	clipboard ClipboardReader
	selection SelectionReader
	now       func() time.Time
	logger    *slog.Logger
}

// New returns a Capturer over the given readers.
func New(clipboard ClipboardReader, selection SelectionReader) *Capturer {
	return &Capturer{
		clipboard: clipboard,
		selection: selection,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// WithLogger returns a copy of c that logs through l.
func (c *Capturer) WithLogger(l *slog.Logger) *Capturer {
	cp := *c
	cp.logger = l
	return &cp
}

// CaptureClipboard returns the clipboard text, or false when the clipboard
// is empty, non-text or inaccessible.
func (c *Capturer) CaptureClipboard() (string, bool) {
	if c.clipboard == nil {
		return "", false
	}
	text, err := c.clipboard.ReadClipboard()
	if err != nil {
		c.logger.Debug("clipboard unavailable", "error", err)
		return "", false
	}
	return present(text)
}

// CaptureSelection returns the selected text, or false when nothing can be
// obtained.
func (c *Capturer) CaptureSelection() (string, bool) {
	if c.selection == nil {
		return "", false
	}
	text, err := c.selection.ReadSelection()
	if err != nil {
		c.logger.Debug("selection unavailable", "error", err)
		return "", false
	}
	return present(text)
}

// BuildContext captures the sources requested by flags and stamps the
// snapshot with the current time. A snapshot with both fields empty is valid.
func (c *Capturer) BuildContext(flags prompts.ContextFlags) Snapshot {
	snap := Snapshot{CapturedAt: c.now()}
	if flags.Clipboard {
		snap.Clipboard, _ = c.CaptureClipboard()
	}
	if flags.Selection {
		snap.Selection, _ = c.CaptureSelection()
	}
	c.logger.Debug("context captured",
		"clipboard_chars", len([]rune(snap.Clipboard)),
		"selection_chars", len([]rune(snap.Selection)),
	)
	return snap
}

// BuildAll captures every source.
func (c *Capturer) BuildAll() Snapshot {
	return c.BuildContext(prompts.ContextFlags{Clipboard: true, Selection: true})
}

func present(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}
