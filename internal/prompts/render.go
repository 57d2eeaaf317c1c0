package prompts

import (
	"strings"

	"github.com/kalambet/thoth/internal/errs"
)

// Marker is the placeholder for the input text inside a template body.
const Marker = "{text}"

// Context section headers spliced ahead of the input text.
const (
	clipboardHeader = "[Context from clipboard]"
	selectionHeader = "[Context from selection]"
	inputHeader     = "[Transcription to enhance]"
)

// Snapshot is the ambient context available to a render. Empty fields are
// absent.
type Snapshot struct {
	Clipboard string
	Selection string
}

// Validate checks that body contains the marker exactly once.
func Validate(body string) error {
	switch n := strings.Count(body, Marker); n {
	case 1:
		return nil
	case 0:
		return errs.E(errs.InvalidTemplate, "validate template", "body has no "+Marker+" marker")
	default:
		return errs.E(errs.InvalidTemplate, "validate template", "body has more than one "+Marker+" marker")
	}
}

// Render produces the prompt sent to the model. The body is split at its
// single marker and the input is placed between the halves, so marker-like
// sequences inside text or context are never substituted. When the snapshot
// carries context, each present section is written ahead of the input at the
// marker position and the input gets its own header.
func Render(t Template, text string, snap Snapshot) (string, error) {
	idx := strings.Index(t.Body, Marker)
	if idx < 0 || strings.Count(t.Body, Marker) != 1 {
		return "", Validate(t.Body)
	}
	before, after := t.Body[:idx], t.Body[idx+len(Marker):]

	var b strings.Builder
	b.Grow(len(t.Body) + len(text) + len(snap.Clipboard) + len(snap.Selection) + 64)
	b.WriteString(before)

	hasContext := false
	if snap.Clipboard != "" {
		b.WriteString(clipboardHeader + "\n" + snap.Clipboard + "\n\n")
		hasContext = true
	}
	if snap.Selection != "" {
		b.WriteString(selectionHeader + "\n" + snap.Selection + "\n\n")
		hasContext = true
	}
	if hasContext {
		b.WriteString(inputHeader + "\n")
	}

	b.WriteString(text)
	b.WriteString(after)
	return b.String(), nil
}
