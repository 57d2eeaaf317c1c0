// Package prompts holds the prompt template catalog: the compiled-in
// built-ins plus user-defined templates kept in a persistent store.
package prompts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/thoth/internal/errs"
	"github.com/kalambet/thoth/internal/storage"
)

// Origin tells built-in templates apart from user-defined ones.
type Origin string

const (
	OriginBuiltin Origin = "builtin"
	OriginCustom  Origin = "custom"
	// OriginInline marks an ad-hoc template built from a raw request body.
	OriginInline Origin = "inline"
)

// ContextFlags declares which ambient context a template wants captured
// before rendering. The zero value requests none.
type ContextFlags struct {
	Clipboard bool `json:"capture_clipboard"`
	Selection bool `json:"capture_selection"`
}

// Any reports whether any context source is requested.
func (f ContextFlags) Any() bool {
	return f.Clipboard || f.Selection
}

// Template is a prompt with a single Marker where the input text goes.
// System and Temperature are passed to the model alongside the rendered
// body when set; only built-ins carry them.
type Template struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Body        string       `json:"body"`
	System      string       `json:"system,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Origin      Origin       `json:"origin"`
	Context     ContextFlags `json:"context"`
	CreatedAt   time.Time    `json:"created_at,omitzero"`
}

// Store is the persistence collaborator for custom templates.
// *storage.Store satisfies it.
type Store interface {
	ListCustomPrompts() ([]storage.CustomPrompt, error)
	GetCustomPrompt(id string) (storage.CustomPrompt, error)
	InsertCustomPrompt(p storage.CustomPrompt) error
	DeleteCustomPrompt(id string) error
}

// Catalog resolves template ids against the built-ins and the custom store.
// It holds no mutable state of its own and is safe for concurrent use when
// the store is.
type Catalog struct {
	store Store
	now   func() time.Time
}

// NewCatalog returns a Catalog backed by store. A nil store serves only the
// built-ins.
func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

// ListAll returns the built-ins in fixed order followed by custom templates
// oldest first.
func (c *Catalog) ListAll() ([]Template, error) {
	out := Builtins()
	if c.store == nil {
		return out, nil
	}
	custom, err := c.store.ListCustomPrompts()
	if err != nil {
		return out, errs.Wrap(errs.Storage, "list prompts", err)
	}
	for _, p := range custom {
		out = append(out, fromRow(p))
	}
	return out, nil
}

// Resolve looks id up among the built-ins, then the custom store.
func (c *Catalog) Resolve(id string) (Template, error) {
	const op = "resolve prompt"

	if t, ok := builtin(id); ok {
		return t, nil
	}
	if c.store == nil || strings.TrimSpace(id) == "" {
		return Template{}, errs.E(errs.PromptNotFound, op, fmt.Sprintf("%q", id))
	}
	p, err := c.store.GetCustomPrompt(id)
	if errors.Is(err, storage.ErrNotFound) {
		return Template{}, errs.E(errs.PromptNotFound, op, fmt.Sprintf("%q", id))
	}
	if err != nil {
		return Template{}, errs.Wrap(errs.Storage, op, err)
	}
	return fromRow(p), nil
}

// SaveCustom validates and persists a new custom template under a fresh id.
// The body is stored byte for byte; the label is trimmed.
func (c *Catalog) SaveCustom(label, body string, flags ContextFlags) (Template, error) {
	const op = "save prompt"

	label = strings.TrimSpace(label)
	if label == "" {
		return Template{}, errs.E(errs.InvalidTemplate, op, "label cannot be empty")
	}
	if err := Validate(body); err != nil {
		return Template{}, err
	}
	if c.store == nil {
		return Template{}, errs.E(errs.Storage, op, "no custom prompt store configured")
	}

	row := storage.CustomPrompt{
		ID:               uuid.New().String(),
		Label:            label,
		Body:             body,
		CaptureClipboard: flags.Clipboard,
		CaptureSelection: flags.Selection,
		CreatedAt:        c.now().UTC(),
	}
	if err := c.store.InsertCustomPrompt(row); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return Template{}, errs.E(errs.DuplicateLabel, op, fmt.Sprintf("%q", label))
		}
		return Template{}, errs.Wrap(errs.Storage, op, err)
	}
	return fromRow(row), nil
}

// DeleteCustom removes a custom template. Built-ins can never be removed.
func (c *Catalog) DeleteCustom(id string) error {
	const op = "delete prompt"

	if _, ok := builtin(id); ok {
		return errs.E(errs.ImmutableTemplate, op, fmt.Sprintf("%q", id))
	}
	if c.store == nil {
		return errs.E(errs.PromptNotFound, op, fmt.Sprintf("%q", id))
	}
	err := c.store.DeleteCustomPrompt(id)
	if errors.Is(err, storage.ErrNotFound) {
		return errs.E(errs.PromptNotFound, op, fmt.Sprintf("%q", id))
	}
	if err != nil {
		return errs.Wrap(errs.Storage, op, err)
	}
	return nil
}

// Inline wraps a raw body supplied with a request as an unsaved template.
func Inline(body string, flags ContextFlags) (Template, error) {
	if err := Validate(body); err != nil {
		return Template{}, err
	}
	return Template{
		ID:      "inline",
		Label:   "Inline",
		Body:    body,
		Origin:  OriginInline,
		Context: flags,
	}, nil
}

func fromRow(p storage.CustomPrompt) Template {
	return Template{
		ID:     p.ID,
		Label:  p.Label,
		Body:   p.Body,
		Origin: OriginCustom,
		Context: ContextFlags{
			Clipboard: p.CaptureClipboard,
			Selection: p.CaptureSelection,
		},
		CreatedAt: p.CreatedAt,
	}
}
