// Package enhance orchestrates a text enhancement: validate the request,
// resolve the prompt template, capture context when the template asks for
// it, render, and hand the prompt to the inference engine.
package enhance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kalambet/thoth/internal/capture"
	"github.com/kalambet/thoth/internal/engine"
	"github.com/kalambet/thoth/internal/errs"
	"github.com/kalambet/thoth/internal/observe"
	"github.com/kalambet/thoth/internal/prompts"
	"github.com/kalambet/thoth/internal/storage"
)

// Request is one enhancement. PromptBody, when set, is used as an inline
// template instead of resolving PromptID.
type Request struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	PromptID   string `json:"prompt_id,omitempty"`
	PromptBody string `json:"prompt,omitempty"`
}

// Result is a successful enhancement.
type Result struct {
	Text     string        `json:"text"`
	Model    string        `json:"model"`
	PromptID string        `json:"prompt_id"`
	Context  bool          `json:"context_used"`
	Duration time.Duration `json:"duration_ns"`
}

// History records finished enhancements. Implemented by storage.Store.
type History interface {
	SaveEnhancement(e storage.Enhancement) error
}

// Deps wires a Service. Engine and Catalog are required; the rest may be nil.
type Deps struct {
	Engine  engine.Engine
	Catalog *prompts.Catalog
	Capture *capture.Capturer
	History History
	Metrics *observe.Metrics
	Logger  *slog.Logger

	// DefaultModel and DefaultPrompt fill empty request fields at the
	// caller surfaces; Enhance itself never applies them.
	DefaultModel  string
	DefaultPrompt string
}

// Service is the entry point shared by the HTTP, MCP and CLI surfaces.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	engine  engine.Engine
	catalog *prompts.Catalog
	capture *capture.Capturer
	history History
	metrics *observe.Metrics
	logger  *slog.Logger
	now     func() time.Time

	defaultModel  string
	defaultPrompt string
}

// New creates a Service from deps.
func New(deps Deps) *Service {
	s := &Service{
		engine:        deps.Engine,
		catalog:       deps.Catalog,
		capture:       deps.Capture,
		history:       deps.History,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		now:           time.Now,
		defaultModel:  deps.DefaultModel,
		defaultPrompt: deps.DefaultPrompt,
	}
	if s.catalog == nil {
		s.catalog = prompts.NewCatalog(nil)
	}
	if s.capture == nil {
		s.capture = capture.New(nil, nil)
	}
	if s.metrics == nil {
		s.metrics = observe.Noop()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// WithDefaults fills empty Model and PromptID/PromptBody fields from the
// configured defaults.
func (s *Service) WithDefaults(req Request) Request {
	if strings.TrimSpace(req.Model) == "" {
		req.Model = s.defaultModel
	}
	if req.PromptID == "" && req.PromptBody == "" {
		req.PromptID = s.defaultPrompt
	}
	return req
}

// Enhance runs one enhancement. Validation short-circuits in order: empty
// text, empty model, then prompt resolution; none of these touch the
// network. Engine errors are returned unchanged. A successful result is
// never empty.
func (s *Service) Enhance(ctx context.Context, req Request) (Result, error) {
	start := s.now()

	res, err := s.enhance(ctx, req)

	d := s.now().Sub(start)
	kind := ""
	if err != nil {
		kind = kindLabel(err)
	}
	inChars := utf8.RuneCountInString(req.Text)
	outChars := utf8.RuneCountInString(res.Text)
	s.metrics.RecordEnhance(ctx, d, kind, inChars, outChars)

	if err != nil {
		s.logger.Warn("enhancement failed",
			"model", req.Model,
			"prompt", promptRef(req),
			"input_chars", inChars,
			"kind", kind,
			"error", err,
		)
	} else {
		res.Duration = d
		s.logger.Info("enhancement complete",
			"model", res.Model,
			"prompt", res.PromptID,
			"input_chars", inChars,
			"output_chars", outChars,
			"context", res.Context,
			"duration", d,
		)
	}

	// Validation failures never reached the server; only record attempts.
	if err == nil || isServerSide(err) {
		s.record(start, req, res, d, kind, inChars, outChars)
	}
	return res, err
}

func (s *Service) enhance(ctx context.Context, req Request) (Result, error) {
	const op = "enhance"

	if strings.TrimSpace(req.Text) == "" {
		return Result{}, errs.E(errs.EmptyInput, op, "")
	}
	if strings.TrimSpace(req.Model) == "" {
		return Result{}, errs.E(errs.EmptyModel, op, "")
	}

	tpl, err := s.template(req)
	if err != nil {
		return Result{}, err
	}

	var snap capture.Snapshot
	if tpl.Context.Any() {
		snap = s.capture.BuildContext(tpl.Context)
	}

	rendered, err := prompts.Render(tpl, req.Text, snap.Prompt())
	if err != nil {
		return Result{}, err
	}

	s.logger.Debug("enhancement request",
		"model", req.Model,
		"prompt", tpl.ID,
		"input_chars", utf8.RuneCountInString(req.Text),
		"prompt_chars", utf8.RuneCountInString(rendered),
		"context", !snap.Empty(),
	)

	done := s.metrics.TrackInFlight(ctx)
	out, err := s.engine.Generate(ctx, engine.GenerateRequest{
		Model:       req.Model,
		Prompt:      rendered,
		System:      tpl.System,
		Temperature: tpl.Temperature,
	})
	done()
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(out) == "" {
		return Result{}, errs.E(errs.ProtocolError, op, "server returned empty text")
	}

	return Result{
		Text:     out,
		Model:    req.Model,
		PromptID: tpl.ID,
		Context:  !snap.Empty(),
	}, nil
}

func (s *Service) template(req Request) (prompts.Template, error) {
	if req.PromptBody != "" {
		return prompts.Inline(req.PromptBody, prompts.ContextFlags{})
	}
	return s.catalog.Resolve(req.PromptID)
}

func (s *Service) record(start time.Time, req Request, res Result, d time.Duration, kind string, inChars, outChars int) {
	if s.history == nil {
		return
	}
	row := storage.Enhancement{
		ID:          uuid.New().String(),
		CreatedAt:   start,
		Model:       req.Model,
		PromptID:    promptRef(req),
		InputChars:  inChars,
		OutputChars: outChars,
		Duration:    d,
		Status:      storage.StatusSucceeded,
	}
	if kind != "" {
		row.Status = storage.StatusFailed
		row.ErrorKind = kind
	}
	if err := s.history.SaveEnhancement(row); err != nil {
		s.logger.Warn("failed to record enhancement history", "error", err)
	}
}

func promptRef(req Request) string {
	if req.PromptBody != "" {
		return "inline"
	}
	return req.PromptID
}

// kindLabel names an error for metrics and history.
func kindLabel(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline_exceeded"
	}
	return errs.KindOf(err).String()
}

func isServerSide(err error) bool {
	switch errs.KindOf(err) {
	case errs.ServerUnreachable, errs.ModelNotFound, errs.ServerError, errs.ProtocolError:
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
