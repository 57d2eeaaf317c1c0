package enhance

import (
	"context"

	"github.com/kalambet/thoth/internal/capture"
	"github.com/kalambet/thoth/internal/prompts"
)

// The methods below are the caller-facing commands shared by the HTTP API,
// the MCP tools and the CLI.

// CheckAvailable reports whether the inference server answers.
func (s *Service) CheckAvailable(ctx context.Context) bool {
	return s.engine.IsAvailable(ctx)
}

// ListModels returns the models known to the inference server.
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	return s.engine.ListModels(ctx)
}

// ListPrompts returns every template, built-ins first.
func (s *Service) ListPrompts() ([]prompts.Template, error) {
	return s.catalog.ListAll()
}

// SavePrompt stores a new custom template.
func (s *Service) SavePrompt(label, body string, flags prompts.ContextFlags) (prompts.Template, error) {
	t, err := s.catalog.SaveCustom(label, body, flags)
	if err != nil {
		return prompts.Template{}, err
	}
	s.logger.Info("custom prompt saved", "id", t.ID, "label", t.Label)
	return t, nil
}

// DeletePrompt removes a custom template.
func (s *Service) DeletePrompt(id string) error {
	if err := s.catalog.DeleteCustom(id); err != nil {
		return err
	}
	s.logger.Info("custom prompt deleted", "id", id)
	return nil
}

// Context captures every context source right now, for previews.
func (s *Service) Context() capture.Snapshot {
	return s.capture.BuildAll()
}
