package engine

import (
	"context"

	"github.com/kalambet/thoth/internal/ollama"
)

// OllamaEngine adapts the internal/ollama.Client to the Engine interface.
// It holds only an immutable client pointer, so copying it is cheap and
// every copy shares the same connection pool.
type OllamaEngine struct {
	client *ollama.Client
}

// NewOllamaEngine creates an OllamaEngine backed by an Ollama server at baseURL.
func NewOllamaEngine(baseURL string) *OllamaEngine {
	return &OllamaEngine{client: ollama.New(baseURL)}
}

// BaseURL returns the server address this engine talks to.
func (e *OllamaEngine) BaseURL() string {
	return e.client.BaseURL()
}

func (e *OllamaEngine) IsAvailable(ctx context.Context) bool {
	return e.client.IsAvailable(ctx)
}

func (e *OllamaEngine) ListModels(ctx context.Context) ([]string, error) {
	return e.client.ListModels(ctx)
}

func (e *OllamaEngine) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	gr := ollama.GenerateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		System: req.System,
	}
	if req.Temperature != nil {
		gr.Options = &ollama.Options{Temperature: req.Temperature}
	}
	return e.client.Generate(ctx, gr)
}

func (e *OllamaEngine) HasModel(ctx context.Context, name string) bool {
	return e.client.HasModel(ctx, name)
}

func (e *OllamaEngine) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	var cb func(ollama.PullProgress)
	if onProgress != nil {
		cb = func(p ollama.PullProgress) {
			onProgress(PullProgress{
				Status:    p.Status,
				Total:     p.Total,
				Completed: p.Completed,
			})
		}
	}
	return e.client.PullModel(ctx, name, cb)
}
