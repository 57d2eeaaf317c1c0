package engine

import "context"

// Engine abstracts the local inference backend. The enhancement service and
// the caller-facing surfaces depend on this interface instead of a concrete
// client, so a fake can stand in for the server in tests.
type Engine interface {
	// IsAvailable reports whether the inference backend is reachable.
	// It never returns an error.
	IsAvailable(ctx context.Context) bool

	// ListModels returns the names of all locally available models, in the
	// order the backend reports them.
	ListModels(ctx context.Context) ([]string, error)

	// Generate submits a rendered prompt and returns the generated text with
	// surrounding whitespace trimmed.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// HasModel reports whether the given model name is available locally.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. The optional callback receives progress updates.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}

// GenerateRequest is one completion call. System and Temperature are
// optional; zero values leave the model defaults in place.
type GenerateRequest struct {
	Model       string
	Prompt      string
	System      string
	Temperature *float64
}
