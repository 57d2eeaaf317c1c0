package engine

import (
	"context"
	"strings"
	"sync"
)

// Factory builds an Engine for the given server address.
type Factory func(baseURL string) Engine

// Handle is the process-wide container for the inference engine. The engine
// is built lazily on the first Get and replaced by SetBaseURL. The mutex is
// held only while the reference is read or swapped, never across a call to
// the backend, so a slow generation cannot block other callers.
//
// Handle implements Engine by delegating each call to the current engine.
type Handle struct {
	mu      sync.Mutex
	baseURL string
	factory Factory
	eng     Engine
}

// NewHandle returns a Handle that will build an OllamaEngine for baseURL on
// first use.
func NewHandle(baseURL string) *Handle {
	return NewHandleWithFactory(baseURL, func(u string) Engine { return NewOllamaEngine(u) })
}

// NewHandleWithFactory returns a Handle that builds its engine with f.
func NewHandleWithFactory(baseURL string, f Factory) *Handle {
	return &Handle{baseURL: strings.TrimRight(baseURL, "/"), factory: f}
}

// Get returns the current engine, constructing it if needed. The returned
// value stays valid after a later SetBaseURL; only subsequent Get calls see
// the new address.
func (h *Handle) Get() Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil {
		h.eng = h.factory(h.baseURL)
	}
	return h.eng
}

// BaseURL returns the address the handle is configured for.
func (h *Handle) BaseURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.baseURL
}

// SetBaseURL points the handle at a different server. In-flight calls keep
// the engine they already obtained.
func (h *Handle) SetBaseURL(baseURL string) {
	baseURL = strings.TrimRight(baseURL, "/")

	h.mu.Lock()
	defer h.mu.Unlock()
	if baseURL == h.baseURL && h.eng != nil {
		return
	}
	h.baseURL = baseURL
	h.eng = nil
}

func (h *Handle) IsAvailable(ctx context.Context) bool {
	return h.Get().IsAvailable(ctx)
}

func (h *Handle) ListModels(ctx context.Context) ([]string, error) {
	return h.Get().ListModels(ctx)
}

func (h *Handle) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return h.Get().Generate(ctx, req)
}

func (h *Handle) HasModel(ctx context.Context, name string) bool {
	return h.Get().HasModel(ctx, name)
}

func (h *Handle) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	return h.Get().PullModel(ctx, name, onProgress)
}
