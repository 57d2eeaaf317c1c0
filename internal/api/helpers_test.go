package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kalambet/thoth/internal/enhance"
	"github.com/kalambet/thoth/internal/engine"
	"github.com/kalambet/thoth/internal/prompts"
	"github.com/kalambet/thoth/internal/storage"
)

// mockOllama answers the Ollama endpoints used by the service. generate
// returns the status and the response text (or error message).
func mockOllama(t *testing.T, generate func(prompt string) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			w.Write([]byte(`{"version":"0.6.0"}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama3"},{"name":"mistral"}]}`))
		case "/api/generate":
			var body struct {
				Prompt string `json:"prompt"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			code, text := generate(body.Prompt)
			if code != http.StatusOK {
				w.WriteHeader(code)
				json.NewEncoder(w).Encode(map[string]string{"error": text})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"response": text, "done": true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func upper(prompt string) (int, string) {
	return http.StatusOK, "ENHANCED: " + prompt
}

func newTestService(t *testing.T, baseURL string) (*enhance.Service, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := enhance.New(enhance.Deps{
		Engine:        engine.NewHandle(baseURL),
		Catalog:       prompts.NewCatalog(store),
		History:       store,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		DefaultModel:  "llama3",
		DefaultPrompt: prompts.FixGrammar,
	})
	return svc, store
}
