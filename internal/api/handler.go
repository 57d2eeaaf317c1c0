package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/thoth/internal/enhance"
	"github.com/kalambet/thoth/internal/observe"
	"github.com/kalambet/thoth/internal/prompts"
	"github.com/kalambet/thoth/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// maxBatchSize bounds the number of requests accepted by /v1/enhance/batch.
const maxBatchSize = 64

// HistoryReader exposes the enhancement history. *storage.Store satisfies it.
type HistoryReader interface {
	RecentEnhancements(limit int) ([]storage.Enhancement, error)
	EnhancementStats() (storage.EnhancementStats, error)
}

type AppDeps struct {
	Service *enhance.Service
	History HistoryReader // optional; /v1/history answers 404 when nil
	Token   string
	Metrics *observe.Metrics
	// MetricsHandler is mounted at /metrics outside the auth group when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewAppHandler returns the HTTP API over the enhancement service.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Metrics == nil {
		deps.Metrics = observe.Noop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(observe.Middleware(deps.Metrics, deps.Logger))

	r.Get("/health", handleHealth)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/v1/available", handleAvailable(deps))
		r.Get("/v1/models", handleModels(deps))
		r.Post("/v1/enhance", handleEnhance(deps))
		r.Post("/v1/enhance/batch", handleEnhanceBatch(deps))
		r.Get("/v1/prompts", handleListPrompts(deps))
		r.Post("/v1/prompts", handleSavePrompt(deps))
		r.Delete("/v1/prompts/{id}", handleDeletePrompt(deps))
		r.Get("/v1/context", handleContext(deps))
		r.Get("/v1/history", handleHistory(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleAvailable(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{
			"available": deps.Service.CheckAvailable(r.Context()),
		})
	}
}

func handleModels(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := deps.Service.ListModels(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if models == nil {
			models = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"models": models})
	}
}

func handleEnhance(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req enhance.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res, err := deps.Service.Enhance(r.Context(), deps.Service.WithDefaults(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type batchRequest struct {
	Requests []enhance.Request `json:"requests"`
	Limit    int               `json:"limit,omitempty"`
}

type batchItem struct {
	Result *enhance.Result `json:"result,omitempty"`
	Error  *batchError     `json:"error,omitempty"`
}

type batchError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func handleEnhanceBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Requests) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "requests is required and must not be empty")
			return
		}
		if len(req.Requests) > maxBatchSize {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at most %d requests per batch", maxBatchSize)
			return
		}

		reqs := make([]enhance.Request, len(req.Requests))
		for i, er := range req.Requests {
			reqs[i] = deps.Service.WithDefaults(er)
		}

		outcomes := deps.Service.EnhanceBatch(r.Context(), reqs, req.Limit)
		items := make([]batchItem, len(outcomes))
		for i, o := range outcomes {
			if o.Err != nil {
				_, typ := classify(o.Err)
				items[i].Error = &batchError{Message: o.Err.Error(), Type: typ}
				continue
			}
			res := o.Result
			items[i].Result = &res
		}
		writeJSON(w, http.StatusOK, map[string][]batchItem{"results": items})
	}
}

func handleListPrompts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Service.ListPrompts()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]prompts.Template{"prompts": list})
	}
}

type savePromptRequest struct {
	Label string `json:"label"`
	Body  string `json:"body"`
	prompts.ContextFlags
}

func handleSavePrompt(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req savePromptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		t, err := deps.Service.SavePrompt(req.Label, req.Body, req.ContextFlags)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func handleDeletePrompt(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Service.DeletePrompt(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleContext(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Service.Context())
	}
}

type historyEntry struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Model       string    `json:"model"`
	PromptID    string    `json:"prompt_id"`
	InputChars  int       `json:"input_chars"`
	OutputChars int       `json:"output_chars"`
	DurationMs  int64     `json:"duration_ms"`
	Status      string    `json:"status"`
	ErrorKind   string    `json:"error_kind,omitempty"`
}

type historyStats struct {
	Total         int   `json:"total"`
	Succeeded     int   `json:"succeeded"`
	Failed        int   `json:"failed"`
	AvgDurationMs int64 `json:"avg_duration_ms"`
}

func handleHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.History == nil {
			httpError(w, http.StatusNotFound, "not_found", "history is not enabled")
			return
		}

		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			limit = min(n, 500)
		}

		rows, err := deps.History.RecentEnhancements(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "listing history: %v", err)
			return
		}
		st, err := deps.History.EnhancementStats()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "history stats: %v", err)
			return
		}

		entries := make([]historyEntry, len(rows))
		for i, e := range rows {
			entries[i] = historyEntry{
				ID:          e.ID,
				CreatedAt:   e.CreatedAt,
				Model:       e.Model,
				PromptID:    e.PromptID,
				InputChars:  e.InputChars,
				OutputChars: e.OutputChars,
				DurationMs:  e.Duration.Milliseconds(),
				Status:      e.Status,
				ErrorKind:   e.ErrorKind,
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"entries": entries,
			"stats": historyStats{
				Total:         st.Total,
				Succeeded:     st.Succeeded,
				Failed:        st.Failed,
				AvgDurationMs: st.AvgDuration.Milliseconds(),
			},
		})
	}
}
