package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kalambet/thoth/internal/errs"
)

// maxErrorBody caps how much of a non-2xx response body is kept as the
// server message.
const maxErrorBody = 4 << 10

// Client communicates with a local Ollama instance over HTTP.
// A Client is immutable after New and safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given Ollama base URL.
// No timeout is set; callers bound each call through its context.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

// BaseURL returns the server address the client was built for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// versionResponse mirrors the JSON returned by GET /api/version.
type versionResponse struct {
	Version string `json:"version"`
}

type modelEntry struct {
	Name string `json:"name"`
}

// errorResponse is the body Ollama sends alongside non-2xx statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// IsAvailable returns true if the Ollama server answers GET /api/version with 200.
// It never returns an error: an unreachable server is simply unavailable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var v versionResponse
	return json.NewDecoder(resp.Body).Decode(&v) == nil
}

// ListModels returns the names of all models available in the local Ollama
// instance, in the order the server reports them.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	const op = "list models"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp, false)
	}

	// tags mirrors the JSON returned by GET /api/tags; a missing "models"
	// field is a protocol violation, an empty list is not.
	var tags struct {
		Models *[]modelEntry `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, errs.Wrap(errs.ProtocolError, op, err)
	}
	if tags.Models == nil {
		return nil, errs.E(errs.ProtocolError, op, `response has no "models" field`)
	}

	names := make([]string, len(*tags.Models))
	for i, m := range *tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

// HasModel reports whether the given model name is present locally.
func (c *Client) HasModel(ctx context.Context, name string) bool {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		// Ollama may return "llama3.2:latest"; match without tag suffix.
		if m == name || strings.HasPrefix(m, name+":") {
			return true
		}
	}
	return false
}

// pullRequest is the JSON body for POST /api/pull.
type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// PullProgress is one line of the streamed pull response.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// PullModel downloads a model, reading the streamed progress to completion.
// The optional progress callback receives each progress line; pass nil to ignore.
func (c *Client) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	const op = "pull model"

	body, err := json.Marshal(pullRequest{Name: name, Stream: true})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(op, resp, true)
	}

	// Failures after the 200 header arrive as an {"error":...} line.
	dec := json.NewDecoder(resp.Body)
	for {
		var line struct {
			PullProgress
			Error string `json:"error,omitempty"`
		}
		if err := dec.Decode(&line); err == io.EOF {
			break
		} else if err != nil {
			return errs.Wrap(errs.ProtocolError, op, err)
		}
		if line.Error != "" {
			kind := errs.ServerError
			if isModelMissing(line.Error) {
				kind = errs.ModelNotFound
			}
			return &errs.Error{Kind: kind, Op: op, Msg: line.Error}
		}
		if onProgress != nil {
			onProgress(line.PullProgress)
		}
	}

	return nil
}

// Options carries per-request sampling parameters.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// GenerateRequest is the JSON body for POST /api/generate.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Options *Options `json:"options,omitempty"`
	Stream  bool     `json:"stream"`
}

// generateResponse is the JSON returned by POST /api/generate (non-streaming).
type generateResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// Generate submits a single non-streaming completion request and returns the
// generated text with surrounding whitespace trimmed. Exactly one attempt is
// made; retry policy belongs to the caller.
func (c *Client) Generate(ctx context.Context, gr GenerateRequest) (string, error) {
	const op = "generate"

	gr.Stream = false
	body, err := json.Marshal(gr)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(op, resp, true)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errs.Wrap(errs.ProtocolError, op, err)
	}
	if result.Response == nil {
		return "", errs.E(errs.ProtocolError, op, `response has no "response" field`)
	}

	return strings.TrimSpace(*result.Response), nil
}

// transportError classifies a failed round trip. Cancellation by the caller
// is reported as the context error, anything else means the server could
// not be reached.
func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return errs.Wrap(errs.ServerUnreachable, op, err)
}

// statusError classifies a non-2xx response. For model-scoped calls Ollama
// answers 404 with {"error":"model \"x\" not found, try pulling it first"};
// only that decoded body means ModelNotFound. A bare 404 comes from
// something other than Ollama and is a ServerError.
func statusError(op string, resp *http.Response, modelScoped bool) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))

	var er errorResponse
	decoded := json.Unmarshal(raw, &er) == nil && er.Error != ""
	if decoded {
		msg = er.Error
	}

	if modelScoped && decoded && isModelMissing(msg) {
		return &errs.Error{Kind: errs.ModelNotFound, Op: op, Status: resp.StatusCode, Msg: msg}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &errs.Error{Kind: errs.ServerError, Op: op, Status: resp.StatusCode, Msg: msg}
}

func isModelMissing(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "model") && strings.Contains(m, "not found")
}
