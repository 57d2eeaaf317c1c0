package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/thoth/internal/config"
	"github.com/kalambet/thoth/internal/enhance"
	"github.com/kalambet/thoth/internal/errs"
	"github.com/kalambet/thoth/internal/prompts"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"prompt not found: \"x\"","type":"prompt_not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) recorded() []recordedRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]recordedRequest(nil), ts.requests...)
}

func (ts *testServer) client(token string) *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      token,
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestEnhanceRemote(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/enhance": `{"text":"Hello, world.","model":"llama3","prompt_id":"fix-grammar"}`,
	})

	var out bytes.Buffer
	err := enhanceRemote(ctx, ts.client("test-token"), enhance.Request{Text: "hello world", PromptID: "fix-grammar"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "Hello, world.\n" {
		t.Errorf("output = %q", out.String())
	}

	reqs := ts.recorded()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	r := reqs[0]
	if r.Method != "POST" || r.Path != "/v1/enhance" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["text"] != "hello world" || body["prompt_id"] != "fix-grammar" {
		t.Errorf("body = %v", body)
	}
}

func TestEnhanceRemote_NoTokenNoHeader(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/enhance": `{"text":"ok"}`,
	})

	if err := enhanceRemote(ctx, ts.client(""), enhance.Request{Text: "x"}, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth := ts.recorded()[0].Auth; auth != "" {
		t.Errorf("auth = %q, want none", auth)
	}
}

func TestEnhanceRemote_ServerErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, nil)

	err := enhanceRemote(ctx, ts.client(""), enhance.Request{Text: "x", PromptID: "x"}, io.Discard)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "prompt_not_found:") {
		t.Errorf("error = %q, want type prefix", err.Error())
	}
}

func TestServerNotRunning(t *testing.T) {
	c := &apiClient{
		baseURL:    "http://127.0.0.1:1",
		httpClient: &http.Client{Timeout: time.Second},
	}

	err := c.getJSON(ctx, "/v1/history", &historyResponse{})
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
	if c.healthy(ctx) {
		t.Error("healthy() = true for stopped server")
	}
}

func TestHistoryResponseDecode(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/history": `{"entries":[{"id":"e1","model":"llama3","status":"failed","error_kind":"server_unreachable","duration_ms":12}],
			"stats":{"total":4,"succeeded":3,"failed":1,"avg_duration_ms":850}}`,
	})

	var h historyResponse
	if err := ts.client("").getJSON(ctx, "/v1/history?limit=1", &h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Entries) != 1 || h.Entries[0].ErrorKind != "server_unreachable" {
		t.Errorf("entries = %+v", h.Entries)
	}
	if h.Stats.Total != 4 || h.Stats.AvgDurationMs != 850 {
		t.Errorf("stats = %+v", h.Stats)
	}
}

func TestReadInput(t *testing.T) {
	got, err := readInput([]string{"their", "going"}, strings.NewReader("ignored"))
	if err != nil || got != "their going" {
		t.Errorf("args: got %q, %v", got, err)
	}

	got, err = readInput(nil, strings.NewReader("from stdin\n\n"))
	if err != nil || got != "from stdin" {
		t.Errorf("stdin: got %q, %v", got, err)
	}
}

// fakeOllama answers /api/generate by echoing the rendered prompt.
func fakeOllama(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			w.Write([]byte(`{"version":"0.6.0"}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
		case "/api/generate":
			var body struct {
				Prompt string `json:"prompt"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"response": "<" + body.Prompt + ">", "done": true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, baseURL string) *app {
	t.Helper()
	cfg := config.Config{
		Ollama:      config.OllamaConfig{BaseURL: baseURL},
		Enhancement: config.EnhancementConfig{Model: "llama3", PromptID: prompts.FixGrammar},
		Storage:     config.StorageConfig{DataDir: t.TempDir()},
	}
	a, err := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestEnhanceLocal(t *testing.T) {
	srv := fakeOllama(t, 0)
	a := newTestApp(t, srv.URL)

	var out bytes.Buffer
	err := enhanceLocal(ctx, a.service, enhance.Request{Text: "hi", PromptBody: "Say {text}"}, &out)
	if err != nil {
		t.Fatalf("enhanceLocal: %v", err)
	}
	if out.String() != "<Say hi>\n" {
		t.Errorf("output = %q", out.String())
	}

	rows, err := a.store.RecentEnhancements(5)
	if err != nil {
		t.Fatalf("RecentEnhancements: %v", err)
	}
	if len(rows) != 1 || rows[0].Model != "llama3" {
		t.Errorf("history = %+v", rows)
	}
}

func TestEnhanceLocal_Timeout(t *testing.T) {
	srv := fakeOllama(t, 2*time.Second)
	a := newTestApp(t, srv.URL)

	tctx, cancel := withTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err := enhanceLocal(tctx, a.service, enhance.Request{Text: "slow"}, io.Discard)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %q, want timeout message", err.Error())
	}
}

func TestEnhanceLocal_Validation(t *testing.T) {
	srv := fakeOllama(t, 0)
	a := newTestApp(t, srv.URL)

	err := enhanceLocal(ctx, a.service, enhance.Request{Text: "x", PromptID: "missing"}, io.Discard)
	if !errors.Is(err, errs.ErrPromptNotFound) {
		t.Errorf("err = %v, want PromptNotFound", err)
	}
}

func TestWithTimeout_Zero(t *testing.T) {
	c, cancel := withTimeout(ctx, 0)
	defer cancel()
	if _, ok := c.Deadline(); ok {
		t.Error("zero timeout should not set a deadline")
	}
}

func TestImportLegacyThroughApp(t *testing.T) {
	a := newTestApp(t, "http://127.0.0.1:1")

	path := filepath.Join(t.TempDir(), "prompts.json")
	legacy := `[
		{"id":"fix-grammar","name":"Fix Grammar","template":"Fix: {text}","isBuiltin":true},
		{"id":"abc","name":"Pirate Reply","template":"Arr: {text}","isBuiltin":false}
	]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	res, err := a.catalog.ImportLegacy(f)
	if err != nil {
		t.Fatalf("ImportLegacy: %v", err)
	}
	if len(res.Imported) != 1 || res.Imported[0].Label != "Pirate Reply" {
		t.Errorf("imported = %+v", res.Imported)
	}

	var out bytes.Buffer
	list, _ := a.service.ListPrompts()
	if err := printPrompts(&out, list); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Pirate Reply") || !strings.Contains(out.String(), "builtin") {
		t.Errorf("listing = %s", out.String())
	}
}

func TestContextLabel(t *testing.T) {
	tests := []struct {
		flags prompts.ContextFlags
		want  string
	}{
		{prompts.ContextFlags{}, "-"},
		{prompts.ContextFlags{Clipboard: true}, "clipboard"},
		{prompts.ContextFlags{Clipboard: true, Selection: true}, "clipboard,selection"},
	}
	for _, tt := range tests {
		if got := contextLabel(tt.flags); got != tt.want {
			t.Errorf("contextLabel(%+v) = %q, want %q", tt.flags, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := preview(""); got != "(none)" {
		t.Errorf("preview(\"\") = %q", got)
	}
	if got := preview("a\nb"); got != "a b" {
		t.Errorf("preview = %q", got)
	}
	long := strings.Repeat("x", 100)
	if got := preview(long); len([]rune(got)) != 63 {
		t.Errorf("preview length = %d, want 63", len([]rune(got)))
	}
}

func TestOllamaStatus(t *testing.T) {
	up := fakeOllama(t, 0)
	if got := ollamaStatus(context.Background(), up.URL); got != "running at "+up.URL {
		t.Errorf("ollamaStatus(up) = %q", got)
	}

	// A non-Ollama server answering 404 is not a running Ollama.
	other := httptest.NewServer(http.NotFoundHandler())
	defer other.Close()
	if got := ollamaStatus(context.Background(), other.URL); got != "not running" {
		t.Errorf("ollamaStatus(404) = %q, want not running", got)
	}

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	if got := ollamaStatus(context.Background(), down.URL); got != "not running" {
		t.Errorf("ollamaStatus(down) = %q, want not running", got)
	}
}

func TestPIDFile(t *testing.T) {
	path := pidFilePath(t.TempDir())
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after removal")
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestRootCommandTree(t *testing.T) {
	want := []string{"serve", "stop", "status", "enhance", "models", "prompts", "context", "history", "config"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, path := range [][]string{{"prompts", "import"}, {"config", "set-token"}, {"config", "unset-token"}, {"models", "pull"}} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[1] {
			t.Errorf("command %v not registered", path)
		}
	}
}
