package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// addrEngine answers Generate with the address it was built for.
type addrEngine struct {
	mockEngine
	addr  string
	delay time.Duration
}

func (a *addrEngine) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return a.addr + "|" + req.Prompt, nil
}

func countingFactory(n *atomic.Int32, delay time.Duration) Factory {
	return func(u string) Engine {
		n.Add(1)
		return &addrEngine{addr: u, delay: delay}
	}
}

func TestHandle_LazyConstruction(t *testing.T) {
	var built atomic.Int32
	h := NewHandleWithFactory("http://a", countingFactory(&built, 0))

	if built.Load() != 0 {
		t.Fatalf("engine built before first use")
	}
	h.Get()
	h.Get()
	if built.Load() != 1 {
		t.Errorf("built %d engines, want 1", built.Load())
	}
}

func TestHandle_SetBaseURL(t *testing.T) {
	var built atomic.Int32
	h := NewHandleWithFactory("http://a/", countingFactory(&built, 0))

	old := h.Get()
	h.SetBaseURL("http://b")

	if h.BaseURL() != "http://b" {
		t.Errorf("BaseURL() = %q, want http://b", h.BaseURL())
	}
	out, err := h.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "x"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "http://b|x" {
		t.Errorf("Generate after SetBaseURL = %q, want http://b|x", out)
	}

	// A previously obtained engine keeps its address.
	out, _ = old.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "x"})
	if out != "http://a|x" {
		t.Errorf("old engine = %q, want http://a|x", out)
	}

	// Setting the same address again does not rebuild.
	h.SetBaseURL("http://b")
	h.Get()
	if built.Load() != 2 {
		t.Errorf("built %d engines, want 2", built.Load())
	}
}

func TestHandle_LockNotHeldDuringCalls(t *testing.T) {
	var built atomic.Int32
	h := NewHandleWithFactory("http://a", countingFactory(&built, 200*time.Millisecond))

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		h.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "slow"})
		close(done)
	}()
	<-started

	// Get must not wait for the slow call to finish.
	got := make(chan struct{})
	go func() {
		h.Get()
		h.SetBaseURL("http://b")
		close(got)
	}()

	select {
	case <-got:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Get blocked behind an in-flight call")
	}
	<-done
}

func TestHandle_ConcurrentUse(t *testing.T) {
	var built atomic.Int32
	h := NewHandleWithFactory("http://a", countingFactory(&built, time.Millisecond))

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := h.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: fmt.Sprint(i)})
			if err != nil {
				t.Errorf("Generate %d: %v", i, err)
				return
			}
			results[i] = out
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if want := fmt.Sprintf("http://a|%d", i); r != want {
			t.Errorf("results[%d] = %q, want %q", i, r, want)
		}
	}
	if built.Load() != 1 {
		t.Errorf("built %d engines, want 1", built.Load())
	}
}

func TestHandle_DefaultFactory(t *testing.T) {
	h := NewHandle("http://localhost:11434")
	oe, ok := h.Get().(*OllamaEngine)
	if !ok {
		t.Fatalf("Get() = %T, want *OllamaEngine", h.Get())
	}
	if oe.BaseURL() != "http://localhost:11434" {
		t.Errorf("BaseURL() = %q", oe.BaseURL())
	}
}
