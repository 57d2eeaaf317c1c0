package enhance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/thoth/internal/errs"
	"github.com/kalambet/thoth/internal/prompts"
)

func TestSubmit_DeliversSingleOutcome(t *testing.T) {
	f := newFakeOllama(t, echo("This is a test."))
	svc := newTestService(t, f.srv.URL, Deps{})

	ch := svc.Submit(context.Background(), Request{Text: "this is a test", Model: "llama3", PromptBody: "Fix grammar: {text}"})

	select {
	case out, ok := <-ch:
		if !ok {
			t.Fatal("channel closed without an outcome")
		}
		if out.Err != nil || out.Result.Text != "This is a test." {
			t.Errorf("Outcome = %+v", out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Submit did not complete")
	}

	if _, ok := <-ch; ok {
		t.Error("channel delivered a second value")
	}
}

func TestSubmit_Cancelled(t *testing.T) {
	f := newFakeOllama(t, func(string) (int, string) {
		time.Sleep(2 * time.Second)
		return http.StatusOK, "late"
	})
	svc := newTestService(t, f.srv.URL, Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	ch := svc.Submit(ctx, Request{Text: "hi", Model: "llama3", PromptID: prompts.FixGrammar})
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case out := <-ch:
		if !errors.Is(out.Err, context.Canceled) {
			t.Errorf("Err = %v, want context.Canceled", out.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled task did not finish promptly")
	}
}

func TestEnhanceBatch_PerRequestOutcomes(t *testing.T) {
	var inFlight, peak atomic.Int32
	f := newFakeOllama(t, func(prompt string) (int, string) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return http.StatusOK, strings.ToUpper(strings.TrimPrefix(prompt, "Up: "))
	})
	svc := newTestService(t, f.srv.URL, Deps{})

	var reqs []Request
	for i := 0; i < 8; i++ {
		reqs = append(reqs, Request{Text: fmt.Sprintf("item %d", i), Model: "llama3", PromptBody: "Up: {text}"})
	}
	reqs[3].Text = "" // one bad request must not affect the rest

	out := svc.EnhanceBatch(context.Background(), reqs, 2)
	if len(out) != len(reqs) {
		t.Fatalf("got %d outcomes, want %d", len(out), len(reqs))
	}
	for i, o := range out {
		if i == 3 {
			if !errors.Is(o.Err, errs.ErrEmptyInput) {
				t.Errorf("outcome 3 err = %v, want EmptyInput", o.Err)
			}
			continue
		}
		if o.Err != nil {
			t.Errorf("outcome %d: %v", i, o.Err)
			continue
		}
		if want := fmt.Sprintf("ITEM %d", i); o.Result.Text != want {
			t.Errorf("outcome %d = %q, want %q", i, o.Result.Text, want)
		}
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestEnhanceBatch_CancelledContext(t *testing.T) {
	f := newFakeOllama(t, echo("unused"))
	svc := newTestService(t, f.srv.URL, Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := svc.EnhanceBatch(ctx, []Request{
		{Text: "a", Model: "llama3", PromptID: prompts.FixGrammar},
		{Text: "b", Model: "llama3", PromptID: prompts.FixGrammar},
	}, 0)
	for i, o := range out {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("outcome %d err = %v, want context.Canceled", i, o.Err)
		}
	}
	if n := f.calls.Load(); n != 0 {
		t.Errorf("server received %d requests after cancellation", n)
	}
}
