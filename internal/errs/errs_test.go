package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("listing: %w", E(ServerError, "list models", "boom"))

	if !errors.Is(err, ErrServerError) {
		t.Error("errors.Is(err, ErrServerError) = false, want true")
	}
	if errors.Is(err, ErrServerUnreachable) {
		t.Error("errors.Is(err, ErrServerUnreachable) = true, want false")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{E(EmptyInput, "enhance", ""), EmptyInput},
		{fmt.Errorf("outer: %w", Wrap(ProtocolError, "generate", errors.New("bad json"))), ProtocolError},
		{errors.New("plain"), Unknown},
		{nil, Unknown},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: ServerError, Op: "generate", Status: 500, Msg: "out of memory"}
	want := "generate: inference server error (500): out of memory"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := Wrap(ServerUnreachable, "list models", errors.New("connection refused"))
	if !strings.Contains(wrapped.Error(), "connection refused") {
		t.Errorf("Error() = %q, want it to contain the cause", wrapped.Error())
	}
}

func TestKind_String(t *testing.T) {
	if got := ModelNotFound.String(); got != "model_not_found" {
		t.Errorf("String() = %q, want %q", got, "model_not_found")
	}
	if got := Kind(99).String(); got != "unknown" {
		t.Errorf("String() = %q, want %q", got, "unknown")
	}
}
