// Package errs defines the classified failures surfaced by the enhancement
// pipeline. Every failure carries a Kind so callers can tell "server absent"
// from "server rejected the request" from "server response unintelligible".
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	EmptyInput
	EmptyModel
	PromptNotFound
	InvalidTemplate
	DuplicateLabel
	ImmutableTemplate
	ServerUnreachable
	ModelNotFound
	ServerError
	ProtocolError
	Storage
)

var kindNames = map[Kind]string{
	Unknown:           "unknown",
	EmptyInput:        "empty_input",
	EmptyModel:        "empty_model",
	PromptNotFound:    "prompt_not_found",
	InvalidTemplate:   "invalid_template",
	DuplicateLabel:    "duplicate_label",
	ImmutableTemplate: "immutable_template",
	ServerUnreachable: "server_unreachable",
	ModelNotFound:     "model_not_found",
	ServerError:       "server_error",
	ProtocolError:     "protocol_error",
	Storage:           "storage_error",
}

var kindText = map[Kind]string{
	Unknown:           "unknown error",
	EmptyInput:        "text cannot be empty",
	EmptyModel:        "model cannot be empty",
	PromptNotFound:    "prompt not found",
	InvalidTemplate:   "invalid prompt template",
	DuplicateLabel:    "a custom prompt with this label already exists",
	ImmutableTemplate: "built-in prompts cannot be modified",
	ServerUnreachable: "inference server unreachable",
	ModelNotFound:     "model not found",
	ServerError:       "inference server error",
	ProtocolError:     "malformed inference server response",
	Storage:           "prompt store failure",
}

// String returns the snake_case identifier used on the wire.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[Unknown]
}

// Error is a classified failure. Op names the operation that failed,
// Status is the HTTP status reported by the server (ServerError only).
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(kindText[e.Kind])
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (%d)", e.Status)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrModelNotFound)
// works regardless of op or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrEmptyInput        = &Error{Kind: EmptyInput}
	ErrEmptyModel        = &Error{Kind: EmptyModel}
	ErrPromptNotFound    = &Error{Kind: PromptNotFound}
	ErrInvalidTemplate   = &Error{Kind: InvalidTemplate}
	ErrDuplicateLabel    = &Error{Kind: DuplicateLabel}
	ErrImmutableTemplate = &Error{Kind: ImmutableTemplate}
	ErrServerUnreachable = &Error{Kind: ServerUnreachable}
	ErrModelNotFound     = &Error{Kind: ModelNotFound}
	ErrServerError       = &Error{Kind: ServerError}
	ErrProtocolError     = &Error{Kind: ProtocolError}
	ErrStorage           = &Error{Kind: Storage}
)

// E builds a classified error.
func E(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds a classified error around a cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
