package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate")

// timeLayout is fixed-width so that created_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// CustomPrompt is a user-defined prompt template row.
type CustomPrompt struct {
	ID               string
	Label            string
	Body             string
	CaptureClipboard bool
	CaptureSelection bool
	CreatedAt        time.Time
}

// Enhancement status values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Enhancement is one history row. Only sizes and timings are kept, never
// the input or output text.
type Enhancement struct {
	ID          string
	CreatedAt   time.Time
	Model       string
	PromptID    string
	InputChars  int
	OutputChars int
	Duration    time.Duration
	Status      string // "succeeded", "failed"
	ErrorKind   string
}

// EnhancementStats summarises the history table.
type EnhancementStats struct {
	Total     int
	Succeeded int
	Failed    int
	// AvgDuration covers successful enhancements only.
	AvgDuration time.Duration
}
