// Package model defines the data structures used throughout the application.
package model

import (
	"time"

	"github.com/sakif/code-interpreter/internal/interpreter"
)

// Run is an immutable record of one code execution: the submitted code plus
// the normalized result it produced. Unlike an editable document, a run is
// never updated after creation — it is the service's audit trail.
type Run struct {
	ID     string `json:"id"`
	UserID string `json:"userId,omitempty"`
	Code   string `json:"code"`

	// Result is the normalized outcome, stored verbatim so a caller can
	// re-read a historical run exactly as it was reported.
	Result interpreter.ExecutionResult `json:"result"`

	// Denormalized result columns for querying without unpacking JSON.
	FailureKind string        `json:"failureKind,omitempty"` // empty on success
	ExitCode    int           `json:"exitCode"`
	ExecTime    time.Duration `json:"execTime"`

	CreatedAt time.Time `json:"createdAt"`
}
