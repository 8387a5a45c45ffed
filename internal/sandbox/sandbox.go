// Package sandbox defines the contract between the interpreter core and
// the execution backends that actually run untrusted code.
package sandbox

import (
	"context"
	"time"
)

// ExecRequest describes a single execution to perform inside a backend.
type ExecRequest struct {
	// Command is the argv of the interpreter process, e.g. ["python3"].
	Command []string
	// Input is the code payload, piped to the process on stdin.
	Input string
	// Timeout is the wall-clock limit for this execution. The backend must
	// terminate the execution and return within a bounded time after it
	// elapses.
	Timeout time.Duration
	// Dir is the working directory for the execution.
	Dir string
	// FreshSession asks session-capable backends to discard any state kept
	// from previous executions. Backends without sessions ignore it.
	FreshSession bool
}

// ExecResponse is the raw outcome reported by a backend. Interpretation
// (output ordering, failure classification) happens in the interpreter
// package, not here.
type ExecResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Sandbox runs code in an isolated environment.
//
// Implementations must be safe for concurrent use; the interpreter does not
// serialize calls on the caller's behalf.
type Sandbox interface {
	Exec(ctx context.Context, req ExecRequest) (*ExecResponse, error)
}
