package interpreter

import "time"

// FailureKind classifies why a run did not succeed.
type FailureKind string

const (
	// FailureRuntime means the code ran to completion but the backend
	// reported a non-zero exit status.
	FailureRuntime FailureKind = "runtime"
	// FailureDispatch means the attempt to invoke the backend itself failed
	// (connection error, malformed response, internal backend bug). The
	// code may never have run at all.
	FailureDispatch FailureKind = "dispatch"
)

// Failure carries the kind-specific diagnostic detail for a failed run.
type Failure struct {
	Kind FailureKind `json:"kind"`
	// ExitCode is set for runtime failures.
	ExitCode int `json:"exitCode,omitempty"`
	// ErrorKind and Message are set for dispatch failures. ErrorKind is the
	// Go type name of the failing error; callers that need to distinguish
	// dispatch causes have nothing better to go on — the backends do not
	// report a finer taxonomy.
	ErrorKind string `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ExecutionResult is the normalized outcome of a single Run call. Every call
// produces exactly one, whether the code succeeded, exited non-zero, or the
// backend could not be reached.
type ExecutionResult struct {
	// Output holds the display-ordered output: stderr (if any), then stdout
	// (if any), then a trailing line stating elapsed vs. allowed time.
	// Error text comes first so a caller scanning top-to-bottom sees the
	// failure signal before normal output.
	Output []string `json:"output"`
	// ExecTime is the wall-clock duration of the call, measured by the
	// interpreter rather than trusted from the backend. Always set,
	// including on failure.
	ExecTime time.Duration `json:"execTime"`
	// Failure is nil on success.
	Failure *Failure `json:"failure,omitempty"`
	// StackTrace is reserved for in-process backends that can return
	// structured tracebacks. The delegating backends never populate it.
	StackTrace []string `json:"stackTrace,omitempty"`
}

// Success reports whether the run completed with exit status zero.
func (r *ExecutionResult) Success() bool {
	return r.Failure == nil
}

// Seconds returns the elapsed time as a float of seconds, for callers that
// apply time-based policy to the result.
func (r *ExecutionResult) Seconds() float64 {
	return r.ExecTime.Seconds()
}
