// Package interpreter orchestrates single code executions against a sandbox
// backend and normalizes every outcome into an ExecutionResult.
//
// The interpreter never runs code in-process. "Run this untrusted snippet"
// is always expressed as one call to a sandbox.Sandbox, and the backend's
// raw response — or the error raised while invoking it — is mapped into a
// uniform result the caller can reason about without parsing console text.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sakif/code-interpreter/internal/sandbox"
)

// ErrNoBackend is returned by Run when the interpreter was constructed
// without a sandbox backend. This is the one condition that is not
// normalized into an ExecutionResult: continuing without a backend would
// silently produce a meaningless result, so it fails fast instead.
var ErrNoBackend = errors.New("interpreter: no sandbox backend configured")

// DefaultTimeout is the per-run wall-clock limit applied when the config
// leaves Timeout zero.
const DefaultTimeout = 3600 * time.Second

// DefaultAgentFileName is the canonical filename the submitted code is
// associated with.
const DefaultAgentFileName = "runfile.py"

// defaultCommand is the interpreter argv used when the config leaves
// Command empty. The code payload is piped to it on stdin.
var defaultCommand = []string{"python3"}

// Config holds the immutable settings of an Interpreter.
type Config struct {
	// WorkingDir is the directory executions run in. Resolution and
	// validation of the path is the backend's concern.
	WorkingDir string
	// Timeout is the wall-clock limit passed to the backend for each run.
	// Zero means DefaultTimeout. Enforcement is delegated entirely to the
	// backend; the interpreter does not race a local timer against it.
	Timeout time.Duration
	// IPythonTraceback selects IPython-style traceback formatting for
	// backends that format tracebacks in-process. The delegating backends
	// never produce structured tracebacks, so the flag is currently inert;
	// it stays on the public surface for callers that set it.
	IPythonTraceback bool
	// AgentFileName is the filename the agent's code is conceptually
	// associated with. Informational; empty means DefaultAgentFileName.
	AgentFileName string
	// Command is the interpreter argv. Empty means ["python3"].
	Command []string
}

// RunOptions control a single Run call.
type RunOptions struct {
	// ReuseSession asks a session-capable backend to keep state from the
	// previous run instead of starting fresh. The zero value requests a
	// fresh session. Backends without sessions ignore the hint either way;
	// it never changes the shape of the result.
	ReuseSession bool
}

// Interpreter executes code snippets through a sandbox backend, one
// backend call per Run.
//
// An Interpreter holds only immutable configuration and the backend handle,
// so concurrent Run calls on the same instance are safe as long as the
// backend supports concurrent requests.
type Interpreter struct {
	cfg     Config
	backend sandbox.Sandbox
	logger  *slog.Logger
}

// New creates an Interpreter. A nil backend is legal — every Run call then
// returns ErrNoBackend — which lets the surrounding application start even
// when no execution backend is available.
func New(cfg Config, backend sandbox.Sandbox, logger *slog.Logger) *Interpreter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.AgentFileName == "" {
		cfg.AgentFileName = DefaultAgentFileName
	}
	if len(cfg.Command) == 0 {
		cfg.Command = defaultCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{
		cfg:     cfg,
		backend: backend,
		logger:  logger,
	}
}

// Config returns the interpreter's effective configuration, with defaults
// applied.
func (i *Interpreter) Config() Config {
	return i.cfg
}

// Run executes code through the backend and returns the normalized result.
//
// The error return is reserved for the missing-backend precondition; every
// backend-level outcome, including a failed invocation, comes back as an
// ExecutionResult. There are no retries — a single failed attempt is final
// and reported as such.
func (i *Interpreter) Run(ctx context.Context, code string, opts RunOptions) (*ExecutionResult, error) {
	if i.backend == nil {
		return nil, ErrNoBackend
	}

	start := time.Now()

	resp, err := i.backend.Exec(ctx, sandbox.ExecRequest{
		Command:      i.cfg.Command,
		Input:        code,
		Timeout:      i.cfg.Timeout,
		Dir:          i.cfg.WorkingDir,
		FreshSession: !opts.ReuseSession,
	})

	// Measured locally regardless of outcome; the elapsed time feeds both
	// the trailing output line and the caller's policy decisions.
	elapsed := time.Since(start)

	if err != nil {
		i.logger.Warn("sandbox dispatch failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed),
		)
		return &ExecutionResult{
			Output:   []string{err.Error()},
			ExecTime: elapsed,
			Failure: &Failure{
				Kind:      FailureDispatch,
				ErrorKind: errorKind(err),
				Message:   err.Error(),
			},
		}, nil
	}

	// stderr before stdout, then the timing line.
	output := make([]string, 0, 3)
	if resp.Stderr != "" {
		output = append(output, resp.Stderr)
	}
	if resp.Stdout != "" {
		output = append(output, resp.Stdout)
	}
	output = append(output, fmt.Sprintf(
		"Execution time: %s (time limit is %s).",
		naturalDelta(elapsed), naturalDelta(i.cfg.Timeout),
	))

	result := &ExecutionResult{
		Output:   output,
		ExecTime: elapsed,
	}
	if resp.ExitCode != 0 {
		result.Failure = &Failure{
			Kind:     FailureRuntime,
			ExitCode: resp.ExitCode,
		}
	}
	return result, nil
}

// errorKind extracts a short name for the error's concrete type, e.g.
// "net.OpError" or "errors.errorString". It is the only cause information
// a dispatch failure can carry.
func errorKind(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// naturalDelta renders a duration the way a human would say it ("2 seconds",
// "1 hour"). RelTime needs two instants and a pair of suffix labels; with
// empty labels it leaves a trailing space to trim.
func naturalDelta(d time.Duration) string {
	var ref time.Time
	return strings.TrimSpace(humanize.RelTime(ref, ref.Add(d), "", ""))
}
