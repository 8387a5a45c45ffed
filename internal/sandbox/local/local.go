// Package local implements the sandbox contract as a plain host process.
//
// It provides NO isolation: the code runs with the privileges of the server
// process. It exists for development and tests on machines without Docker,
// and must be enabled explicitly.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/sakif/code-interpreter/internal/sandbox"
)

// TimeoutExitCode is reported when an execution exceeds its time limit.
const TimeoutExitCode = 124

// Backend runs code directly on the host via os/exec.
type Backend struct {
	logger *slog.Logger
}

var _ sandbox.Sandbox = (*Backend)(nil)

// New creates a local backend. The caller must pass acknowledge=true to
// confirm it understands that host execution is not an isolation boundary.
func New(logger *slog.Logger, acknowledge bool) (*Backend, error) {
	if !acknowledge {
		return nil, errors.New("local: refusing to run untrusted code on the host without explicit acknowledgement")
	}
	logger.Warn("local backend enabled — executions are NOT isolated from the host")
	return &Backend{logger: logger}, nil
}

// Exec runs the command as a host process with the payload on stdin.
//
// A binary that cannot be started (not found, permission denied) is a
// dispatch error; a process that starts and exits non-zero is a normal
// response. Exceeding the timeout kills the process and reports
// TimeoutExitCode. The FreshSession hint is a no-op: every execution is a
// new process with no retained state.
func (b *Backend) Exec(ctx context.Context, req sandbox.ExecRequest) (*sandbox.ExecResponse, error) {
	if len(req.Command) == 0 {
		return nil, fmt.Errorf("local: empty command")
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 3600 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.Command[0], req.Command[1:]...)
	cmd.Dir = req.Dir
	if req.Input != "" {
		cmd.Stdin = strings.NewReader(req.Input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		// The deadline firing kills the process, which surfaces as an
		// ExitError; report it as a timeout, not as the raw signal code.
		if ctx.Err() == context.DeadlineExceeded {
			stderr.WriteString("\nExecution timed out.\n")
			exitCode = TimeoutExitCode
		} else {
			var exitErr *exec.ExitError
			if errors.As(runErr, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				// Binary not found or other exec error
				return nil, fmt.Errorf("local: executing %s: %w", req.Command[0], runErr)
			}
		}
	}

	return &sandbox.ExecResponse{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}
