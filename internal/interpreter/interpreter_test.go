package interpreter_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-interpreter/internal/interpreter"
	"github.com/sakif/code-interpreter/internal/sandbox"
)

// MockSandbox records the request it received and returns a canned response
// or error, so interpreter behavior can be tested without a real backend.
type MockSandbox struct {
	CapturedReq sandbox.ExecRequest
	ReturnResp  *sandbox.ExecResponse
	ReturnErr   error
	Delay       time.Duration
}

func (m *MockSandbox) Exec(ctx context.Context, req sandbox.ExecRequest) (*sandbox.ExecResponse, error) {
	m.CapturedReq = req
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnResp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRun_Success(t *testing.T) {
	mock := &MockSandbox{
		ReturnResp: &sandbox.ExecResponse{Stdout: "42\n", ExitCode: 0},
	}
	interp := interpreter.New(interpreter.Config{WorkingDir: "/work"}, mock, testLogger())

	res, err := interp.Run(context.Background(), "print(6*7)", interpreter.RunOptions{})
	require.NoError(t, err)

	assert.True(t, res.Success())
	assert.Nil(t, res.Failure)
	assert.Nil(t, res.StackTrace)
	assert.GreaterOrEqual(t, res.ExecTime, time.Duration(0))

	// stdout then the timing line; no stderr entry when stderr is empty.
	require.Len(t, res.Output, 2)
	assert.Equal(t, "42\n", res.Output[0])
	assert.Contains(t, res.Output[1], "Execution time:")
	assert.Contains(t, res.Output[1], "time limit is 1 hour")

	// The backend sees the configured command, payload and timeout.
	assert.Equal(t, []string{"python3"}, mock.CapturedReq.Command)
	assert.Equal(t, "print(6*7)", mock.CapturedReq.Input)
	assert.Equal(t, "/work", mock.CapturedReq.Dir)
	assert.Equal(t, 3600*time.Second, mock.CapturedReq.Timeout)
	assert.True(t, mock.CapturedReq.FreshSession)
}

func TestRun_StderrOrderedBeforeStdout(t *testing.T) {
	mock := &MockSandbox{
		ReturnResp: &sandbox.ExecResponse{
			Stdout:   "partial output\n",
			Stderr:   "Traceback...\nZeroDivisionError",
			ExitCode: 1,
		},
	}
	interp := interpreter.New(interpreter.Config{}, mock, testLogger())

	res, err := interp.Run(context.Background(), "1/0", interpreter.RunOptions{})
	require.NoError(t, err)

	require.Len(t, res.Output, 3)
	assert.Equal(t, "Traceback...\nZeroDivisionError", res.Output[0])
	assert.Equal(t, "partial output\n", res.Output[1])
	assert.Contains(t, res.Output[2], "Execution time:")
}

func TestRun_RuntimeFailure(t *testing.T) {
	for _, exitCode := range []int{1, 2, 124, 137} {
		mock := &MockSandbox{
			ReturnResp: &sandbox.ExecResponse{Stderr: "boom", ExitCode: exitCode},
		}
		interp := interpreter.New(interpreter.Config{}, mock, testLogger())

		res, err := interp.Run(context.Background(), "code", interpreter.RunOptions{})
		require.NoError(t, err)

		require.NotNil(t, res.Failure)
		assert.Equal(t, interpreter.FailureRuntime, res.Failure.Kind)
		assert.Equal(t, exitCode, res.Failure.ExitCode)
		assert.False(t, res.Success())
		assert.GreaterOrEqual(t, res.ExecTime, time.Duration(0))
	}
}

func TestRun_DispatchFailure(t *testing.T) {
	mock := &MockSandbox{ReturnErr: errors.New("connection reset")}
	interp := interpreter.New(interpreter.Config{}, mock, testLogger())

	res, err := interp.Run(context.Background(), "print(1)", interpreter.RunOptions{})
	require.NoError(t, err, "backend errors must be normalized, not propagated")

	require.NotNil(t, res.Failure)
	assert.Equal(t, interpreter.FailureDispatch, res.Failure.Kind)
	assert.Equal(t, "connection reset", res.Failure.Message)
	assert.Equal(t, "errors.errorString", res.Failure.ErrorKind)

	// Exactly one output line: the error's textual representation.
	require.Len(t, res.Output, 1)
	assert.Equal(t, "connection reset", res.Output[0])
	assert.GreaterOrEqual(t, res.ExecTime, time.Duration(0))
}

func TestRun_NoBackend(t *testing.T) {
	interp := interpreter.New(interpreter.Config{}, nil, testLogger())

	res, err := interp.Run(context.Background(), "print(1)", interpreter.RunOptions{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, interpreter.ErrNoBackend)
}

func TestRun_EmptyOutput(t *testing.T) {
	mock := &MockSandbox{ReturnResp: &sandbox.ExecResponse{ExitCode: 0}}
	interp := interpreter.New(interpreter.Config{}, mock, testLogger())

	res, err := interp.Run(context.Background(), "pass", interpreter.RunOptions{})
	require.NoError(t, err)

	// No stdout, no stderr — only the timing line remains.
	require.Len(t, res.Output, 1)
	assert.Contains(t, res.Output[0], "Execution time:")
}

func TestRun_SessionHintDoesNotChangeResultShape(t *testing.T) {
	for _, reuse := range []bool{false, true} {
		mock := &MockSandbox{
			ReturnResp: &sandbox.ExecResponse{Stdout: "ok\n", ExitCode: 0},
		}
		interp := interpreter.New(interpreter.Config{}, mock, testLogger())

		res, err := interp.Run(context.Background(), "x = 1", interpreter.RunOptions{ReuseSession: reuse})
		require.NoError(t, err)
		assert.True(t, res.Success())
		assert.Len(t, res.Output, 2)
		assert.Equal(t, !reuse, mock.CapturedReq.FreshSession)
	}
}

func TestRun_ElapsedMeasuredLocally(t *testing.T) {
	mock := &MockSandbox{
		ReturnResp: &sandbox.ExecResponse{Stdout: "ok\n", ExitCode: 0},
		Delay:      20 * time.Millisecond,
	}
	interp := interpreter.New(interpreter.Config{}, mock, testLogger())

	res, err := interp.Run(context.Background(), "code", interpreter.RunOptions{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.ExecTime, 20*time.Millisecond)
}

func TestNew_Defaults(t *testing.T) {
	interp := interpreter.New(interpreter.Config{}, nil, nil)
	cfg := interp.Config()

	assert.Equal(t, 3600*time.Second, cfg.Timeout)
	assert.Equal(t, "runfile.py", cfg.AgentFileName)
	assert.Equal(t, []string{"python3"}, cfg.Command)
	assert.False(t, cfg.IPythonTraceback)
}

func TestRun_TimingLineUsesConfiguredLimit(t *testing.T) {
	mock := &MockSandbox{ReturnResp: &sandbox.ExecResponse{ExitCode: 0}}
	interp := interpreter.New(interpreter.Config{Timeout: 5 * time.Second}, mock, testLogger())

	res, err := interp.Run(context.Background(), "pass", interpreter.RunOptions{})
	require.NoError(t, err)
	assert.Contains(t, res.Output[len(res.Output)-1], "time limit is 5 seconds")
}
