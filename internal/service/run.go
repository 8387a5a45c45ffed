// Package service contains the business logic layer: it validates input,
// orchestrates the interpreter and repositories, and returns domain errors.
// Handlers stay HTTP-only; repositories stay SQL-only.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/code-interpreter/internal/apperror"
	"github.com/sakif/code-interpreter/internal/interpreter"
	"github.com/sakif/code-interpreter/internal/model"
	"github.com/sakif/code-interpreter/internal/repository"
)

const (
	// MaxCodeLength caps submitted snippets (~100KB). The code is otherwise
	// opaque — not parsed, not sanitized; isolation is the backend's job.
	MaxCodeLength    = 100000
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// RunService executes code through the interpreter and keeps the run
// history.
type RunService struct {
	interp *interpreter.Interpreter
	runs   repository.RunRepository
	logger *slog.Logger
}

// NewRunService creates a RunService.
func NewRunService(interp *interpreter.Interpreter, runs repository.RunRepository, logger *slog.Logger) *RunService {
	return &RunService{
		interp: interp,
		runs:   runs,
		logger: logger,
	}
}

// Execute validates the request, runs the code, and records the outcome.
//
// The returned run embeds the normalized ExecutionResult: a runtime or
// dispatch failure is a successful Execute call. Only validation problems
// and the interpreter's no-backend precondition surface as errors. If
// persisting the record fails, the result is still returned — the caller
// paid for the execution and gets its outcome, with an empty run ID
// signalling that history was not written.
func (s *RunService) Execute(ctx context.Context, userID, code string, reuseSession bool) (*model.Run, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}
	if len(code) > MaxCodeLength {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}

	result, err := s.interp.Run(ctx, code, interpreter.RunOptions{ReuseSession: reuseSession})
	if err != nil {
		// ErrNoBackend: a deployment problem, not an execution outcome.
		s.logger.Error("interpreter unavailable", slog.String("error", err.Error()))
		return nil, fmt.Errorf("executing code: %w", err)
	}

	run := &model.Run{
		UserID: userID,
		Code:   code,
		Result: *result,
	}

	if err := s.runs.CreateRun(ctx, run); err != nil {
		s.logger.Error("failed to record run",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		run.ID = ""
		return run, nil
	}

	s.logger.Info("run recorded",
		slog.String("id", run.ID),
		slog.String("failureKind", run.FailureKind),
		slog.Duration("execTime", run.ExecTime),
	)

	return run, nil
}

// GetByID retrieves a run, enforcing ownership: a caller may only read
// their own history.
func (s *RunService) GetByID(ctx context.Context, userID, id string) (*model.Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "run ID is required")
	}

	run, err := s.runs.GetRunByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if run.UserID != userID {
		// Hide the record's existence from non-owners.
		return nil, apperror.NotFound("run", id)
	}

	return run, nil
}

// List retrieves the caller's runs with pagination, newest first.
func (s *RunService) List(ctx context.Context, userID string, limit, offset int) ([]model.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := s.runs.ListRuns(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list runs", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}
