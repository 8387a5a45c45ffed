package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-interpreter/internal/apperror"
	"github.com/sakif/code-interpreter/internal/model"
	"github.com/sakif/code-interpreter/internal/repository"
)

// Compile-time check that *DB implements repository.RunRepository.
var _ repository.RunRepository = (*DB)(nil)

// CreateRun inserts a run record. The ID and CreatedAt are generated here;
// the denormalized failure columns are derived from the stored result so
// the two can never disagree.
func (db *DB) CreateRun(ctx context.Context, run *model.Run) error {
	run.ID = xid.New().String()
	run.CreatedAt = time.Now()

	run.FailureKind = ""
	run.ExitCode = 0
	if f := run.Result.Failure; f != nil {
		run.FailureKind = string(f.Kind)
		run.ExitCode = f.ExitCode
	}
	run.ExecTime = run.Result.ExecTime

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("sqlite: encoding run result: %w", err)
	}

	// NULL user_id keeps the FK satisfied for unauthenticated surfaces
	// (the MCP server has no user identity).
	var userID any
	if run.UserID != "" {
		userID = run.UserID
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO runs (id, user_id, code, result_json, failure_kind, exit_code, exec_time_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		userID,
		run.Code,
		string(resultJSON),
		run.FailureKind,
		run.ExitCode,
		run.ExecTime.Nanoseconds(),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating run: %w", err)
	}

	return nil
}

// GetRunByID retrieves a single run by its ID.
func (db *DB) GetRunByID(ctx context.Context, id string) (*model.Run, error) {
	var (
		run        model.Run
		userID     sql.NullString
		resultJSON string
		execTimeNS int64
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, code, result_json, failure_kind, exit_code, exec_time_ns, created_at
		 FROM runs
		 WHERE id = ?`,
		id,
	).Scan(
		&run.ID,
		&userID,
		&run.Code,
		&resultJSON,
		&run.FailureKind,
		&run.ExitCode,
		&execTimeNS,
		&run.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("run", id)
		}
		return nil, fmt.Errorf("sqlite: getting run %s: %w", id, err)
	}

	run.UserID = userID.String
	run.ExecTime = time.Duration(execTimeNS)
	if err := json.Unmarshal([]byte(resultJSON), &run.Result); err != nil {
		return nil, fmt.Errorf("sqlite: decoding run %s result: %w", id, err)
	}

	return &run, nil
}

// ListRuns retrieves a user's runs, newest first, with pagination. An empty
// userID lists runs that have no owner (unauthenticated surfaces).
func (db *DB) ListRuns(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, user_id, code, result_json, failure_kind, exit_code, exec_time_ns, created_at
		 FROM runs
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`
	args := []any{userID, limit, offset}
	if userID == "" {
		query = `SELECT id, user_id, code, result_json, failure_kind, exit_code, exec_time_ns, created_at
		 FROM runs
		 WHERE user_id IS NULL
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`
		args = []any{limit, offset}
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing runs: %w", err)
	}
	defer rows.Close()

	runs := make([]model.Run, 0, limit)
	for rows.Next() {
		var (
			run        model.Run
			owner      sql.NullString
			resultJSON string
			execTimeNS int64
		)
		if err := rows.Scan(
			&run.ID, &owner, &run.Code, &resultJSON,
			&run.FailureKind, &run.ExitCode, &execTimeNS, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning run row: %w", err)
		}
		run.UserID = owner.String
		run.ExecTime = time.Duration(execTimeNS)
		if err := json.Unmarshal([]byte(resultJSON), &run.Result); err != nil {
			return nil, fmt.Errorf("sqlite: decoding run %s result: %w", run.ID, err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating runs: %w", err)
	}

	return runs, nil
}
