package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/code-interpreter/internal/apperror"
	"github.com/sakif/code-interpreter/internal/interpreter"
	"github.com/sakif/code-interpreter/internal/model"
	"github.com/sakif/code-interpreter/internal/repository"
)

// newTestDB opens a fresh in-memory database per test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, githubID int64, login string) *model.User {
	t.Helper()
	user := &model.User{GitHubID: githubID, Login: login}
	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func successResult(stdout string) interpreter.ExecutionResult {
	return interpreter.ExecutionResult{
		Output:   []string{stdout, "Execution time: 1 second (time limit is 1 hour)."},
		ExecTime: 120 * time.Millisecond,
	}
}

func TestCreateRun(t *testing.T) {
	db := newTestDB(t)

	run := &model.Run{
		Code:   "print(42)",
		Result: successResult("42\n"),
	}

	if err := db.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if run.ID == "" {
		t.Error("CreateRun() did not set run.ID")
	}
	if run.CreatedAt.IsZero() {
		t.Error("CreateRun() did not set run.CreatedAt")
	}
	if run.ExecTime != 120*time.Millisecond {
		t.Errorf("ExecTime = %v, want %v", run.ExecTime, 120*time.Millisecond)
	}
	if run.FailureKind != "" {
		t.Errorf("FailureKind = %q, want empty for a successful run", run.FailureKind)
	}
}

func TestCreateRun_DerivesFailureColumns(t *testing.T) {
	db := newTestDB(t)

	run := &model.Run{
		Code: "1/0",
		Result: interpreter.ExecutionResult{
			Output:   []string{"ZeroDivisionError", "Execution time: 1 second (time limit is 1 hour)."},
			ExecTime: 50 * time.Millisecond,
			Failure:  &interpreter.Failure{Kind: interpreter.FailureRuntime, ExitCode: 1},
		},
	}

	if err := db.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if run.FailureKind != "runtime" {
		t.Errorf("FailureKind = %q, want %q", run.FailureKind, "runtime")
	}
	if run.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", run.ExitCode)
	}
}

func TestGetRunByID_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1001, "octocat")

	original := &model.Run{
		UserID: user.ID,
		Code:   "import sys; sys.exit(2)",
		Result: interpreter.ExecutionResult{
			Output:   []string{"boom", "Execution time: 2 seconds (time limit is 1 hour)."},
			ExecTime: 2 * time.Second,
			Failure:  &interpreter.Failure{Kind: interpreter.FailureRuntime, ExitCode: 2},
		},
	}
	if err := db.CreateRun(context.Background(), original); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := db.GetRunByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetRunByID() error = %v", err)
	}

	if got.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", got.UserID, user.ID)
	}
	if got.Code != original.Code {
		t.Errorf("Code = %q, want %q", got.Code, original.Code)
	}
	if got.Result.Failure == nil {
		t.Fatal("Result.Failure = nil, want runtime failure")
	}
	if got.Result.Failure.Kind != interpreter.FailureRuntime {
		t.Errorf("Failure.Kind = %q, want %q", got.Result.Failure.Kind, interpreter.FailureRuntime)
	}
	if got.Result.Failure.ExitCode != 2 {
		t.Errorf("Failure.ExitCode = %d, want 2", got.Result.Failure.ExitCode)
	}
	if len(got.Result.Output) != 2 || got.Result.Output[0] != "boom" {
		t.Errorf("Result.Output = %v, want stderr first", got.Result.Output)
	}
	if got.ExecTime != 2*time.Second {
		t.Errorf("ExecTime = %v, want 2s", got.ExecTime)
	}
}

func TestGetRunByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetRunByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetRunByID() error = %v, want ErrNotFound", err)
	}
}

func TestListRuns_OwnerScoped(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, 1, "alice")
	bob := createTestUser(t, db, 2, "bob")

	for i := 0; i < 3; i++ {
		run := &model.Run{UserID: alice.ID, Code: "print(1)", Result: successResult("1\n")}
		if err := db.CreateRun(context.Background(), run); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}
	}
	run := &model.Run{UserID: bob.ID, Code: "print(2)", Result: successResult("2\n")}
	if err := db.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := db.ListRuns(context.Background(), alice.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("ListRuns() returned %d runs, want 3", len(got))
	}
	for _, r := range got {
		if r.UserID != alice.ID {
			t.Errorf("run %s owned by %q, want %q", r.ID, r.UserID, alice.ID)
		}
	}
}

func TestListRuns_AnonymousRuns(t *testing.T) {
	db := newTestDB(t)

	run := &model.Run{Code: "print(3)", Result: successResult("3\n")}
	if err := db.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := db.ListRuns(context.Background(), "", repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(got))
	}
	if got[0].UserID != "" {
		t.Errorf("UserID = %q, want empty", got[0].UserID)
	}
}

func TestListRuns_Pagination(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 7, "carol")

	for i := 0; i < 5; i++ {
		run := &model.Run{UserID: user.ID, Code: "pass", Result: successResult("")}
		if err := db.CreateRun(context.Background(), run); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}
		// created_at has second precision in SQLite comparisons; xid IDs
		// keep insertion order stable regardless
		time.Sleep(time.Millisecond)
	}

	page, err := db.ListRuns(context.Background(), user.ID, repository.ListOptions{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(page) != 2 {
		t.Errorf("page 1 has %d runs, want 2", len(page))
	}

	rest, err := db.ListRuns(context.Background(), user.ID, repository.ListOptions{Limit: 100, Offset: 2})
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("remaining pages have %d runs, want 3", len(rest))
	}
}
