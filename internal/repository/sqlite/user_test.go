package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/code-interpreter/internal/apperror"
	"github.com/sakif/code-interpreter/internal/model"
)

func TestUpsert_NewUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		GitHubID:  12345,
		Login:     "octocat",
		Email:     "octo@example.com",
		AvatarURL: "https://example.com/a.png",
	}

	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Upsert() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Upsert() did not set user.CreatedAt")
	}
}

func TestUpsert_ReturningUserKeepsID(t *testing.T) {
	db := newTestDB(t)

	first := &model.User{GitHubID: 12345, Login: "octocat"}
	if err := db.Upsert(context.Background(), first); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	// Same GitHub identity, changed profile.
	second := &model.User{GitHubID: 12345, Login: "octocat-renamed", Email: "new@example.com"}
	if err := db.Upsert(context.Background(), second); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("returning user got new ID %q, want %q", second.ID, first.ID)
	}

	got, err := db.GetUserByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Login != "octocat-renamed" {
		t.Errorf("Login = %q, want refreshed profile", got.Login)
	}
	if got.Email != "new@example.com" {
		t.Errorf("Email = %q, want refreshed profile", got.Email)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}
