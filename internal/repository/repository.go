// Package repository defines the persistence interfaces the service layer
// programs against. The sqlite subpackage provides the implementation.
package repository

import (
	"context"

	"github.com/sakif/code-interpreter/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// RunRepository stores the execution audit trail. Runs are append-only:
// there is no update and no delete.
type RunRepository interface {
	CreateRun(ctx context.Context, run *model.Run) error
	GetRunByID(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, userID string, opts ListOptions) ([]model.Run, error)
}

// UserRepository stores accounts keyed by GitHub identity.
type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// TokenRepository stores hashed API tokens for agent callers.
type TokenRepository interface {
	CreateToken(ctx context.Context, token *model.APIToken) error
	GetTokenByID(ctx context.Context, id string) (*model.APIToken, error)
	ListTokens(ctx context.Context, userID string) ([]model.APIToken, error)
	DeleteToken(ctx context.Context, id string) error
	TouchToken(ctx context.Context, id string) error
}
