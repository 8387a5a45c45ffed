package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-interpreter/internal/apperror"
	"github.com/sakif/code-interpreter/internal/model"
	"github.com/sakif/code-interpreter/internal/repository"
)

// Compile-time check that *DB implements repository.TokenRepository.
var _ repository.TokenRepository = (*DB)(nil)

// CreateToken inserts an API token record. The secret hash must already be
// computed; plaintext secrets never reach this layer.
func (db *DB) CreateToken(ctx context.Context, token *model.APIToken) error {
	token.ID = xid.New().String()
	now := time.Now()
	token.CreatedAt = now
	token.LastUsedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO api_tokens (id, user_id, name, secret_hash, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.UserID,
		token.Name,
		token.SecretHash,
		token.CreatedAt,
		token.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating api token: %w", err)
	}

	return nil
}

// GetTokenByID retrieves a token record, hash included, for verification.
func (db *DB) GetTokenByID(ctx context.Context, id string) (*model.APIToken, error) {
	var t model.APIToken

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, secret_hash, created_at, last_used_at
		 FROM api_tokens WHERE id = ?`,
		id,
	).Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.SecretHash,
		&t.CreatedAt,
		&t.LastUsedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("api token", id)
		}
		return nil, fmt.Errorf("sqlite: getting api token %s: %w", id, err)
	}

	return &t, nil
}

// ListTokens returns a user's tokens, newest first.
func (db *DB) ListTokens(ctx context.Context, userID string) ([]model.APIToken, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, name, secret_hash, created_at, last_used_at
		 FROM api_tokens
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.APIToken
	for rows.Next() {
		var t model.APIToken
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Name, &t.SecretHash, &t.CreatedAt, &t.LastUsedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning api token row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating api tokens: %w", err)
	}

	return tokens, nil
}

// DeleteToken revokes a token.
func (db *DB) DeleteToken(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM api_tokens WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting api token %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("api token", id)
	}

	return nil
}

// TouchToken records token use. Best-effort bookkeeping — callers may
// ignore the error.
func (db *DB) TouchToken(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE api_tokens SET last_used_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching api token %s: %w", id, err)
	}
	return nil
}
