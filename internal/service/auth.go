package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/code-interpreter/internal/apperror"
	"github.com/sakif/code-interpreter/internal/auth"
	"github.com/sakif/code-interpreter/internal/model"
	"github.com/sakif/code-interpreter/internal/repository"
)

// MaxTokenNameLength bounds the human-readable label on API tokens.
const MaxTokenNameLength = 100

// AuthService handles login and API-token lifecycle. It implements
// auth.APITokenVerifier so the middleware can check agent credentials
// without importing this package.
type AuthService struct {
	users   repository.UserRepository
	tokens  repository.TokenRepository
	jwt     *auth.TokenService
	secrets *auth.SecretService
	logger  *slog.Logger
}

var _ auth.APITokenVerifier = (*AuthService)(nil)

func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	jwt *auth.TokenService,
	secrets *auth.SecretService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		jwt:     jwt,
		secrets: secrets,
		logger:  logger,
	}
}

// LoginOrRegisterGitHub upserts the account for a GitHub profile and issues
// a session JWT. First login creates the account; later logins refresh the
// profile fields.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (string, *model.User, error) {
	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return "", nil, fmt.Errorf("upserting user: %w", err)
	}

	token, err := s.jwt.Generate(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("generating session token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)

	return token, user, nil
}

// GetUser returns the account for an authenticated user ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// CreateAPIToken mints a new token for agent callers. The returned
// plaintext has the form "ci_<id>.<secret>" and is shown exactly once;
// only the bcrypt hash of the secret is stored.
func (s *AuthService) CreateAPIToken(ctx context.Context, userID, name string) (string, *model.APIToken, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, apperror.ValidationFailed("name", "token name is required")
	}
	if len(name) > MaxTokenNameLength {
		return "", nil, apperror.ValidationFailed("name",
			fmt.Sprintf("token name must be %d characters or less", MaxTokenNameLength))
	}

	secret, err := auth.NewTokenSecret()
	if err != nil {
		return "", nil, fmt.Errorf("generating token secret: %w", err)
	}
	hash, err := s.secrets.Hash(secret)
	if err != nil {
		return "", nil, fmt.Errorf("hashing token secret: %w", err)
	}

	token := &model.APIToken{
		ID:         xid.New().String(),
		UserID:     userID,
		Name:       name,
		SecretHash: hash,
	}

	if err := s.tokens.CreateToken(ctx, token); err != nil {
		return "", nil, fmt.Errorf("storing API token: %w", err)
	}

	s.logger.Info("API token created",
		slog.String("userID", userID),
		slog.String("tokenID", token.ID),
	)

	plaintext := fmt.Sprintf("%s%s.%s", auth.APITokenPrefix, token.ID, secret)
	return plaintext, token, nil
}

// VerifyAPIToken checks a presented credential and returns the owning user
// ID. Lookup is by token ID (embedded in the credential), so a full table
// scan of bcrypt comparisons is never needed.
func (s *AuthService) VerifyAPIToken(ctx context.Context, credential string) (string, error) {
	rest, ok := strings.CutPrefix(credential, auth.APITokenPrefix)
	if !ok {
		return "", apperror.Unauthorized("malformed API token")
	}
	id, secret, ok := strings.Cut(rest, ".")
	if !ok || id == "" || secret == "" {
		return "", apperror.Unauthorized("malformed API token")
	}

	token, err := s.tokens.GetTokenByID(ctx, id)
	if err != nil {
		// Not-found and unauthorized look the same to the caller.
		return "", apperror.Unauthorized("invalid API token")
	}

	if err := s.secrets.Verify(token.SecretHash, secret); err != nil {
		return "", apperror.Unauthorized("invalid API token")
	}

	// Best effort: a failed timestamp update must not fail authentication.
	if err := s.tokens.TouchToken(ctx, token.ID); err != nil {
		s.logger.Warn("failed to update token last_used_at",
			slog.String("tokenID", token.ID),
			slog.String("error", err.Error()),
		)
	}

	return token.UserID, nil
}

// ListAPITokens returns the caller's tokens. SecretHash is excluded from
// JSON by the model, so the handler can serialize these directly.
func (s *AuthService) ListAPITokens(ctx context.Context, userID string) ([]model.APIToken, error) {
	return s.tokens.ListTokens(ctx, userID)
}

// DeleteAPIToken revokes a token, enforcing ownership.
func (s *AuthService) DeleteAPIToken(ctx context.Context, userID, tokenID string) error {
	token, err := s.tokens.GetTokenByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if token.UserID != userID {
		return apperror.NotFound("token", tokenID)
	}

	if err := s.tokens.DeleteToken(ctx, tokenID); err != nil {
		return err
	}

	s.logger.Info("API token deleted",
		slog.String("userID", userID),
		slog.String("tokenID", tokenID),
	)
	return nil
}
