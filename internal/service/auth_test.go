package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sakif/code-interpreter/internal/apperror"
	"github.com/sakif/code-interpreter/internal/auth"
	"github.com/sakif/code-interpreter/internal/model"
)

type mockUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	for _, existing := range m.users {
		if existing.GitHubID == user.GitHubID {
			user.ID = existing.ID
			user.CreatedAt = existing.CreatedAt
			stored := *user
			m.users[user.ID] = &stored
			return nil
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

type mockTokenRepo struct {
	tokens map[string]*model.APIToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[string]*model.APIToken)}
}

func (m *mockTokenRepo) CreateToken(_ context.Context, token *model.APIToken) error {
	token.CreatedAt = time.Now()
	stored := *token
	m.tokens[token.ID] = &stored
	return nil
}

func (m *mockTokenRepo) GetTokenByID(_ context.Context, id string) (*model.APIToken, error) {
	token, ok := m.tokens[id]
	if !ok {
		return nil, apperror.NotFound("token", id)
	}
	result := *token
	return &result, nil
}

func (m *mockTokenRepo) ListTokens(_ context.Context, userID string) ([]model.APIToken, error) {
	result := make([]model.APIToken, 0)
	for _, tok := range m.tokens {
		if tok.UserID == userID {
			result = append(result, *tok)
		}
	}
	return result, nil
}

func (m *mockTokenRepo) DeleteToken(_ context.Context, id string) error {
	if _, ok := m.tokens[id]; !ok {
		return apperror.NotFound("token", id)
	}
	delete(m.tokens, id)
	return nil
}

func (m *mockTokenRepo) TouchToken(_ context.Context, id string) error {
	token, ok := m.tokens[id]
	if !ok {
		return apperror.NotFound("token", id)
	}
	token.LastUsedAt = time.Now()
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *mockUserRepo, *mockTokenRepo) {
	t.Helper()
	jwt, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	users := newMockUserRepo()
	tokens := newMockTokenRepo()
	// bcrypt cost 4 keeps the tests fast
	svc := NewAuthService(users, tokens, jwt, auth.NewSecretServiceForTest(4), testLogger())
	return svc, users, tokens
}

func TestLoginOrRegisterGitHub_FirstLoginCreates(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	jwt, user, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:    12345,
		Login: "octocat",
		Email: "octo@example.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if user.ID == "" {
		t.Error("expected new user to get an internal ID")
	}
	if parts := strings.Split(jwt, "."); len(parts) != 3 {
		t.Errorf("session token has %d parts, want a JWT with 3", len(parts))
	}
}

func TestLoginOrRegisterGitHub_SecondLoginKeepsID(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, first, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 777, Login: "alice"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	_, second, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 777, Login: "alice-renamed"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("internal ID changed across logins: %q vs %q", first.ID, second.ID)
	}
	if second.Login != "alice-renamed" {
		t.Errorf("Login = %q, profile refresh did not apply", second.Login)
	}
}

func TestCreateAPIToken_PlaintextShape(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	plaintext, token, err := svc.CreateAPIToken(context.Background(), "user-1", "agent laptop")
	if err != nil {
		t.Fatalf("CreateAPIToken() error = %v", err)
	}

	if !strings.HasPrefix(plaintext, auth.APITokenPrefix) {
		t.Errorf("plaintext = %q, want %q prefix", plaintext, auth.APITokenPrefix)
	}
	if !strings.Contains(plaintext, token.ID+".") {
		t.Errorf("plaintext %q does not embed token ID %q", plaintext, token.ID)
	}
	if token.SecretHash == "" || strings.Contains(plaintext, token.SecretHash) {
		t.Error("stored hash missing or leaked into the plaintext credential")
	}
}

func TestCreateAPIToken_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	for _, name := range []string{"", "   ", strings.Repeat("x", MaxTokenNameLength+1)} {
		_, _, err := svc.CreateAPIToken(context.Background(), "user-1", name)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("CreateAPIToken(name=%q) error = %v, want ErrValidation", name, err)
		}
	}
}

func TestVerifyAPIToken_RoundTrip(t *testing.T) {
	svc, _, tokens := newTestAuthService(t)

	plaintext, token, err := svc.CreateAPIToken(context.Background(), "user-1", "ci")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	userID, err := svc.VerifyAPIToken(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("VerifyAPIToken() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}

	stored := tokens.tokens[token.ID]
	if stored.LastUsedAt.IsZero() {
		t.Error("LastUsedAt not touched on successful verification")
	}
}

func TestVerifyAPIToken_Rejections(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	plaintext, _, err := svc.CreateAPIToken(context.Background(), "user-1", "ci")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	bad := []string{
		"",
		"not-a-token",
		"ci_",
		"ci_missing-dot",
		"ci_unknown-id.secret",
		plaintext + "tampered",
	}
	for _, credential := range bad {
		if _, err := svc.VerifyAPIToken(context.Background(), credential); !errors.Is(err, apperror.ErrUnauthorized) {
			t.Errorf("VerifyAPIToken(%q) error = %v, want ErrUnauthorized", credential, err)
		}
	}
}

func TestDeleteAPIToken_OwnerScoped(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, token, err := svc.CreateAPIToken(context.Background(), "user-a", "mine")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := svc.DeleteAPIToken(context.Background(), "user-b", token.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("non-owner delete error = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteAPIToken(context.Background(), "user-a", token.ID); err != nil {
		t.Errorf("owner delete error = %v", err)
	}

	remaining, _ := svc.ListAPITokens(context.Background(), "user-a")
	if len(remaining) != 0 {
		t.Errorf("tokens remaining after delete: %d", len(remaining))
	}
}
