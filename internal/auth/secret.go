package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// APITokenPrefix marks bearer credentials as interpreter API tokens, so the
// middleware can tell them apart from JWTs without parsing.
const APITokenPrefix = "ci_"

// defaultCost is the bcrypt work factor. ~250ms per hash on current server
// hardware; API tokens are verified once per request, which is acceptable
// for an execution service whose requests run for seconds.
const defaultCost = 12

// SecretService hashes and verifies API-token secrets with bcrypt.
//
// The cost is injectable so tests can use the bcrypt minimum instead of
// paying ~250ms per hash.
type SecretService struct {
	cost int
}

// NewSecretService creates a SecretService with the production cost.
func NewSecretService() *SecretService {
	return &SecretService{cost: defaultCost}
}

// NewSecretServiceForTest creates a SecretService with a low cost. Do not
// use in production.
func NewSecretServiceForTest(cost int) *SecretService {
	return &SecretService{cost: cost}
}

// NewTokenSecret generates a fresh random API-token secret (32 bytes of
// entropy, hex-encoded).
func NewTokenSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash hashes a secret for storage. bcrypt embeds the salt and cost in the
// output, so the hash string is self-contained.
func (s *SecretService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		// bcrypt silently truncates beyond 72 bytes; reject instead
		return "", fmt.Errorf("auth: secret must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing secret: %w", err)
	}

	return string(hashed), nil
}

// Verify checks a plaintext secret against a stored hash. The comparison is
// constant-time inside bcrypt.
func (s *SecretService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid secret")
		}
		return fmt.Errorf("auth: comparing secret hash: %w", err)
	}
	return nil
}
