package model

import "time"

// APIToken is a long-lived credential for non-browser callers (the agent
// loop). Only the bcrypt hash of the secret is stored; the plaintext is
// shown exactly once, at creation.
type APIToken struct {
	ID         string    `json:"id"         db:"id"`
	UserID     string    `json:"userId"     db:"user_id"`
	Name       string    `json:"name"       db:"name"`
	SecretHash string    `json:"-"          db:"secret_hash"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	LastUsedAt time.Time `json:"lastUsedAt" db:"last_used_at"`
}
