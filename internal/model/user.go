package model

import "time"

// User represents a registered account.
//
// GitHub OAuth is the identity provider, so the primary external identifier
// is the GitHub user ID (an int64 — the numbers are large). We still
// generate our own internal string ID (xid) so primary keys are not tied to
// a third party's numbering scheme. Email is a plain string, not *string:
// GitHub returns it empty when the user hides it, and the zero value is
// safe to display.
type User struct {
	ID        string    `json:"id"        db:"id"`
	GitHubID  int64     `json:"githubId"  db:"github_id"`
	Login     string    `json:"login"     db:"login"`
	Email     string    `json:"email"     db:"email"`
	AvatarURL string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
