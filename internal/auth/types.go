package auth

import (
	"context"

	"graintrade.org/internal/users"
)

// Credential is a login attempt. It is never stored.
type Credential struct {
	Username string
	Password string
}

// StoredCredential is the part of a user record the login path reads.
type StoredCredential struct {
	Username     string
	PasswordHash string
}

func storedCredential(u users.User) StoredCredential {
	return StoredCredential{Username: u.Username, PasswordHash: u.PasswordHash}
}

// Identity is the account resolved from a valid token for a single request.
type Identity struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name,omitempty"`
	Disabled bool     `json:"disabled"`
	Scopes   []string `json:"scopes"`
}

func newIdentity(u users.User, scopes []string) Identity {
	return Identity{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Disabled: u.Disabled,
		Scopes:   scopes,
	}
}

// UserLookup is the collaborator resolving usernames to stored accounts.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (users.User, bool, error)
}

// PasswordHasher is the password primitive used by Service. *Hasher implements it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
	VerifyDummy(password string)
}

// TokenDecoder validates bearer tokens.
type TokenDecoder interface {
	Decode(token string) (Claims, error)
}
