package users

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("users: not found")
	ErrUsernameTaken = errors.New("users: username already exists")
	ErrEmailTaken    = errors.New("users: email already exists")
	ErrInvalidInput  = errors.New("users: invalid input")
)

// User is an account record. PasswordHash never leaves the service.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks the fields every stored user must carry.
func (u *User) Validate() error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	u.FullName = strings.TrimSpace(u.FullName)
	switch {
	case u.Username == "":
		return errors.Join(ErrInvalidInput, errors.New("username is required"))
	case u.Email == "" || !strings.Contains(u.Email, "@"):
		return errors.Join(ErrInvalidInput, errors.New("a valid email is required"))
	case u.PasswordHash == "":
		return errors.Join(ErrInvalidInput, errors.New("password hash is required"))
	}
	return nil
}
