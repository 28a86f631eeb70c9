// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

// User is the identity issued by the identity provider. It never changes
// while a connection is registered under it.
type User struct {
	ID       UserID `json:"user_id"`
	Username string `json:"username"`
}

// NewUserID returns a short readable id.
func NewUserID() UserID {
	return UserID(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	return &User{ID: NewUserID(), Username: username}, nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

// Valid reports whether id can name a user at all. Anything else is
// treated as an unknown user rather than a protocol error.
func (id UserID) Valid() bool {
	return id != "" && len(id) <= MaxUserIDLen
}
