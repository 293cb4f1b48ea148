// Package auth manages user accounts and session tokens in PostgreSQL.
// Passwords are stored as SHA-256 digests and session tokens are random
// UUIDs valid for seven days. Every account also gets an on-disk
// workspace where its raw ingested data lives.
package auth

import (
	"errors"
	"time"
)

const (
	// MinUsernameLength and MinPasswordLength are registration floors.
	MinUsernameLength = 3
	MinPasswordLength = 6

	// SessionTTL is how long a login token stays valid.
	SessionTTL = 7 * 24 * time.Hour
)

var (
	// ErrUsernameTooShort indicates the username is below the minimum length.
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")

	// ErrPasswordTooShort indicates the password is below the minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")

	// ErrInvalidUsername indicates the username contains characters that
	// are unsafe for a workspace directory name.
	ErrInvalidUsername = errors.New("username contains invalid characters")

	// ErrUserExists indicates the username or email is already registered.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials indicates a failed login. Deliberately does
	// not distinguish unknown user from wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSessionInvalid indicates a missing, revoked, or expired token.
	ErrSessionInvalid = errors.New("session is invalid or expired")
)

// User is an account row without the password hash.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// Session is an issued login token.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
