package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/weaverai/weaver/internal/security"
)

// Querier defines the database operations the store needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages users and sessions.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     Querier
	logger *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default.
func New(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Register creates a new account. Username and email collisions map to
// ErrUserExists.
func (s *Store) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if len(username) < MinUsernameLength {
		return nil, ErrUsernameTooShort
	}
	// Usernames name a directory under the data root.
	if err := security.CheckSegment(username); err != nil {
		return nil, ErrInvalidUsername
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	user := &User{Username: username, Email: email, IsActive: true}
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		username, email, hashPassword(password),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("registered user", "username", username)
	return user, nil
}

// Login checks the credentials and issues a session token.
func (s *Store) Login(ctx context.Context, username, password string) (*Session, error) {
	var (
		userID int64
		hash   string
		active bool
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, password_hash, is_active FROM users WHERE username = $1`,
		strings.TrimSpace(username),
	).Scan(&userID, &hash, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Burn a comparison so unknown users cost as much as bad passwords.
			verifyPassword(password, hashPassword("decoy"))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !active || !verifyPassword(password, hash) {
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		Token:  uuid.NewString(),
		UserID: userID,
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO user_sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at, expires_at`,
		session.Token, userID, time.Now().UTC().Add(SessionTTL),
	).Scan(&session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if _, err := s.db.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, userID); err != nil {
		s.logger.Warn("failed to update last login", "username", username, "error", err)
	}

	s.logger.Info("user logged in", "username", username)
	return session, nil
}

// Verify resolves a token to its user. Expired or revoked tokens return
// ErrSessionInvalid.
func (s *Store) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	user := &User{}
	err := s.db.QueryRow(ctx, `
		SELECT u.id, u.username, u.email, u.created_at, u.last_login, u.is_active
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1
		  AND s.is_active
		  AND s.expires_at > now()
		  AND u.is_active`,
		token,
	).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.LastLogin, &user.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to verify session: %w", err)
	}
	return user, nil
}

// Logout revokes a token. Revoking an unknown token is not an error.
func (s *Store) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE user_sessions SET is_active = false WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// PruneSessions deletes expired and revoked sessions, returning how
// many were removed.
func (s *Store) PruneSessions(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM user_sessions WHERE expires_at <= now() OR NOT is_active`)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func verifyPassword(password, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashPassword(password)), []byte(storedHash)) == 1
}

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint error (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
