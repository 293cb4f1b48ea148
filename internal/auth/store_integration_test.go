package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/weaverai/weaver/internal/auth"
	"github.com/weaverai/weaver/internal/log"
	"github.com/weaverai/weaver/internal/testutil"
)

func newTestStore(t *testing.T) *auth.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	return auth.New(db.Pool, log.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.Register(ctx, "alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" || !user.IsActive {
		t.Errorf("unexpected user: %+v", user)
	}

	session, err := store.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if session.Token == "" {
		t.Error("empty session token")
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		t.Errorf("expiry %v not after creation %v", session.ExpiresAt, session.CreatedAt)
	}

	verified, err := store.Verify(ctx, session.Token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if verified.Username != "alice" {
		t.Errorf("verified user = %q", verified.Username)
	}
	if verified.LastLogin == nil {
		t.Error("last login not recorded")
	}
}

func TestRegister_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Register(ctx, "ab", "a@b.c", "secret123"); !errors.Is(err, auth.ErrUsernameTooShort) {
		t.Errorf("short username error = %v", err)
	}
	if _, err := store.Register(ctx, "alice", "a@b.c", "12345"); !errors.Is(err, auth.ErrPasswordTooShort) {
		t.Errorf("short password error = %v", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Register(ctx, "alice", "alice@example.com", "secret123"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Register(ctx, "alice", "other@example.com", "secret123"); !errors.Is(err, auth.ErrUserExists) {
		t.Errorf("duplicate username error = %v", err)
	}
	if _, err := store.Register(ctx, "alice2", "alice@example.com", "secret123"); !errors.Is(err, auth.ErrUserExists) {
		t.Errorf("duplicate email error = %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Register(ctx, "alice", "alice@example.com", "secret123"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Login(ctx, "alice", "wrongpass"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := store.Login(ctx, "nobody", "secret123"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v", err)
	}
}

func TestLogout(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Register(ctx, "alice", "alice@example.com", "secret123"); err != nil {
		t.Fatal(err)
	}
	session, err := store.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Logout(ctx, session.Token); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := store.Verify(ctx, session.Token); !errors.Is(err, auth.ErrSessionInvalid) {
		t.Errorf("revoked token error = %v", err)
	}

	// Unknown token is a no-op.
	if err := store.Logout(ctx, "no-such-token"); err != nil {
		t.Errorf("Logout(unknown) error = %v", err)
	}
}

func TestVerify_BadTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, token := range []string{"", "not-a-token"} {
		if _, err := store.Verify(ctx, token); !errors.Is(err, auth.ErrSessionInvalid) {
			t.Errorf("Verify(%q) error = %v", token, err)
		}
	}
}

func TestPruneSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Register(ctx, "alice", "alice@example.com", "secret123"); err != nil {
		t.Fatal(err)
	}
	session, err := store.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Logout(ctx, session.Token); err != nil {
		t.Fatal(err)
	}

	pruned, err := store.PruneSessions(ctx)
	if err != nil {
		t.Fatalf("PruneSessions() error: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
}
