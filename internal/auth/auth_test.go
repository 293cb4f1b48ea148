package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestHashPassword_Deterministic(t *testing.T) {
	a := hashPassword("secret123")
	b := hashPassword("secret123")
	if a != b {
		t.Error("same password should hash identically")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == hashPassword("secret124") {
		t.Error("different passwords should hash differently")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash := hashPassword("secret123")
	if !verifyPassword("secret123", hash) {
		t.Error("correct password rejected")
	}
	if verifyPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}
	if verifyPassword("secret123", "") {
		t.Error("empty stored hash accepted")
	}
}

func TestEnsureDirs(t *testing.T) {
	dataDir := t.TempDir()

	root, err := EnsureDirs(dataDir, "alice")
	if err != nil {
		t.Fatalf("EnsureDirs() error: %v", err)
	}
	if root != filepath.Join(dataDir, "users", "alice") {
		t.Errorf("root = %q", root)
	}

	for _, sub := range []string{"raw", "processed", "vector_db", "uploads"} {
		info, err := os.Stat(filepath.Join(root, sub))
		if err != nil || !info.IsDir() {
			t.Errorf("missing workspace dir %q: %v", sub, err)
		}
	}

	// Idempotent.
	if _, err := EnsureDirs(dataDir, "alice"); err != nil {
		t.Errorf("second EnsureDirs() error: %v", err)
	}
}

func TestEnsureDirs_RejectsUnsafeUsername(t *testing.T) {
	dataDir := t.TempDir()

	for _, name := range []string{"..", "../evil", "a/b", ".hidden"} {
		if _, err := EnsureDirs(dataDir, name); !errors.Is(err, ErrInvalidUsername) {
			t.Errorf("EnsureDirs(%q) = %v, want ErrInvalidUsername", name, err)
		}
	}
}
