package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGuardResolve(t *testing.T) {
	root := t.TempDir()
	g, err := NewGuard(root)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	path, err := g.Resolve("users", "alice", "raw")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(g.Root(), "users", "alice", "raw")
	if path != want {
		t.Errorf("Resolve() = %q, want %q", path, want)
	}
}

func TestGuardResolveRejectsTraversal(t *testing.T) {
	g, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	for _, parts := range [][]string{
		{".."},
		{"users", ".."},
		{"users/../../etc"},
		{"users", "..\\..\\secret"},
		{".ssh"},
		{""},
	} {
		if _, err := g.Resolve(parts...); err == nil {
			t.Errorf("Resolve(%q) accepted traversal", parts)
		}
	}
}

func TestGuardResolveSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	g, err := NewGuard(root)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := g.Resolve("escape"); !errors.Is(err, ErrPathOutsideRoot) {
		t.Errorf("Resolve(escape) = %v, want ErrPathOutsideRoot", err)
	}
}

func TestGuardResolveMissingFile(t *testing.T) {
	g, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	// Creating a new file under the root must be allowed.
	if _, err := g.Resolve("users", "bob", "raw", "new.json"); err != nil {
		t.Errorf("Resolve(new path): %v", err)
	}
}

func TestCheckSegment(t *testing.T) {
	for _, ok := range []string{"alice", "github_acme_20240101.json", "a-b.c"} {
		if err := CheckSegment(ok); err != nil {
			t.Errorf("CheckSegment(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, ".hidden", "a\x00b"} {
		if err := CheckSegment(bad); !errors.Is(err, ErrUnsafeSegment) {
			t.Errorf("CheckSegment(%q) = %v, want ErrUnsafeSegment", bad, err)
		}
	}
}
