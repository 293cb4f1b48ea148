// Package security guards filesystem access for per-user data
// directories. Every path handed to the OS on behalf of a request is
// resolved through a Guard so a crafted username or file name cannot
// escape the data root (CWE-22).
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathOutsideRoot indicates a resolved path escapes the guarded root.
	ErrPathOutsideRoot = errors.New("path escapes data directory")

	// ErrUnsafeSegment indicates a path segment contains separators or
	// traversal sequences.
	ErrUnsafeSegment = errors.New("unsafe path segment")
)

// Guard resolves paths relative to a fixed root directory and rejects
// anything that escapes it, including through symbolic links.
type Guard struct {
	root string
}

// NewGuard creates a Guard rooted at dir. The root is resolved to an
// absolute path once so later checks are cheap prefix comparisons.
func NewGuard(dir string) (*Guard, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory %s: %w", dir, err)
	}
	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the guarded root directory.
func (g *Guard) Root() string {
	return g.root
}

// Resolve joins parts under the root and returns the absolute path,
// or an error if the result would fall outside the root. Symlinks in
// existing prefixes are followed and re-checked so a planted link
// cannot redirect writes elsewhere.
func (g *Guard) Resolve(parts ...string) (string, error) {
	for _, p := range parts {
		if err := CheckSegment(p); err != nil {
			return "", err
		}
	}

	path := filepath.Clean(filepath.Join(append([]string{g.root}, parts...)...))
	if !g.within(path) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRoot, path)
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		// The file may not exist yet. The lexical check above already
		// passed, so the path is safe to create.
		if os.IsNotExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if real != path && !g.within(real) {
		return "", fmt.Errorf("%w: symlink target %s", ErrPathOutsideRoot, real)
	}
	return path, nil
}

func (g *Guard) within(path string) bool {
	if path == g.root {
		return true
	}
	return strings.HasPrefix(path, g.root+string(filepath.Separator))
}

// CheckSegment rejects path components that could traverse out of a
// directory: separators, parent references, and hidden-file prefixes.
func CheckSegment(s string) error {
	if s == "" || s == "." || s == ".." {
		return fmt.Errorf("%w: %q", ErrUnsafeSegment, s)
	}
	if strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return fmt.Errorf("%w: %q", ErrUnsafeSegment, s)
	}
	if strings.HasPrefix(s, ".") {
		return fmt.Errorf("%w: %q", ErrUnsafeSegment, s)
	}
	return nil
}
