package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/weaverai/weaver/internal/security"
)

// workspaceSubdirs are the per-user data directories created at
// registration. raw holds connector snapshots, processed holds chunked
// output, vector_db is reserved for local index exports, uploads for
// user-provided files.
var workspaceSubdirs = []string{"raw", "processed", "vector_db", "uploads"}

// EnsureDirs creates the user's workspace under dataDir and returns its
// root. Safe to call repeatedly.
func EnsureDirs(dataDir, username string) (string, error) {
	if err := security.CheckSegment(username); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidUsername, username)
	}
	root := filepath.Join(dataDir, "users", username)
	for _, sub := range workspaceSubdirs {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return "", fmt.Errorf("failed to create user workspace: %w", err)
		}
	}
	return root, nil
}
