package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/weaverai/weaver/internal/security"
)

// RawStore archives connector payloads as JSON under each user's raw
// data directory before processing. Keeping the raw snapshots lets a
// user re-process with different chunking without refetching, and is
// the source of truth for the data-sources listing.
type RawStore struct {
	guard *security.Guard
}

// RawFile describes one archived snapshot.
type RawFile struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	SizeBytes int64     `json:"size_bytes"`
	SavedAt   time.Time `json:"saved_at"`
}

// NewRawStore creates a RawStore rooted at the data directory. Per-user
// subdirectories are created on first save.
func NewRawStore(baseDir string) (*RawStore, error) {
	guard, err := security.NewGuard(baseDir)
	if err != nil {
		return nil, err
	}
	return &RawStore{guard: guard}, nil
}

func (s *RawStore) userDir(username string) (string, error) {
	return s.guard.Resolve("users", username, "raw")
}

// Save archives payload as <source>_<name>_<timestamp>.json for the
// user and returns the file name. Writes are serialized through a file
// lock so concurrent ingests for the same user cannot interleave.
func (s *RawStore) Save(username, source, name string, payload any) (string, error) {
	dir, err := s.userDir(username)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create raw directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to lock raw directory: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.json", source, sanitizeName(name), time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(dir, filename)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write raw file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize raw file: %w", err)
	}

	return filename, nil
}

// List returns the user's archived snapshots, newest first. A missing
// raw directory means no snapshots, not an error.
func (s *RawStore) List(username string) ([]RawFile, error) {
	dir, err := s.userDir(username)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read raw directory: %w", err)
	}

	var files []RawFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		source, _, _ := strings.Cut(entry.Name(), "_")
		files = append(files, RawFile{
			Name:      entry.Name(),
			Source:    source,
			SizeBytes: info.Size(),
			SavedAt:   info.ModTime().UTC(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].SavedAt.After(files[j].SavedAt)
	})
	return files, nil
}

// Load decodes an archived snapshot into v. The name must be a bare
// file name from List, not a path.
func (s *RawStore) Load(username, name string, v any) error {
	dir, err := s.userDir(username)
	if err != nil {
		return err
	}
	if err := security.CheckSegment(name); err != nil {
		return fmt.Errorf("invalid raw file name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to read raw file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode raw file: %w", err)
	}
	return nil
}

// sanitizeName makes a repo or channel name safe for a file name.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
