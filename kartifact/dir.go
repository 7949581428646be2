package kartifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirStore writes artifacts below a local directory.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Put(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(a.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, a.Data, 0o644)
}

// Dir returns the root directory of the store.
func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(s.dir, clean), nil
}
