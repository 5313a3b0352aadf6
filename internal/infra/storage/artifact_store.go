package storage

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ArtifactStore is a write-once local file store for generated images and
// export bundles. File names are ULIDs, so writes never collide and listings
// sort by creation time.
type ArtifactStore struct {
	root string
}

func NewArtifactStore(root string) (*ArtifactStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &ArtifactStore{root: abs}, nil
}

// Save writes data under dir (a relative grouping such as a job id) and
// returns the store-relative path.
func (s *ArtifactStore) Save(dir string, data []byte, ext string) (string, error) {
	rel, err := s.relPath(dir, newName(ext))
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return rel, nil
}

// Read returns the bytes of a previously saved artifact. The path must stay
// inside the store root; anything that escapes is rejected.
func (s *ArtifactStore) Read(rel string) ([]byte, error) {
	full, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Resolve maps a store-relative path to an absolute one, guarding traversal.
func (s *ArtifactStore) Resolve(rel string) (string, error) {
	full := filepath.Join(s.root, filepath.Clean("/"+rel))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes storage root")
	}
	return full, nil
}

// Delete removes a stored artifact. Missing files are not an error; deletion
// runs after DB cascade and must be idempotent.
func (s *ArtifactStore) Delete(rel string) error {
	full, err := s.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DeleteDir removes a whole artifact grouping, used by job deletion.
func (s *ArtifactStore) DeleteDir(dir string) error {
	full, err := s.Resolve(dir)
	if err != nil {
		return err
	}
	return os.RemoveAll(full)
}

func (s *ArtifactStore) relPath(dir, name string) (string, error) {
	cleaned := filepath.Clean("/" + dir)
	if cleaned == "/" {
		return name, nil
	}
	return filepath.Join(strings.TrimPrefix(cleaned, "/"), name), nil
}

func newName(ext string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToLower(id.String()) + ext
}
