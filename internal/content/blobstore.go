package content

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobStore persists raw image bytes and yields a public URL for them.
// Metadata lives in the Store; bytes live here.
type BlobStore interface {
	// Save writes data under folder/filename and returns the public URL and
	// the storage path the bytes were written to.
	Save(ctx context.Context, folder, filename string, data []byte) (url, storagePath string, err error)
	// Remove deletes the bytes at storagePath. Missing files are not an error.
	Remove(ctx context.Context, storagePath string) error
}

// FSBlobStore stores image bytes on the local filesystem and serves them
// under baseURL. The served path mirrors the on-disk layout.
type FSBlobStore struct {
	baseDir string
	baseURL string
}

// NewFSBlobStore creates a filesystem blob store rooted at baseDir.
func NewFSBlobStore(baseDir, baseURL string) *FSBlobStore {
	return &FSBlobStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Save writes the bytes to baseDir/folder/filename.
func (s *FSBlobStore) Save(_ context.Context, folder, filename string, data []byte) (string, string, error) {
	folder = cleanPathSegment(folder)
	filename = cleanPathSegment(filename)
	if filename == "" {
		return "", "", fmt.Errorf("filename is required")
	}

	dir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create image folder: %w", err)
	}

	fullPath := filepath.Join(dir, filename)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write image: %w", err)
	}

	storagePath := path.Join(folder, filename)
	url := s.baseURL + "/images/" + storagePath
	return url, storagePath, nil
}

// Remove deletes the stored bytes. A path that is already gone is fine.
func (s *FSBlobStore) Remove(_ context.Context, storagePath string) error {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(cleanStoragePath(storagePath)))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// cleanPathSegment strips anything that could escape the storage root.
func cleanPathSegment(segment string) string {
	segment = strings.ReplaceAll(segment, "\\", "/")
	segment = path.Clean("/" + segment)
	return strings.TrimPrefix(segment, "/")
}

func cleanStoragePath(storagePath string) string {
	return cleanPathSegment(storagePath)
}

var _ BlobStore = (*FSBlobStore)(nil)
