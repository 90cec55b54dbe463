// Package publish uploads packaged mod artifacts to a configured
// destination.
package publish

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mex-go/internal/mex"
)

// FilesystemPublisher copies artifacts into a local directory, which
// may be a mounted share.
type FilesystemPublisher struct {
	dir string
}

// NewFilesystemPublisher creates a publisher writing into dir.
func NewFilesystemPublisher(dir string) *FilesystemPublisher {
	return &FilesystemPublisher{dir: dir}
}

// ValidateSetup ensures the destination directory exists.
func (p *FilesystemPublisher) ValidateSetup() error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("creating publish directory: %w", err)
	}
	return nil
}

// Put writes the artifact to dir/key through a temp file, so a partial
// upload never shows up under the final name.
func (p *FilesystemPublisher) Put(key string, r io.Reader, size int64) error {
	dest := filepath.Join(p.dir, key)
	tmp := dest + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", key, err)
	}
	if n != size {
		os.Remove(tmp)
		return fmt.Errorf("short write for %s: wrote %d of %d bytes", key, n, size)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("moving %s into place: %w", key, err)
	}
	return nil
}

// Compile-time check that FilesystemPublisher implements mex.Publisher
var _ mex.Publisher = (*FilesystemPublisher)(nil)
