// Package archive reads and writes the zip archives used for backups
// and packaged mods.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

// Writer builds a zip archive atomically: entries go to a temporary
// file next to the destination, which only appears once Close succeeds.
type Writer struct {
	dest string
	tmp  string
	f    *os.File
	zw   *zip.Writer
}

// NewWriter starts an archive that will land at destPath.
func NewWriter(destPath string) (*Writer, error) {
	tmp := destPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("creating archive temp file: %w", err)
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	return &Writer{dest: destPath, tmp: tmp, f: f, zw: zw}, nil
}

// Add copies the file at srcPath into the archive under name, which
// must be slash-separated and relative. Mode and mtime come from info.
func (w *Writer) Add(name string, srcPath string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("building header for %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	entry, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", name, err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer src.Close()

	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("writing entry %s: %w", name, err)
	}
	return nil
}

// Close finishes the archive and moves it into place.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		os.Remove(w.tmp)
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmp)
		return fmt.Errorf("closing archive file: %w", err)
	}
	if err := os.Rename(w.tmp, w.dest); err != nil {
		os.Remove(w.tmp)
		return fmt.Errorf("moving archive into place: %w", err)
	}
	return nil
}

// Abort discards the partially written archive. Safe to call after a
// failed Add; not needed after Close.
func (w *Writer) Abort() {
	w.zw.Close()
	w.f.Close()
	os.Remove(w.tmp)
}

// Extract unpacks the archive into destDir, creating it if needed.
// Entry modes and mtimes are preserved. Returns the number of files
// written.
func Extract(r io.ReaderAt, size int64, destDir string) (int, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(in io.Reader) io.ReadCloser {
		return flate.NewReader(in)
	})

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("creating destination: %w", err)
	}

	count := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractOne(f, destDir); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ExtractFile is the file-path convenience over Extract.
func ExtractFile(archivePath string, destDir string) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", archivePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stating %s: %w", archivePath, err)
	}
	return Extract(f, info.Size(), destDir)
}

func extractOne(f *zip.File, destDir string) error {
	name := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("archive entry escapes destination: %s", f.Name)
	}
	target := filepath.Join(destDir, name)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer src.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(target)
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", target, err)
	}

	if !f.Modified.IsZero() {
		if err := os.Chtimes(target, f.Modified, f.Modified); err != nil {
			return fmt.Errorf("setting times on %s: %w", target, err)
		}
	}
	return nil
}
