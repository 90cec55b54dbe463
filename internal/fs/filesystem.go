// Package fs provides the filesystem discovery helpers shared by the
// backup and packaging layers.
package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Entry is one regular file found under a walked root.
type Entry struct {
	AbsPath string
	// RelPath is slash-separated and relative to the walked root, the
	// form archive entries use.
	RelPath string
	Info    fs.FileInfo
}

// WalkTree collects the regular files under root, in lexical order.
// Directories, symlinks, and other special files are skipped.
func WalkTree(root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}
		entries = append(entries, Entry{
			AbsPath: p,
			RelPath: filepath.ToSlash(rel),
			Info:    info,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return entries, nil
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
