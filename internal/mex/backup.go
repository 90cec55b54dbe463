package mex

import "time"

// BackupEntry describes one backup archive on disk. Label, side, and
// stamp are parsed from the file name; ordering for retention uses the
// filesystem modification time, not the name.
type BackupEntry struct {
	Path    string // absolute path of the archive
	Label   string // e.g. "pre_recompile"
	Side    string // side name embedded in the file name
	Stamp   string // yyyyMMdd_HHmmss portion of the name
	Size    int64
	ModTime time.Time
	// Encrypted is true for archives written through the encryption
	// layer (".zip.age").
	Encrypted bool
}

// BackupManager creates point-in-time archives of a working directory
// immediately before destructive stages, and keeps the retained set
// bounded.
type BackupManager interface {
	// Create archives the whole tree under sourceDir as
	// <label>_<side>_<stamp>.zip in the backup directory, then enforces
	// retention. A missing sourceDir is a no-op (nothing to back up yet
	// is a valid state) and returns an empty path.
	Create(sourceDir string, label string, side Side) (string, error)

	// List returns all backup archives, newest first.
	List() ([]BackupEntry, error)

	// Restore extracts the archive at archivePath into destDir,
	// creating destDir if needed. Encrypted archives require a non-nil
	// decryption context; passing nil for one is an error.
	Restore(archivePath string, destDir string, decrypt DecryptionContext) error
}
