// Package backup creates and restores the point-in-time archives taken
// before destructive pipeline stages. Archives are named
// <label>_<side>_<stamp>.zip and rotated by filesystem mtime, oldest
// first, so the retained set stays bounded.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mex-go/internal/archive"
	"mex-go/internal/fs"
	"mex-go/internal/mex"
)

// DefaultKeep is how many archives are retained when the configuration
// does not say otherwise.
const DefaultKeep = 5

// Manager is the filesystem implementation of mex.BackupManager. When
// encryption is enabled, archives are written as .zip.age through the
// configured encryptor.
type Manager struct {
	dir     string
	keep    int
	encrypt bool
	enc     mex.Encryptor
	clock   mex.Clock
	logger  mex.Logger
}

// NewManager creates a manager storing archives under dir, retaining
// the newest keep of them. enc may be nil when encrypt is false.
func NewManager(dir string, keep int, encrypt bool, enc mex.Encryptor, clock mex.Clock, logger mex.Logger) *Manager {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Manager{
		dir:     dir,
		keep:    keep,
		encrypt: encrypt,
		enc:     enc,
		clock:   clock,
		logger:  logger,
	}
}

// Create archives the tree under sourceDir. A missing sourceDir is a
// no-op returning an empty path: before the first compile there is
// nothing to protect. Retention is enforced immediately after a
// successful write.
func (m *Manager) Create(sourceDir string, label string, side mex.Side) (string, error) {
	exists, err := fs.DirExists(sourceDir)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", sourceDir, err)
	}
	if !exists {
		m.logger.Debug("nothing to back up", "dir", sourceDir)
		return "", nil
	}

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	entries, err := fs.WalkTree(sourceDir)
	if err != nil {
		return "", err
	}

	stamp := m.clock.Now().Format(mex.ArchiveStampLayout)
	dest := filepath.Join(m.dir, fmt.Sprintf("%s_%s_%s.zip", label, side, stamp))

	if m.encrypt {
		if m.enc == nil || !m.enc.IsConfigured() {
			return "", fmt.Errorf("backup encryption enabled but no key is configured")
		}
		dest += ".age"
		if err := m.writeEncrypted(dest, entries); err != nil {
			return "", err
		}
	} else {
		if err := m.writeArchive(dest, entries); err != nil {
			return "", err
		}
	}

	m.logger.Debug("backup written", "file", filepath.Base(dest), "files", len(entries))

	if err := m.enforceRetention(); err != nil {
		return "", err
	}
	return dest, nil
}

// List returns the retained archives, newest first by mtime.
func (m *Manager) List() ([]mex.BackupEntry, error) {
	dirents, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var entries []mex.BackupEntry
	for _, de := range dirents {
		if de.IsDir() || !isArchiveName(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		label, side, stamp, encrypted := parseArchiveName(de.Name())
		entries = append(entries, mex.BackupEntry{
			Path:      filepath.Join(m.dir, de.Name()),
			Label:     label,
			Side:      side,
			Stamp:     stamp,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Encrypted: encrypted,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// Restore extracts the archive into destDir, decrypting first when the
// name carries the .age suffix.
func (m *Manager) Restore(archivePath string, destDir string, decrypt mex.DecryptionContext) error {
	if strings.HasSuffix(archivePath, ".age") {
		if decrypt == nil {
			return fmt.Errorf("archive is encrypted but no passphrase was provided: %s", filepath.Base(archivePath))
		}
		return m.restoreEncrypted(archivePath, destDir, decrypt)
	}

	count, err := archive.ExtractFile(archivePath, destDir)
	if err != nil {
		return err
	}
	m.logger.Debug("archive extracted", "file", filepath.Base(archivePath), "files", count)
	return nil
}

func (m *Manager) writeArchive(dest string, entries []fs.Entry) error {
	w, err := archive.NewWriter(dest)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Add(e.RelPath, e.AbsPath, e.Info); err != nil {
			w.Abort()
			return err
		}
	}
	return w.Close()
}

// writeEncrypted stages the plain archive next to the destination, then
// streams it through the encryptor. The plaintext staging file never
// outlives the call.
func (m *Manager) writeEncrypted(dest string, entries []fs.Entry) error {
	plain := dest + ".plain"
	if err := m.writeArchive(plain, entries); err != nil {
		return err
	}
	defer os.Remove(plain)

	src, err := os.Open(plain)
	if err != nil {
		return fmt.Errorf("opening staged archive: %w", err)
	}
	defer src.Close()

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating encrypted archive: %w", err)
	}

	if err := m.enc.Encrypt(src, out); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("encrypting backup: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing encrypted archive: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("moving encrypted archive into place: %w", err)
	}
	return nil
}

// restoreEncrypted decrypts to a temporary file first: zip needs random
// access and the decrypted stream is forward-only.
func (m *Manager) restoreEncrypted(archivePath string, destDir string, decrypt mex.DecryptionContext) error {
	src, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", archivePath, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "mex-restore-*.zip")
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := decrypt.Decrypt(src, tmp); err != nil {
		return fmt.Errorf("decrypting archive: %w", err)
	}

	info, err := tmp.Stat()
	if err != nil {
		return fmt.Errorf("stating staging file: %w", err)
	}
	count, err := archive.Extract(tmp, info.Size(), destDir)
	if err != nil {
		return err
	}
	m.logger.Debug("archive extracted", "file", filepath.Base(archivePath), "files", count)
	return nil
}

func (m *Manager) enforceRetention() error {
	entries, err := m.List()
	if err != nil {
		return err
	}
	for len(entries) > m.keep {
		oldest := entries[len(entries)-1]
		if err := os.Remove(oldest.Path); err != nil {
			return fmt.Errorf("removing old backup: %w", err)
		}
		m.logger.Debug("removed old backup", "file", filepath.Base(oldest.Path))
		entries = entries[:len(entries)-1]
	}
	return nil
}

func isArchiveName(name string) bool {
	return strings.HasSuffix(name, ".zip") || strings.HasSuffix(name, ".zip.age")
}

// parseArchiveName splits <label>_<side>_<yyyyMMdd>_<HHmmss> out of an
// archive file name. Labels may themselves contain underscores, so the
// split runs from the right. Names that don't fit the shape come back
// with empty fields; the file still counts for listing and retention.
func parseArchiveName(name string) (label, side, stamp string, encrypted bool) {
	base := name
	if strings.HasSuffix(base, ".age") {
		encrypted = true
		base = strings.TrimSuffix(base, ".age")
	}
	base = strings.TrimSuffix(base, ".zip")

	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return "", "", "", encrypted
	}
	stamp = parts[len(parts)-2] + "_" + parts[len(parts)-1]
	side = parts[len(parts)-3]
	label = strings.Join(parts[:len(parts)-3], "_")
	return label, side, stamp, encrypted
}

// Compile-time check that Manager implements mex.BackupManager
var _ mex.BackupManager = (*Manager)(nil)
