package mex

import (
	"fmt"
	"path/filepath"
)

// RestoreBackup extracts a backup archive back over the compiled-output
// tree it was taken from. When name is non-empty it selects that exact
// archive file name; otherwise the newest backup for the given side is
// used (SideMerged matches any side). The destination is derived from
// the side embedded in the archive name, not from the side argument.
// decrypt is required for encrypted archives; pass nil otherwise.
// Returns the directory the archive was extracted into.
func (p *Pipeline) RestoreBackup(name string, side Side, decrypt DecryptionContext) (string, error) {
	p.logger.Info("restore started", "name", name, "side", side.String())

	entry, err := p.FindBackup(name, side)
	if err != nil {
		return "", err
	}

	if entry.Encrypted && decrypt == nil {
		return "", fmt.Errorf("backup is encrypted but no passphrase was provided: %s", filepath.Base(entry.Path))
	}

	entrySide, err := ParseSide(entry.Side)
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", filepath.Base(entry.Path), err)
	}

	destDir := p.layout.BinDir(entrySide)
	if err := p.backups.Restore(entry.Path, destDir, decrypt); err != nil {
		return "", fmt.Errorf("restoring %s: %w", filepath.Base(entry.Path), err)
	}

	p.logger.Info("backup restored", "file", filepath.Base(entry.Path), "dir", destDir)
	return destDir, nil
}

// FindBackup picks the archive a restore would use: the exact file name
// when name is non-empty, otherwise the newest archive matching side.
func (p *Pipeline) FindBackup(name string, side Side) (*BackupEntry, error) {
	entries, err := p.backups.List()
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no backups available")
	}

	if name != "" {
		for i := range entries {
			if filepath.Base(entries[i].Path) == name {
				return &entries[i], nil
			}
		}
		return nil, fmt.Errorf("no backup named %s", name)
	}

	// Entries are newest first; take the first match for the side.
	for i := range entries {
		if side == SideMerged || entries[i].Side == side.String() {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no backups for side %s", side.String())
}
