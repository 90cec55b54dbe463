package testutil

import (
	"fmt"

	"mex-go/internal/mex"
)

// StubBackups is an in-memory mex.BackupManager that records requests
// instead of touching the filesystem.
type StubBackups struct {
	// Entries is what List returns. Tests populate it newest first,
	// the order the real manager uses.
	Entries []mex.BackupEntry

	// Created records each Create call as "<label>/<side>", in order.
	Created []string

	// ListCalls counts List invocations.
	ListCalls int

	// Restores records each Restore call, in order.
	Restores []RestoreCall

	CreateErr  error
	ListErr    error
	RestoreErr error
}

// RestoreCall records one StubBackups.Restore invocation.
type RestoreCall struct {
	ArchivePath string
	DestDir     string
	Decrypted   bool
}

func (b *StubBackups) Create(sourceDir string, label string, side mex.Side) (string, error) {
	if b.CreateErr != nil {
		return "", b.CreateErr
	}
	b.Created = append(b.Created, label+"/"+side.String())
	return fmt.Sprintf("%s_%s_20240115_103000.zip", label, side), nil
}

func (b *StubBackups) List() ([]mex.BackupEntry, error) {
	b.ListCalls++
	if b.ListErr != nil {
		return nil, b.ListErr
	}
	return b.Entries, nil
}

func (b *StubBackups) Restore(archivePath string, destDir string, decrypt mex.DecryptionContext) error {
	if b.RestoreErr != nil {
		return b.RestoreErr
	}
	b.Restores = append(b.Restores, RestoreCall{
		ArchivePath: archivePath,
		DestDir:     destDir,
		Decrypted:   decrypt != nil,
	})
	return nil
}

var _ mex.BackupManager = (*StubBackups)(nil)
