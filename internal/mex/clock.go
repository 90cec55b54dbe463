package mex

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// Timestamp layouts used in artifact names and the export manifest.
const (
	// ArchiveStampLayout names backup and mod archives (yyyyMMdd_HHmmss).
	ArchiveStampLayout = "20060102_150405"

	// ManifestStampLayout is the completion timestamp in export_info.txt.
	ManifestStampLayout = "2006-01-02 15:04:05"

	// StateStampLayout is the timestamp written to the recovery state file.
	StateStampLayout = "2006-01-02T15:04:05"
)
