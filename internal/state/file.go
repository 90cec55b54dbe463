// Package state persists the crash-recovery record as a properties
// file inside the export directory. The file's presence is the crash
// signal: it appears when a run starts and is deleted only on success.
package state

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/magiconair/properties"

	"mex-go/internal/mex"
)

// stateBanner is the comment line at the top of the state file, warning
// off anyone tempted to clean it up by hand.
const stateBanner = "#Export state - DO NOT DELETE (used for crash recovery)\n"

// FileStore reads and writes the state record at a fixed path. Writes
// go straight to the file, not through a temp rename: a torn write
// still signals an interrupted run, and Load tolerates partial content.
type FileStore struct {
	path  string
	clock mex.Clock
}

// NewFileStore creates a store for the state file at path.
func NewFileStore(path string, clock mex.Clock) *FileStore {
	return &FileStore{path: path, clock: clock}
}

// Save replaces the state record with the given marker and progress.
func (s *FileStore) Save(stage string, progress int, side mex.Side) error {
	props := properties.NewProperties()
	props.Set("stage", stage)
	props.Set("progress", strconv.Itoa(progress))
	props.Set("side", side.String())
	props.Set("timestamp", s.clock.Now().Format(mex.StateStampLayout))

	var buf bytes.Buffer
	buf.WriteString(stateBanner)
	if _, err := props.Write(&buf, properties.UTF8); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// Load reads the state record. A missing file yields (nil, nil). A file
// that exists but cannot be parsed, or is missing keys, yields a record
// with defaults filled in: its existence alone proves an interrupted
// run, and the diagnostics should not fail over mangled content.
func (s *FileStore) Load() (*mex.ExportState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	props, err := properties.Load(data, properties.UTF8)
	if err != nil {
		return defaultState(), nil
	}

	return &mex.ExportState{
		Stage:     props.GetString("stage", mex.MarkerPrepare),
		Progress:  props.GetInt("progress", 0),
		Side:      props.GetString("side", ""),
		Timestamp: props.GetString("timestamp", "unknown"),
	}, nil
}

// Exists reports whether a state record is on disk.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Clear removes the state record. Removing an absent file is not an
// error, so Clear is idempotent.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}

func defaultState() *mex.ExportState {
	return &mex.ExportState{
		Stage:     mex.MarkerPrepare,
		Progress:  0,
		Timestamp: "unknown",
	}
}

// Compile-time check that FileStore implements mex.StateStore
var _ mex.StateStore = (*FileStore)(nil)
