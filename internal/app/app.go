package app

import (
	"fmt"
	"os"
	"time"

	"mex-go/internal/backup"
	"mex-go/internal/config"
	"mex-go/internal/database"
	"mex-go/internal/encryption"
	"mex-go/internal/mex"
	"mex-go/internal/packager"
	"mex-go/internal/publish"
	"mex-go/internal/state"
	"mex-go/internal/task"
)

// MexApp is the application layer between the CLI and the pipeline.
// It constructs all components from config, exposes the high-level
// operations the commands call, and manages resource lifecycle on
// Close.
type MexApp struct {
	cfg       *config.Config
	layout    *mex.Layout
	backups   mex.BackupManager
	runs      mex.RunStore
	encryptor mex.Encryptor
	pipeline  *mex.Pipeline
	logFile   *os.File
}

// NewMexApp creates a fully wired MexApp from the given config.
// operation identifies the CLI command being run (e.g. "Export",
// "Status"). The caller must call Close when done.
func NewMexApp(cfg *config.Config, operation string) (*MexApp, error) {
	if cfg.Workspace == "" {
		return nil, fmt.Errorf("no workspace configured")
	}

	layout := mex.NewLayout(cfg.Workspace, cfg.BinDir, cfg.ReobfDir)
	clock := mex.RealClock{}

	runID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}
	logger.Debug("invocation", "op", operation)

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	store := state.NewFileStore(layout.StateFile(), clock)
	backups := backup.NewManager(layout.BackupDir(), cfg.Backup.Keep, cfg.Backup.Encrypt, enc, clock, logger)
	pack := packager.New(layout, clock, logger)

	recompile, err := task.NewTaskFromConfig("recompile", cfg.Recompile, cfg.Workspace, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating recompile task: %w", err)
	}
	reobf, err := task.NewTaskFromConfig("reobf", cfg.Reobf, cfg.Workspace, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating reobf task: %w", err)
	}

	runs, err := database.NewRunStoreFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating run store: %w", err)
	}

	pipe := mex.NewPipeline(layout, store, backups, pack, recompile, reobf, runs, logger, clock, mex.UUIDGenerator{})
	pipe.Version = cfg.Version

	return &MexApp{
		cfg:       cfg,
		layout:    layout,
		backups:   backups,
		runs:      runs,
		encryptor: enc,
		pipeline:  pipe,
		logFile:   logFile,
	}, nil
}

// Export runs the full pipeline for the given side name. progress may
// be nil; when set it receives overall progress updates.
func (a *MexApp) Export(sideName string, progress mex.ProgressFunc) (*mex.RunReport, error) {
	side, err := mex.ParseSide(sideName)
	if err != nil {
		return nil, err
	}
	a.pipeline.Progress = progress
	return a.pipeline.Run(side)
}

// Status reports the workspace state without modifying it.
func (a *MexApp) Status() (*mex.StatusReport, error) {
	return a.pipeline.Status()
}

// History returns the most recent export runs.
func (a *MexApp) History(limit int) ([]*mex.ExportRun, error) {
	return a.runs.ListRuns(limit)
}

// Backups returns the retained backup archives, newest first.
func (a *MexApp) Backups() ([]mex.BackupEntry, error) {
	return a.backups.List()
}

// FindBackup resolves which archive a restore would use, without
// touching anything. The CLI uses it to decide whether to prompt for a
// passphrase.
func (a *MexApp) FindBackup(name string, sideName string) (*mex.BackupEntry, error) {
	side, err := mex.ParseSide(sideName)
	if err != nil {
		return nil, err
	}
	return a.pipeline.FindBackup(name, side)
}

// Restore extracts a backup archive back over its side's compiled
// output. passphrase is needed only for encrypted archives.
func (a *MexApp) Restore(name string, sideName string, passphrase string) (string, error) {
	side, err := mex.ParseSide(sideName)
	if err != nil {
		return "", err
	}

	var decrypt mex.DecryptionContext
	if passphrase != "" {
		decrypt, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return "", fmt.Errorf("unlocking key: %w", err)
		}
	}

	return a.pipeline.RestoreBackup(name, side, decrypt)
}

// Publish uploads the packaged artifacts to the configured destination.
func (a *MexApp) Publish() ([]string, error) {
	pub, err := publish.NewPublisherFromConfig(a.cfg.Publish)
	if err != nil {
		return nil, err
	}
	return a.pipeline.PublishArtifacts(pub)
}

// SetupKeys generates the age key pair protected by the passphrase.
func (a *MexApp) SetupKeys(passphrase string) error {
	return a.encryptor.Setup(passphrase)
}

// KeysConfigured reports whether the encryption keys exist.
func (a *MexApp) KeysConfigured() bool {
	return a.encryptor.IsConfigured()
}

// Close releases the run store and the log file.
func (a *MexApp) Close() error {
	var firstErr error

	if err := a.runs.Close(); err != nil {
		firstErr = fmt.Errorf("closing run store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
