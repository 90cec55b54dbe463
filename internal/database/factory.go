package database

import (
	"fmt"
	"os"
	"path/filepath"

	"mex-go/internal/config"
	"mex-go/internal/mex"
)

// NewRunStoreFromConfig creates a RunStore implementation based on the database config type.
func NewRunStoreFromConfig(cfg config.DatabaseConfig) (mex.RunStore, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "mex.db"))
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
