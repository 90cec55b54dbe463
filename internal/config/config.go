package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for mex.
type Config struct {
	// Workspace is the project root holding the compiled output, the
	// reobfuscated output, and the export directory.
	Workspace string `toml:"workspace"`
	// Version is the mod version written to the export manifest.
	Version string `toml:"version"`
	LogDir  string `toml:"log_dir"`

	// BinDir and ReobfDir override the default "bin" and "reobf"
	// locations relative to the workspace. Absolute paths are used
	// verbatim.
	BinDir   string `toml:"bin_dir,omitempty"`
	ReobfDir string `toml:"reobf_dir,omitempty"`

	Recompile  TaskConfig       `toml:"recompile"`
	Reobf      TaskConfig       `toml:"reobf"`
	Backup     BackupConfig     `toml:"backup"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Publish    PublishConfig    `toml:"publish"`
}

// TaskConfig configures one external pipeline step.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type TaskConfig struct {
	Type string `toml:"type"` // "noop" or "command"

	// Command-specific fields (only used when Type == "command").
	// The literal {side} in an argument is replaced with the side name.
	Command        []string `toml:"command,omitempty"`
	TimeoutSeconds int      `toml:"timeout_seconds,omitempty"`
}

// BackupConfig configures the pre-stage backup archives.
type BackupConfig struct {
	Keep    int  `toml:"keep"`    // archives retained, defaults to 5
	Encrypt bool `toml:"encrypt"` // write archives through the age encryptor
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// DatabaseConfig represents configuration for the run-history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// PublishConfig represents configuration for the artifact destination.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type PublishConfig struct {
	Type string `toml:"type"` // "filesystem", "s3", or "memory"

	// S3-specific fields (only used when Type == "s3"). When the key
	// pair is empty the default AWS credential chain is used.
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`
}

// NewConfig creates a Config for the given workspace with default paths
// under its export directory.
func NewConfig(workspace string) *Config {
	exportDir := filepath.Join(workspace, "export")
	return &Config{
		Workspace: workspace,
		LogDir:    filepath.Join(exportDir, "log"),
		Recompile: TaskConfig{Type: "noop"},
		Reobf:     TaskConfig{Type: "noop"},
		Backup:    BackupConfig{Keep: 5},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(exportDir, "keys", "mex.pub"),
			PrivateKeyPath: filepath.Join(exportDir, "keys", "mex.key"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(exportDir, "db"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
