package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - MEX_CONFIG_PATH: config file location (default: ~/.config/mex.toml)
//   - MEX_WORKSPACE: project workspace (default: current directory)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	workspace, err := getWorkspace()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"workspace":   workspace,
	}, nil
}

// getConfigPath returns the config file path, checking MEX_CONFIG_PATH env var first,
// then falling back to the default ~/.config/mex.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("MEX_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "mex.toml"), nil
}

// getWorkspace returns the project workspace, checking MEX_WORKSPACE
// env var first, then falling back to the current directory.
func getWorkspace() (string, error) {
	if path := os.Getenv("MEX_WORKSPACE"); path != "" {
		return path, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot determine working directory: %w", err)
	}
	return wd, nil
}
