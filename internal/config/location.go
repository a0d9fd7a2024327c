package config

import (
	"os"
	"path/filepath"
)

// GetConfigPath returns the configuration file path.
// It first checks the EXTMAN_CONFIG environment variable, then falls back
// to the default location (~/.extman/config).
func GetConfigPath() (string, error) {
	// Check for environment variable override
	if configPath := os.Getenv("EXTMAN_CONFIG"); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	// Default config location: ~/.extman/config
	configDir := filepath.Join(homeDir, ".extman")
	configPath := filepath.Join(configDir, "config")

	return configPath, nil
}

// EnsureConfigDir ensures that the configuration directory exists.
func EnsureConfigDir() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	return os.MkdirAll(configDir, 0755)
}
