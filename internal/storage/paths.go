package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// To enable testing without polluting the user's home directory,
// these functions are defined as variables. The test suite can then
// override them to point to a temporary directory.
var (
	stateDirectory     = StateDirectory
	sharedStatePath    = SharedStateFilePath
	sharedStateLockFns = SharedStateLockFilePath
)

// SetTestPaths overrides the path functions for testing.
// This should only be used in tests.
func SetTestPaths(dir string) {
	stateDirectory = func() (string, error) { return dir, nil }
	sharedStatePath = func() (string, error) {
		return filepath.Join(dir, "shared-state.json"), nil
	}
	sharedStateLockFns = func() (string, error) {
		return filepath.Join(dir, "shared-state.lock"), nil
	}
}

// ResetPaths resets the path functions to their defaults.
// This should only be used in tests.
func ResetPaths() {
	stateDirectory = StateDirectory
	sharedStatePath = SharedStateFilePath
	sharedStateLockFns = SharedStateLockFilePath
}

// StateDirectory returns the directory where cross-process extension state
// is stored. Resolves to {UserConfigDir}/extman/state/
func StateDirectory() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "extman", "state"), nil
}

// SharedStateFilePath returns the absolute path to the shared extension
// state file used for cross-process desired-state synchronization.
func SharedStateFilePath() (string, error) {
	dir, err := stateDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "shared-state.json"), nil
}

// SharedStateLockFilePath returns the absolute path to the lock file
// guarding writes to the shared extension state file.
func SharedStateLockFilePath() (string, error) {
	dir, err := stateDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "shared-state.lock"), nil
}

// ResolveStatePaths returns the effective (possibly test-overridden) shared
// state file path and its lock file path.
func ResolveStatePaths() (statePath, lockPath string, err error) {
	statePath, err = sharedStatePath()
	if err != nil {
		return "", "", err
	}
	lockPath, err = sharedStateLockFns()
	if err != nil {
		return "", "", err
	}
	return statePath, lockPath, nil
}
