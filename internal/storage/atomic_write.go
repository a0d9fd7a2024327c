package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// AtomicWriteFile safely writes data by using a temporary file and an atomic rename.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	// Ensure the target directory exists
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Create temp file in the same directory to guarantee atomic rename works.
	tempFile, err := os.CreateTemp(dir, ".tmp-extman-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	// Ensure the temp file is removed on any error path.
	// On success, the rename operation moves it, so Remove will fail harmlessly.
	var success bool
	defer func() {
		if !success {
			if err := os.Remove(tempFile.Name()); err != nil {
				slog.Warn("failed to remove temporary file", "path", tempFile.Name(), "error", err)
			}
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil { // Ensure data is on disk.
		tempFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file %q: %w", tempFile.Name(), err)
	}
	if err := os.Chmod(tempFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	// Perform the platform-specific atomic rename.
	var renameErr error
	if runtime.GOOS == "windows" {
		renameErr = atomicRenameWindows(tempFile.Name(), filename)
	} else {
		renameErr = os.Rename(tempFile.Name(), filename)
	}

	if renameErr != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", renameErr)
	}
	success = true
	return nil
}
