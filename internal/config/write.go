package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extraterm/extman/internal/storage"
)

// SetKeyInFile updates or adds a global option key in the config file.
// It preserves comments and formatting. If the key exists in the global
// section, its line is replaced in-place. If not found, the key is inserted
// before the first section header (or appended at the end if no sections exist).
//
// Only global-section keys are matched; keys inside [section] blocks are
// ignored, ensuring section options are never accidentally overwritten.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
	}

	found := false
	inGlobalSection := true
	insertIndex := len(lines) // default: append at end

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Track section boundaries
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			if inGlobalSection && !found {
				insertIndex = i // insert before first section header
			}
			inGlobalSection = false
			continue
		}

		// Only match keys in the global section
		if !inGlobalSection {
			continue
		}

		// Skip comments and empty lines
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Parse key from line: "keyName value..."
		parts := strings.SplitN(trimmed, " ", 2)
		if parts[0] == key {
			lines[i] = formatOptionLine(key, value)
			found = true
			break
		}
	}

	if !found {
		lines = insertLine(lines, insertIndex, formatOptionLine(key, value))
	}

	return writeConfigLines(path, lines)
}

// SetSectionKeyInFile updates or adds a key within the named [section] of
// the config file, preserving comments and formatting. The section is
// created (appended at the end of the file) if it does not exist.
func SetSectionKeyInFile(path, section, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
	}

	header := "[" + section + "]"
	inSection := false
	sectionFound := false
	found := false
	insertIndex := -1

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			if inSection && !found {
				insertIndex = i // insert before the next section header
			}
			inSection = trimmed == header
			if inSection {
				sectionFound = true
			}
			continue
		}

		if !inSection {
			continue
		}

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		parts := strings.SplitN(trimmed, " ", 2)
		if parts[0] == key {
			lines[i] = formatOptionLine(key, value)
			found = true
			break
		}
	}

	if !found {
		if !sectionFound {
			// Append a new section at the end of the file.
			if len(lines) > 0 && lines[len(lines)-1] == "" {
				lines = lines[:len(lines)-1]
			}
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, header, formatOptionLine(key, value), "")
		} else {
			if insertIndex < 0 {
				insertIndex = len(lines) // section is last: append at end
			}
			lines = insertLine(lines, insertIndex, formatOptionLine(key, value))
		}
	}

	return writeConfigLines(path, lines)
}

// SetActiveExtensionInFile persists the desired state for one extension
// into the [active-extensions] section of the config file.
func SetActiveExtensionInFile(path, extensionName string, enabled bool) error {
	return SetSectionKeyInFile(path, ActiveExtensionsSection, extensionName, strconv.FormatBool(enabled))
}

func formatOptionLine(key, value string) string {
	if value == "" {
		return key
	}
	return key + " " + value
}

func insertLine(lines []string, index int, newLine string) []string {
	if index >= len(lines) {
		// Append: keep any trailing empty line (from trailing newline) last
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			return append(lines[:len(lines)-1], newLine, "")
		}
		return append(lines, newLine)
	}
	lines = append(lines[:index+1], lines[index:]...)
	lines[index] = newLine
	return lines
}

func writeConfigLines(path string, lines []string) error {
	result := strings.Join(lines, "\n")

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return storage.AtomicWriteFile(path, []byte(result), 0644)
}
