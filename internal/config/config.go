package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config represents the application configuration.
type Config struct {
	// Global options that apply to all commands
	Global map[string]string
	// Command-specific options
	Commands map[string]map[string]string
	// ActiveExtensions is the persisted per-extension desired state,
	// parsed from the [active-extensions] config section. A missing
	// entry means "use the startup default policy" for that extension.
	ActiveExtensions map[string]bool
	// Warnings contains any warnings generated during config loading
	Warnings []string
}

// NewConfig creates a new empty configuration.
func NewConfig() *Config {
	return &Config{
		Global:           make(map[string]string),
		Commands:         make(map[string]map[string]string),
		ActiveExtensions: make(map[string]bool),
		Warnings:         make([]string, 0),
	}
}

// Load loads configuration from the default config file path.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads configuration from the specified file path.
// The file uses dnsmasq-style format: optionName remainingLineIsTheValue
//
// SECURITY: This function rejects symlinks to prevent symlink attacks
// that could read sensitive files through symlink traversal.
func LoadFromPath(path string) (*Config, error) {
	// Lstat checks the final path component for symlinks. Intermediate
	// directory symlinks are not checked; the threat model targets direct
	// file symlink substitution.
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadFromReader(file)
}

// ActiveExtensionsSection is the config section holding the persisted
// per-extension desired state: one "extensionName true|false" line each.
const ActiveExtensionsSection = "active-extensions"

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	config := NewConfig()
	scanner := bufio.NewScanner(r)

	var currentCommand string
	var inActiveExtensions bool

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section header [section_name]
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			sectionName := strings.Trim(line, "[]")
			if sectionName == ActiveExtensionsSection {
				inActiveExtensions = true
				currentCommand = ""
			} else {
				inActiveExtensions = false
				currentCommand = sectionName
				if config.Commands[currentCommand] == nil {
					config.Commands[currentCommand] = make(map[string]string)
				}
			}
			continue
		}

		// Parse option line: optionName remainingLineIsTheValue
		parts := strings.SplitN(line, " ", 2)
		if len(parts) < 1 {
			continue
		}

		optionName := parts[0]
		var value string
		if len(parts) > 1 {
			value = parts[1]
		}

		if inActiveExtensions {
			enabled, err := parseBool(value)
			if err != nil {
				config.addWarning("invalid active-extensions entry %q: %v", optionName, err)
				continue
			}
			config.ActiveExtensions[optionName] = enabled
		} else if currentCommand == "" {
			// Global option
			config.Global[optionName] = value
		} else {
			// Command-specific option
			config.Commands[currentCommand][optionName] = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return config, nil
}

// addWarning adds a warning to the config's warnings list.
func (c *Config) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("[Config] " + msg)
}

// parseBool parses a boolean value from string.
// Accepts: true, false, 1, 0, yes, no (case-insensitive)
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}

// GetGlobalOption returns a global configuration option.
func (c *Config) GetGlobalOption(name string) (string, bool) {
	value, exists := c.Global[name]
	return value, exists
}

// GetCommandOption returns a command-specific configuration option.
// It first checks command-specific options, then falls back to global options.
func (c *Config) GetCommandOption(command, name string) (string, bool) {
	if cmdOptions, exists := c.Commands[command]; exists {
		if value, exists := cmdOptions[name]; exists {
			return value, true
		}
	}

	return c.GetGlobalOption(name)
}

// SetGlobalOption sets a global configuration option.
func (c *Config) SetGlobalOption(name, value string) {
	c.Global[name] = value
}

// SetActiveExtension records the desired state for an extension in the
// in-memory configuration. Persisting it is the caller's concern; see
// SetActiveExtensionInFile.
func (c *Config) SetActiveExtension(name string, enabled bool) {
	if c.ActiveExtensions == nil {
		c.ActiveExtensions = make(map[string]bool)
	}
	c.ActiveExtensions[name] = enabled
}

// ExtensionPaths returns the configured extension root directories from the
// global "extension-path" option (comma-separated).
func (c *Config) ExtensionPaths() []string {
	raw, ok := c.Global["extension-path"]
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// GetWarnings returns any warnings generated during config loading.
func (c *Config) GetWarnings() []string {
	return c.Warnings
}

// HasWarnings returns true if there are any warnings.
func (c *Config) HasWarnings() bool {
	return len(c.Warnings) > 0
}
