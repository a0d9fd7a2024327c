package command

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/extraterm/extman/internal/config"
)

// ConfigCommand manages configuration.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	showAll    bool
}

// NewConfigCommand creates a new config command. If configPath is empty,
// persistence to disk is skipped.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Manage configuration settings",
			"config [options] [key] [value]",
		),
		config:     cfg,
		configPath: configPath,
	}
}

// SetupFlags configures the flags for the config command.
func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showAll, "all", false, "Show all configuration, including desired extension state")
}

// Execute manages configuration.
func (c *ConfigCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		if c.showAll {
			_, _ = fmt.Fprintln(stdout, "Global configuration:")
			for key, value := range c.config.Global {
				_, _ = fmt.Fprintf(stdout, "  %s: %s\n", key, value)
			}
			_, _ = fmt.Fprintf(stdout, "\n[%s]\n", config.ActiveExtensionsSection)
			for name, enabled := range c.config.ActiveExtensions {
				_, _ = fmt.Fprintf(stdout, "  %s: %t\n", name, enabled)
			}
			return nil
		}
		_, _ = fmt.Fprintln(stdout, "Configuration management:")
		_, _ = fmt.Fprintln(stdout, "  config <key>          - Get configuration value")
		_, _ = fmt.Fprintln(stdout, "  config <key> <value>  - Set configuration value")
		_, _ = fmt.Fprintln(stdout, "  config --all          - Show all configuration")
		return nil
	}

	if len(args) == 1 {
		key := args[0]
		if value, exists := c.config.GetGlobalOption(key); exists {
			_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, value)
		} else {
			_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
		}
		return nil
	}

	if len(args) == 2 {
		key, value := args[0], args[1]
		c.config.SetGlobalOption(key, value)

		configPath := c.configPath
		if configPath == "" {
			// Best-effort resolve; if it fails, skip disk write.
			configPath, _ = config.GetConfigPath()
		}
		if configPath != "" {
			if err := config.SetKeyInFile(configPath, key, value); err != nil {
				_, _ = fmt.Fprintf(stderr, "Warning: failed to persist config to disk: %v\n", err)
			}
		}

		_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

// InitCommand initializes the extman environment.
type InitCommand struct {
	*BaseCommand
	force bool
}

// NewInitCommand creates a new init command.
func NewInitCommand() *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand(
			"init",
			"Initialize the extman environment",
			"init [options]",
		),
	}
}

// SetupFlags configures the flags for the init command.
func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "Force initialization even if config already exists")
}

// Execute initializes the environment.
func (c *InitCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil && !c.force {
		_, _ = fmt.Fprintf(stdout, "Configuration already exists at: %s\n", configPath)
		_, _ = fmt.Fprintln(stdout, "Use --force to overwrite existing configuration")
		return nil
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := `# extman configuration file
# Format: optionName remainingLineIsTheValue

# Comma-separated directories to scan for extensions.
# extension-path /usr/share/extman/extensions,~/.extman/extensions

# Whether discovered extensions start unless disabled below.
start-by-default true

# Per-extension desired state overrides.
[active-extensions]
`
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "Initialized configuration at: %s\n", configPath)
	return nil
}
