package command

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/extraterm/extman/internal/config"
	"github.com/extraterm/extman/internal/registry"
	"github.com/extraterm/extman/internal/sharedstate"
)

// ListCommand prints the discovered extensions and their desired state.
type ListCommand struct {
	*BaseCommand
	config *config.Config
}

// NewListCommand creates a new list command.
func NewListCommand(cfg *config.Config) *ListCommand {
	return &ListCommand{
		BaseCommand: NewBaseCommand(
			"list",
			"List discovered extensions and their enabled state",
			"list",
		),
		config: cfg,
	}
}

// Execute lists the extensions found on the configured extension paths.
func (c *ListCommand) Execute(args []string, stdout, stderr io.Writer) error {
	reg := registry.New()
	reg.Scan(c.config.ExtensionPaths())

	all := reg.All()
	if len(all) == 0 {
		_, _ = fmt.Fprintln(stdout, "No extensions found. Set the 'extension-path' config option.")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVERSION\tENABLED\tDESCRIPTION")
	for _, meta := range all {
		enabled := true
		if v, ok := c.config.ActiveExtensions[meta.Name]; ok {
			enabled = v
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", meta.Name, meta.Version, enabled, meta.Description)
	}
	return w.Flush()
}

// EnableCommand records desired state true for one extension. The change is
// persisted to the config file and published through the shared state store
// so running hosts pick it up.
type EnableCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
}

// NewEnableCommand creates a new enable command.
func NewEnableCommand(cfg *config.Config, configPath string) *EnableCommand {
	return &EnableCommand{
		BaseCommand: NewBaseCommand(
			"enable",
			"Enable an extension",
			"enable <extension-name>",
		),
		config:     cfg,
		configPath: configPath,
	}
}

// Execute enables the named extension.
func (c *EnableCommand) Execute(args []string, stdout, stderr io.Writer) error {
	return setDesiredState(c.config, c.configPath, args, true, stdout)
}

// DisableCommand records desired state false for one extension.
type DisableCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
}

// NewDisableCommand creates a new disable command.
func NewDisableCommand(cfg *config.Config, configPath string) *DisableCommand {
	return &DisableCommand{
		BaseCommand: NewBaseCommand(
			"disable",
			"Disable an extension",
			"disable <extension-name>",
		),
		config:     cfg,
		configPath: configPath,
	}
}

// Execute disables the named extension.
func (c *DisableCommand) Execute(args []string, stdout, stderr io.Writer) error {
	return setDesiredState(c.config, c.configPath, args, false, stdout)
}

// setDesiredState validates the extension name against the discovered
// extensions, persists the desired state to the config file, and publishes
// it through the shared state store so other processes converge on it.
func setDesiredState(cfg *config.Config, configPath string, args []string, enabled bool, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one extension name")
	}
	name := args[0]

	reg := registry.New()
	reg.Scan(cfg.ExtensionPaths())
	if reg.Lookup(name) == nil {
		return fmt.Errorf("unknown extension: %s", name)
	}

	cfg.SetActiveExtension(name, enabled)
	if configPath != "" {
		if err := config.SetActiveExtensionInFile(configPath, name, enabled); err != nil {
			return fmt.Errorf("persisting desired state: %w", err)
		}
	}

	store, err := sharedstate.NewFileStore()
	if err != nil {
		return fmt.Errorf("opening shared state store: %w", err)
	}
	defer func() { _ = store.Close() }()

	state := store.GetDesiredState()
	state[name] = enabled
	if err := store.SetDesiredState(state); err != nil {
		return fmt.Errorf("publishing desired state: %w", err)
	}

	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	_, _ = fmt.Fprintf(stdout, "%s extension %q\n", verb, name)
	return nil
}
