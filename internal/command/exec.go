package command

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/extraterm/extman/internal/config"
)

// ExecCommand starts the active extensions and dispatches one command
// string against them.
type ExecCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string

	argsJSON string
}

// NewExecCommand creates a new exec command.
func NewExecCommand(cfg *config.Config, configPath string) *ExecCommand {
	return &ExecCommand{
		BaseCommand: NewBaseCommand(
			"exec",
			"Execute an extension command",
			"exec [options] <extension:command[?urlencoded-json-args]>",
		),
		config:     cfg,
		configPath: configPath,
	}
}

// SetupFlags configures the exec flags.
func (c *ExecCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.argsJSON, "args", "", "JSON object of command arguments (overrides any args in the command string)")
}

// Execute dispatches the command string and prints the JSON result.
func (c *ExecCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one command string")
	}

	var explicitArgs map[string]any
	if c.argsJSON != "" {
		if err := json.Unmarshal([]byte(c.argsJSON), &explicitArgs); err != nil {
			return fmt.Errorf("parsing -args: %w", err)
		}
	}

	host, err := OpenHost(c.config, c.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = host.Close() }()

	result, err := host.Manager.ExecuteCommand(args[0], explicitArgs)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, _ = fmt.Fprintln(stdout, string(encoded))
	return nil
}
