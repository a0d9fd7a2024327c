package command

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/extraterm/extman/internal/config"
	"github.com/extraterm/extman/internal/extension"
	"github.com/extraterm/extman/internal/manifest"
)

// CommandsCommand starts the active extensions and prints their command
// contributions for a chosen surface, optionally against a simulated window
// state.
type CommandsCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string

	palette     bool
	contextMenu bool
	newTerminal bool
	terminalTab bool
	windowMenu  bool
	categories  string
	when        bool

	activeWindow   string
	activeTerminal string
	hoveredURL     string
}

// NewCommandsCommand creates a new commands command.
func NewCommandsCommand(cfg *config.Config, configPath string) *CommandsCommand {
	return &CommandsCommand{
		BaseCommand: NewBaseCommand(
			"commands",
			"Query command contributions of the active extensions",
			"commands [options]",
		),
		config:     cfg,
		configPath: configPath,
	}
}

// SetupFlags configures the query flags.
func (c *CommandsCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.palette, "palette", false, "only commands shown in the command palette")
	fs.BoolVar(&c.contextMenu, "context-menu", false, "only commands shown in the context menu")
	fs.BoolVar(&c.newTerminal, "new-terminal", false, "only commands shown in the new terminal menu")
	fs.BoolVar(&c.terminalTab, "terminal-tab", false, "only commands shown in the terminal tab menu")
	fs.BoolVar(&c.windowMenu, "window-menu", false, "only commands shown in the window menu")
	fs.StringVar(&c.categories, "categories", "", "comma-separated category filter")
	fs.BoolVar(&c.when, "when", false, "evaluate each command's when condition")
	fs.StringVar(&c.activeWindow, "active-window", "", "simulate a focused window id")
	fs.StringVar(&c.activeTerminal, "active-terminal", "", "simulate a focused terminal id")
	fs.StringVar(&c.hoveredURL, "hovered-url", "", "simulate a hovered hyperlink")
}

// Execute runs the query and prints the matching commands.
func (c *CommandsCommand) Execute(args []string, stdout, stderr io.Writer) error {
	host, err := OpenHost(c.config, c.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = host.Close() }()

	opts := extension.CommandQueryOptions{When: c.when}
	if c.palette {
		opts.CommandPalette = extension.Flag(true)
	}
	if c.contextMenu {
		opts.ContextMenu = extension.Flag(true)
	}
	if c.newTerminal {
		opts.NewTerminalMenu = extension.Flag(true)
	}
	if c.terminalTab {
		opts.TerminalTabMenu = extension.Flag(true)
	}
	if c.windowMenu {
		opts.WindowMenu = extension.Flag(true)
	}
	if c.categories != "" {
		for _, raw := range strings.Split(c.categories, ",") {
			opts.Categories = append(opts.Categories, manifest.Category(strings.TrimSpace(raw)))
		}
	}

	state := extension.WindowState{
		ActiveWindow:   c.activeWindow,
		ActiveTerminal: c.activeTerminal,
		HoveredURL:     c.hoveredURL,
	}

	results := host.Manager.QueryCommandsWithExtensionWindowState(opts, state)
	if len(results) == 0 {
		_, _ = fmt.Fprintln(stdout, "No matching commands.")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMMAND\tTITLE\tCATEGORY\tORDER")
	for _, qc := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", qc.Command, qc.Title, qc.Category, qc.Order)
	}
	return w.Flush()
}
