package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/extraterm/extman/internal/command"
	"github.com/extraterm/extman/internal/config"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		configPath = ""
	}

	cfg, err := config.Load()
	if err != nil {
		// If the config can't be read, start from an empty one.
		cfg = config.NewConfig()
	}

	registry := command.NewRegistry()

	helpCmd := command.NewHelpCommand(registry)
	registry.Register(helpCmd)
	registry.Register(command.NewVersionCommand(version))
	registry.Register(command.NewInitCommand())
	registry.Register(command.NewConfigCommand(cfg, configPath))
	registry.Register(command.NewListCommand(cfg))
	registry.Register(command.NewEnableCommand(cfg, configPath))
	registry.Register(command.NewDisableCommand(cfg, configPath))
	registry.Register(command.NewCommandsCommand(cfg, configPath))
	registry.Register(command.NewExecCommand(cfg, configPath))

	if len(os.Args) < 2 {
		return helpCmd.Execute([]string{}, os.Stdout, os.Stderr)
	}

	cmdName := os.Args[1]
	if cmdName == "-h" || cmdName == "--help" {
		return helpCmd.Execute([]string{}, os.Stdout, os.Stderr)
	}

	cmd, err := registry.Get(cmdName)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmdName)
		_, _ = fmt.Fprintln(os.Stderr, "Use 'extman help' to see available commands.")
		return err
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ExitOnError)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s\n", cmd.Usage())
		_, _ = fmt.Fprintf(os.Stderr, "\n%s\n\n", cmd.Description())
		_, _ = fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
	}

	cmd.SetupFlags(fs)

	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	return cmd.Execute(fs.Args(), os.Stdout, os.Stderr)
}
