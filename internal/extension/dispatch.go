package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

var (
	// ErrMalformedCommand reports a command string without an
	// "extension:command" shape or with an undecodable argument suffix.
	ErrMalformedCommand = errors.New("malformed command string")
	// ErrUnknownExtension reports a command addressed to an extension that
	// is not currently active.
	ErrUnknownExtension = errors.New("unknown extension")
	// ErrUnknownCommand reports a command id with no registered handler on
	// an active extension.
	ErrUnknownCommand = errors.New("unknown command")
)

// internalCommandsAlias is accepted in command strings in place of the
// internal-commands extension name.
const internalCommandsAlias = "extraterm"

// CommandInvocation is one parsed command string.
type CommandInvocation struct {
	// ExtensionName is the target extension, with the reserved alias
	// already rewritten to the internal-commands name.
	ExtensionName string
	// CommandName is the bare command id within the extension.
	CommandName string
	// Args is the decoded argument payload from the command string suffix,
	// or nil when the string carried none.
	Args map[string]any
}

// ParseCommandString decodes a command string of the form
// "extension:command" with an optional "?<urlencoded JSON object>" suffix
// carrying arguments.
func ParseCommandString(commandString string) (CommandInvocation, error) {
	var inv CommandInvocation

	base, rawArgs, hasArgs := strings.Cut(commandString, "?")

	extensionName, commandName, ok := strings.Cut(base, ":")
	if !ok || extensionName == "" || commandName == "" {
		return inv, fmt.Errorf("%w: %q", ErrMalformedCommand, commandString)
	}
	if extensionName == internalCommandsAlias {
		extensionName = InternalCommandsExtensionName
	}

	inv.ExtensionName = extensionName
	inv.CommandName = commandName

	if hasArgs {
		decoded, err := url.QueryUnescape(rawArgs)
		if err != nil {
			return inv, fmt.Errorf("%w: bad argument encoding in %q: %v", ErrMalformedCommand, commandString, err)
		}
		args := make(map[string]any)
		if err := json.Unmarshal([]byte(decoded), &args); err != nil {
			return inv, fmt.Errorf("%w: bad argument payload in %q: %v", ErrMalformedCommand, commandString, err)
		}
		inv.Args = args
	}

	return inv, nil
}

// ExecuteCommand parses and dispatches a command string against the active
// extensions. An explicit args map takes precedence over any argument
// suffix in the command string. Handler errors and panics are returned to
// the caller; they never take down the host.
func (m *Manager) ExecuteCommand(commandString string, args map[string]any) (any, error) {
	inv, err := ParseCommandString(commandString)
	if err != nil {
		return nil, err
	}
	if args != nil {
		inv.Args = args
	}
	if inv.Args == nil {
		inv.Args = map[string]any{}
	}

	ae := m.lookupActive(inv.ExtensionName)
	if ae == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, inv.ExtensionName)
	}

	handler := ae.context.handler(inv.CommandName)
	if handler == nil {
		return nil, fmt.Errorf("%w: %q has no command %q", ErrUnknownCommand, inv.ExtensionName, inv.CommandName)
	}

	slog.Debug("[ExtensionManager] executing command",
		"extension", inv.ExtensionName, "command", inv.CommandName)

	return runHandler(handler, inv)
}

// runHandler isolates a handler call so a panicking handler surfaces as an
// error rather than crashing the host.
func runHandler(handler CommandHandler, inv CommandInvocation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s:%s panicked: %v", inv.ExtensionName, inv.CommandName, r)
		}
	}()
	result, err = handler(inv.Args)
	if err != nil {
		return nil, fmt.Errorf("command %s:%s failed: %w", inv.ExtensionName, inv.CommandName, err)
	}
	return result, nil
}
