package extension

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/extraterm/extman/internal/manifest"
)

// CommandQueryOptions selects command contributions from the active
// extensions. All set predicates must hold for a contribution to match.
// A nil flag pointer means "don't care"; a set pointer requires the
// contribution's flag to equal the pointed-to value.
type CommandQueryOptions struct {
	CommandPalette  *bool
	ContextMenu     *bool
	NewTerminalMenu *bool
	TerminalTabMenu *bool
	WindowMenu      *bool

	// Categories restricts matches to these categories. Empty means all.
	Categories []manifest.Category
	// Commands restricts matches to these fully qualified command ids.
	// Empty means all.
	Commands []string
	// When enables evaluation of each contribution's when condition against
	// the effective window state. Contributions whose condition is false are
	// dropped. When false, when conditions are ignored.
	When bool
}

// Flag returns a *bool for building query options inline.
func Flag(v bool) *bool { return &v }

// QueriedCommand is one command contribution as seen by a menu or palette,
// with any customizer overrides already applied.
type QueriedCommand struct {
	// Extension is the contributing extension's name.
	Extension string
	// Command is the fully qualified id, "extension:command".
	Command  string
	Title    string
	Icon     string
	Category manifest.Category
	Order    int
}

// QueryCommands returns the matching command contributions of all active
// extensions, evaluated against the current window state, sorted by
// category order, then numeric order, then title.
func (m *Manager) QueryCommands(opts CommandQueryOptions) []QueriedCommand {
	return m.queryCommands(opts, m.CopyExtensionWindowState())
}

// QueryCommandsWithExtensionWindowState is QueryCommands evaluated against
// a caller-supplied window state instead of the live one. The live state is
// substituted only for the duration of the query.
func (m *Manager) QueryCommandsWithExtensionWindowState(opts CommandQueryOptions, state WindowState) []QueriedCommand {
	return m.queryCommands(opts, state)
}

func (m *Manager) queryCommands(opts CommandQueryOptions, state WindowState) []QueriedCommand {
	vars := whenVariables(state)

	var results []QueriedCommand
	for _, ae := range m.snapshotActive() {
		for _, contrib := range ae.context.contributions() {
			if !matchesFlags(opts, contrib) {
				continue
			}
			fullCommand := ae.metadata.Name + ":" + contrib.Command
			if !matchesLists(opts, fullCommand, contrib.Category) {
				continue
			}
			if opts.When && !m.evaluator.Evaluate(contrib.When, vars) {
				continue
			}

			qc := QueriedCommand{
				Extension: ae.metadata.Name,
				Command:   fullCommand,
				Title:     contrib.Title,
				Icon:      contrib.Icon,
				Category:  contrib.Category,
				Order:     contrib.Order,
			}
			m.applyCustomizer(ae, contrib.Command, state, &qc)
			results = append(results, qc)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		ci, cj := manifest.CategoryIndex(results[i].Category), manifest.CategoryIndex(results[j].Category)
		if ci != cj {
			return ci < cj
		}
		if results[i].Order != results[j].Order {
			return results[i].Order < results[j].Order
		}
		return results[i].Title < results[j].Title
	})

	return results
}

// applyCustomizer runs the command's customizer, if any, with the common
// window state substituted by the query's effective state so the customizer
// observes the same context the query is evaluated against.
func (m *Manager) applyCustomizer(ae *ActiveExtension, command string, state WindowState, qc *QueriedCommand) {
	customizer := ae.context.customizer(command)
	if customizer == nil {
		return
	}

	m.withExtensionWindowState(state, func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("[ExtensionManager] command customizer panicked",
					"extension", ae.metadata.Name, "command", command, "panic", r)
			}
		}()
		custom := customizer()
		if custom.Title != "" {
			qc.Title = custom.Title
		}
		if custom.Icon != "" {
			qc.Icon = custom.Icon
		}
	})
}

// HasCommand reports whether the fully qualified command id resolves to a
// declared contribution of an active extension. This is a pure existence
// check: customizers are never invoked.
func (m *Manager) HasCommand(fullCommand string) bool {
	extensionName, commandName, ok := strings.Cut(fullCommand, ":")
	if !ok {
		return false
	}
	ae := m.lookupActive(extensionName)
	if ae == nil {
		return false
	}
	for _, contrib := range ae.context.contributions() {
		if contrib.Command == commandName {
			return true
		}
	}
	return false
}

func matchesFlags(opts CommandQueryOptions, contrib manifest.CommandContribution) bool {
	checks := []struct {
		want *bool
		got  bool
	}{
		{opts.CommandPalette, contrib.CommandPalette},
		{opts.ContextMenu, contrib.ContextMenu},
		{opts.NewTerminalMenu, contrib.NewTerminal},
		{opts.TerminalTabMenu, contrib.TerminalTab},
		{opts.WindowMenu, contrib.WindowMenu},
	}
	for _, check := range checks {
		if check.want != nil && check.got != *check.want {
			return false
		}
	}
	return true
}

func matchesLists(opts CommandQueryOptions, fullCommand string, category manifest.Category) bool {
	if len(opts.Categories) > 0 {
		found := false
		for _, c := range opts.Categories {
			if c == category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(opts.Commands) > 0 {
		found := false
		for _, c := range opts.Commands {
			if c == fullCommand {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
