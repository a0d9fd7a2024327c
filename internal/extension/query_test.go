package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extraterm/extman/internal/manifest"
)

func commandNames(results []QueriedCommand) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Command
	}
	return names
}

func TestQuerySortOrder(t *testing.T) {
	ext := newMeta("sorter",
		manifest.CommandContribution{Command: "zwin", Title: "Zeta", Category: manifest.CategoryWindow, Order: 500, CommandPalette: true},
		manifest.CommandContribution{Command: "awin", Title: "Alpha", Category: manifest.CategoryWindow, Order: 500, CommandPalette: true},
		manifest.CommandContribution{Command: "late", Title: "Late", Category: manifest.CategoryWindow, Order: 900, CommandPalette: true},
		manifest.CommandContribution{Command: "term", Title: "Term", Category: manifest.CategoryTerminal, Order: 2000, CommandPalette: true},
		manifest.CommandContribution{Command: "link", Title: "Link", Category: manifest.CategoryHyperlink, Order: 3000, CommandPalette: true},
	)

	m, _ := newTestManager(t, ext)
	m.StartUp(true)

	results := m.QueryCommands(CommandQueryOptions{CommandPalette: Flag(true)})
	// Category order dominates numeric order, which dominates title.
	assert.Equal(t, []string{
		"sorter:link",
		"sorter:term",
		"sorter:awin",
		"sorter:zwin",
		"sorter:late",
	}, commandNames(results))
}

func TestQuerySortIsStable(t *testing.T) {
	first := newMeta("first",
		manifest.CommandContribution{Command: "one", Title: "Same", Category: manifest.CategoryWindow, Order: 500, CommandPalette: true},
	)
	second := newMeta("second",
		manifest.CommandContribution{Command: "two", Title: "Same", Category: manifest.CategoryWindow, Order: 500, CommandPalette: true},
	)

	m, _ := newTestManager(t, first, second)
	m.StartUp(true)

	// Fully tied sort keys preserve enumeration order.
	results := m.QueryCommands(CommandQueryOptions{CommandPalette: Flag(true)})
	assert.Equal(t, []string{"first:one", "second:two"}, commandNames(results))
}

func TestQueryFlagPredicatesAreConjunctive(t *testing.T) {
	ext := newMeta("flags",
		manifest.CommandContribution{Command: "both", Title: "Both", Category: manifest.CategoryWindow, Order: 1, CommandPalette: true, ContextMenu: true},
		manifest.CommandContribution{Command: "palette", Title: "Palette", Category: manifest.CategoryWindow, Order: 2, CommandPalette: true},
		manifest.CommandContribution{Command: "menu", Title: "Menu", Category: manifest.CategoryWindow, Order: 3, ContextMenu: true},
	)

	m, _ := newTestManager(t, ext)
	m.StartUp(true)

	// Both predicates must hold.
	results := m.QueryCommands(CommandQueryOptions{CommandPalette: Flag(true), ContextMenu: Flag(true)})
	assert.Equal(t, []string{"flags:both"}, commandNames(results))

	// A false predicate matches only contributions with the flag unset.
	results = m.QueryCommands(CommandQueryOptions{CommandPalette: Flag(true), ContextMenu: Flag(false)})
	assert.Equal(t, []string{"flags:palette"}, commandNames(results))

	// Nil predicates match everything.
	results = m.QueryCommands(CommandQueryOptions{})
	assert.Len(t, results, 3)
}

func TestQueryCategoryAndCommandFilters(t *testing.T) {
	ext := newMeta("filt",
		manifest.CommandContribution{Command: "t1", Title: "T1", Category: manifest.CategoryTerminal, Order: 1, CommandPalette: true},
		manifest.CommandContribution{Command: "w1", Title: "W1", Category: manifest.CategoryWindow, Order: 1, CommandPalette: true},
		manifest.CommandContribution{Command: "g1", Title: "G1", Category: manifest.CategoryGlobal, Order: 1, CommandPalette: true},
	)

	m, _ := newTestManager(t, ext)
	m.StartUp(true)

	results := m.QueryCommands(CommandQueryOptions{
		Categories: []manifest.Category{manifest.CategoryTerminal, manifest.CategoryGlobal},
	})
	assert.Equal(t, []string{"filt:t1", "filt:g1"}, commandNames(results))

	results = m.QueryCommands(CommandQueryOptions{Commands: []string{"filt:w1"}})
	assert.Equal(t, []string{"filt:w1"}, commandNames(results))

	results = m.QueryCommands(CommandQueryOptions{Commands: []string{"filt:nothere"}})
	assert.Empty(t, results)
}

func TestQueryWhenConditions(t *testing.T) {
	ext := newMeta("whens",
		manifest.CommandContribution{Command: "always", Title: "Always", Category: manifest.CategoryWindow, Order: 1, CommandPalette: true},
		manifest.CommandContribution{Command: "terminal", Title: "Terminal", Category: manifest.CategoryWindow, Order: 2, CommandPalette: true, When: "terminalFocus"},
		manifest.CommandContribution{Command: "image", Title: "Image", Category: manifest.CategoryWindow, Order: 3, CommandPalette: true, When: `hyperlinkFileExtension == "png"`},
		manifest.CommandContribution{Command: "broken", Title: "Broken", Category: manifest.CategoryWindow, Order: 4, CommandPalette: true, When: "this is not (("},
	)

	m, _ := newTestManager(t, ext)
	m.StartUp(true)

	// Nothing focused: only the unconditional command passes. The broken
	// condition evaluates to false rather than failing the query.
	results := m.QueryCommands(CommandQueryOptions{When: true})
	assert.Equal(t, []string{"whens:always"}, commandNames(results))

	m.SetActiveTerminal("t1")
	m.SetHoveredURL("https://example.com/pic.png")
	results = m.QueryCommands(CommandQueryOptions{When: true})
	assert.Equal(t, []string{"whens:always", "whens:terminal", "whens:image"}, commandNames(results))

	// When evaluation disabled, conditions are ignored entirely.
	results = m.QueryCommands(CommandQueryOptions{})
	assert.Len(t, results, 4)
}

func TestQueryWithSubstituteWindowState(t *testing.T) {
	ext := newMeta("sub",
		manifest.CommandContribution{Command: "focus", Title: "Focus", Category: manifest.CategoryWindow, Order: 1, CommandPalette: true, When: "windowFocus"},
	)

	m, _ := newTestManager(t, ext)
	m.StartUp(true)

	// Live state has no focused window.
	assert.Empty(t, m.QueryCommands(CommandQueryOptions{When: true}))

	results := m.QueryCommandsWithExtensionWindowState(
		CommandQueryOptions{When: true},
		WindowState{ActiveWindow: "w9"},
	)
	assert.Equal(t, []string{"sub:focus"}, commandNames(results))

	// The substitution must not leak into the live state.
	assert.Empty(t, m.CopyExtensionWindowState().ActiveWindow)
	assert.Empty(t, m.QueryCommands(CommandQueryOptions{When: true}))
}

func TestQueryCustomizerOverridesAndRestores(t *testing.T) {
	ext := newMeta("custom",
		manifest.CommandContribution{Command: "dyn", Title: "Static Title", Icon: "static-icon", Category: manifest.CategoryWindow, Order: 1, CommandPalette: true},
	)

	m, _ := newTestManager(t, ext)
	m.StartUp(true)

	var observed WindowState
	active := m.ActiveExtensions()
	require.Len(t, active, 1)
	active[0].Context().SetCommandCustomizer("dyn", func() CommandCustomization {
		// The customizer sees the query's effective window state.
		observed = m.CopyExtensionWindowState()
		return CommandCustomization{Title: "Dynamic Title"}
	})

	results := m.QueryCommandsWithExtensionWindowState(
		CommandQueryOptions{},
		WindowState{ActiveTerminal: "t7"},
	)
	require.Len(t, results, 1)
	assert.Equal(t, "Dynamic Title", results[0].Title)
	// An empty override field leaves the declared value untouched.
	assert.Equal(t, "static-icon", results[0].Icon)
	assert.Equal(t, "t7", observed.ActiveTerminal)

	// The substituted state was restored after the customizer ran.
	assert.Empty(t, m.CopyExtensionWindowState().ActiveTerminal)
}

func TestQueryCustomizerPanicIsContained(t *testing.T) {
	ext := newMeta("panicky",
		manifest.CommandContribution{Command: "dyn", Title: "Declared", Category: manifest.CategoryWindow, Order: 1, CommandPalette: true},
	)

	m, _ := newTestManager(t, ext)
	m.StartUp(true)
	m.SetActiveWindow("w1")

	m.ActiveExtensions()[0].Context().SetCommandCustomizer("dyn", func() CommandCustomization {
		panic("customizer exploded")
	})

	results := m.QueryCommandsWithExtensionWindowState(CommandQueryOptions{}, WindowState{})
	require.Len(t, results, 1)
	assert.Equal(t, "Declared", results[0].Title)

	// Restoration happens even when the customizer panics.
	assert.Equal(t, "w1", m.CopyExtensionWindowState().ActiveWindow)
}

func TestHasCommand(t *testing.T) {
	ext := newMeta("haz", paletteCommand("yes", "Yes"))

	m, _ := newTestManager(t, ext)
	m.StartUp(true)

	assert.True(t, m.HasCommand("haz:yes"))
	assert.False(t, m.HasCommand("haz:no"))
	assert.False(t, m.HasCommand("other:yes"))
}

func TestHasCommandNeverRunsCustomizer(t *testing.T) {
	ext := newMeta("quiet", paletteCommand("cmd", "Cmd"))

	m, _ := newTestManager(t, ext)
	m.StartUp(true)

	calls := 0
	m.ActiveExtensions()[0].Context().SetCommandCustomizer("cmd", func() CommandCustomization {
		calls++
		return CommandCustomization{}
	})

	assert.True(t, m.HasCommand("quiet:cmd"))
	assert.False(t, m.HasCommand("quiet:other"))
	assert.Zero(t, calls, "existence checks must not run customizers")
}
