// Package manifest parses extension package descriptors (package.json files)
// into validated, immutable metadata records.
package manifest

import (
	"encoding/json"
	"fmt"
)

// FileName is the manifest file every extension directory must contain.
const FileName = "package.json"

// Category classifies a command contribution. The set is closed; the
// declaration order below is also the canonical sort order for queries.
type Category string

const (
	CategoryHyperlink   Category = "hyperlink"
	CategoryTerminal    Category = "terminal"
	CategoryViewer      Category = "viewer"
	CategoryWindow      Category = "window"
	CategoryApplication Category = "application"
	CategoryGlobal      Category = "global"
)

// categoryOrder is the fixed category sort order used by command queries.
var categoryOrder = []Category{
	CategoryHyperlink,
	CategoryTerminal,
	CategoryViewer,
	CategoryWindow,
	CategoryApplication,
	CategoryGlobal,
}

// CategoryIndex returns the position of the category in the fixed sort
// order. Unknown categories sort last.
func CategoryIndex(c Category) int {
	for i, cat := range categoryOrder {
		if cat == c {
			return i
		}
	}
	return len(categoryOrder)
}

func validCategory(c Category) bool {
	return CategoryIndex(c) < len(categoryOrder)
}

// ExtensionMetadata is the immutable descriptor of one discovered extension.
// Created at scan time and never mutated afterwards.
type ExtensionMetadata struct {
	Name        string
	Path        string
	Main        string
	Version     string
	Description string
	Contributes Contributions
}

// Contributions holds everything an extension declares in its manifest.
type Contributions struct {
	Commands []CommandContribution
}

// CommandContribution is one declared command plus its menu placement
// flags, category, ordering hint, and optional "when" condition.
type CommandContribution struct {
	Command        string
	Title          string
	Category       Category
	Order          int
	Icon           string
	When           string
	CommandPalette bool
	ContextMenu    bool
	NewTerminal    bool
	TerminalTab    bool
	WindowMenu     bool
}

// DefaultOrder is the ordering hint applied when a contribution omits one.
const DefaultOrder = 1000

// rawManifest mirrors the on-disk JSON. Booleans are pointers so that
// omitted fields can be distinguished from explicit false and given the
// documented defaults.
type rawManifest struct {
	Name        string         `json:"name"`
	Main        string         `json:"main"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Contributes rawContributes `json:"contributes"`
}

type rawContributes struct {
	Commands []rawCommand `json:"commands"`
}

type rawCommand struct {
	Command        string `json:"command"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	Order          *int   `json:"order"`
	Icon           string `json:"icon"`
	When           string `json:"when"`
	CommandPalette *bool  `json:"commandPalette"`
	ContextMenu    *bool  `json:"contextMenu"`
	NewTerminal    *bool  `json:"newTerminal"`
	TerminalTab    *bool  `json:"terminalTab"`
	WindowMenu     *bool  `json:"windowMenu"`
}

// Parse parses and validates manifest text for the extension rooted at
// extensionPath. It returns an error for malformed JSON, a missing name,
// or an invalid command contribution; the caller treats any error as a
// non-fatal per-extension discovery failure.
func Parse(manifestText []byte, extensionPath string) (*ExtensionMetadata, error) {
	var raw rawManifest
	if err := json.Unmarshal(manifestText, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	if raw.Name == "" {
		return nil, fmt.Errorf("manifest is missing required field \"name\"")
	}

	meta := &ExtensionMetadata{
		Name:        raw.Name,
		Path:        extensionPath,
		Main:        raw.Main,
		Version:     raw.Version,
		Description: raw.Description,
	}

	for i, rc := range raw.Contributes.Commands {
		cmd, err := parseCommand(rc)
		if err != nil {
			return nil, fmt.Errorf("contributes.commands[%d]: %w", i, err)
		}
		meta.Contributes.Commands = append(meta.Contributes.Commands, cmd)
	}

	return meta, nil
}

func parseCommand(rc rawCommand) (CommandContribution, error) {
	if rc.Command == "" {
		return CommandContribution{}, fmt.Errorf("missing required field \"command\"")
	}
	if rc.Title == "" {
		return CommandContribution{}, fmt.Errorf("command %q is missing required field \"title\"", rc.Command)
	}

	category := CategoryWindow
	if rc.Category != "" {
		category = Category(rc.Category)
		if !validCategory(category) {
			return CommandContribution{}, fmt.Errorf("command %q has unknown category %q", rc.Command, rc.Category)
		}
	}

	order := DefaultOrder
	if rc.Order != nil {
		order = *rc.Order
	}

	return CommandContribution{
		Command:        rc.Command,
		Title:          rc.Title,
		Category:       category,
		Order:          order,
		Icon:           rc.Icon,
		When:           rc.When,
		CommandPalette: boolOrDefault(rc.CommandPalette, true),
		ContextMenu:    boolOrDefault(rc.ContextMenu, false),
		NewTerminal:    boolOrDefault(rc.NewTerminal, false),
		TerminalTab:    boolOrDefault(rc.TerminalTab, false),
		WindowMenu:     boolOrDefault(rc.WindowMenu, false),
	}, nil
}

func boolOrDefault(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
