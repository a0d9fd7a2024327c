package extension

import (
	"log/slog"
	"sync"

	"github.com/extraterm/extman/internal/manifest"
)

// CommandHandler executes one command invocation. args carries the decoded
// JSON argument payload; it is never nil.
type CommandHandler func(args map[string]any) (any, error)

// CommandCustomization holds dynamic per-query overrides computed by a
// command customizer. Zero-value fields leave the declared contribution
// field unchanged.
type CommandCustomization struct {
	Title string
	Icon  string
}

// CommandCustomizer computes dynamic overrides for one command contribution
// at query time. It runs with the common window state substituted by the
// effective query context, so it may read "current" focus state even when
// the caller is querying a hypothetical context.
type CommandCustomizer func() CommandCustomization

// Context is the capability object handed to an extension on activation.
// The extension registers its command handlers and customizers through it;
// the lifecycle manager disposes it synchronously on deactivation. The
// context guards its own state because queries and dispatch read it
// concurrently with lifecycle-driven disposal.
type Context struct {
	metadata *manifest.ExtensionMetadata

	mu          sync.Mutex
	handlers    map[string]CommandHandler
	customizers map[string]CommandCustomizer
	// runtime holds contributions registered at runtime (internal commands
	// and other host-registered entries without a manifest declaration).
	runtime  []manifest.CommandContribution
	disposed bool
}

func newContext(meta *manifest.ExtensionMetadata) *Context {
	return &Context{
		metadata:    meta,
		handlers:    make(map[string]CommandHandler),
		customizers: make(map[string]CommandCustomizer),
	}
}

// ExtensionName returns the owning extension's name.
func (c *Context) ExtensionName() string {
	return c.metadata.Name
}

// ExtensionPath returns the owning extension's directory.
func (c *Context) ExtensionPath() string {
	return c.metadata.Path
}

// RegisterCommand registers the handler for a command declared in the
// extension's manifest. Registering a command id with no matching manifest
// contribution is permitted but logged: the handler is callable through
// the dispatcher, yet the command will not appear in any menu query.
func (c *Context) RegisterCommand(name string, handler CommandHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		slog.Warn("[ExtensionContext] RegisterCommand on disposed context", "extension", c.metadata.Name, "command", name)
		return
	}
	if !c.isDeclared(name) {
		slog.Warn("[ExtensionContext] command is not declared in the extension manifest",
			"extension", c.metadata.Name, "command", name)
	}
	c.handlers[name] = handler
}

// RegisterCommandContribution registers a contribution and its handler in
// one step, for commands that have no manifest declaration. Used by the
// host to populate the internal-commands extension.
func (c *Context) RegisterCommandContribution(contrib manifest.CommandContribution, handler CommandHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		slog.Warn("[ExtensionContext] RegisterCommandContribution on disposed context",
			"extension", c.metadata.Name, "command", contrib.Command)
		return
	}
	if c.isDeclared(contrib.Command) {
		slog.Warn("[ExtensionContext] contribution already declared, ignoring duplicate",
			"extension", c.metadata.Name, "command", contrib.Command)
		return
	}
	c.runtime = append(c.runtime, contrib)
	c.handlers[contrib.Command] = handler
}

// SetCommandCustomizer attaches a function customizer to one command.
func (c *Context) SetCommandCustomizer(name string, fn CommandCustomizer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		slog.Warn("[ExtensionContext] SetCommandCustomizer on disposed context", "extension", c.metadata.Name, "command", name)
		return
	}
	c.customizers[name] = fn
}

// Dispose tears the context down. Registered handlers, customizers, and
// runtime contributions are dropped; further registrations are rejected.
// Idempotent.
func (c *Context) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.handlers = make(map[string]CommandHandler)
	c.customizers = make(map[string]CommandCustomizer)
	c.runtime = nil
}

// Disposed reports whether Dispose has run.
func (c *Context) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// handler returns the registered handler for the bare command id, or nil.
func (c *Context) handler(name string) CommandHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers[name]
}

// customizer returns the registered customizer for the bare command id, or nil.
func (c *Context) customizer(name string) CommandCustomizer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customizers[name]
}

// contributions enumerates the extension's manifest-declared contributions
// followed by its runtime-registered ones, in registration order. A disposed
// context contributes nothing.
func (c *Context) contributions() []manifest.CommandContribution {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil
	}
	if len(c.runtime) == 0 {
		return c.metadata.Contributes.Commands
	}
	out := make([]manifest.CommandContribution, 0, len(c.metadata.Contributes.Commands)+len(c.runtime))
	out = append(out, c.metadata.Contributes.Commands...)
	out = append(out, c.runtime...)
	return out
}

// isDeclared reports whether the command id has a contribution. mu must be
// held.
func (c *Context) isDeclared(name string) bool {
	for _, contrib := range c.metadata.Contributes.Commands {
		if contrib.Command == name {
			return true
		}
	}
	for _, contrib := range c.runtime {
		if contrib.Command == name {
			return true
		}
	}
	return false
}
