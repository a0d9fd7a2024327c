// Package extension implements the extension lifecycle manager and its
// command-dispatch subsystem: activation and deactivation of discovered
// extensions against a persisted desired state, context-sensitive command
// queries over a live window-state snapshot, and command dispatch.
package extension

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/extraterm/extman/internal/config"
	"github.com/extraterm/extman/internal/manifest"
	"github.com/extraterm/extman/internal/registry"
	"github.com/extraterm/extman/internal/sharedstate"
	"github.com/extraterm/extman/internal/when"
)

// InternalCommandsExtensionName is the synthetic extension that carries the
// application's built-in commands. The dispatcher rewrites the reserved
// alias "extraterm" to this name.
const InternalCommandsExtensionName = "internal-commands"

// ActiveExtension is one currently running extension instance.
type ActiveExtension struct {
	metadata *manifest.ExtensionMetadata
	// instance is nil when the extension declares no entry point.
	instance *Instance
	// publicAPI is the opaque value returned by the module's activation.
	publicAPI any
	context   *Context
	// instanceID tags log records for this activation.
	instanceID string
}

// Name returns the extension's name.
func (ae *ActiveExtension) Name() string { return ae.metadata.Name }

// Metadata returns the extension's immutable descriptor.
func (ae *ActiveExtension) Metadata() *manifest.ExtensionMetadata { return ae.metadata }

// PublicAPI returns the opaque public API value the module's activation
// returned, or nil.
func (ae *ActiveExtension) PublicAPI() any { return ae.publicAPI }

// Context returns the extension's capability object.
func (ae *ActiveExtension) Context() *Context { return ae.context }

// Manager owns the extension lifecycle: it turns desired state into running
// extension instances, keeps the persisted configuration and the shared
// store consistent with the active set, and answers command queries and
// dispatches against the active set.
//
// All operations are synchronous and run to completion. Remote store
// callbacks arrive on the store's watcher goroutine, so every mutation of
// the active set, the desired state, and the window state is serialized
// behind mu. Desired-state-changed listeners are invoked outside the lock
// and may call back into the manager.
type Manager struct {
	registry   *registry.Registry
	store      sharedstate.Store
	cfg        *config.Config
	configPath string

	mu          sync.Mutex
	evaluator   *when.Evaluator
	windowState WindowState
	// substMu serializes window-state substitutions so two concurrent
	// queries cannot restore each other's temporary state.
	substMu sync.Mutex

	active  []*ActiveExtension
	desired map[string]bool

	desiredStateListeners []func()
}

// NewManager creates a Manager over a populated registry. configPath may be
// empty, in which case enable/disable skip persisting the user
// configuration (the in-memory config is still updated). The manager
// subscribes to the shared store so that remote enable/disable requests are
// answered by its own Enable/Disable.
func NewManager(reg *registry.Registry, store sharedstate.Store, cfg *config.Config, configPath string) *Manager {
	m := &Manager{
		registry:   reg,
		store:      store,
		cfg:        cfg,
		configPath: configPath,
		evaluator:  when.NewEvaluator(),
		desired:    make(map[string]bool),
	}

	store.OnEnableExtension(func(name string) { m.Enable(name) })
	store.OnDisableExtension(func(name string) { m.Disable(name) })

	return m
}

// StartUp computes the desired state and starts every extension whose
// desired value is true, in registry enumeration order. The desired state
// is the startByDefault policy for every known extension, overridden
// per-name by the persisted configuration; override names that do not
// exist in the registry are ignored. Finally the computed desired state
// and the extension metadata summaries are published to the shared store.
func (m *Manager) StartUp(startByDefault bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, meta := range m.registry.All() {
		m.desired[meta.Name] = startByDefault
	}
	for name, enabled := range m.cfg.ActiveExtensions {
		if m.registry.Lookup(name) == nil {
			slog.Warn("[ExtensionManager] ignoring configured desired state for unknown extension", "name", name)
			continue
		}
		m.desired[name] = enabled
	}

	for _, meta := range m.registry.All() {
		if m.desired[meta.Name] {
			m.start(meta)
		}
	}

	m.publishMetadata()
	m.publishDesiredState()
}

// StartInternal activates the synthetic internal-commands extension and
// returns its context so the host can register built-in commands on it.
// The internal extension has no module and does not participate in
// desired-state management.
func (m *Manager) StartInternal() *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ae := m.getActive(InternalCommandsExtensionName); ae != nil {
		return ae.context
	}
	meta := &manifest.ExtensionMetadata{
		Name:        InternalCommandsExtensionName,
		Description: "Built-in application commands",
	}
	ctx := newContext(meta)
	m.active = append(m.active, &ActiveExtension{
		metadata:   meta,
		context:    ctx,
		instanceID: uuid.NewString(),
	})
	return ctx
}

// start activates one extension: builds its context, loads its module when
// it declares an entry point, and invokes activation. Load and activation
// failures are non-fatal: they are logged, the context is disposed, no
// ActiveExtension is created, and nil is returned.
func (m *Manager) start(meta *manifest.ExtensionMetadata) *ActiveExtension {
	if existing := m.getActive(meta.Name); existing != nil {
		slog.Warn("[ExtensionManager] extension is already active", "name", meta.Name)
		return existing
	}

	instanceID := uuid.NewString()
	ctx := newContext(meta)

	var instance *Instance
	var publicAPI any

	if meta.Main != "" {
		var err error
		instance, err = loadInstance(meta)
		if err != nil {
			slog.Error("[ExtensionManager] failed to load extension module",
				"name", meta.Name, "instance", instanceID, "error", err)
			ctx.Dispose()
			return nil
		}

		publicAPI, err = instance.Activate(ctx)
		if err != nil {
			slog.Error("[ExtensionManager] extension activation failed",
				"name", meta.Name, "instance", instanceID, "error", err)
			ctx.Dispose()
			return nil
		}
	}

	ae := &ActiveExtension{
		metadata:   meta,
		instance:   instance,
		publicAPI:  publicAPI,
		context:    ctx,
		instanceID: instanceID,
	}
	m.active = append(m.active, ae)
	slog.Info("[ExtensionManager] started extension", "name", meta.Name, "instance", instanceID)
	return ae
}

// stop deactivates one running extension. The module's deactivate hook, if
// any, runs first and its failure is logged and swallowed; the context is
// always disposed afterwards and the entry removed from the active set.
func (m *Manager) stop(ae *ActiveExtension) {
	if ae.instance != nil {
		if err := ae.instance.Deactivate(true); err != nil {
			slog.Error("[ExtensionManager] extension deactivate hook failed",
				"name", ae.Name(), "instance", ae.instanceID, "error", err)
		}
	}

	ae.context.Dispose()

	for i, candidate := range m.active {
		if candidate == ae {
			m.active = append(m.active[:i], m.active[i+1:]...)
			break
		}
	}
	slog.Info("[ExtensionManager] stopped extension", "name", ae.Name(), "instance", ae.instanceID)
}

// Enable starts the named extension and records desired state true in the
// persisted configuration and the shared store, then raises the
// desired-state-changed notification exactly once. Unknown or already
// active names are a warned no-op.
func (m *Manager) Enable(name string) {
	m.mu.Lock()

	meta := m.registry.Lookup(name)
	if meta == nil {
		m.mu.Unlock()
		slog.Warn("[ExtensionManager] cannot enable unknown extension", "name", name)
		return
	}
	if m.getActive(name) != nil {
		m.mu.Unlock()
		slog.Warn("[ExtensionManager] extension is already enabled", "name", name)
		return
	}

	m.start(meta)
	m.setDesiredState(name, true)
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	notifyDesiredStateChanged(listeners)
}

// Disable stops the named extension and records desired state false in the
// persisted configuration and the shared store, then raises the
// desired-state-changed notification exactly once. Unknown or already
// inactive names are a warned no-op.
func (m *Manager) Disable(name string) {
	m.mu.Lock()

	ae := m.getActive(name)
	if ae == nil {
		m.mu.Unlock()
		slog.Warn("[ExtensionManager] cannot disable extension that is not active", "name", name)
		return
	}
	if name == InternalCommandsExtensionName {
		m.mu.Unlock()
		slog.Warn("[ExtensionManager] the internal commands extension cannot be disabled")
		return
	}

	m.stop(ae)
	m.setDesiredState(name, false)
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	notifyDesiredStateChanged(listeners)
}

// Shutdown stops every active extension in reverse activation order,
// running deactivate hooks and disposing contexts. Desired state is left
// untouched; the extensions are expected to run again next startup.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.active) - 1; i >= 0; i-- {
		m.stop(m.active[i])
	}
}

// setDesiredState records one extension's desired value in all three
// places that must agree: the in-process desired state, the persisted user
// configuration, and the shared store.
func (m *Manager) setDesiredState(name string, enabled bool) {
	m.desired[name] = enabled
	m.cfg.SetActiveExtension(name, enabled)

	if m.configPath != "" {
		if err := config.SetActiveExtensionInFile(m.configPath, name, enabled); err != nil {
			slog.Error("[ExtensionManager] failed to persist desired state",
				"name", name, "path", m.configPath, "error", err)
		}
	}

	m.publishDesiredState()
}

func (m *Manager) publishDesiredState() {
	state := make(map[string]bool, len(m.desired))
	for k, v := range m.desired {
		state[k] = v
	}
	if err := m.store.SetDesiredState(state); err != nil {
		slog.Error("[ExtensionManager] failed to publish desired state", "error", err)
	}
}

func (m *Manager) publishMetadata() {
	all := m.registry.All()
	infos := make([]sharedstate.ExtensionInfo, 0, len(all))
	for _, meta := range all {
		infos = append(infos, sharedstate.ExtensionInfo{
			Name:        meta.Name,
			Version:     meta.Version,
			Description: meta.Description,
			Path:        meta.Path,
		})
	}
	if err := m.store.SetExtensionMetadata(infos); err != nil {
		slog.Error("[ExtensionManager] failed to publish extension metadata", "error", err)
	}
}

// OnDesiredStateChanged registers a notification callback fired once per
// completed enable/disable. Callbacks run outside the manager's lock.
func (m *Manager) OnDesiredStateChanged(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.desiredStateListeners = append(m.desiredStateListeners, fn)
}

// snapshotListeners copies the listener slice; mu must be held.
func (m *Manager) snapshotListeners() []func() {
	return append([]func(){}, m.desiredStateListeners...)
}

func notifyDesiredStateChanged(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}

// DesiredState returns a copy of the in-process desired state.
func (m *Manager) DesiredState() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]bool, len(m.desired))
	for k, v := range m.desired {
		out[k] = v
	}
	return out
}

// ActiveExtensions returns the currently active extensions in activation
// order.
func (m *Manager) ActiveExtensions() []*ActiveExtension {
	return m.snapshotActive()
}

// snapshotActive copies the active set so queries and dispatch can iterate
// it without holding the lock across extension-supplied code.
func (m *Manager) snapshotActive() []*ActiveExtension {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ActiveExtension{}, m.active...)
}

// lookupActive is getActive behind the lock.
func (m *Manager) lookupActive(name string) *ActiveExtension {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getActive(name)
}

// IsActive reports whether the named extension is currently active.
func (m *Manager) IsActive(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getActive(name) != nil
}

func (m *Manager) getActive(name string) *ActiveExtension {
	for _, ae := range m.active {
		if ae.metadata.Name == name {
			return ae
		}
	}
	return nil
}

// SetActiveWindow records the currently focused window id ("" for none).
func (m *Manager) SetActiveWindow(windowID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowState.ActiveWindow = windowID
}

// SetActiveTerminal records the currently focused terminal id ("" for none).
func (m *Manager) SetActiveTerminal(terminalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowState.ActiveTerminal = terminalID
}

// SetHoveredURL records the hyperlink currently under the pointer ("" for none).
func (m *Manager) SetHoveredURL(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowState.HoveredURL = url
}

// CopyExtensionWindowState returns a copy of the current common window state.
func (m *Manager) CopyExtensionWindowState() WindowState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windowState
}

// withExtensionWindowState runs fn with the common window state temporarily
// substituted. fn runs without the manager lock so it may call back into
// the manager (customizers read "current" state this way). Substitutions
// are serialized behind substMu, and restoration is deferred so it happens
// on every exit path, including a panic inside fn; temporary substitution
// must never leak into subsequent queries.
func (m *Manager) withExtensionWindowState(state WindowState, fn func()) {
	m.substMu.Lock()
	defer m.substMu.Unlock()

	m.mu.Lock()
	saved := m.windowState
	m.windowState = state
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.windowState = saved
		m.mu.Unlock()
	}()
	fn()
}
