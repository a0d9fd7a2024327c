package command

import (
	"fmt"
	"strings"

	"github.com/extraterm/extman/internal/config"
	"github.com/extraterm/extman/internal/extension"
	"github.com/extraterm/extman/internal/registry"
	"github.com/extraterm/extman/internal/sharedstate"
)

// Host bundles the configured extension manager and its collaborators for
// the lifecycle of one CLI invocation.
type Host struct {
	Config     *config.Config
	ConfigPath string
	Registry   *registry.Registry
	Store      sharedstate.Store
	Manager    *extension.Manager
}

// OpenHost scans the configured extension paths, opens the shared state
// store, and starts the extension manager. Extensions start by default
// unless the global "start-by-default" option says otherwise.
func OpenHost(cfg *config.Config, configPath string) (*Host, error) {
	reg := registry.New()
	reg.Scan(cfg.ExtensionPaths())

	store, err := sharedstate.NewFileStore()
	if err != nil {
		return nil, fmt.Errorf("opening shared state store: %w", err)
	}

	mgr := extension.NewManager(reg, store, cfg, configPath)
	mgr.StartUp(startByDefault(cfg))

	return &Host{
		Config:     cfg,
		ConfigPath: configPath,
		Registry:   reg,
		Store:      store,
		Manager:    mgr,
	}, nil
}

// Close stops the active extensions and releases the shared state store.
func (h *Host) Close() error {
	h.Manager.Shutdown()
	return h.Store.Close()
}

func startByDefault(cfg *config.Config) bool {
	raw, ok := cfg.GetGlobalOption("start-by-default")
	if !ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "false", "0", "no", "off":
		return false
	default:
		return true
	}
}
