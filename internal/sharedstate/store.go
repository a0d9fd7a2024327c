// Package sharedstate synchronizes extension desired-state across processes.
// The lifecycle manager publishes its computed desired state here and
// subscribes to enable/disable requests originating in other processes.
package sharedstate

// ExtensionInfo is the cross-process summary of one discovered extension.
type ExtensionInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// Store is the desired-state synchronization collaborator. Implementations
// guarantee their own cross-process consistency; callers never need extra
// locking around individual calls.
type Store interface {
	// GetExtensionMetadata returns the last published extension summaries.
	GetExtensionMetadata() []ExtensionInfo
	// SetExtensionMetadata publishes the discovered extension summaries.
	SetExtensionMetadata(infos []ExtensionInfo) error

	// GetDesiredState returns the shared extensionName -> shouldRun mapping.
	GetDesiredState() map[string]bool
	// SetDesiredState publishes the local desired state.
	SetDesiredState(state map[string]bool) error

	// OnEnableExtension registers a callback fired when a remote process
	// flips an extension's desired state to true.
	OnEnableExtension(fn func(name string))
	// OnDisableExtension registers a callback fired when a remote process
	// flips an extension's desired state to false.
	OnDisableExtension(fn func(name string))

	// Close releases any watch or lock resources held by the store.
	Close() error
}

func copyDesiredState(state map[string]bool) map[string]bool {
	out := make(map[string]bool, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
