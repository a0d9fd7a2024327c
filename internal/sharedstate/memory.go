package sharedstate

import "sync"

// MemoryStore is an in-process Store implementation. It backs tests and
// single-process deployments where no cross-process agreement is needed.
type MemoryStore struct {
	mu        sync.Mutex
	metadata  []ExtensionInfo
	desired   map[string]bool
	onEnable  []func(string)
	onDisable []func(string)
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{desired: make(map[string]bool)}
}

// GetExtensionMetadata returns the last published extension summaries.
func (s *MemoryStore) GetExtensionMetadata() []ExtensionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ExtensionInfo, len(s.metadata))
	copy(out, s.metadata)
	return out
}

// SetExtensionMetadata publishes the discovered extension summaries.
func (s *MemoryStore) SetExtensionMetadata(infos []ExtensionInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = make([]ExtensionInfo, len(infos))
	copy(s.metadata, infos)
	return nil
}

// GetDesiredState returns a copy of the shared desired state.
func (s *MemoryStore) GetDesiredState() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDesiredState(s.desired)
}

// SetDesiredState publishes the local desired state. Local publication
// never fires the store's own subscription callbacks.
func (s *MemoryStore) SetDesiredState(state map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desired = copyDesiredState(state)
	return nil
}

// OnEnableExtension registers a remote-enable callback.
func (s *MemoryStore) OnEnableExtension(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnable = append(s.onEnable, fn)
}

// OnDisableExtension registers a remote-disable callback.
func (s *MemoryStore) OnDisableExtension(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisable = append(s.onDisable, fn)
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error { return nil }

// RemoteEnable simulates another process requesting that the named
// extension be enabled. Intended for tests.
func (s *MemoryStore) RemoteEnable(name string) {
	s.mu.Lock()
	s.desired[name] = true
	callbacks := append([]func(string){}, s.onEnable...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(name)
	}
}

// RemoteDisable simulates another process requesting that the named
// extension be disabled. Intended for tests.
func (s *MemoryStore) RemoteDisable(name string) {
	s.mu.Lock()
	s.desired[name] = false
	callbacks := append([]func(string){}, s.onDisable...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(name)
	}
}
