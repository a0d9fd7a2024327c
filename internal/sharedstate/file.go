package sharedstate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/extraterm/extman/internal/storage"
)

// stateFile is the on-disk shape of the shared state document.
type stateFile struct {
	Metadata     []ExtensionInfo `json:"metadata"`
	DesiredState map[string]bool `json:"desiredState"`
}

// FileStore is a Store backed by a JSON state file. Writes go through an
// advisory file lock plus an atomic rename; remote changes are observed
// with an fsnotify watch on the state directory and surfaced as
// enable/disable callbacks by diffing against the last state this process
// has seen. Our own writes update the last-seen state first, so they never
// echo back as remote changes.
type FileStore struct {
	statePath string
	lockPath  string
	watcher   *fsnotify.Watcher
	done      chan struct{}

	mu        sync.Mutex
	lastSeen  map[string]bool
	onEnable  []func(string)
	onDisable []func(string)
	closed    bool
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore over the default shared state file
// location (see the storage package) and starts watching for remote changes.
func NewFileStore() (*FileStore, error) {
	statePath, lockPath, err := storage.ResolveStatePaths()
	if err != nil {
		return nil, err
	}
	return NewFileStoreAt(statePath, lockPath)
}

// NewFileStoreAt creates a FileStore over an explicit state file path.
func NewFileStoreAt(statePath, lockPath string) (*FileStore, error) {
	dir := filepath.Dir(statePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating state watcher: %w", err)
	}
	// Watch the directory, not the file: atomic renames replace the inode.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching state directory: %w", err)
	}

	s := &FileStore{
		statePath: statePath,
		lockPath:  lockPath,
		watcher:   watcher,
		done:      make(chan struct{}),
		lastSeen:  make(map[string]bool),
	}

	// Seed lastSeen from whatever is on disk so startup does not replay
	// the entire current state as remote changes.
	if doc, err := s.read(); err == nil && doc.DesiredState != nil {
		s.lastSeen = doc.DesiredState
	}

	go s.watchLoop()
	return s, nil
}

// GetExtensionMetadata returns the last published extension summaries.
func (s *FileStore) GetExtensionMetadata() []ExtensionInfo {
	doc, err := s.read()
	if err != nil {
		slog.Warn("[SharedState] failed to read state file", "path", s.statePath, "error", err)
		return nil
	}
	return doc.Metadata
}

// SetExtensionMetadata publishes the discovered extension summaries.
func (s *FileStore) SetExtensionMetadata(infos []ExtensionInfo) error {
	return s.update(func(doc *stateFile) {
		doc.Metadata = infos
	})
}

// GetDesiredState returns the shared desired state from disk.
func (s *FileStore) GetDesiredState() map[string]bool {
	doc, err := s.read()
	if err != nil {
		slog.Warn("[SharedState] failed to read state file", "path", s.statePath, "error", err)
		return map[string]bool{}
	}
	if doc.DesiredState == nil {
		return map[string]bool{}
	}
	return doc.DesiredState
}

// SetDesiredState publishes the local desired state.
func (s *FileStore) SetDesiredState(state map[string]bool) error {
	s.mu.Lock()
	s.lastSeen = copyDesiredState(state)
	s.mu.Unlock()

	return s.update(func(doc *stateFile) {
		doc.DesiredState = copyDesiredState(state)
	})
}

// OnEnableExtension registers a remote-enable callback.
func (s *FileStore) OnEnableExtension(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnable = append(s.onEnable, fn)
}

// OnDisableExtension registers a remote-disable callback.
func (s *FileStore) OnDisableExtension(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisable = append(s.onDisable, fn)
}

// Close stops the remote-change watcher.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	return s.watcher.Close()
}

func (s *FileStore) read() (*stateFile, error) {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &stateFile{}, nil
		}
		return nil, err
	}
	var doc stateFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling state file: %w", err)
	}
	return &doc, nil
}

// update performs a locked read-modify-write of the state document.
func (s *FileStore) update(mutate func(*stateFile)) error {
	lock, ok, err := storage.AcquireLockHandle(s.lockPath)
	if err != nil {
		return fmt.Errorf("locking state file: %w", err)
	}
	if ok {
		defer func() {
			if err := storage.ReleaseLockHandle(lock); err != nil {
				slog.Warn("[SharedState] failed to release state lock", "error", err)
			}
		}()
	}
	// When the lock is contended we still proceed: last writer wins, and
	// the watcher reconciles any divergence on the next change event.

	doc, err := s.read()
	if err != nil {
		return err
	}
	mutate(doc)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state file: %w", err)
	}
	return storage.AtomicWriteFile(s.statePath, data, 0644)
}

func (s *FileStore) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.statePath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.handleRemoteChange()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("[SharedState] state watcher error", "error", err)
		}
	}
}

// handleRemoteChange re-reads the state file and fires enable/disable
// callbacks for every extension whose desired value differs from the last
// state this process has seen.
func (s *FileStore) handleRemoteChange() {
	doc, err := s.read()
	if err != nil {
		slog.Warn("[SharedState] failed to read state file after change", "error", err)
		return
	}
	current := doc.DesiredState
	if current == nil {
		current = map[string]bool{}
	}

	s.mu.Lock()
	var enables, disables []string
	for name, desired := range current {
		seen, known := s.lastSeen[name]
		if known && seen == desired {
			continue
		}
		if desired {
			enables = append(enables, name)
		} else {
			disables = append(disables, name)
		}
	}
	s.lastSeen = copyDesiredState(current)
	onEnable := append([]func(string){}, s.onEnable...)
	onDisable := append([]func(string){}, s.onDisable...)
	s.mu.Unlock()

	for _, name := range enables {
		for _, fn := range onEnable {
			fn(name)
		}
	}
	for _, name := range disables {
		for _, fn := range onDisable {
			fn(name)
		}
	}
}
