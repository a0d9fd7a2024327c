package sharedstate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T, dir string) *FileStore {
	t.Helper()
	s, err := NewFileStoreAt(
		filepath.Join(dir, "shared-state.json"),
		filepath.Join(dir, "shared-state.lock"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := newTestFileStore(t, dir)

	require.NoError(t, s.SetDesiredState(map[string]bool{"a": true, "b": false}))
	assert.Equal(t, map[string]bool{"a": true, "b": false}, s.GetDesiredState())

	infos := []ExtensionInfo{{Name: "a", Version: "2.0.0", Path: "/ext/a"}}
	require.NoError(t, s.SetExtensionMetadata(infos))
	assert.Equal(t, infos, s.GetExtensionMetadata())

	// Metadata write must not clobber desired state, and vice versa.
	assert.Equal(t, map[string]bool{"a": true, "b": false}, s.GetDesiredState())
}

func TestFileStoreEmptyOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	s := newTestFileStore(t, dir)

	assert.Empty(t, s.GetDesiredState())
	assert.Empty(t, s.GetExtensionMetadata())
}

func TestFileStoreRemoteChangeFiresCallbacks(t *testing.T) {
	dir := t.TempDir()

	local := newTestFileStore(t, dir)
	remote := newTestFileStore(t, dir)

	require.NoError(t, local.SetDesiredState(map[string]bool{"a": true, "b": true}))

	// Give the remote watcher a moment to observe the initial state so it
	// does not replay it as a change later.
	time.Sleep(200 * time.Millisecond)

	enabled := make(chan string, 8)
	disabled := make(chan string, 8)
	local.OnEnableExtension(func(name string) { enabled <- name })
	local.OnDisableExtension(func(name string) { disabled <- name })

	// The "remote process" disables b.
	require.NoError(t, remote.SetDesiredState(map[string]bool{"a": true, "b": false}))

	select {
	case name := <-disabled:
		assert.Equal(t, "b", name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for remote disable callback")
	}

	select {
	case name := <-enabled:
		t.Fatalf("unexpected enable callback for %q", name)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFileStoreOwnWritesDoNotEcho(t *testing.T) {
	dir := t.TempDir()
	s := newTestFileStore(t, dir)

	fired := make(chan string, 8)
	s.OnEnableExtension(func(name string) { fired <- name })
	s.OnDisableExtension(func(name string) { fired <- name })

	require.NoError(t, s.SetDesiredState(map[string]bool{"a": true}))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, s.SetDesiredState(map[string]bool{"a": false}))

	select {
	case name := <-fired:
		t.Fatalf("local write echoed back as remote change for %q", name)
	case <-time.After(300 * time.Millisecond):
	}
}
