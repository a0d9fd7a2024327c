// Package registry discovers installed extensions and answers name-based
// lookups. The registry is read-only after the initial scan.
package registry

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/extraterm/extman/internal/manifest"
)

// Registry holds the metadata of every successfully discovered extension,
// in scan enumeration order.
type Registry struct {
	extensions []*manifest.ExtensionMetadata
	byName     map[string]*manifest.ExtensionMetadata
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]*manifest.ExtensionMetadata),
	}
}

// Scan enumerates every immediate subdirectory of each root path that
// contains a manifest file and registers the parsed metadata. A missing or
// unparsable manifest is a non-fatal per-extension failure: it is logged
// and the entry is skipped, never aborting the rest of the scan.
func (r *Registry) Scan(paths []string) {
	for _, root := range paths {
		entries, err := os.ReadDir(root)
		if err != nil {
			slog.Warn("[ExtensionRegistry] unable to read extension root", "path", root, "error", err)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			extensionPath := filepath.Join(root, entry.Name())
			meta, err := loadManifest(extensionPath)
			if err != nil {
				slog.Warn("[ExtensionRegistry] skipping extension", "path", extensionPath, "error", err)
				continue
			}
			r.Register(meta)
		}
	}
}

// Register adds one extension's metadata to the registry. A duplicate name
// is logged and ignored; the first registration wins.
func (r *Registry) Register(meta *manifest.ExtensionMetadata) {
	if _, exists := r.byName[meta.Name]; exists {
		slog.Warn("[ExtensionRegistry] duplicate extension name, keeping first", "name", meta.Name, "path", meta.Path)
		return
	}
	r.extensions = append(r.extensions, meta)
	r.byName[meta.Name] = meta
}

// Lookup returns the metadata for the named extension, or nil if unknown.
func (r *Registry) Lookup(name string) *manifest.ExtensionMetadata {
	return r.byName[name]
}

// All returns the discovered extensions in scan enumeration order.
// The returned slice must not be mutated.
func (r *Registry) All() []*manifest.ExtensionMetadata {
	return r.extensions
}

func loadManifest(extensionPath string) (*manifest.ExtensionMetadata, error) {
	text, err := os.ReadFile(filepath.Join(extensionPath, manifest.FileName))
	if err != nil {
		return nil, err
	}
	return manifest.Parse(text, extensionPath)
}
