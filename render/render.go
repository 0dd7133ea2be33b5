// Package render turns assembled exam documents into artifact files. The
// contract is deliberately thin: given a validated document and an output
// path, produce exactly one file or fail.
package render

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360studio/examforge/assemble"
)

// Renderer produces one artifact file from a document.
type Renderer interface {
	// Name returns the format identifier (e.g., "html", "markdown").
	Name() string

	// Render writes the artifact to path.
	Render(doc *assemble.Document, path string) error
}

var (
	rendererRegistry = make(map[string]Renderer)
	rendererMu       sync.RWMutex
)

// Register adds a renderer to the registry.
func Register(r Renderer) {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	rendererRegistry[r.Name()] = r
}

// Get resolves a format name to a renderer.
func Get(format string) (Renderer, error) {
	rendererMu.RLock()
	defer rendererMu.RUnlock()

	r, ok := rendererRegistry[format]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", format, listLocked())
	}
	return r, nil
}

// List returns all registered format names, sorted.
func List() []string {
	rendererMu.RLock()
	defer rendererMu.RUnlock()
	return listLocked()
}

func listLocked() []string {
	names := make([]string, 0, len(rendererRegistry))
	for name := range rendererRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
