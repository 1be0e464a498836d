package toolcall

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// Summary is the descriptor view exposed to reasoning prompts.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Registry holds tool descriptors by name.
type Registry struct {
	tools map[string]*Descriptor
	mu    sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Descriptor)}
}

// Register adds a descriptor, compiling its argument schema.
// Re-registering a name replaces the previous descriptor.
func (r *Registry) Register(d *Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if d.Primary == nil {
		return fmt.Errorf("primary transport is required for '%s'", d.Name)
	}
	if err := d.compileSchema(); err != nil {
		return fmt.Errorf("invalid schema for '%s': %w", d.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[d.Name] = d
	return nil
}

// Get returns the descriptor for name, or nil.
func (r *Registry) Get(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has checks if a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tools[name]
	return exists
}

// List returns all registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summaries returns prompt-facing summaries for the named tools.
// Unknown names are skipped. An empty names slice returns every tool.
func (r *Registry) Summaries(names []string) []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		names = make([]string, 0, len(r.tools))
		for name := range r.tools {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		d, exists := r.tools[name]
		if !exists {
			continue
		}
		summaries = append(summaries, Summary{
			Name:        d.Name,
			Description: d.Description,
			Category:    d.Category,
		})
	}
	return summaries
}
