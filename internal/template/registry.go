package template

import (
	"sort"
	"sync"

	"github.com/roach88/outliner/internal/ir"
)

// Registry is a concurrency-safe set of templates keyed by id. It
// implements ops.TemplateResolver.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]ir.Template
}

// NewRegistry returns a registry holding templates.
func NewRegistry(templates ...ir.Template) *Registry {
	r := &Registry{templates: make(map[string]ir.Template, len(templates))}
	for _, t := range templates {
		r.templates[t.ID] = t
	}
	return r
}

// TemplateByID returns the template with the given id.
func (r *Registry) TemplateByID(id string) (ir.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	return t, ok
}

// Register adds or replaces one template.
func (r *Registry) Register(t ir.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
}

// Replace swaps the whole set atomically.
func (r *Registry) Replace(templates []ir.Template) {
	next := make(map[string]ir.Template, len(templates))
	for _, t := range templates {
		next[t.ID] = t
	}
	r.mu.Lock()
	r.templates = next
	r.mu.Unlock()
}

// All lists templates sorted by id.
func (r *Registry) All() []ir.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ir.Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len is the number of templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// LoadDir compiles dir into a new registry.
func LoadDir(dir string) (*Registry, error) {
	templates, err := CompileDir(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(templates...), nil
}
