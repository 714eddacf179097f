package macro

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/dynsql/pkg/dynamic"
)

// Registry holds loaded macros by name. It is safe for concurrent use and
// implements dynamic.MacroLookup.
type Registry struct {
	mu     sync.RWMutex
	macros map[string]*Macro
}

var _ dynamic.MacroLookup = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{macros: make(map[string]*Macro)}
}

// Register adds a macro. Registering a name twice is an error.
func (r *Registry) Register(m *Macro) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.macros[m.Name]; ok {
		return &RegistryError{
			Name:    m.Name,
			Message: fmt.Sprintf("already defined in %s", existing.Path),
		}
	}
	r.macros[m.Name] = m
	return nil
}

// Replace swaps the whole macro set. On a duplicate name nothing changes.
func (r *Registry) Replace(macros []*Macro) error {
	next := make(map[string]*Macro, len(macros))
	for _, m := range macros {
		if existing, ok := next[m.Name]; ok {
			return &RegistryError{
				Name:    m.Name,
				Message: fmt.Sprintf("defined in both %s and %s", existing.Path, m.Path),
			}
		}
		next[m.Name] = m
	}

	r.mu.Lock()
	r.macros = next
	r.mu.Unlock()
	return nil
}

// FindMacro returns the body of the named macro.
func (r *Registry) FindMacro(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.macros[name]
	if !ok {
		return "", false
	}
	return m.Body, true
}

// Get returns the named macro.
func (r *Registry) Get(name string) (*Macro, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.macros[name]
	return m, ok
}

// Has checks if a macro exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.macros[name]
	return ok
}

// Len returns the number of registered macros.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.macros)
}

// All returns the registered macros sorted by name.
func (r *Registry) All() []*Macro {
	r.mu.RLock()
	defer r.mu.RUnlock()

	macros := make([]*Macro, 0, len(r.macros))
	for _, m := range r.macros {
		macros = append(macros, m)
	}
	sort.Slice(macros, func(i, j int) bool { return macros[i].Name < macros[j].Name })
	return macros
}

// Names returns the registered macro names, sorted.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = m.Name
	}
	return names
}

// Load builds a registry from the macros found in dir.
func Load(dir string) (*Registry, error) {
	macros, err := NewLoader(dir).Load()
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	if err := r.Replace(macros); err != nil {
		return nil, err
	}
	return r, nil
}

// RegistryError represents a conflicting macro registration.
type RegistryError struct {
	Name    string
	Message string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("macro %q: %s", e.Name, e.Message)
}
