package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory creates an unconnected adapter.
type Factory func(logger *slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	aliases    = make(map[string]string) // alias -> adapter name
)

// Register adds an adapter factory under name and any aliases. Adapters
// register themselves from init functions.
func Register(name string, factory Factory, alias ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
	for _, a := range alias {
		aliases[a] = name
	}
}

// Canonical resolves a target type to a registered adapter name. Matching
// ignores case; aliases such as postgresql or sqlite3 map to their adapter.
// Unknown types are returned lower-cased.
func Canonical(typ string) string {
	typ = strings.ToLower(strings.TrimSpace(typ))

	registryMu.RLock()
	defer registryMu.RUnlock()
	if name, ok := aliases[typ]; ok {
		return name
	}
	return typ
}

// Get retrieves an adapter factory by name or alias.
func Get(name string) (Factory, bool) {
	name = Canonical(name)
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// NewAdapter creates an unconnected adapter for cfg.Type. A nil logger
// discards adapter logs.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// ListAdapters returns the registered adapter names, sorted. Aliases are not listed.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a target type resolves to an adapter.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when a target type matches no adapter.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); check target.type in dynsql.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
