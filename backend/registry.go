package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/renderq"
)

// Factory opens a backend for cfg.
type Factory func(cfg Config) (*Backend, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{NameNoop}
)

// NameNoop is the headless backend registered by package wgpuhal.
const NameNoop = "noop"

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens the named backend.
func Open(name string, cfg Config) (*Backend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	b, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend: open %q: %w", name, err)
	}
	renderq.Logger().Info("backend: opened", "name", name, "width", cfg.Width, "height", cfg.Height)
	return b, nil
}

// Default opens the best available backend based on priority, falling
// back to the first registered name in sorted order.
func Default(cfg Config) (*Backend, error) {
	registryMu.RLock()
	name := ""
	for _, n := range backendPriority {
		if _, ok := backends[n]; ok {
			name = n
			break
		}
	}
	registryMu.RUnlock()

	if name == "" {
		names := Available()
		if len(names) == 0 {
			return nil, ErrBackendNotAvailable
		}
		name = names[0]
	}
	return Open(name, cfg)
}
