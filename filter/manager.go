package filter

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Manager keeps named filters, typically loaded from the filter section of
// the configuration
type Manager struct {
	compiler *Compiler
	filters  map[string]*Filter
	mu       sync.RWMutex
}

// ManagerOption configures a filter manager
type ManagerOption func(*Manager)

// WithCompiler sets a custom compiler
func WithCompiler(compiler *Compiler) ManagerOption {
	return func(m *Manager) {
		m.compiler = compiler
	}
}

// NewManager creates a new filter manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		compiler: defaultCompiler,
		filters:  make(map[string]*Filter),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RegisterFilter registers a new filter or updates an existing one
func (m *Manager) RegisterFilter(name, expression string) error {
	f, err := m.compiler.Compile(expression)
	if err != nil {
		return fmt.Errorf("failed to compile filter '%s': %w", name, err)
	}

	m.mu.Lock()
	m.filters[name] = f
	m.mu.Unlock()

	return nil
}

// RegisterFilters registers multiple filters at once. Nothing is registered
// if any of them fails to compile.
func (m *Manager) RegisterFilters(filters map[string]string) error {
	compiled := make(map[string]*Filter, len(filters))

	for name, expression := range filters {
		f, err := m.compiler.Compile(expression)
		if err != nil {
			return fmt.Errorf("failed to compile filter '%s': %w", name, err)
		}
		compiled[name] = f
	}

	m.mu.Lock()
	maps.Copy(m.filters, compiled)
	m.mu.Unlock()

	return nil
}

// Get returns a registered filter by name
func (m *Manager) Get(name string) (*Filter, bool) {
	m.mu.RLock()
	f, exists := m.filters[name]
	m.mu.RUnlock()
	return f, exists
}

// Names returns the registered filter names in sorted order
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.filters))
}

// Resolve returns the filter registered under nameOrExpression, or compiles
// it as an expression when no such name exists
func (m *Manager) Resolve(nameOrExpression string) (*Filter, error) {
	if f, ok := m.Get(nameOrExpression); ok {
		return f, nil
	}
	return m.compiler.Compile(nameOrExpression)
}
