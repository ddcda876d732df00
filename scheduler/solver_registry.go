package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clean-berry/TSNsched/smt"
)

// SolverFactory builds a solver for one run from the configured binary path
// and timeout. An empty path selects the solver's default binary.
type SolverFactory func(path string, timeout time.Duration) smt.Solver

// SolverRegistry maps solver names to factories
type SolverRegistry struct {
	factories map[string]SolverFactory
	mu        sync.RWMutex
}

func NewSolverRegistry() *SolverRegistry {
	return &SolverRegistry{factories: make(map[string]SolverFactory)}
}

var globalRegistry = NewSolverRegistry()

func (sr *SolverRegistry) Register(name string, factory SolverFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("solver registration needs a name and a factory")
	}
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if _, exists := sr.factories[name]; exists {
		return fmt.Errorf("solver '%s' is already registered", name)
	}
	sr.factories[name] = factory
	return nil
}

// New builds the solver registered under name
func (sr *SolverRegistry) New(name, path string, timeout time.Duration) (smt.Solver, error) {
	sr.mu.RLock()
	factory, exists := sr.factories[name]
	sr.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("solver '%s' not found in registry", name)
	}
	return factory(path, timeout), nil
}

// List returns the registered solver names in order
func (sr *SolverRegistry) List() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.factories))
	for name := range sr.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func RegisterGlobal(name string, factory SolverFactory) error {
	return globalRegistry.Register(name, factory)
}

func NewGlobal(name, path string, timeout time.Duration) (smt.Solver, error) {
	return globalRegistry.New(name, path, timeout)
}

func ListGlobal() []string {
	return globalRegistry.List()
}
