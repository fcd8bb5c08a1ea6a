// Package registry holds the active backend for each algorithm family.
//
// A Registry is constructed once at process start and handed to every
// dispatcher that needs it. Each family has a single slot: installing a
// backend replaces whatever was there before, and there is no way to empty a
// slot again. The registry never inspects the backends it stores.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Family names an algorithm family, such as "KDF-TLS".
type Family string

var (
	// ErrNoBackend is returned when no backend has been installed for a family.
	ErrNoBackend = errors.New("no backend available")

	// ErrBackendType is returned when the installed backend does not have the
	// type the caller asked for.
	ErrBackendType = errors.New("backend has unexpected type")
)

// Registry maps algorithm families to their active backend.
type Registry struct {
	mu       sync.RWMutex
	backends map[Family]any
	logger   *zap.Logger
}

// New returns an empty registry. A nil logger disables logging.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		backends: make(map[Family]any),
		logger:   logger,
	}
}

// Set installs backend as the active implementation for family, replacing any
// previous one.
func (r *Registry) Set(family Family, backend any) {
	r.mu.Lock()
	prev, replaced := r.backends[family]
	r.backends[family] = backend
	r.mu.Unlock()

	fields := []zap.Field{
		zap.String("family", string(family)),
		zap.String("backend", fmt.Sprintf("%T", backend)),
	}
	if replaced {
		r.logger.Info("Replaced backend", append(fields, zap.String("previous", fmt.Sprintf("%T", prev)))...)
		return
	}
	r.logger.Info("Registered backend", fields...)
}

// Get returns the raw backend installed for family.
func (r *Registry) Get(family Family) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[family]
	return b, ok
}

// Families lists the families with an installed backend, sorted by name.
func (r *Registry) Families() []Family {
	r.mu.RLock()
	families := make([]Family, 0, len(r.backends))
	for f := range r.backends {
		families = append(families, f)
	}
	r.mu.RUnlock()

	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })
	return families
}

// Lookup returns the backend installed for family as a B.
func Lookup[B any](r *Registry, family Family) (B, error) {
	var zero B
	raw, ok := r.Get(family)
	if !ok {
		return zero, fmt.Errorf("%s: %w", family, ErrNoBackend)
	}
	b, ok := raw.(B)
	if !ok {
		return zero, fmt.Errorf("%s: %w: %T", family, ErrBackendType, raw)
	}
	return b, nil
}
