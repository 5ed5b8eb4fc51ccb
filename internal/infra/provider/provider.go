// Package provider defines the capability interface every cloud-storage
// integration implements, and a registry keyed by provider name. The
// concrete SDK calls live behind this boundary.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ProbeOutcome is the raw result of one connectivity probe against the
// provider, before classification.
type ProbeOutcome struct {
	Success bool
	Latency time.Duration
	Details map[string]string
}

// StorageProvider is the capability interface for one cloud-storage
// integration.
type StorageProvider interface {
	// Name returns the provider identifier, e.g. "drive" or "s3".
	Name() string

	// RefreshToken exchanges the refresh token for new credentials and
	// returns the new expiry. Any provider failure is returned raw; the
	// classifier maps it into the error taxonomy.
	RefreshToken(ctx context.Context, userID string) (newExpiry time.Time, err error)

	// ProbeConnectivity performs a lightweight authenticated call to
	// confirm the connection works end to end.
	ProbeConnectivity(ctx context.Context, userID string) (*ProbeOutcome, error)
}

// Registry holds the registered providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]StorageProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]StorageProvider)}
}

// Register adds a provider. Registering a duplicate name replaces the
// previous entry.
func (r *Registry) Register(p StorageProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider for the given name.
func (r *Registry) Get(name string) (StorageProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return p, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
