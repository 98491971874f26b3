// Package engine models a hardware or HSM-backed private key source, the
// closest Go analogue to an OpenSSL ENGINE: something looked up by id and
// then asked to load a specific key by its own identifier.
package engine

import (
	"crypto"
	"fmt"
	"sync"
)

// Provider loads a private key by its engine-local identifier. A Provider
// corresponds to one registered ENGINE implementation (e.g. one PKCS#11
// module instance).
type Provider interface {
	LoadPrivateKey(keyID string) (crypto.Signer, error)
}

// Registry maps engine ids to the Provider that serves them, mirroring
// ENGINE_by_id's lookup-then-load protocol.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register binds id to p, replacing any existing binding.
func (r *Registry) Register(id string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[id] = p
}

// Lookup returns the Provider bound to id, if any.
func (r *Registry) Lookup(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// ErrNoSuchEngine describes an engine id that Lookup did not find. Nothing
// in this module returns it; the cache's loaders report an unknown engine
// as sslerr.ErrEngine.
type ErrNoSuchEngine struct {
	ID string
}

func (e *ErrNoSuchEngine) Error() string {
	return fmt.Sprintf("engine %q not found", e.ID)
}
