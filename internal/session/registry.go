package session

import (
	"context"
	"sync"
	"time"
)

// Factory builds the Client for a browser session.
type Factory func(browserSessionID string) *Client

// Registry keeps one Client per browser session in process memory.
type Registry struct {
	factory Factory
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*registryEntry
}

type registryEntry struct {
	client   *Client
	lastSeen time.Time

	restoreMu sync.Mutex
	restored  bool
}

// NewRegistry returns a registry that drops clients idle for longer than idleTTL.
// A non-positive idleTTL disables pruning.
func NewRegistry(factory Factory, idleTTL time.Duration) *Registry {
	return &Registry{
		factory: factory,
		idleTTL: idleTTL,
		now:     time.Now,
		clients: make(map[string]*registryEntry),
	}
}

// Acquire returns the Client for browserSessionID, creating it and restoring
// its persisted token on first use. Concurrent callers for a new id wait for
// the same restore. A failed restore is retried by the next Acquire; the
// client is returned either way, logged out until a restore succeeds.
// The restore outlives cancellation of ctx.
func (r *Registry) Acquire(ctx context.Context, browserSessionID string) (*Client, error) {
	now := r.now()

	r.mu.Lock()
	r.pruneLocked(now)
	entry, ok := r.clients[browserSessionID]
	if !ok {
		entry = &registryEntry{client: r.factory(browserSessionID)}
		r.clients[browserSessionID] = entry
	}
	entry.lastSeen = now
	r.mu.Unlock()

	entry.restoreMu.Lock()
	defer entry.restoreMu.Unlock()
	if entry.restored {
		return entry.client, nil
	}
	if err := entry.client.RestoreSession(context.WithoutCancel(ctx)); err != nil {
		return entry.client, err
	}
	entry.restored = true
	return entry.client, nil
}

// Release forgets the client of browserSessionID.
func (r *Registry) Release(browserSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, browserSessionID)
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Registry) pruneLocked(now time.Time) {
	if r.idleTTL <= 0 {
		return
	}
	for id, entry := range r.clients {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			delete(r.clients, id)
		}
	}
}
