package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tightbeam/tightbeam/syncctl"
)

// entry pairs a Receiver with the bookkeeping the cleanup sweep needs.
// Grounded on the teacher's server/session.go Session/UpdatedAt pattern.
type entry struct {
	receiver  *Receiver
	createdAt time.Time
	updatedAt time.Time
}

// Registry is a thread-safe store of concurrent receiver sessions, one per
// capture pipeline the caller is running (spec.md §5, "many concurrent
// receiver sessions may coexist"). Grounded on the teacher's SessionStore.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	timeout  time.Duration
}

// NewRegistry creates an empty Registry. Sessions idle longer than timeout
// are eligible for removal by StartCleanup; timeout <= 0 disables cleanup
// entirely (sessions live until explicitly Deleted).
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		timeout:  timeout,
	}
}

// Create allocates a new Receiver with a fresh session ID and registers it.
func (rg *Registry) Create(cfg syncctl.Config) *Receiver {
	id := uuid.NewString()
	r := NewReceiver(id, cfg)

	now := time.Now()
	rg.mu.Lock()
	rg.sessions[id] = &entry{receiver: r, createdAt: now, updatedAt: now}
	rg.mu.Unlock()

	return r
}

// Get returns the Receiver registered under id, or nil if none exists, and
// marks it as recently active.
func (rg *Registry) Get(id string) *Receiver {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	e, ok := rg.sessions[id]
	if !ok {
		return nil
	}
	e.updatedAt = time.Now()
	return e.receiver
}

// Delete removes a session by ID. Deleting an unknown ID is a no-op.
func (rg *Registry) Delete(id string) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	delete(rg.sessions, id)
}

// Len reports the number of registered sessions.
func (rg *Registry) Len() int {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return len(rg.sessions)
}

// StartCleanup launches a background goroutine that removes sessions idle
// longer than the configured timeout, checking every interval. It stops
// when done is closed. A non-positive timeout disables the sweep.
func (rg *Registry) StartCleanup(interval time.Duration, done <-chan struct{}) {
	if rg.timeout <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rg.cleanup()
			}
		}
	}()
}

func (rg *Registry) cleanup() {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	cutoff := time.Now().Add(-rg.timeout)
	for id, e := range rg.sessions {
		if e.updatedAt.Before(cutoff) {
			delete(rg.sessions, id)
		}
	}
}
