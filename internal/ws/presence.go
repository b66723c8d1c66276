package ws

import "sync"

// PresenceRegistry tracks userID → open connection ids. It is the one
// process-local piece of the transport; keeping it behind an interface
// leaves room for a shared-store backplane later without touching the
// hub.
type PresenceRegistry interface {
	// Add records a connection; true when the user just came online
	// (first connection).
	Add(userID, connID string) bool
	// Remove drops a connection; true when the user just went offline
	// (last connection).
	Remove(userID, connID string) bool
	Online(userID string) bool
}

type memoryRegistry struct {
	mu    sync.Mutex
	conns map[string]map[string]struct{}
}

func NewMemoryRegistry() PresenceRegistry {
	return &memoryRegistry{conns: make(map[string]map[string]struct{})}
}

func (r *memoryRegistry) Add(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	wasEmpty := len(set) == 0
	set[connID] = struct{}{}
	return wasEmpty
}

func (r *memoryRegistry) Remove(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, present := set[connID]; !present {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *memoryRegistry) Online(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[userID]) > 0
}
