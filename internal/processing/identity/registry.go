package identity

import (
	"bytes"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// User is a snapshot of an identity and the links it currently owns.
type User struct {
	ID      uuid.UUID
	LinkIDs []uuid.UUID
}

// Registry tracks identities and the ids of the links each one owns. It only
// stores link ids; link state lives in the link registry.
type Registry struct {
	mu    sync.RWMutex
	users map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[uuid.UUID]map[uuid.UUID]struct{})}
}

// CreateIdentity mints a fresh identifier and registers it with no links.
func (r *Registry) CreateIdentity() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		id := uuid.New()
		if _, exists := r.users[id]; exists {
			continue
		}
		r.users[id] = make(map[uuid.UUID]struct{})
		return id
	}
}

// EnsureIdentity returns the identity for id, registering it first when it
// has never been seen.
func (r *Registry) EnsureIdentity(id uuid.UUID) User {
	r.mu.Lock()
	defer r.mu.Unlock()

	linkSet, ok := r.users[id]
	if !ok {
		linkSet = make(map[uuid.UUID]struct{})
		r.users[id] = linkSet
	}
	return snapshot(id, linkSet)
}

// Get returns the identity for id without creating it.
func (r *Registry) Get(id uuid.UUID) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	linkSet, ok := r.users[id]
	if !ok {
		return User{}, false
	}
	return snapshot(id, linkSet), true
}

// RecordLink adds linkID to the owner's set. An unknown owner is registered
// on the way.
func (r *Registry) RecordLink(owner, linkID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	linkSet, ok := r.users[owner]
	if !ok {
		linkSet = make(map[uuid.UUID]struct{})
		r.users[owner] = linkSet
	}
	linkSet[linkID] = struct{}{}
}

// ForgetLink removes linkID from the owner's set. Unknown owners and ids are
// ignored.
func (r *Registry) ForgetLink(owner, linkID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if linkSet, ok := r.users[owner]; ok {
		delete(linkSet, linkID)
	}
}

// LinkIDs returns the owner's link ids in a stable order.
func (r *Registry) LinkIDs(owner uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedIDs(r.users[owner])
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func snapshot(id uuid.UUID, linkSet map[uuid.UUID]struct{}) User {
	return User{ID: id, LinkIDs: sortedIDs(linkSet)}
}

func sortedIDs(linkSet map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(linkSet))
	for id := range linkSet {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return out
}
