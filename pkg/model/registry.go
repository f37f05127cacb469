// Package model holds the node-graph objects browsed by jointscope: managers,
// the nodes and fragments they own, and the editable fields on those nodes.
//
// The tree builder never holds managers directly. It works from ManagerRef
// handles taken from a Registry; a handle whose manager was removed or
// destroyed resolves to nil and is skipped.
package model

import "sync"

// ManagerRef is a non-owning handle to a manager in a Registry.
type ManagerRef struct {
	reg    *Registry
	handle uint64
}

// Resolve returns the manager, or nil if the handle is stale.
func (r ManagerRef) Resolve() *Manager {
	if r.reg == nil {
		return nil
	}
	r.reg.mu.RLock()
	m := r.reg.managers[r.handle]
	r.reg.mu.RUnlock()
	if m == nil || m.IsDestroyed() {
		return nil
	}
	return m
}

// Valid reports whether Resolve would return a manager.
func (r ManagerRef) Valid() bool {
	return r.Resolve() != nil
}

// Registry is the live set of managers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	next     uint64
	managers map[uint64]*Manager
	order    []uint64
}

func NewRegistry() *Registry {
	return &Registry{managers: make(map[uint64]*Manager)}
}

// Add registers a manager and returns a handle to it.
func (r *Registry) Add(m *Manager) ManagerRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.managers[r.next] = m
	r.order = append(r.order, r.next)
	return ManagerRef{reg: r, handle: r.next}
}

// Remove drops the manager behind ref. Outstanding handles become stale.
func (r *Registry) Remove(ref ManagerRef) {
	if ref.reg != r {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.managers[ref.handle]; !ok {
		return
	}
	delete(r.managers, ref.handle)
	for i, h := range r.order {
		if h == ref.handle {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Replace destroys every current manager and registers ms in their place.
func (r *Registry) Replace(ms []*Manager) []ManagerRef {
	r.mu.Lock()
	for _, m := range r.managers {
		m.Destroy()
	}
	r.managers = make(map[uint64]*Manager, len(ms))
	r.order = r.order[:0]
	r.mu.Unlock()

	refs := make([]ManagerRef, 0, len(ms))
	for _, m := range ms {
		refs = append(refs, r.Add(m))
	}
	return refs
}

// Refs returns handles for all registered managers in registration order.
func (r *Registry) Refs() []ManagerRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]ManagerRef, len(r.order))
	for i, h := range r.order {
		refs[i] = ManagerRef{reg: r, handle: h}
	}
	return refs
}

// Managers returns the live managers in registration order.
func (r *Registry) Managers() []*Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Manager, 0, len(r.order))
	for _, h := range r.order {
		if m := r.managers[h]; m != nil && !m.IsDestroyed() {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
