package model

import (
	"sync"
	"sync/atomic"
)

// Manager is a root object owning graph nodes and manager fragments.
type Manager struct {
	ID    int64
	Name  string
	Class string
	// DocName is the name as written in the document, set when Name was
	// qualified to keep it unique across documents.
	DocName string

	mu        sync.RWMutex
	nodes     []*Node
	fragments []*Node

	destroyed atomic.Bool
}

func NewManager(name, class string) *Manager {
	return &Manager{Name: name, Class: class}
}

// AddNode registers a top-level graph node.
func (m *Manager) AddNode(n *Node) *Node {
	m.attach(n, false)
	m.mu.Lock()
	m.nodes = append(m.nodes, n)
	m.mu.Unlock()
	return n
}

// AddFragment registers a manager fragment.
func (m *Manager) AddFragment(n *Node) *Node {
	m.attach(n, true)
	m.mu.Lock()
	m.fragments = append(m.fragments, n)
	m.mu.Unlock()
	return n
}

func (m *Manager) attach(n *Node, fragment bool) {
	n.mu.Lock()
	n.manager = m
	n.fragment = fragment
	n.mu.Unlock()
	n.setManagerRecursive(m)
}

// Nodes returns a copy of the top-level graph nodes.
func (m *Manager) Nodes() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Node, len(m.nodes))
	copy(out, m.nodes)
	return out
}

// Fragments returns a copy of the manager fragments.
func (m *Manager) Fragments() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Node, len(m.fragments))
	copy(out, m.fragments)
	return out
}

// Walk visits every node reachable from the manager, fragments first, in
// pre-order. Returning false from fn stops the walk.
func (m *Manager) Walk(fn func(*Node) bool) {
	var visit func(nodes []*Node) bool
	visit = func(nodes []*Node) bool {
		for _, n := range nodes {
			if !fn(n) {
				return false
			}
			if !visit(n.Fragments()) {
				return false
			}
		}
		return true
	}
	if visit(m.Fragments()) {
		visit(m.Nodes())
	}
}

func (m *Manager) Destroy() {
	m.destroyed.Store(true)
}

func (m *Manager) IsDestroyed() bool {
	return m.destroyed.Load()
}

func (m *Manager) ObjectName() string { return m.Name }

func (m *Manager) ObjectPath() string { return "/" + m.Name }
