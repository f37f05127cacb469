package model

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// Object is anything an Item can point at: a manager, a node or a field.
type Object interface {
	ObjectName() string
	ObjectPath() string
}

// Node is a graph node or fragment. Fragments are nodes nested under another
// node; manager fragments hang directly off a manager.
type Node struct {
	ID    int64
	Name  string
	Class string

	mu       sync.RWMutex
	parent   *Node
	manager  *Manager
	fragment bool
	children []*Node
	fields   []*Field

	destroyed atomic.Bool
}

func NewNode(name, class string) *Node {
	return &Node{Name: name, Class: class}
}

// Parent returns the owning node for a sub-node, nil for top-level nodes.
func (n *Node) Parent() *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

// Manager returns the manager the node belongs to, nil if detached.
func (n *Node) Manager() *Manager {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.manager
}

// IsManagerFragment reports whether the node was registered as a manager fragment.
func (n *Node) IsManagerFragment() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.fragment
}

// Fragments returns a copy of the node's sub-nodes.
func (n *Node) Fragments() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Fields returns a copy of the node's fields.
func (n *Node) Fields() []*Field {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Field, len(n.fields))
	copy(out, n.fields)
	return out
}

// AddFragment nests child under n. The child inherits n's manager.
func (n *Node) AddFragment(child *Node) *Node {
	n.mu.Lock()
	mgr := n.manager
	n.children = append(n.children, child)
	n.mu.Unlock()

	child.mu.Lock()
	child.parent = n
	child.manager = mgr
	child.mu.Unlock()
	child.setManagerRecursive(mgr)
	return child
}

func (n *Node) setManagerRecursive(m *Manager) {
	for _, c := range n.Fragments() {
		c.mu.Lock()
		c.manager = m
		c.mu.Unlock()
		c.setManagerRecursive(m)
	}
}

func (n *Node) AddField(f *Field) *Field {
	f.owner = n
	n.mu.Lock()
	n.fields = append(n.fields, f)
	n.mu.Unlock()
	return f
}

// Field looks up a field by name.
func (n *Node) Field(name string) *Field {
	for _, f := range n.Fields() {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Detach clears the node's manager link. A top-level node without a manager
// is an orphan and is skipped by the tree builder.
func (n *Node) Detach() {
	n.mu.Lock()
	n.manager = nil
	n.mu.Unlock()
}

// Destroy marks the node as gone. Stale nodes and their sub-nodes are skipped.
func (n *Node) Destroy() {
	n.destroyed.Store(true)
}

func (n *Node) IsDestroyed() bool {
	return n.destroyed.Load()
}

func (n *Node) ObjectName() string { return n.Name }

// ObjectPath is the stable attach name of the node. A node sharing its name
// with earlier siblings gets a "#n" suffix (n >= 2) so the path stays unique.
func (n *Node) ObjectPath() string {
	n.mu.RLock()
	parent, mgr := n.parent, n.manager
	n.mu.RUnlock()
	switch {
	case parent != nil:
		return parent.ObjectPath() + "." + n.Name + siblingSuffix(parent.Fragments(), n)
	case mgr != nil:
		siblings := append(mgr.Fragments(), mgr.Nodes()...)
		return mgr.ObjectPath() + "." + n.Name + siblingSuffix(siblings, n)
	default:
		return n.Name
	}
}

// siblingSuffix numbers n among the same-named nodes in siblings, in
// insertion order. The first one gets no suffix.
func siblingSuffix(siblings []*Node, n *Node) string {
	k := 1
	for _, s := range siblings {
		if s == n {
			break
		}
		if s.Name == n.Name {
			k++
		}
	}
	if k == 1 {
		return ""
	}
	return "#" + strconv.Itoa(k)
}
