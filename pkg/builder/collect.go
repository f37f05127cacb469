package builder

import (
	"github.com/vanderheijden86/jointscope/pkg/debug"
	"github.com/vanderheijden86/jointscope/pkg/model"
	"github.com/vanderheijden86/jointscope/pkg/tree"
)

var (
	managerType = []tree.ItemType{tree.TypeManager}
	nodeType    = []tree.ItemType{tree.TypeNode}
)

// collector holds the state shared by the three passes of one build. Each
// pass returns false when it stopped at a checkpoint.
type collector struct {
	tok  Token
	out  *tree.Output
	hook func(Checkpoint)
}

func (c *collector) stop(pass Pass, name string) bool {
	if debug.Enabled() {
		debug.Checkpoint(string(pass) + " " + name)
	}
	if c.hook != nil {
		c.hook(Checkpoint{Pass: pass, Name: name})
	}
	return c.tok.Cancelled()
}

// liveManagers resolves refs, drops stale ones and sorts the rest.
func liveManagers(refs []model.ManagerRef) []*model.Manager {
	ms := make([]*model.Manager, 0, len(refs))
	for _, ref := range refs {
		if m := ref.Resolve(); m != nil {
			ms = append(ms, m)
		}
	}
	sortManagers(ms)
	return ms
}

func (c *collector) managers(refs []model.ManagerRef) bool {
	for _, m := range liveManagers(refs) {
		if c.stop(PassManagers, m.Name) {
			return false
		}
		c.out.Add(tree.NewManagerItem(m), "", nil, false)
	}
	return true
}

// nodeParent resolves where a node attaches. The parent node wins over the
// manager; a node with neither is an orphan.
func nodeParent(n *model.Node) (path string, types []tree.ItemType, ok bool) {
	if p := n.Parent(); p != nil {
		return p.ObjectPath(), nodeType, true
	}
	if m := n.Manager(); m != nil {
		return m.ObjectPath(), managerType, true
	}
	return "", nil, false
}

func (c *collector) nodes(refs []model.ManagerRef) bool {
	for _, m := range liveManagers(refs) {
		if c.stop(PassNodes, m.Name) {
			return false
		}
		if !c.nodeGroup(m.Fragments()) || !c.nodeGroup(m.Nodes()) {
			return false
		}
	}
	return true
}

// nodeGroup emits one sorted sibling group depth-first so every parent is in
// the output before its fragments.
func (c *collector) nodeGroup(group []*model.Node) bool {
	sortNodes(group)
	for _, n := range group {
		if c.stop(PassNodes, n.Name) {
			return false
		}
		if n.IsDestroyed() {
			continue
		}
		parent, types, ok := nodeParent(n)
		if !ok {
			continue
		}
		c.out.Add(tree.NewNodeItem(n), parent, types, false)
		if !c.nodeGroup(n.Fragments()) {
			return false
		}
	}
	return true
}

// owners lists every live, attached node under m.
func owners(m *model.Manager) []*model.Node {
	var out []*model.Node
	var visit func(group []*model.Node)
	visit = func(group []*model.Node) {
		for _, n := range group {
			if n.IsDestroyed() {
				continue
			}
			if _, _, ok := nodeParent(n); !ok {
				continue
			}
			out = append(out, n)
			visit(n.Fragments())
		}
	}
	visit(m.Fragments())
	visit(m.Nodes())
	sortNodes(out)
	return out
}

func (c *collector) properties(refs []model.ManagerRef) bool {
	for _, m := range liveManagers(refs) {
		if c.stop(PassProperties, m.Name) {
			return false
		}
		for _, owner := range owners(m) {
			if c.stop(PassProperties, owner.Name) {
				return false
			}
			var fields []*model.Field
			for _, f := range owner.Fields() {
				if f.Visible() {
					fields = append(fields, f)
				}
			}
			sortFields(fields)
			path := owner.ObjectPath()
			for _, f := range fields {
				// Empty type-set: the owner may be a node or a manager.
				c.out.Add(tree.NewPropertyItem(f), path, nil, false)
			}
		}
	}
	return true
}
