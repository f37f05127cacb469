package tree

import (
	"slices"

	"github.com/vanderheijden86/jointscope/pkg/model"
)

// Forest is the result of one build: root items plus a linear mirror of every
// item in insertion order. A forest is written by exactly one build and then
// handed over whole; it is never shared between two writers.
type Forest struct {
	roots  []*Item
	linear []*Item
	byName map[string][]ItemID
}

func NewForest() *Forest {
	return &Forest{byName: make(map[string][]ItemID)}
}

// Roots returns the root-level items in display order.
func (f *Forest) Roots() []*Item {
	if f == nil {
		return nil
	}
	return f.roots
}

// Linear returns every item in insertion order.
func (f *Forest) Linear() []*Item {
	if f == nil {
		return nil
	}
	return f.linear
}

func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.linear)
}

// Item returns the item with the given id, or nil.
func (f *Forest) Item(id ItemID) *Item {
	if f == nil || int(id) >= len(f.linear) {
		return nil
	}
	return f.linear[id]
}

// Parent returns the parent item, or nil for roots.
func (f *Forest) Parent(it *Item) *Item {
	if it == nil || it.IsRoot() {
		return nil
	}
	return f.Item(it.Parent)
}

// Ancestors returns the chain of parents up to the root.
func (f *Forest) Ancestors(it *Item) []*Item {
	var out []*Item
	for p := f.Parent(it); p != nil; p = f.Parent(p) {
		out = append(out, p)
	}
	return out
}

// NearestManager walks up from it (inclusive) and returns the first manager
// found. Node and property items fall back to the model's manager link when
// the item was attached outside a manager subtree.
func (f *Forest) NearestManager(it *Item) *model.Manager {
	for cur := it; cur != nil; cur = f.Parent(cur) {
		if cur.Type == TypeManager {
			return cur.Manager
		}
	}
	if it == nil {
		return nil
	}
	switch it.Type {
	case TypeNode:
		return it.Node.Manager()
	case TypeProperty:
		if o := it.Field.Owner(); o != nil {
			return o.Manager()
		}
	}
	return nil
}

// Walk visits every item reachable from the roots in pre-order.
func (f *Forest) Walk(fn func(*Item) bool) {
	var visit func(items []*Item) bool
	visit = func(items []*Item) bool {
		for _, it := range items {
			if !fn(it) {
				return false
			}
			if !visit(it.Children) {
				return false
			}
		}
		return true
	}
	visit(f.Roots())
}

// Output is the insertion facade used while a forest is being built.
type Output struct {
	forest *Forest
}

func NewOutput(f *Forest) *Output {
	return &Output{forest: f}
}

func (o *Output) Forest() *Forest {
	return o.forest
}

// Find returns the first item, in insertion order, named name whose type is
// in types. An empty types list matches any type.
func (o *Output) Find(name string, types ...ItemType) *Item {
	for _, id := range o.forest.byName[name] {
		it := o.forest.linear[id]
		if len(types) == 0 || slices.Contains(types, it.Type) {
			return it
		}
	}
	return nil
}

// Add attaches item under the item found by parentName and parentTypes,
// at the head or tail of its children. With no parent found the item becomes
// a root. The item is always appended to the linear mirror.
func (o *Output) Add(item *Item, parentName string, parentTypes []ItemType, addToHead bool) *Item {
	f := o.forest
	item.ID = ItemID(len(f.linear))
	item.Parent = NoParent
	item.Depth = 0

	var parent *Item
	if parentName != "" {
		parent = o.Find(parentName, parentTypes...)
	}
	if parent != nil {
		item.Parent = parent.ID
		item.Depth = parent.Depth + 1
		parent.Children = insert(parent.Children, item, addToHead)
	} else {
		f.roots = insert(f.roots, item, addToHead)
	}

	f.linear = append(f.linear, item)
	f.byName[item.AttachName] = append(f.byName[item.AttachName], item.ID)
	return item
}

func insert(items []*Item, it *Item, head bool) []*Item {
	if head {
		return slices.Insert(items, 0, it)
	}
	return append(items, it)
}
