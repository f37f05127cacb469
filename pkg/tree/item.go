// Package tree holds the item forest produced by a build: managers, nodes and
// properties arranged by their attach names.
//
// Items live in a flat arena owned by a Forest. Parent links are arena indices
// (ItemID), never pointers, so an item can always be handed to another
// goroutine together with its forest without lifetime questions.
package tree

import (
	"math"
	"strings"

	"github.com/vanderheijden86/jointscope/pkg/model"
)

// ItemID indexes an item in its forest's arena.
type ItemID uint32

// NoParent marks a root item.
const NoParent ItemID = math.MaxUint32

// ItemType discriminates the three item variants.
type ItemType uint8

const (
	TypeManager ItemType = iota + 1
	TypeNode
	TypeProperty
)

func (t ItemType) String() string {
	switch t {
	case TypeManager:
		return "manager"
	case TypeNode:
		return "node"
	case TypeProperty:
		return "property"
	default:
		return "unknown"
	}
}

// FilterResult is the outcome of a filter pass for one item. The order is
// meaningful: an ancestor is kept visible when a descendant scores higher.
type FilterResult uint8

const (
	Hidden FilterResult = iota
	ShownDescendant
	Shown
	ShownHighlighted
)

func (r FilterResult) String() string {
	switch r {
	case Hidden:
		return "hidden"
	case ShownDescendant:
		return "shown_descendant"
	case Shown:
		return "shown"
	case ShownHighlighted:
		return "shown_highlighted"
	default:
		return "unknown"
	}
}

// Item is one row of the browser tree.
type Item struct {
	ID         ItemID
	AttachName string
	Type       ItemType
	Parent     ItemID
	Depth      int

	Children []*Item
	// FilteredChildren is rebuilt by every hierarchy-mode filter pass.
	FilteredChildren []*Item
	Result           FilterResult

	Manager *model.Manager
	Node    *model.Node
	Field   *model.Field
}

func NewManagerItem(m *model.Manager) *Item {
	return &Item{AttachName: m.ObjectPath(), Type: TypeManager, Parent: NoParent, Manager: m}
}

func NewNodeItem(n *model.Node) *Item {
	return &Item{AttachName: n.ObjectPath(), Type: TypeNode, Parent: NoParent, Node: n}
}

func NewPropertyItem(f *model.Field) *Item {
	return &Item{AttachName: f.ObjectPath(), Type: TypeProperty, Parent: NoParent, Field: f}
}

// IsRoot reports whether the item was attached at the forest root.
func (it *Item) IsRoot() bool {
	return it.Parent == NoParent
}

// Object returns the model object the item represents.
func (it *Item) Object() model.Object {
	switch it.Type {
	case TypeManager:
		return it.Manager
	case TypeNode:
		return it.Node
	case TypeProperty:
		return it.Field
	}
	return nil
}

// Label is the short text shown for the item in a row.
func (it *Item) Label() string {
	switch it.Type {
	case TypeManager:
		return it.Manager.Name
	case TypeNode:
		return it.Node.Name
	case TypeProperty:
		return it.Field.Name + " = " + it.Field.Value()
	}
	return it.AttachName
}

// Class returns the declared class for managers and nodes and the kind tag
// for properties.
func (it *Item) Class() string {
	switch it.Type {
	case TypeManager:
		return it.Manager.Class
	case TypeNode:
		return it.Node.Class
	case TypeProperty:
		return it.Field.Kind.Tag()
	}
	return ""
}

// FilterString is the text the filter expression runs against. It reads the
// live object on every call.
func (it *Item) FilterString() string {
	var b strings.Builder
	switch it.Type {
	case TypeManager:
		writeTerms(&b, it.Manager.Name, it.Manager.Class, "Tag:Manager")
		if it.Manager.Class != "" {
			writeTerms(&b, "Tag:"+it.Manager.Class)
		}
	case TypeNode:
		writeTerms(&b, it.Node.Name, it.Node.Class, "Tag:Node")
		if it.Node.IsManagerFragment() {
			writeTerms(&b, "Tag:ManagerFragment")
		}
		if it.Node.Class != "" {
			writeTerms(&b, "Tag:"+it.Node.Class)
		}
	case TypeProperty:
		owner := ""
		if o := it.Field.Owner(); o != nil {
			owner = o.Name
		}
		writeTerms(&b, owner, it.Field.Name, it.Field.Value(), "Tag:Property", "Tag:"+it.Field.Kind.Tag())
	}
	return b.String()
}

func writeTerms(b *strings.Builder, terms ...string) {
	for _, t := range terms {
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
}
