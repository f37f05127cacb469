package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/jointscope/pkg/model"
)

// Document is the on-disk shape shared by JSON and YAML documents.
type Document struct {
	Managers []ManagerDoc `json:"managers" yaml:"managers"`
}

// ManagerDoc describes one manager with its fragments and graph nodes.
type ManagerDoc struct {
	Name      string    `json:"name" yaml:"name"`
	Class     string    `json:"class,omitempty" yaml:"class,omitempty"`
	Fragments []NodeDoc `json:"fragments,omitempty" yaml:"fragments,omitempty"`
	Nodes     []NodeDoc `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// NodeDoc describes a node. Fragments are its sub-nodes.
type NodeDoc struct {
	Name      string     `json:"name" yaml:"name"`
	Class     string     `json:"class,omitempty" yaml:"class,omitempty"`
	Fields    []FieldDoc `json:"fields,omitempty" yaml:"fields,omitempty"`
	Fragments []NodeDoc  `json:"fragments,omitempty" yaml:"fragments,omitempty"`
}

type FieldDoc struct {
	Name  string   `json:"name" yaml:"name"`
	Kind  string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Value string   `json:"value" yaml:"value"`
	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Validate checks that every manager, node and field is named and that
// every field kind is known. All problems are reported together.
func (d *Document) Validate() error {
	var errs []error
	for i, m := range d.Managers {
		where := fmt.Sprintf("managers[%d]", i)
		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		}
		for j, n := range m.Fragments {
			errs = append(errs, n.validate(fmt.Sprintf("%s.fragments[%d]", where, j))...)
		}
		for j, n := range m.Nodes {
			errs = append(errs, n.validate(fmt.Sprintf("%s.nodes[%d]", where, j))...)
		}
	}
	return errors.Join(errs...)
}

func (n NodeDoc) validate(where string) []error {
	var errs []error
	if strings.TrimSpace(n.Name) == "" {
		errs = append(errs, fmt.Errorf("%s: name is required", where))
	}
	for i, f := range n.Fields {
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, fmt.Errorf("%s.fields[%d]: name is required", where, i))
		}
		if _, err := model.ParseFieldKind(f.Kind); err != nil {
			errs = append(errs, fmt.Errorf("%s.fields[%d]: %w", where, i, err))
		}
	}
	for i, c := range n.Fragments {
		errs = append(errs, c.validate(fmt.Sprintf("%s.fragments[%d]", where, i))...)
	}
	return errs
}

// ToManagers converts the document into live model objects.
func (d *Document) ToManagers() ([]*model.Manager, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	out := make([]*model.Manager, 0, len(d.Managers))
	for _, md := range d.Managers {
		m := model.NewManager(md.Name, md.Class)
		for _, nd := range md.Fragments {
			m.AddFragment(nd.node())
		}
		for _, nd := range md.Nodes {
			m.AddNode(nd.node())
		}
		out = append(out, m)
	}
	return out, nil
}

func (nd NodeDoc) node() *model.Node {
	n := model.NewNode(nd.Name, nd.Class)
	for _, fd := range nd.Fields {
		kind, _ := model.ParseFieldKind(fd.Kind)
		n.AddField(model.NewField(fd.Name, kind, model.ParseFlags(fd.Flags), fd.Value))
	}
	for _, c := range nd.Fragments {
		n.AddFragment(c.node())
	}
	return n
}

// FromManagers snapshots live managers back into a Document. Destroyed
// managers and nodes are left out.
func FromManagers(ms []*model.Manager) *Document {
	doc := &Document{}
	for _, m := range ms {
		if m == nil || m.IsDestroyed() {
			continue
		}
		name := m.Name
		if m.DocName != "" {
			name = m.DocName
		}
		doc.Managers = append(doc.Managers, ManagerDoc{
			Name:      name,
			Class:     m.Class,
			Fragments: nodeDocs(m.Fragments()),
			Nodes:     nodeDocs(m.Nodes()),
		})
	}
	return doc
}

func nodeDocs(ns []*model.Node) []NodeDoc {
	var out []NodeDoc
	for _, n := range ns {
		if n.IsDestroyed() {
			continue
		}
		nd := NodeDoc{Name: n.Name, Class: n.Class, Fragments: nodeDocs(n.Fragments())}
		for _, f := range n.Fields() {
			nd.Fields = append(nd.Fields, FieldDoc{
				Name:  f.Name,
				Kind:  string(f.Kind),
				Value: f.Value(),
				Flags: f.Flags.Names(),
			})
		}
		out = append(out, nd)
	}
	return out
}
