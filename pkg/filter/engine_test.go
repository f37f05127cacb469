package filter

import (
	"context"
	"testing"

	"github.com/vanderheijden86/jointscope/pkg/builder"
	"github.com/vanderheijden86/jointscope/pkg/model"
	"github.com/vanderheijden86/jointscope/pkg/testutil"
	"github.com/vanderheijden86/jointscope/pkg/tree"
)

func mustParse(t *testing.T, s string) *Query {
	t.Helper()
	q, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return q
}

func build(t *testing.T, reg *model.Registry, args builder.Args) *tree.Forest {
	t.Helper()
	forest, state := builder.New(reg, builder.WithArgs(args)).Build(context.Background())
	if state != builder.StateCompleted {
		t.Fatalf("build %s", state)
	}
	return forest
}

// chain builds manager A -> node B -> sub-node C.
func chain() *model.Registry {
	reg := model.NewRegistry()
	a := model.NewManager("Aaa", "")
	b := a.AddNode(model.NewNode("Bbb", ""))
	b.AddFragment(model.NewNode("Needle", ""))
	reg.Add(a)
	return reg
}

func TestFilter_TriStatePropagation(t *testing.T) {
	forest := build(t, chain(), builder.DefaultArgs())
	var e Engine
	out := e.Filter(Args{Query: mustParse(t, "needle")}, forest.Roots())

	testutil.AssertFilteredPaths(t, out, "/Aaa")
	testutil.AssertResult(t, forest, "/Aaa", tree.ShownDescendant)
	testutil.AssertResult(t, forest, "/Aaa.Bbb", tree.ShownDescendant)
	testutil.AssertResult(t, forest, "/Aaa.Bbb.Needle", tree.ShownHighlighted)
	testutil.AssertFilteredPaths(t, out[0].FilteredChildren, "/Aaa.Bbb")
	testutil.AssertFilteredPaths(t, out[0].FilteredChildren[0].FilteredChildren, "/Aaa.Bbb.Needle")
}

func TestFilter_NoTextShowsEverything(t *testing.T) {
	forest := build(t, chain(), builder.DefaultArgs())
	var e Engine
	out := e.Filter(Args{FlattenOnFilter: true}, forest.Roots())

	// Flatten only applies with a text filter.
	testutil.AssertFilteredPaths(t, out, "/Aaa")
	for _, it := range forest.Linear() {
		if it.Result != tree.ShownDescendant {
			t.Errorf("%s: expected shown_descendant, got %s", it.AttachName, it.Result)
		}
	}
}

func TestFilter_NoMatchHidesRoot(t *testing.T) {
	forest := build(t, chain(), builder.DefaultArgs())
	var e Engine
	out := e.Filter(Args{Query: mustParse(t, "zzz")}, forest.Roots())
	if len(out) != 0 {
		t.Errorf("expected nothing visible, got %d", len(out))
	}
	if len(forest.Roots()[0].FilteredChildren) != 0 {
		t.Error("expected FilteredChildren to be cleared")
	}
}

func TestFilter_FlattenIdempotent(t *testing.T) {
	reg := testutil.New(testutil.DefaultConfig()).Registry()
	forest := build(t, reg, builder.DefaultArgs())
	var e Engine
	args := Args{Query: mustParse(t, "Node || hello"), FlattenOnFilter: true}

	first := e.Filter(args, forest.Roots())
	second := e.Filter(args, forest.Roots())
	if len(first) == 0 {
		t.Fatal("expected some matches")
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("position %d differs: %s vs %s", i, first[i].AttachName, second[i].AttachName)
		}
		if first[i].Result != tree.ShownHighlighted {
			t.Errorf("%s: expected highlighted in flatten mode, got %s", first[i].AttachName, first[i].Result)
		}
	}
}

func TestFilter_FlattenRecursesPastHiddenParents(t *testing.T) {
	forest := build(t, chain(), builder.DefaultArgs())
	var e Engine
	out := e.Filter(Args{Query: mustParse(t, "needle"), FlattenOnFilter: true}, forest.Roots())
	testutil.AssertFilteredPaths(t, out, "/Aaa.Bbb.Needle")
	testutil.AssertResult(t, forest, "/Aaa", tree.Hidden)
}

func TestFilter_Scenario(t *testing.T) {
	reg := model.NewRegistry()
	m := model.NewManager("M", "")
	m.AddNode(model.NewNode("Alpha_10", ""))
	m.AddNode(model.NewNode("Alpha_2", ""))
	reg.Add(m)
	forest := build(t, reg, builder.DefaultArgs())

	var e Engine
	out := e.Filter(Args{Query: mustParse(t, "Alpha")}, forest.Roots())
	testutil.AssertFilteredPaths(t, out, "/M")
	testutil.AssertResult(t, forest, "/M", tree.ShownDescendant)
	testutil.AssertFilteredPaths(t, out[0].FilteredChildren, "/M.Alpha_2", "/M.Alpha_10")
	testutil.AssertResult(t, forest, "/M.Alpha_2", tree.ShownHighlighted)
	testutil.AssertResult(t, forest, "/M.Alpha_10", tree.ShownHighlighted)
}

func TestFilter_CustomItemFilter(t *testing.T) {
	forest := build(t, chain(), builder.DefaultArgs())
	e := Engine{ItemFilter: func(_ Args, it *tree.Item) tree.FilterResult {
		if it.Type == tree.TypeNode {
			return tree.Shown
		}
		return tree.Hidden
	}}
	out := e.Filter(Args{}, forest.Roots())
	testutil.AssertFilteredPaths(t, out, "/Aaa")
	testutil.AssertResult(t, forest, "/Aaa", tree.ShownDescendant)
	testutil.AssertResult(t, forest, "/Aaa.Bbb", tree.Shown)
}

func TestFilter_TagsSelectPropertyKinds(t *testing.T) {
	reg := model.NewRegistry()
	m := model.NewManager("M", "")
	n := m.AddNode(model.NewNode("N", ""))
	n.AddField(model.NewField("Speaker", model.KindName, model.FlagEdit, "bob"))
	n.AddField(model.NewField("Line", model.KindText, model.FlagEdit, "bob says hi"))
	reg.Add(m)
	forest := build(t, reg, builder.DefaultArgs())

	ts := NewTagSet(FilterItem{Name: "Tag:FName", Enabled: true})
	var e Engine
	out := e.Filter(Args{Query: mustParse(t, Combine("bob", ts)), FlattenOnFilter: true}, forest.Roots())
	testutil.AssertFilteredPaths(t, out, "/M.N:Speaker")
}
