package controller

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/jointscope/pkg/model"
)

func text(v string) *model.Field {
	return model.NewField("Text", model.KindText, model.FlagEdit, v)
}

func TestReplace_NextStopsAfterOne(t *testing.T) {
	reg := model.NewRegistry()
	m := model.NewManager("M", "")
	a := m.AddNode(model.NewNode("A", "")).AddField(text("say foo"))
	b := m.AddNode(model.NewNode("B", "")).AddField(text("foo again"))
	reg.Add(m)
	c := newController(t, reg)
	c.RequestRebuild()
	await(t, c)

	rep := c.ReplaceNext("foo", "bar")
	if rep.Occurrences != 1 || len(rep.Changed) != 1 {
		t.Fatalf("expected one occurrence, got %+v", rep)
	}
	changed := 0
	for _, f := range []*model.Field{a, b} {
		if strings.Contains(f.Value(), "bar") {
			changed++
		}
	}
	if changed != 1 {
		t.Errorf("expected exactly one field changed, got %d (%q, %q)", changed, a.Value(), b.Value())
	}
	if a.Value() != "say bar" {
		t.Errorf("expected the first visible field to change, got %q", a.Value())
	}
	if rep.String() != "Total 1 occurrence has been replaced." {
		t.Errorf("unexpected report %q", rep.String())
	}
}

func TestReplace_AllAcrossDepths(t *testing.T) {
	reg := model.NewRegistry()
	m := model.NewManager("M", "")
	frag := m.AddFragment(model.NewNode("Frag", ""))
	frag.AddField(model.NewField("Title", model.KindString, model.FlagEdit, "foo foo"))
	n := m.AddNode(model.NewNode("N", ""))
	n.AddField(text("a foo"))
	sub := n.AddFragment(model.NewNode("Sub", ""))
	sub.AddField(model.NewField("Speaker", model.KindName, model.FlagEdit, "foo"))
	sub.AddFragment(model.NewNode("Leaf", "")).AddField(text("deep foo"))
	// Not string-like, never touched.
	n.AddField(model.NewField("Count", model.KindInt, model.FlagEdit, "foo"))
	reg.Add(m)

	c := newController(t, reg)
	c.RequestRebuild()
	await(t, c)

	rep := c.ReplaceAll("foo", "bar")
	if rep.Occurrences != 4 {
		t.Fatalf("expected 4 occurrences, got %d", rep.Occurrences)
	}
	if got := frag.Field("Title").Value(); got != "bar foo" {
		t.Errorf("expected first occurrence only, got %q", got)
	}
	if got := n.Field("Count").Value(); got != "foo" {
		t.Errorf("int field changed to %q", got)
	}
	if rep.Err != nil {
		t.Errorf("unexpected error %v", rep.Err)
	}
	if rep.String() != "Total 4 occurrences have been replaced." {
		t.Errorf("unexpected report %q", rep.String())
	}
}

func TestReplace_OnlyVisibleItems(t *testing.T) {
	reg := model.NewRegistry()
	m := model.NewManager("M", "")
	keep := m.AddNode(model.NewNode("Keep", "")).AddField(text("foo"))
	skip := m.AddNode(model.NewNode("Skip", "")).AddField(text("foo"))
	reg.Add(m)
	c := newController(t, reg, WithFlattenOnFilter(true))
	c.RequestRebuild()
	await(t, c)
	if err := c.SetQueryText("Keep"); err != nil {
		t.Fatal(err)
	}

	rep := c.ReplaceAll("foo", "bar")
	if rep.Occurrences != 1 {
		t.Fatalf("expected 1 occurrence, got %d", rep.Occurrences)
	}
	if keep.Value() != "bar" || skip.Value() != "foo" {
		t.Errorf("unexpected values keep=%q skip=%q", keep.Value(), skip.Value())
	}
}

func TestReplace_NoOccurrence(t *testing.T) {
	reg := model.NewRegistry()
	m := model.NewManager("M", "")
	m.AddNode(model.NewNode("A", "")).AddField(text("hello"))
	reg.Add(m)
	c := newController(t, reg)
	c.RequestRebuild()
	await(t, c)

	for _, from := range []string{"", "zzz"} {
		rep := c.ReplaceAll(from, "x")
		if !rep.None() || rep.Err != nil {
			t.Errorf("from %q: expected no occurrence, got %+v", from, rep)
		}
		if rep.String() != "No occurrence found." {
			t.Errorf("unexpected report %q", rep.String())
		}
	}
}

func TestReplace_BeforeBuild(t *testing.T) {
	c := newController(t, model.NewRegistry())
	if rep := c.ReplaceAll("a", "b"); !rep.None() {
		t.Errorf("expected nothing to replace, got %+v", rep)
	}
}
