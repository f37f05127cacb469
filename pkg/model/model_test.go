package model

import "testing"

func TestManagerRef_StaleAfterRemove(t *testing.T) {
	reg := NewRegistry()
	ref := reg.Add(NewManager("M", "DialogueManager"))
	if ref.Resolve() == nil {
		t.Fatal("expected fresh ref to resolve")
	}
	reg.Remove(ref)
	if ref.Valid() {
		t.Error("expected ref to be stale after Remove")
	}
	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Len())
	}
}

func TestManagerRef_StaleAfterReplace(t *testing.T) {
	reg := NewRegistry()
	old := reg.Add(NewManager("Old", ""))
	refs := reg.Replace([]*Manager{NewManager("A", ""), NewManager("B", "")})

	if old.Valid() {
		t.Error("expected old ref to be stale after Replace")
	}
	if len(refs) != 2 || refs[0].Resolve().Name != "A" || refs[1].Resolve().Name != "B" {
		t.Errorf("unexpected refs after Replace: %+v", refs)
	}
	if got := len(reg.Refs()); got != 2 {
		t.Errorf("expected 2 refs, got %d", got)
	}
}

func TestManagerRef_ZeroValue(t *testing.T) {
	var ref ManagerRef
	if ref.Resolve() != nil {
		t.Error("zero ref must not resolve")
	}
}

func TestNode_PathsAndManagerInheritance(t *testing.T) {
	m := NewManager("Dialogue_1", "DialogueManager")
	root := m.AddNode(NewNode("Root", "DialogueNode"))
	child := root.AddFragment(NewNode("Speaker_0", "SpeakerFragment"))
	grand := child.AddFragment(NewNode("Line", "TextFragment"))
	f := grand.AddField(NewField("Text", KindText, FlagEdit, "hello"))

	if grand.Manager() != m {
		t.Error("expected nested fragment to inherit the manager")
	}
	if got := grand.ObjectPath(); got != "/Dialogue_1.Root.Speaker_0.Line" {
		t.Errorf("unexpected path %q", got)
	}
	if got := f.ObjectPath(); got != "/Dialogue_1.Root.Speaker_0.Line:Text" {
		t.Errorf("unexpected field path %q", got)
	}
	if f.Owner() != grand {
		t.Error("expected field owner to be set")
	}
}

func TestNode_AttachAfterBuildingSubtree(t *testing.T) {
	n := NewNode("N", "")
	sub := n.AddFragment(NewNode("S", ""))
	m := NewManager("M", "")
	m.AddFragment(n)

	if sub.Manager() != m {
		t.Error("expected sub-node to pick up manager when parent is attached later")
	}
	if !n.IsManagerFragment() {
		t.Error("expected manager fragment flag")
	}
}

func TestManager_WalkOrder(t *testing.T) {
	m := NewManager("M", "")
	a := m.AddNode(NewNode("A", ""))
	a.AddFragment(NewNode("A1", ""))
	m.AddFragment(NewNode("F", ""))

	var got []string
	m.Walk(func(n *Node) bool {
		got = append(got, n.Name)
		return true
	})
	want := []string{"F", "A", "A1"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestField_Visible(t *testing.T) {
	tests := []struct {
		flags FieldFlags
		want  bool
	}{
		{FlagEdit, true},
		{0, false},
		{FlagEdit | FlagAdvancedDisplay, false},
		{FlagEdit | FlagDisableEditOnInstance, false},
	}
	for _, tt := range tests {
		f := NewField("x", KindString, tt.flags, "")
		if got := f.Visible(); got != tt.want {
			t.Errorf("flags %v: expected %v, got %v", tt.flags.Names(), tt.want, got)
		}
	}
}

func TestField_ReplaceFirst(t *testing.T) {
	f := NewField("Text", KindText, FlagEdit, "foo bar foo")
	if !f.ReplaceFirst("foo", "baz") {
		t.Fatal("expected replacement")
	}
	if got := f.Value(); got != "baz bar foo" {
		t.Errorf("expected only first occurrence replaced, got %q", got)
	}
	if f.ReplaceFirst("missing", "x") {
		t.Error("expected no replacement for missing substring")
	}

	n := NewField("Count", KindInt, FlagEdit, "foo")
	if n.ReplaceFirst("foo", "bar") {
		t.Error("int fields must not be replaced")
	}
}

func TestParseFieldKind(t *testing.T) {
	for in, want := range map[string]FieldKind{"": KindString, "FName": KindName, "text": KindText, "bool": KindBool} {
		got, err := ParseFieldKind(in)
		if err != nil || got != want {
			t.Errorf("ParseFieldKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFieldKind("vector"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParseFlags_RoundTrip(t *testing.T) {
	f := ParseFlags([]string{"edit", "advanced", "bogus"})
	if f != FlagEdit|FlagAdvancedDisplay {
		t.Errorf("unexpected flags %v", f)
	}
	names := f.Names()
	if len(names) != 2 || names[0] != "edit" || names[1] != "advanced" {
		t.Errorf("unexpected names %v", names)
	}
}
