package testutil

import (
	"testing"

	"github.com/vanderheijden86/jointscope/pkg/tree"
)

// AssertForestInvariant checks that every item reachable from the roots is
// in the linear mirror exactly once and the mirror holds nothing else.
func AssertForestInvariant(t *testing.T, f *tree.Forest) {
	t.Helper()
	seen := make(map[*tree.Item]int)
	f.Walk(func(it *tree.Item) bool {
		seen[it]++
		return true
	})
	for it, n := range seen {
		if n != 1 {
			t.Errorf("item %s reachable %d times", it.AttachName, n)
		}
	}
	if len(seen) != f.Len() {
		t.Errorf("reachable items %d != linear items %d", len(seen), f.Len())
	}
	for i, it := range f.Linear() {
		if int(it.ID) != i {
			t.Errorf("item %s has id %d at index %d", it.AttachName, it.ID, i)
		}
		if seen[it] == 0 {
			t.Errorf("linear item %s is not reachable", it.AttachName)
		}
		if p := f.Parent(it); p != nil && p.Depth+1 != it.Depth {
			t.Errorf("item %s depth %d under parent depth %d", it.AttachName, it.Depth, p.Depth)
		}
	}
}

// FindItem returns the first item with the given attach name, or nil.
func FindItem(f *tree.Forest, path string) *tree.Item {
	for _, it := range f.Linear() {
		if it.AttachName == path {
			return it
		}
	}
	return nil
}

// AssertResult checks the filter result of the item at path.
func AssertResult(t *testing.T, f *tree.Forest, path string, want tree.FilterResult) {
	t.Helper()
	it := FindItem(f, path)
	if it == nil {
		t.Errorf("item %s not found", path)
		return
	}
	if it.Result != want {
		t.Errorf("item %s: expected %s, got %s", path, want, it.Result)
	}
}

// AssertFilteredPaths checks the attach names of items, in order.
func AssertFilteredPaths(t *testing.T, items []*tree.Item, want ...string) {
	t.Helper()
	if len(items) != len(want) {
		got := make([]string, len(items))
		for i, it := range items {
			got[i] = it.AttachName
		}
		t.Fatalf("expected %d items %v, got %d %v", len(want), want, len(items), got)
	}
	for i, it := range items {
		if it.AttachName != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], it.AttachName)
		}
	}
}
