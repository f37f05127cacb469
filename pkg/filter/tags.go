package filter

import (
	"slices"
	"strings"
	"sync"
)

// FilterItem is a named tag predicate that can be switched on and off.
type FilterItem struct {
	Name    string
	Enabled bool
}

// TagSet is an ordered set of tag predicates, looked up by name.
type TagSet struct {
	mu       sync.Mutex
	items    []FilterItem
	onChange func()
}

func NewTagSet(items ...FilterItem) *TagSet {
	ts := &TagSet{}
	for _, it := range items {
		ts.add(it)
	}
	return ts
}

// OnChange registers fn to run after every mutation. fn runs without the
// set's lock held.
func (ts *TagSet) OnChange(fn func()) {
	ts.mu.Lock()
	ts.onChange = fn
	ts.mu.Unlock()
}

func (ts *TagSet) changed() {
	ts.mu.Lock()
	fn := ts.onChange
	ts.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (ts *TagSet) index(name string) int {
	return slices.IndexFunc(ts.items, func(it FilterItem) bool { return it.Name == name })
}

func (ts *TagSet) add(it FilterItem) bool {
	if it.Name == "" || ts.index(it.Name) >= 0 {
		return false
	}
	ts.items = append(ts.items, it)
	return true
}

// Add inserts a tag. It reports false if the name is empty or taken.
func (ts *TagSet) Add(name string, enabled bool) bool {
	ts.mu.Lock()
	ok := ts.add(FilterItem{Name: name, Enabled: enabled})
	ts.mu.Unlock()
	if ok {
		ts.changed()
	}
	return ok
}

func (ts *TagSet) Remove(name string) bool {
	ts.mu.Lock()
	i := ts.index(name)
	if i >= 0 {
		ts.items = slices.Delete(ts.items, i, i+1)
	}
	ts.mu.Unlock()
	if i >= 0 {
		ts.changed()
	}
	return i >= 0
}

// Toggle flips a tag and returns its new state.
func (ts *TagSet) Toggle(name string) (enabled, ok bool) {
	ts.mu.Lock()
	i := ts.index(name)
	if i >= 0 {
		ts.items[i].Enabled = !ts.items[i].Enabled
		enabled = ts.items[i].Enabled
	}
	ts.mu.Unlock()
	if i >= 0 {
		ts.changed()
	}
	return enabled, i >= 0
}

func (ts *TagSet) SetEnabled(name string, enabled bool) bool {
	ts.mu.Lock()
	i := ts.index(name)
	changed := i >= 0 && ts.items[i].Enabled != enabled
	if changed {
		ts.items[i].Enabled = enabled
	}
	ts.mu.Unlock()
	if changed {
		ts.changed()
	}
	return i >= 0
}

func (ts *TagSet) Find(name string) (FilterItem, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if i := ts.index(name); i >= 0 {
		return ts.items[i], true
	}
	return FilterItem{}, false
}

// Items returns a copy of all tags in insertion order.
func (ts *TagSet) Items() []FilterItem {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return slices.Clone(ts.items)
}

// Enabled returns the names of enabled tags in insertion order.
func (ts *TagSet) Enabled() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var out []string
	for _, it := range ts.items {
		if it.Enabled {
			out = append(out, it.Name)
		}
	}
	return out
}

// Expression returns the enabled tags OR'ed together, or "".
func (ts *TagSet) Expression() string {
	names := ts.Enabled()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Quote(n)
	}
	return strings.Join(quoted, " || ")
}

// Combine joins the query text and the enabled tags of ts into the effective
// filter text: the query alone, the tags alone, or "(query) && (tags)".
func Combine(query string, ts *TagSet) string {
	query = strings.TrimSpace(query)
	tags := ""
	if ts != nil {
		tags = ts.Expression()
	}
	switch {
	case tags == "":
		return query
	case query == "":
		return tags
	default:
		return "(" + query + ") && (" + tags + ")"
	}
}
