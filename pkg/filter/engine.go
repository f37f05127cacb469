// Package filter evaluates text and tag predicates over a tree.Forest.
//
// A filter pass assigns every visited item a tree.FilterResult and returns
// the visible items. In hierarchy mode an item that does not match is kept as
// ShownDescendant when one of its descendants does, and FilteredChildren is
// rebuilt on every item. In flatten mode (only when a text filter is present)
// the hierarchy is dropped and every non-hidden item is returned in one list.
//
// The text language is small:
//
//	alpha beta            both terms (implicit AND)
//	alpha && beta         same, also "AND"
//	alpha || "two words"  either term, also "OR"
//	!alpha  -alpha        negation, also "NOT"
//	(a || b) && Tag:FName grouping
package filter

import (
	"github.com/vanderheijden86/jointscope/pkg/metrics"
	"github.com/vanderheijden86/jointscope/pkg/tree"
)

// Args are the inputs of one filter pass.
type Args struct {
	// Query is the compiled text filter; nil means none.
	Query           *Query
	FlattenOnFilter bool
}

// HasText reports whether a text filter is active.
func (a Args) HasText() bool {
	return a.Query != nil
}

// ItemFilter scores a single item, ignoring its descendants.
type ItemFilter func(args Args, it *tree.Item) tree.FilterResult

// DefaultItemFilter shows everything as ShownDescendant without a text
// filter; with one it returns ShownHighlighted on a match and Hidden otherwise.
func DefaultItemFilter(args Args, it *tree.Item) tree.FilterResult {
	if !args.HasText() {
		return tree.ShownDescendant
	}
	if args.Query.Match(it.FilterString()) {
		return tree.ShownHighlighted
	}
	return tree.Hidden
}

// Engine runs filter passes. The zero value uses DefaultItemFilter.
type Engine struct {
	ItemFilter ItemFilter
}

func (e *Engine) score(args Args, it *tree.Item) tree.FilterResult {
	if e.ItemFilter != nil {
		return e.ItemFilter(args, it)
	}
	return DefaultItemFilter(args, it)
}

// Filter scores every item under roots and returns the visible items: the
// surviving roots in hierarchy mode, or every match in pre-order in flatten
// mode.
func (e *Engine) Filter(args Args, roots []*tree.Item) []*tree.Item {
	defer metrics.Timer(metrics.FilterDuration)()

	var out []*tree.Item
	if args.FlattenOnFilter && args.HasText() {
		for _, it := range roots {
			out = e.flatten(args, it, out)
		}
		return out
	}
	for _, it := range roots {
		if e.hierarchy(args, it) != tree.Hidden {
			out = append(out, it)
		}
	}
	return out
}

func (e *Engine) flatten(args Args, it *tree.Item, out []*tree.Item) []*tree.Item {
	it.FilteredChildren = it.FilteredChildren[:0]
	it.Result = e.score(args, it)
	if it.Result != tree.Hidden {
		out = append(out, it)
	}
	for _, child := range it.Children {
		out = e.flatten(args, child, out)
	}
	return out
}

func (e *Engine) hierarchy(args Args, it *tree.Item) tree.FilterResult {
	it.FilteredChildren = it.FilteredChildren[:0]
	best := tree.Hidden
	for _, child := range it.Children {
		r := e.hierarchy(args, child)
		if r != tree.Hidden {
			it.FilteredChildren = append(it.FilteredChildren, child)
		}
		best = max(best, r)
	}
	own := e.score(args, it)
	if own < best {
		own = tree.ShownDescendant
	}
	it.Result = own
	return own
}
