package controller

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/vanderheijden86/jointscope/pkg/metrics"
	"github.com/vanderheijden86/jointscope/pkg/model"
	"github.com/vanderheijden86/jointscope/pkg/tree"
)

// ReplaceMode selects how far a replace traversal goes.
type ReplaceMode int

const (
	// ModeNext stops after the first replaced occurrence.
	ModeNext ReplaceMode = iota
	ModeAll
)

func (m ReplaceMode) String() string {
	if m == ModeAll {
		return "all"
	}
	return "next"
}

// ReplaceReport describes the outcome of a replace. Zero occurrences is a
// normal outcome, not an error.
type ReplaceReport struct {
	From        string
	To          string
	Mode        ReplaceMode
	Occurrences int
	Changed     []*model.Field
	// Err is a filter error hit while re-applying the filter.
	Err error
}

// None reports whether nothing was replaced.
func (r ReplaceReport) None() bool { return r.Occurrences == 0 }

func (r ReplaceReport) String() string {
	switch r.Occurrences {
	case 0:
		return "No occurrence found."
	case 1:
		return "Total 1 occurrence has been replaced."
	default:
		return fmt.Sprintf("Total %d occurrences have been replaced.", r.Occurrences)
	}
}

// Replace replaces the first occurrence of from in the string-like fields
// of the visible items. Each changed item counts once.
//
// Items are visited in pre-order over FilteredItems and FilteredChildren:
// an item's own field is checked before its children. ModeNext stops at
// the first change.
func (c *Controller) Replace(from, to string, mode ReplaceMode) ReplaceReport {
	defer metrics.Timer(metrics.ReplaceDuration)()

	rep := ReplaceReport{From: from, To: to, Mode: mode}
	if from == "" {
		return rep
	}
	if err := c.ApplyFilter(); err != nil {
		rep.Err = err
		return rep
	}

	r := &replacer{from: from, to: to, mode: mode, visited: roaring.New()}
	for _, it := range c.filtered {
		if r.visit(it) {
			break
		}
	}
	rep.Occurrences = r.count
	rep.Changed = r.changed

	if rep.Occurrences > 0 {
		rep.Err = c.ApplyFilter()
	}
	c.logEvent(LogLevelInfo, "replace", map[string]any{
		"mode":        mode.String(),
		"occurrences": rep.Occurrences,
	})
	return rep
}

// ReplaceNext replaces the first visible occurrence only.
func (c *Controller) ReplaceNext(from, to string) ReplaceReport {
	return c.Replace(from, to, ModeNext)
}

// ReplaceAll replaces every visible occurrence.
func (c *Controller) ReplaceAll(from, to string) ReplaceReport {
	return c.Replace(from, to, ModeAll)
}

type replacer struct {
	from, to string
	mode     ReplaceMode
	visited  *roaring.Bitmap
	count    int
	changed  []*model.Field
}

func (r *replacer) done() bool {
	return r.mode == ModeNext && r.count > 0
}

// visit processes it and its filtered children. It returns true when the
// traversal must stop.
func (r *replacer) visit(it *tree.Item) bool {
	if r.done() {
		return true
	}
	if !r.visited.CheckedAdd(uint32(it.ID)) {
		return false
	}
	if it.Type == tree.TypeProperty && it.Field != nil && it.Field.Kind.IsStringLike() {
		if owner := it.Field.Owner(); owner == nil || !owner.IsDestroyed() {
			if it.Field.ReplaceFirst(r.from, r.to) {
				r.count++
				r.changed = append(r.changed, it.Field)
			}
		}
	}
	if r.done() {
		return true
	}
	for _, child := range it.FilteredChildren {
		if r.visit(child) {
			return true
		}
	}
	return r.done()
}
