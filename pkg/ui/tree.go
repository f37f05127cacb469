package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/jointscope/pkg/tree"
)

// Expansion reports and records which items are unfolded.
// *controller.Controller satisfies it.
type Expansion interface {
	IsExpanded(it *tree.Item) bool
	SetExpanded(it *tree.Item, v bool)
}

// treeRow is one visible line: the item plus its precomputed branch glyphs.
type treeRow struct {
	item   *tree.Item
	prefix string
}

const classColumnWidth = 22

// TreeModel manages the windowed tree view over the filtered forest.
type TreeModel struct {
	roots          []*tree.Item
	rows           []treeRow // flattened visible rows for navigation
	cursor         int       // selection index in rows
	viewportOffset int       // index of first visible row
	width          int
	height         int
	theme          Theme
	expansion      Expansion

	needle    string // highlighted substring
	filtering bool   // a text filter is active; dims context ancestors
	showTypes bool
}

// NewTreeModel creates an empty tree model
func NewTreeModel(theme Theme, expansion Expansion) TreeModel {
	return TreeModel{theme: theme, expansion: expansion}
}

func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

func (t *TreeModel) SetShowTypes(v bool) { t.showTypes = v }

// SetHighlight sets the substring drawn with the match style.
func (t *TreeModel) SetHighlight(needle string) { t.needle = needle }

// SetItems installs a new filtered item list and keeps the selection on the
// same object when it is still visible.
func (t *TreeModel) SetItems(roots []*tree.Item, filtering bool) {
	selected := t.GetSelectedName()
	t.roots = roots
	t.filtering = filtering
	t.rebuildRows()
	if selected != "" {
		t.SelectByName(selected)
	}
	t.ensureCursorVisible()
}

// rebuildRows flattens the expanded part of the filtered hierarchy.
func (t *TreeModel) rebuildRows() {
	t.rows = t.rows[:0]
	t.appendRows(t.roots, "", false)
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

func (t *TreeModel) appendRows(items []*tree.Item, indent string, nested bool) {
	for i, it := range items {
		last := i == len(items)-1
		branch := ""
		if nested {
			if last {
				branch = "└── "
			} else {
				branch = "├── "
			}
		}
		t.rows = append(t.rows, treeRow{item: it, prefix: indent + branch})

		if len(it.FilteredChildren) == 0 || !t.isExpanded(it) {
			continue
		}
		next := indent
		if nested {
			if last {
				next += "    "
			} else {
				next += "│   "
			}
		}
		t.appendRows(it.FilteredChildren, next, true)
	}
}

func (t *TreeModel) isExpanded(it *tree.Item) bool {
	return t.expansion != nil && t.expansion.IsExpanded(it)
}

// View renders the tree with a header row, rendering only the rows inside
// the viewport.
func (t *TreeModel) View() string {
	if len(t.rows) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	sb.WriteString(t.RenderHeader())
	sb.WriteString("\n")

	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		sb.WriteString(t.renderRow(t.rows[i], i == t.cursor))
		sb.WriteString("\n")
	}

	if len(t.rows) > t.effectiveVisibleCount() && t.height > 0 {
		sb.WriteString(t.renderPositionIndicator(start, end))
	}
	return sb.String()
}

func (t *TreeModel) renderPositionIndicator(start, end int) string {
	indicator := fmt.Sprintf(" %d-%d of %d", start+1, end, len(t.rows))
	return t.theme.Renderer.NewStyle().
		Foreground(t.theme.Muted).
		Render(indicator)
}

func (t *TreeModel) renderEmptyState() string {
	muted := t.theme.Renderer.NewStyle().Foreground(t.theme.Muted)
	if t.filtering {
		return muted.Render("No items match the filter. Press / to edit it or esc to clear.")
	}
	return muted.Render("Nothing to show. Press ctrl+r to rebuild.")
}

func (t *TreeModel) rowWidth() int {
	if t.width <= 0 {
		return 79
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	return t.width - 1
}

// RenderHeader returns the column header row.
func (t *TreeModel) RenderHeader() string {
	width := t.rowWidth()
	title := "  ITEM"
	if t.showTypes {
		title = padRight(title, width-classColumnWidth) + "CLASS"
	}
	return t.theme.Header.Width(width).Render(title)
}

// renderRow renders one row: [prefix][indicator] [badge] [label] [class]
func (t *TreeModel) renderRow(r treeRow, isSelected bool) string {
	it := r.item
	width := t.rowWidth()
	rs := t.theme.Renderer

	indicator := "•"
	if len(it.FilteredChildren) > 0 {
		if t.isExpanded(it) {
			indicator = "▾"
		} else {
			indicator = "▸"
		}
	}
	badge := KindBadge(it.Type)
	lead := r.prefix + indicator + " " + badge + " "

	classCol := 0
	if t.showTypes {
		classCol = classColumnWidth
	}
	labelWidth := width - runewidth.StringWidth(lead) - classCol
	label := truncateRunesHelper(it.Label(), labelWidth, "…")

	labelStyle := t.theme.Base
	if t.filtering && it.Result == tree.ShownDescendant {
		labelStyle = t.theme.Dimmed
	}

	var row strings.Builder
	row.WriteString(rs.NewStyle().Foreground(t.theme.Muted).Render(r.prefix + indicator + " "))
	row.WriteString(rs.NewStyle().Foreground(t.theme.KindColor(it.Type)).Bold(true).Render(badge))
	row.WriteString(" ")
	row.WriteString(highlight(label, t.needle, labelStyle, t.theme.Match))
	if t.showTypes {
		pad := labelWidth - runewidth.StringWidth(label)
		if pad > 0 {
			row.WriteString(strings.Repeat(" ", pad))
		}
		class := truncateRunesHelper(it.Class(), classColumnWidth-1, "…")
		row.WriteString(" ")
		row.WriteString(rs.NewStyle().Foreground(t.theme.Subtext).Render(class))
	}

	line := rs.NewStyle().Width(width).MaxWidth(width).Render(row.String())
	if isSelected {
		line = t.theme.Selected.Render(line)
	}
	return line
}

// SelectedItem returns the item under the cursor, or nil.
func (t *TreeModel) SelectedItem() *tree.Item {
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		return t.rows[t.cursor].item
	}
	return nil
}

// GetSelectedName returns the attach name of the selected item, or "".
func (t *TreeModel) GetSelectedName() string {
	if it := t.SelectedItem(); it != nil {
		return it.AttachName
	}
	return ""
}

// SelectByName moves the cursor to the row with the given attach name.
func (t *TreeModel) SelectByName(name string) bool {
	for i, r := range t.rows {
		if r.item.AttachName == name {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) PageDown() {
	t.cursor += t.effectiveVisibleCount()
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) PageUp() {
	t.cursor -= t.effectiveVisibleCount()
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

func (t *TreeModel) JumpToBottom() {
	if len(t.rows) > 0 {
		t.cursor = len(t.rows) - 1
	}
	t.ensureCursorVisible()
}

// ToggleExpand folds or unfolds the selected item.
func (t *TreeModel) ToggleExpand() {
	it := t.SelectedItem()
	if it == nil || len(it.FilteredChildren) == 0 || t.expansion == nil {
		return
	}
	t.expansion.SetExpanded(it, !t.isExpanded(it))
	t.rebuildRows()
	t.ensureCursorVisible()
}

// ExpandOrMoveToChild unfolds a collapsed item, or steps into the first
// child of an expanded one.
func (t *TreeModel) ExpandOrMoveToChild() {
	it := t.SelectedItem()
	if it == nil || len(it.FilteredChildren) == 0 {
		return
	}
	if !t.isExpanded(it) {
		t.ToggleExpand()
		return
	}
	t.MoveDown()
}

// CollapseOrJumpToParent folds an expanded item, or moves to its parent row.
func (t *TreeModel) CollapseOrJumpToParent() {
	it := t.SelectedItem()
	if it == nil {
		return
	}
	if len(it.FilteredChildren) > 0 && t.isExpanded(it) {
		t.ToggleExpand()
		return
	}
	if it.IsRoot() {
		return
	}
	for i := t.cursor - 1; i >= 0; i-- {
		if t.rows[i].item.ID == it.Parent {
			t.cursor = i
			t.ensureCursorVisible()
			return
		}
	}
}

// NodeCount returns the number of visible rows.
func (t *TreeModel) NodeCount() int {
	return len(t.rows)
}

func (t *TreeModel) Cursor() int { return t.cursor }

// visibleRange returns the [start, end) row indices inside the viewport.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.rows) == 0 {
		return 0, 0
	}
	visibleCount := t.effectiveVisibleCount()

	start = t.viewportOffset
	if start < 0 {
		start = 0
	}
	end = start + visibleCount
	if end > len(t.rows) {
		end = len(t.rows)
		start = end - visibleCount
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// effectiveVisibleCount returns the number of row lines that fit, after the
// header row and the position indicator.
func (t *TreeModel) effectiveVisibleCount() int {
	visibleCount := t.height - 1
	if visibleCount <= 0 {
		visibleCount = 19
	}
	if len(t.rows) > visibleCount {
		visibleCount--
	}
	if visibleCount < 1 {
		visibleCount = 1
	}
	return visibleCount
}

// ensureCursorVisible scrolls just enough to keep the cursor on screen.
func (t *TreeModel) ensureCursorVisible() {
	if len(t.rows) == 0 {
		t.viewportOffset = 0
		return
	}
	visibleCount := t.effectiveVisibleCount()

	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+visibleCount {
		t.viewportOffset = t.cursor - visibleCount + 1
	}

	maxOffset := len(t.rows) - visibleCount
	if maxOffset < 0 {
		maxOffset = 0
	}
	if t.viewportOffset > maxOffset {
		t.viewportOffset = maxOffset
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// GetViewportOffset returns the current viewport offset (for testing/debugging).
func (t *TreeModel) GetViewportOffset() int {
	return t.viewportOffset
}

