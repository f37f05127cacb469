package ui

import (
	"fmt"
	"io"

	"github.com/xlab/treeprint"

	"github.com/vanderheijden86/jointscope/pkg/tree"
)

// PrintOptions controls the plain tree dump.
type PrintOptions struct {
	Title     string
	ShowTypes bool
	// MarkMatches prefixes rows that matched the text filter with "*".
	MarkMatches bool
}

// PrintTree writes the filtered items as an indented tree, ignoring the
// expansion state. Flattened results print as a single level.
func PrintTree(w io.Writer, roots []*tree.Item, opts PrintOptions) error {
	root := treeprint.New()
	if opts.Title != "" {
		root.SetValue(opts.Title)
	}
	for _, it := range roots {
		addPrintNode(root, it, opts)
	}
	_, err := io.WriteString(w, root.String())
	return err
}

func addPrintNode(parent treeprint.Tree, it *tree.Item, opts PrintOptions) {
	label := printLabel(it, opts)
	if len(it.FilteredChildren) == 0 {
		parent.AddNode(label)
		return
	}
	branch := parent.AddBranch(label)
	for _, child := range it.FilteredChildren {
		addPrintNode(branch, child, opts)
	}
}

func printLabel(it *tree.Item, opts PrintOptions) string {
	label := fmt.Sprintf("[%s] %s", KindBadge(it.Type), it.Label())
	if opts.ShowTypes {
		if class := it.Class(); class != "" {
			label += " (" + class + ")"
		}
	}
	if opts.MarkMatches && it.Result == tree.ShownHighlighted {
		label = "* " + label
	}
	return label
}
