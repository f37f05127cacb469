package ui

import (
	"github.com/charmbracelet/glamour"
)

// HelpMarkdown is the full help text, rendered by RenderHelp.
const HelpMarkdown = "# jscope\n\n" +
	"Browse node-graph documents as a tree of managers, nodes and properties.\n\n" +
	"## Navigation\n\n" +
	"| Key | Action |\n" +
	"|---|---|\n" +
	"| `↑` `↓` `j` `k` | move |\n" +
	"| `pgup` `pgdn` | page |\n" +
	"| `g` `G` | top, bottom |\n" +
	"| `→` `l` | expand, or step into the first child |\n" +
	"| `←` `h` | collapse, or jump to the parent |\n" +
	"| `tab` | fold or unfold |\n" +
	"| `enter` | show the object and its manager |\n" +
	"| `y` | copy the object path |\n\n" +
	"## Filtering\n\n" +
	"Press `/` and type. Terms are matched case-insensitively against the name, class, " +
	"value and tags of each row.\n\n" +
	"```\n" +
	"alpha beta            both terms\n" +
	"alpha || \"two words\"  either term\n" +
	"!alpha  -alpha        negation\n" +
	"(a || b) && Tag:FName grouping\n" +
	"```\n\n" +
	"Tags are `Tag:Manager`, `Tag:Node`, `Tag:ManagerFragment`, `Tag:Property`, " +
	"`Tag:<Class>` and one per property kind such as `Tag:FText`. " +
	"Keys `1` to `9` toggle the preset tags; enabled tags are OR'ed together and AND'ed " +
	"with the typed filter.\n\n" +
	"`f` toggles flatten mode: while a filter is active, matches are listed without " +
	"their ancestors.\n\n" +
	"## Replace\n\n" +
	"`ctrl+f` opens the replace prompt. `tab` switches between the two inputs, `enter` " +
	"replaces the next occurrence and `ctrl+a` replaces every occurrence. Only string, " +
	"name and text properties that are currently visible are changed, and the document " +
	"is saved afterwards.\n\n" +
	"## Other\n\n" +
	"`ctrl+r` or `F5` rebuilds the tree. The tree also rebuilds when a document changes " +
	"on disk. `q` quits.\n"

// RenderHelp renders HelpMarkdown for the terminal. It falls back to the raw
// markdown when rendering fails.
func RenderHelp(width int) string {
	wrap := width - 4
	if wrap < 20 {
		wrap = 76
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return HelpMarkdown
	}
	out, err := r.Render(HelpMarkdown)
	if err != nil {
		return HelpMarkdown
	}
	return out
}
