package export

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/vanderheijden86/jointscope/pkg/tree"
)

// MermaidConfig configures the Mermaid graph generation.
type MermaidConfig struct {
	// Direction is the flowchart direction; LR when empty.
	Direction string
	// ShowTypes appends the class to each label.
	ShowTypes bool
}

// GenerateMermaid renders the visible items as a Mermaid flowchart with one
// edge per parent link. Matches of the text filter get the match class.
func GenerateMermaid(roots []*tree.Item, config MermaidConfig) string {
	var sb strings.Builder

	dir := config.Direction
	if dir == "" {
		dir = "LR"
	}
	sb.WriteString("graph " + dir + "\n")

	// Class definitions for styling
	sb.WriteString("    classDef kind_manager fill:#D1C4E9,stroke:#333,color:#000\n")
	sb.WriteString("    classDef kind_node fill:#BBDEFB,stroke:#333,color:#000\n")
	sb.WriteString("    classDef kind_property fill:#C8E6C9,stroke:#333,color:#000\n")
	sb.WriteString("    classDef match stroke:#FF8F00,stroke-width:3px\n")
	sb.WriteString("\n")

	// Build deterministic, collision-free Mermaid IDs
	safeIDMap := make(map[*tree.Item]string)
	usedSafe := make(map[string]bool)
	getSafeID := func(it *tree.Item) string {
		if safe, ok := safeIDMap[it]; ok {
			return safe
		}
		base := sanitizeMermaidID(it.AttachName)
		safe := base
		if usedSafe[safe] {
			// Collision: derive stable hash-based suffix
			h := fnv.New32a()
			_, _ = h.Write([]byte(it.AttachName))
			safe = fmt.Sprintf("%s_%x", base, h.Sum32())
			for n := 2; usedSafe[safe]; n++ {
				safe = fmt.Sprintf("%s_%x_%d", base, h.Sum32(), n)
			}
		}
		usedSafe[safe] = true
		safeIDMap[it] = safe
		return safe
	}

	var edges []string
	walk(roots, 0, func(it *tree.Item, _ int) {
		id := getSafeID(it)
		label := sanitizeMermaidText(it.Label())
		if config.ShowTypes {
			if class := it.Class(); class != "" {
				label += "<br/>" + sanitizeMermaidText(class)
			}
		}
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", id, label)
		fmt.Fprintf(&sb, "    class %s kind_%s\n", id, it.Type)
		if it.Result == tree.ShownHighlighted {
			fmt.Fprintf(&sb, "    class %s match\n", id)
		}
		for _, child := range it.FilteredChildren {
			edges = append(edges, fmt.Sprintf("    %s --> %s\n", id, getSafeID(child)))
		}
	})

	if len(edges) > 0 {
		sb.WriteString("\n")
		for _, e := range edges {
			sb.WriteString(e)
		}
	}
	return sb.String()
}

// sanitizeMermaidID keeps letters, digits, '-' and '_'. The prefix keeps
// Mermaid keywords such as "end" from being used as IDs.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	sb.WriteString("i_")
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// sanitizeMermaidText prepares text for use in Mermaid node labels.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := replacer.Replace(text)

	// Remove any remaining control characters
	result = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, result)

	result = strings.TrimSpace(result)
	if len([]rune(result)) > 60 {
		result = string([]rune(result)[:57]) + "..."
	}
	return result
}
