package export

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/jointscope/pkg/model"
	"github.com/vanderheijden86/jointscope/pkg/tree"
)

func TestGenerateMermaid(t *testing.T) {
	out := GenerateMermaid(filteredRoots(t, "again"), MermaidConfig{ShowTypes: true})

	for _, want := range []string{
		"graph LR",
		`i_M["M<br/>DialogueManager"]`,
		"class i_M kind_manager",
		`i_MB["B<br/>Speech"]`,
		`i_MBText["Text = foo again<br/>FText"]`,
		"class i_MBText match",
		"i_M --> i_MB",
		"i_MB --> i_MBText",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "i_MA") {
		t.Errorf("hidden node rendered:\n%s", out)
	}
	if strings.Contains(out, "class i_M match") {
		t.Errorf("ancestor marked as match:\n%s", out)
	}
}

func TestGenerateMermaid_CollidingIDs(t *testing.T) {
	a := tree.NewNodeItem(model.NewNode("a.b", ""))
	b := tree.NewNodeItem(model.NewNode("ab", ""))
	a.AttachName, b.AttachName = "/a.b", "/ab"

	out := GenerateMermaid([]*tree.Item{a, b}, MermaidConfig{Direction: "TD"})
	if !strings.HasPrefix(out, "graph TD") {
		t.Errorf("direction not applied:\n%s", out)
	}
	if strings.Count(out, `["a.b"]`) != 1 || strings.Count(out, `["ab"]`) != 1 {
		t.Fatalf("expected both nodes:\n%s", out)
	}
	if strings.Count(out, "i_ab[") != 1 {
		t.Errorf("second node must get a distinct id:\n%s", out)
	}
}

func TestSanitizeMermaid(t *testing.T) {
	if got := sanitizeMermaidID("/end"); got != "i_end" {
		t.Errorf("got %q", got)
	}
	if got := sanitizeMermaidText("say \"hi\" [x] <b>\n"); got != "say 'hi' (x) &lt;b&gt;" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("x", 80)
	if got := sanitizeMermaidText(long); len([]rune(got)) != 60 {
		t.Errorf("expected 60 runes, got %d", len([]rune(got)))
	}
}
