package ui

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/jointscope/pkg/controller"
	"github.com/vanderheijden86/jointscope/pkg/filter"
	"github.com/vanderheijden86/jointscope/pkg/model"
)

// scenario is one manager with two nodes, each with one text property.
func scenario() *model.Registry {
	reg := model.NewRegistry()
	m := model.NewManager("M", "DialogueManager")
	m.AddNode(model.NewNode("A", "Speech")).
		AddField(model.NewField("Text", model.KindText, model.FlagEdit, "say foo"))
	m.AddNode(model.NewNode("B", "Speech")).
		AddField(model.NewField("Text", model.KindText, model.FlagEdit, "foo again"))
	reg.Add(m)
	return reg
}

func newBuiltController(t *testing.T, reg *model.Registry, opts ...controller.Option) *controller.Controller {
	t.Helper()
	base := []controller.Option{
		controller.WithLogLevel(controller.LogLevelNone),
		controller.WithLogger(log.New(io.Discard, "", 0)),
	}
	c := controller.New(reg, append(base, opts...)...)
	t.Cleanup(c.Close)
	c.RequestRebuild()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Await(ctx); err != nil {
		t.Fatalf("Await: %v", err)
	}
	return c
}

func testTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(io.Discard))
}

func newTestModel(t *testing.T, c *controller.Controller, opts ...Option) Model {
	t.Helper()
	m := New(c, append([]Option{WithTheme(testTheme())}, opts...)...)
	return refresh(m)
}

// refresh delivers the RefreshMsg the controller would send through WaitCmd.
func refresh(m Model) Model {
	next, _ := m.Update(controller.RefreshMsg{})
	return next.(Model)
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m, cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyCtrlF}
	case "ctrl+a":
		return tea.KeyMsg{Type: tea.KeyCtrlA}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = press(m, string(r))
	}
	return m
}

type fakeDocs struct {
	mu      sync.Mutex
	saved   []*model.Field
	reloads int
	err     error
}

func (d *fakeDocs) Reload(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloads++
	return d.err
}

func (d *fakeDocs) Save(_ context.Context, changed []*model.Field) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved = append(d.saved, changed...)
	return d.err
}

func TestModel_InitialRows(t *testing.T) {
	c := newBuiltController(t, scenario())
	m := newTestModel(t, c)

	// M, A, A:Text, B, B:Text
	if m.RowCount() != 5 {
		t.Fatalf("expected 5 rows, got %d", m.RowCount())
	}
	view := m.View()
	for _, want := range []string{"jscope", "5 rows", "say foo", "foo again"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_QueryFiltersLive(t *testing.T) {
	c := newBuiltController(t, scenario())
	m := newTestModel(t, c)

	m, _ = press(m, "/")
	if m.FocusState() != "query" {
		t.Fatalf("expected query focus, got %s", m.FocusState())
	}
	m = refresh(typeText(m, "say"))
	if c.QueryText() != "say" {
		t.Errorf("expected live query, got %q", c.QueryText())
	}
	if c.HighlightText() != "say" {
		t.Errorf("expected highlight to follow the query, got %q", c.HighlightText())
	}
	// M and A kept for their descendant, plus the matching property.
	if m.RowCount() != 3 {
		t.Errorf("expected 3 rows, got %d", m.RowCount())
	}

	m, _ = press(m, "enter")
	if m.FocusState() != "tree" {
		t.Errorf("expected tree focus after enter, got %s", m.FocusState())
	}

	m, _ = press(m, "esc")
	m = refresh(m)
	if c.QueryText() != "" || m.RowCount() != 5 {
		t.Errorf("expected esc to clear the filter, got %q with %d rows", c.QueryText(), m.RowCount())
	}
}

func TestModel_QueryParseErrorKeepsRows(t *testing.T) {
	c := newBuiltController(t, scenario())
	m := newTestModel(t, c)

	m, _ = press(m, "/")
	m = typeText(m, "(")
	next, _ := m.Update(controller.FilterErrorMsg{Err: c.LastFilterError()})
	m = next.(Model)
	if c.LastFilterError() == nil {
		t.Fatal("expected a parse error")
	}
	if m.Status() == "" {
		t.Error("expected the parse error in the status line")
	}
	if m.RowCount() != 5 {
		t.Errorf("expected previous rows to remain, got %d", m.RowCount())
	}
}

func TestModel_FlattenToggle(t *testing.T) {
	c := newBuiltController(t, scenario())
	m := newTestModel(t, c)

	m, _ = press(m, "f")
	if !c.FlattenOnFilter() {
		t.Fatal("expected flatten on")
	}
	m, _ = press(m, "/")
	m = refresh(typeText(m, "foo"))
	// Only the two matching properties, without ancestors.
	if m.RowCount() != 2 {
		t.Errorf("expected 2 flattened rows, got %d", m.RowCount())
	}
}

func TestModel_TagKeys(t *testing.T) {
	c := newBuiltController(t, scenario(), controller.WithTags(filter.FilterItem{Name: "Tag:Node"}))
	m := newTestModel(t, c)

	m, _ = press(m, "1")
	if got := c.Tags().Enabled(); len(got) != 1 || got[0] != "Tag:Node" {
		t.Fatalf("expected Tag:Node enabled, got %v", got)
	}
	if m.Status() != "Tag:Node on" {
		t.Errorf("unexpected status %q", m.Status())
	}
	m = refresh(m)
	// M kept for its nodes; properties hidden.
	if m.RowCount() != 3 {
		t.Errorf("expected 3 rows, got %d", m.RowCount())
	}

	m, _ = press(m, "9")
	if m.Status() != "No tag bound to 9" {
		t.Errorf("unexpected status %q", m.Status())
	}
}

func TestModel_ReplaceAllSaves(t *testing.T) {
	c := newBuiltController(t, scenario())
	docs := &fakeDocs{}
	m := newTestModel(t, c, WithDocuments(docs))

	m, _ = press(m, "ctrl+f")
	if m.FocusState() != "replace" {
		t.Fatalf("expected replace focus, got %s", m.FocusState())
	}
	m = typeText(m, "foo")
	m, _ = press(m, "tab")
	m = typeText(m, "bar")
	m, cmd := press(m, "ctrl+a")

	if m.Status() != "Total 2 occurrences have been replaced." {
		t.Errorf("unexpected status %q", m.Status())
	}
	if cmd == nil {
		t.Fatal("expected a save command")
	}
	msg, ok := cmd().(SavedMsg)
	if !ok || msg.Err != nil || msg.Fields != 2 {
		t.Fatalf("unexpected save result %+v", msg)
	}
	if len(docs.saved) != 2 {
		t.Errorf("expected 2 saved fields, got %d", len(docs.saved))
	}
}

func TestModel_ReplaceNextWithoutOccurrence(t *testing.T) {
	c := newBuiltController(t, scenario())
	docs := &fakeDocs{}
	m := newTestModel(t, c, WithDocuments(docs))

	m, _ = press(m, "ctrl+f")
	m = typeText(m, "zzz")
	m, cmd := press(m, "enter")
	if m.Status() != "No occurrence found." {
		t.Errorf("unexpected status %q", m.Status())
	}
	if cmd != nil {
		t.Error("expected no save when nothing changed")
	}

	m, _ = press(m, "esc")
	if m.FocusState() != "tree" {
		t.Errorf("expected tree focus, got %s", m.FocusState())
	}
}

func TestModel_DetailsAndCopy(t *testing.T) {
	c := newBuiltController(t, scenario())
	var copied string
	m := newTestModel(t, c, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m, _ = press(m, "down", "enter")
	if got := m.Details(); !strings.Contains(got, "node /M.A") || !strings.Contains(got, "in M (DialogueManager)") {
		t.Errorf("unexpected details %q", got)
	}

	m, _ = press(m, "y")
	if copied != "/M.A" {
		t.Errorf("expected /M.A copied, got %q", copied)
	}
	if m.Status() != "Copied /M.A" {
		t.Errorf("unexpected status %q", m.Status())
	}
}

func TestModel_ClipboardError(t *testing.T) {
	c := newBuiltController(t, scenario())
	m := newTestModel(t, c, WithClipboard(func(string) error { return errors.New("no clipboard") }))
	m, _ = press(m, "y")
	if !strings.Contains(m.Status(), "no clipboard") {
		t.Errorf("expected clipboard error, got %q", m.Status())
	}
}

func TestModel_CollapseAndExpand(t *testing.T) {
	c := newBuiltController(t, scenario())
	m := newTestModel(t, c)

	m, _ = press(m, "left")
	if m.RowCount() != 1 {
		t.Fatalf("expected collapsed manager, got %d rows", m.RowCount())
	}
	m, _ = press(m, "right")
	if m.RowCount() != 5 {
		t.Errorf("expected expanded manager, got %d rows", m.RowCount())
	}
	m, _ = press(m, "right")
	if m.SelectedItem().AttachName != "/M.A" {
		t.Errorf("expected to step into first child, got %s", m.SelectedItem().AttachName)
	}
	m, _ = press(m, "down", "left")
	if m.SelectedItem().AttachName != "/M.A" {
		t.Errorf("expected jump to parent, got %s", m.SelectedItem().AttachName)
	}
}

func TestModel_ReloadRequestsRebuild(t *testing.T) {
	c := newBuiltController(t, scenario())
	docs := &fakeDocs{}
	m := newTestModel(t, c, WithDocuments(docs))

	_, cmd := m.Update(DocumentChangedMsg{Path: "/tmp/graph.yaml"})
	if cmd == nil {
		t.Fatal("expected reload command")
	}

	gen := c.Generation()
	next, _ := m.Update(ReloadedMsg{})
	m = next.(Model)
	if c.Generation() != gen+1 {
		t.Errorf("expected a rebuild, generation %d -> %d", gen, c.Generation())
	}
	if m.Status() != "Documents reloaded" {
		t.Errorf("unexpected status %q", m.Status())
	}

	gen = c.Generation()
	next, _ = m.Update(ReloadedMsg{Err: errors.New("bad yaml")})
	m = next.(Model)
	if c.Generation() != gen {
		t.Error("failed reload must not rebuild")
	}
	if !strings.Contains(m.Status(), "bad yaml") {
		t.Errorf("unexpected status %q", m.Status())
	}
}

func TestModel_ReloadCmdCallsDocuments(t *testing.T) {
	docs := &fakeDocs{}
	msg := ReloadCmd(context.Background(), docs)()
	if _, ok := msg.(ReloadedMsg); !ok || docs.reloads != 1 {
		t.Errorf("expected one reload, got %d (%T)", docs.reloads, msg)
	}
}

func TestModel_HelpAndQuit(t *testing.T) {
	c := newBuiltController(t, scenario())
	m := newTestModel(t, c)

	m, _ = press(m, "?")
	if m.FocusState() != "help" {
		t.Fatalf("expected help focus, got %s", m.FocusState())
	}
	if !strings.Contains(m.View(), "Navigation") {
		t.Error("expected help content in view")
	}
	m, _ = press(m, "esc")
	if m.FocusState() != "tree" {
		t.Errorf("expected tree focus, got %s", m.FocusState())
	}

	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_WindowResize(t *testing.T) {
	c := newBuiltController(t, scenario())
	m := newTestModel(t, c)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 8})
	m = next.(Model)
	if m.tree.height != 4 {
		t.Errorf("expected body height 4, got %d", m.tree.height)
	}
}
