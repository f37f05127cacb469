// Package ui is the terminal browser: a bubbletea model over a
// controller.Controller that shows the filtered tree, the filter and replace
// prompts, and reloads documents when they change on disk.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/jointscope/pkg/controller"
	"github.com/vanderheijden86/jointscope/pkg/filter"
	"github.com/vanderheijden86/jointscope/pkg/metrics"
	"github.com/vanderheijden86/jointscope/pkg/model"
	"github.com/vanderheijden86/jointscope/pkg/tree"
	"github.com/vanderheijden86/jointscope/pkg/watcher"
)

// focus represents which UI element has keyboard focus
type focus int

const (
	focusTree focus = iota
	focusQuery
	focusReplace
	focusHelp
)

// Documents is the storage side of the browser.
type Documents interface {
	// Reload re-reads every open document and swaps the managers in place.
	Reload(ctx context.Context) error
	// Save writes changed field values back to their documents.
	Save(ctx context.Context, changed []*model.Field) error
}

// DocumentChangedMsg is sent when a watched document changes on disk.
type DocumentChangedMsg struct {
	Path string
}

// ReloadedMsg reports the outcome of a reload.
type ReloadedMsg struct {
	Err error
}

// SavedMsg reports the outcome of saving replaced values.
type SavedMsg struct {
	Fields int
	Err    error
}

// WatchFileCmd returns a command that waits for the next document change.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		return DocumentChangedMsg{Path: <-w.Changed()}
	}
}

func ReloadCmd(ctx context.Context, docs Documents) tea.Cmd {
	return func() tea.Msg {
		return ReloadedMsg{Err: docs.Reload(ctx)}
	}
}

func SaveCmd(ctx context.Context, docs Documents, changed []*model.Field) tea.Cmd {
	return func() tea.Msg {
		return SavedMsg{Fields: len(changed), Err: docs.Save(ctx, changed)}
	}
}

// Option configures a Model.
type Option func(*Model)

func WithDocuments(d Documents) Option {
	return func(m *Model) { m.docs = d }
}

// WithWatcher reloads documents when w reports a change. The caller starts
// and stops the watcher.
func WithWatcher(w *watcher.Watcher) Option {
	return func(m *Model) { m.watcher = w }
}

func WithTheme(t Theme) Option {
	return func(m *Model) { m.theme = t }
}

func WithKeyMap(k KeyMap) Option {
	return func(m *Model) { m.keys = k }
}

// WithShowTypes adds a class column.
func WithShowTypes(v bool) Option {
	return func(m *Model) { m.showTypes = v }
}

func WithHighlightMatches(v bool) Option {
	return func(m *Model) { m.highlightMatches = v }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copy = fn }
}

// WithContext sets the context passed to reloads and saves.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// Model is the main bubbletea model.
type Model struct {
	ctl     *controller.Controller
	docs    Documents
	watcher *watcher.Watcher
	ctx     context.Context

	keys  KeyMap
	help  help.Model
	theme Theme
	tree  TreeModel

	query  textinput.Model
	from   textinput.Model
	to     textinput.Model
	helpVP viewport.Model

	focus            focus
	width            int
	height           int
	loading          bool
	showTypes        bool
	highlightMatches bool
	copy             func(string) error

	statusMsg     string
	statusIsError bool
	details       string
}

// New creates the browser over ctl. The first build starts in Init.
func New(ctl *controller.Controller, opts ...Option) Model {
	m := Model{
		ctl:              ctl,
		ctx:              context.Background(),
		keys:             DefaultKeyMap(),
		help:             help.New(),
		theme:            DefaultTheme(lipgloss.DefaultRenderer()),
		highlightMatches: true,
		copy:             clipboard.WriteAll,
		width:            80,
		height:           24,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.tree = NewTreeModel(m.theme, ctl)
	m.tree.SetShowTypes(m.showTypes)

	m.query = newInput(m.theme, "/ ", "name, Tag:FText, a || b")
	m.query.SetValue(ctl.QueryText())
	m.from = newInput(m.theme, "replace ", "text")
	m.to = newInput(m.theme, " with ", "replacement")
	m.helpVP = viewport.New(m.width, m.bodyHeight())

	m.resize()
	return m
}

func newInput(theme Theme, prompt, placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.PromptStyle = theme.Prompt
	ti.Placeholder = placeholder
	return ti
}

func (m Model) Init() tea.Cmd {
	m.ctl.RequestRebuild()
	cmds := []tea.Cmd{m.ctl.WaitCmd()}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	// Controller notifications re-arm WaitCmd so exactly one is pending.
	case controller.ForestReadyMsg:
		m.ctl.Apply(msg)
		return m, m.ctl.WaitCmd()
	case controller.LoadingMsg:
		m.loading = msg.Loading
		return m, m.ctl.WaitCmd()
	case controller.RefreshMsg:
		m.syncTree()
		return m, m.ctl.WaitCmd()
	case controller.FilterErrorMsg:
		m.setStatus(msg.Err.Error(), true)
		return m, m.ctl.WaitCmd()

	case DocumentChangedMsg:
		var cmds []tea.Cmd
		if m.docs != nil {
			m.setStatus("Reloading "+filepath.Base(msg.Path)+"…", false)
			cmds = append(cmds, ReloadCmd(m.ctx, m.docs))
		}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case ReloadedMsg:
		if msg.Err != nil {
			m.setStatus("Reload failed: "+msg.Err.Error(), true)
			return m, nil
		}
		m.details = ""
		m.setStatus("Documents reloaded", false)
		m.ctl.RequestRebuild()
		return m, nil

	case SavedMsg:
		if msg.Err != nil {
			m.setStatus("Save failed: "+msg.Err.Error(), true)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.focus {
		case focusQuery:
			return m.handleQueryKeys(msg)
		case focusReplace:
			return m.handleReplaceKeys(msg)
		case focusHelp:
			return m.handleHelpKeys(msg)
		default:
			return m.handleTreeKeys(msg)
		}
	}
	return m, nil
}

func (m Model) handleTreeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.tree.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.tree.MoveDown()
	case key.Matches(msg, m.keys.PageUp):
		m.tree.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.tree.PageDown()
	case key.Matches(msg, m.keys.Top):
		m.tree.JumpToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.tree.JumpToBottom()
	case key.Matches(msg, m.keys.Expand):
		m.tree.ExpandOrMoveToChild()
	case key.Matches(msg, m.keys.Collapse):
		m.tree.CollapseOrJumpToParent()
	case key.Matches(msg, m.keys.Toggle):
		m.tree.ToggleExpand()
	case key.Matches(msg, m.keys.Open):
		m.showDetails()
	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
	case key.Matches(msg, m.keys.Query):
		m.focus = focusQuery
		m.query.SetValue(m.ctl.QueryText())
		m.query.CursorEnd()
		return m, m.query.Focus()
	case key.Matches(msg, m.keys.Replace):
		m.focus = focusReplace
		if m.from.Value() == "" {
			m.from.SetValue(m.ctl.HighlightText())
		}
		m.to.Blur()
		return m, m.from.Focus()
	case key.Matches(msg, m.keys.Flatten):
		on := !m.ctl.FlattenOnFilter()
		_ = m.ctl.SetFlattenOnFilter(on)
		m.setStatus("Flatten on filter "+onOff(on), false)
	case key.Matches(msg, m.keys.Tag):
		m.toggleTag(msg.String())
	case key.Matches(msg, m.keys.Rebuild):
		m.details = ""
		m.ctl.RequestRebuild()
	case key.Matches(msg, m.keys.Help):
		m.focus = focusHelp
		m.helpVP.SetContent(RenderHelp(m.width))
		m.helpVP.GotoTop()
	case key.Matches(msg, m.keys.Cancel):
		if m.ctl.QueryText() != "" {
			m.applyQuery("")
			m.query.SetValue("")
		}
		m.details = ""
		m.clearStatus()
	}
	return m, nil
}

func (m Model) handleQueryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Accept):
		m.query.Blur()
		m.focus = focusTree
		if err := m.ctl.LastFilterError(); err != nil {
			m.setStatus(err.Error(), true)
		}
		return m, nil
	}

	before := m.query.Value()
	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	if v := m.query.Value(); v != before {
		m.applyQuery(v)
	}
	return m, cmd
}

// applyQuery filters as the user types. A parse error keeps the previous
// rows and arrives as a FilterErrorMsg.
func (m *Model) applyQuery(text string) {
	if err := m.ctl.SetQueryText(text); err == nil {
		m.clearStatus()
	}
	m.ctl.SetHighlightText(highlightTerm(text))
}

func (m Model) handleReplaceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.from.Blur()
		m.to.Blur()
		m.focus = focusTree
		return m, nil
	case key.Matches(msg, m.keys.NextInput):
		if m.to.Focused() {
			m.to.Blur()
			return m, m.from.Focus()
		}
		m.from.Blur()
		return m, m.to.Focus()
	case key.Matches(msg, m.keys.Accept):
		return m.runReplace(controller.ModeNext)
	case key.Matches(msg, m.keys.ReplaceAll):
		return m.runReplace(controller.ModeAll)
	}

	var cmd tea.Cmd
	if m.to.Focused() {
		m.to, cmd = m.to.Update(msg)
	} else {
		m.from, cmd = m.from.Update(msg)
	}
	return m, cmd
}

func (m Model) runReplace(mode controller.ReplaceMode) (tea.Model, tea.Cmd) {
	report := m.ctl.Replace(m.from.Value(), m.to.Value(), mode)
	if report.Err != nil {
		m.setStatus(report.Err.Error(), true)
	} else {
		m.setStatus(report.String(), false)
	}
	if len(report.Changed) == 0 || m.docs == nil {
		return m, nil
	}
	return m, SaveCmd(m.ctx, m.docs, report.Changed)
}

func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Quit):
		m.focus = focusTree
		return m, nil
	}
	var cmd tea.Cmd
	m.helpVP, cmd = m.helpVP.Update(msg)
	return m, cmd
}

func (m *Model) syncTree() {
	active := m.ctl.LastFilterError() == nil &&
		strings.TrimSpace(filter.Combine(m.ctl.QueryText(), m.ctl.Tags())) != ""
	if m.highlightMatches {
		m.tree.SetHighlight(m.ctl.HighlightText())
	} else {
		m.tree.SetHighlight("")
	}
	m.tree.SetItems(m.ctl.FilteredItems(), active)
}

// showDetails resolves the selected row and the manager it belongs to.
func (m *Model) showDetails() {
	it := m.tree.SelectedItem()
	if it == nil {
		return
	}
	obj := m.ctl.ResolveObject(it)
	if obj == nil {
		m.details = it.AttachName + " no longer exists"
		return
	}
	d := it.Type.String() + " " + obj.ObjectPath()
	if mgr := m.ctl.NearestManager(it); mgr != nil {
		d += "  in " + mgr.Name
		if mgr.Class != "" {
			d += " (" + mgr.Class + ")"
		}
	}
	if it.Type == tree.TypeProperty {
		if names := it.Field.Flags.Names(); len(names) > 0 {
			d += "  [" + strings.Join(names, ", ") + "]"
		}
	}
	m.details = d
}

func (m *Model) copySelected() {
	it := m.tree.SelectedItem()
	if it == nil {
		return
	}
	path := it.AttachName
	if obj := m.ctl.ResolveObject(it); obj != nil {
		path = obj.ObjectPath()
	}
	if err := m.copy(path); err != nil {
		m.setStatus("Clipboard error: "+err.Error(), true)
		return
	}
	m.setStatus("Copied "+path, false)
}

func (m *Model) toggleTag(k string) {
	if len(k) != 1 || k[0] < '1' || k[0] > '9' {
		return
	}
	idx := int(k[0] - '1')
	items := m.ctl.Tags().Items()
	if idx >= len(items) {
		m.setStatus("No tag bound to "+k, true)
		return
	}
	enabled, _ := m.ctl.Tags().Toggle(items[idx].Name)
	m.setStatus(items[idx].Name+" "+onOff(enabled), false)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

func (m *Model) clearStatus() {
	m.statusMsg = ""
	m.statusIsError = false
}

func (m *Model) bodyHeight() int {
	// header, details, prompt, footer
	h := m.height - 4
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) resize() {
	h := m.bodyHeight()
	m.tree.SetSize(m.width, h)
	m.helpVP.Width = m.width
	m.helpVP.Height = h
	m.help.Width = m.width
	m.query.Width = m.width - 4
	half := m.width/2 - 10
	if half < 10 {
		half = 10
	}
	m.from.Width = half
	m.to.Width = half
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.focus == focusHelp {
		b.WriteString(m.helpVP.View())
	} else {
		b.WriteString(m.tree.View())
	}
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}

	if m.details != "" {
		style := m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext)
		b.WriteString(style.Render(truncateRunesHelper(m.details, m.width-1, "…")))
		b.WriteString("\n")
	}
	switch m.focus {
	case focusQuery:
		b.WriteString(m.query.View())
		b.WriteString("\n")
	case focusReplace:
		b.WriteString(m.from.View())
		b.WriteString(m.to.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	r := m.theme.Renderer
	title := r.NewStyle().Foreground(m.theme.Primary).Bold(true).Render("jscope")

	parts := []string{fmt.Sprintf("%d rows", m.tree.NodeCount())}
	if m.loading {
		parts = append(parts, "building…")
	}
	if q := m.ctl.QueryText(); q != "" {
		parts = append(parts, "filter: "+q)
	}
	if tags := m.ctl.Tags().Enabled(); len(tags) > 0 {
		parts = append(parts, "tags: "+strings.Join(tags, " | "))
	}
	if m.ctl.FlattenOnFilter() {
		parts = append(parts, "flatten")
	}
	info := r.NewStyle().Foreground(m.theme.Muted).Render("  " + strings.Join(parts, " · "))
	return title + info
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		color := m.theme.Success
		prefix := "✓ "
		if m.statusIsError {
			color = m.theme.Danger
			prefix = "✗ "
		}
		return m.theme.Renderer.NewStyle().Foreground(color).Bold(true).
			Render(truncateRunesHelper(prefix+m.statusMsg, m.width-1, "…"))
	}
	switch m.focus {
	case focusQuery:
		return m.help.View(promptKeys{KeyMap: m.keys})
	case focusReplace:
		return m.help.View(promptKeys{KeyMap: m.keys, replace: true})
	}
	return m.help.View(m.keys)
}

// Status returns the status line text.
func (m Model) Status() string { return m.statusMsg }

func (m Model) Details() string { return m.details }

// SelectedItem returns the item under the cursor.
func (m Model) SelectedItem() *tree.Item { return m.tree.SelectedItem() }

func (m Model) RowCount() int { return m.tree.NodeCount() }

// FocusState names the focused element, for tests and debugging.
func (m Model) FocusState() string {
	switch m.focus {
	case focusQuery:
		return "query"
	case focusReplace:
		return "replace"
	case focusHelp:
		return "help"
	default:
		return "tree"
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// highlightTerm picks the first plain positive term of a filter expression.
func highlightTerm(q string) string {
	for _, f := range strings.Fields(q) {
		switch strings.ToUpper(f) {
		case "&&", "||", "AND", "OR", "NOT":
			continue
		}
		if strings.HasPrefix(f, "!") || strings.HasPrefix(f, "-") {
			continue
		}
		f = strings.Trim(f, "()\"")
		if f == "" || strings.HasPrefix(f, "Tag:") {
			continue
		}
		return f
	}
	return ""
}
