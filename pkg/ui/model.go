// Package ui is the terminal renderer for the file explorer.
//
// Model is a bubbletea model around a visible.Engine. It owns the search
// input, windows the visible sequence to the terminal height and, after
// every update, drains the task queue the navigation controller filled.
package ui

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"

	"github.com/vanderheijden86/ft/internal/datasource"
	"github.com/vanderheijden86/ft/pkg/config"
	"github.com/vanderheijden86/ft/pkg/debug"
	"github.com/vanderheijden86/ft/pkg/metrics"
	"github.com/vanderheijden86/ft/pkg/nav"
	"github.com/vanderheijden86/ft/pkg/search"
	"github.com/vanderheijden86/ft/pkg/tasks"
	"github.com/vanderheijden86/ft/pkg/tree"
	"github.com/vanderheijden86/ft/pkg/visible"
	"github.com/vanderheijden86/ft/pkg/watcher"
)

// Lines of chrome around the tree: search input, status line, key help.
const chromeLines = 3

// defaultRows is used until the terminal reports its size.
const defaultRows = 20

// searchResultMsg carries a finished search back to the UI loop.
type searchResultMsg struct {
	outcome search.Outcome
}

// FileChangedMsg is sent when the listing source changes on disk
type FileChangedMsg struct{}

// ReloadedMsg carries a freshly loaded listing.
type ReloadedMsg struct {
	Listing *tree.Listing
	Tree    *tree.Tree
	Err     error
}

// WatchFileCmd returns a command that waits for source changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// ReloadCmd loads and builds a listing off the UI loop.
func ReloadCmd(load func() (*tree.Listing, error)) tea.Cmd {
	return func() tea.Msg {
		l, err := load()
		if err != nil {
			return ReloadedMsg{Err: err}
		}
		t, err := tree.Build(l)
		if err != nil {
			return ReloadedMsg{Err: err}
		}
		return ReloadedMsg{Listing: l, Tree: t}
	}
}

// Options configures a Model.
type Options struct {
	// Height caps the number of tree rows; 0 fills the terminal.
	Height int
	// Activate is one of config.ActivatePrint, ActivateClipboard, ActivateOpen.
	Activate string
	// Root is joined in front of activated paths (a directory source).
	Root string
	// Title is shown in the search prompt line.
	Title string
	// Reload re-reads the listing source. Nil disables reloading.
	Reload func() (*tree.Listing, error)
	// Watcher signals source changes. Nil disables live reload.
	Watcher *watcher.Watcher
	// Logger receives warnings. Defaults to log.Default().
	Logger *log.Logger
	// Theme overrides DefaultTheme.
	Theme *Theme
}

// Model is the explorer's bubbletea model.
type Model struct {
	ctx     context.Context
	engine  *visible.Engine
	queue   *tasks.Queue
	ctrl    *nav.Controller
	listing *tree.Listing

	keys  KeyMap
	input textinput.Model
	theme Theme
	fold  cases.Caser
	opts  Options

	width       int
	height      int
	offset      int
	treeFocused bool
	pending     *search.Pending

	statusMsg     string
	statusIsError bool

	selected string
	quitting bool
}

// NewModel wraps e. listing is the source e's tree was built from; it is
// compared against reloaded listings to report what changed.
func NewModel(ctx context.Context, e *visible.Engine, listing *tree.Listing, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Activate == "" {
		opts.Activate = config.ActivatePrint
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}

	input := textinput.New()
	input.Placeholder = "Search files"
	input.Prompt = "/ "
	input.PromptStyle = theme.Prompt
	input.CharLimit = 256

	q := &tasks.Queue{}
	m := Model{
		ctx:     ctx,
		engine:  e,
		queue:   q,
		ctrl:    nav.New(e, q),
		listing: listing,
		keys:    DefaultKeyMap(),
		input:   input,
		theme:   theme,
		fold:    cases.Fold(),
		opts:    opts,
	}
	if q := e.Query(); q != "" {
		m.input.SetValue(q)
	}
	m.ctrl.Start()
	m.drainTasks()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.opts.Watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

// Selected returns the path chosen with the print action, or "".
func (m Model) Selected() string { return m.selected }

// Engine returns the driven engine.
func (m Model) Engine() *visible.Engine { return m.engine }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-lipgloss.Width(m.input.Prompt)-lipgloss.Width(m.opts.Title)-3, 10)
		m.clampOffset()

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case tea.MouseMsg:
		m.handleMouse(msg)

	case searchResultMsg:
		if m.ctrl.ApplySearch(msg.outcome) {
			m.pending = nil
			m.offset = 0
			if i := m.engine.Snapshot().FocusIndex(); i >= 0 {
				m.queue.Push(tasks.Scroll(i))
			}
		}

	case FileChangedMsg:
		if m.opts.Reload != nil {
			cmds = append(cmds, ReloadCmd(m.opts.Reload))
		}
		if m.opts.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
		}

	case ReloadedMsg:
		cmds = append(cmds, m.applyReload(msg))

	case editorFinishedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Editor failed: %v", msg.err), true)
		} else {
			m.setStatus("Closed "+msg.path, false)
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.drainTasks()...)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Clear):
		if m.input.Value() == "" {
			return m.quit()
		}
		m.input.SetValue("")
		return m.startSearch("")

	case key.Matches(msg, m.keys.SwitchFocus):
		if m.treeFocused {
			m.queue.Push(tasks.FocusSearch())
		} else {
			m.queue.Push(tasks.FocusTree())
		}
		return nil

	case key.Matches(msg, m.keys.ExpandAll):
		m.engine.ExpandAll()
		m.afterBulkChange()
		return nil

	case key.Matches(msg, m.keys.CollapseAll):
		m.engine.CollapseAll()
		m.afterBulkChange()
		return nil

	case key.Matches(msg, m.keys.CopyPath):
		if id := m.engine.Focused(); id != tree.None {
			m.copyPath(m.fullPath(m.engine.Tree().Node(id).Path))
		}
		return nil

	case key.Matches(msg, m.keys.Reload):
		if m.opts.Reload == nil {
			m.setStatus("Reload is not available for this source", true)
			return nil
		}
		m.setStatus("Reloading...", false)
		return ReloadCmd(m.opts.Reload)

	case key.Matches(msg, m.keys.PageUp):
		m.offset -= m.rows()
		m.clampOffset()
		return nil

	case key.Matches(msg, m.keys.PageDown):
		m.offset += m.rows()
		m.clampOffset()
		return nil
	}

	if m.ctrl.HandleKey(m.keys.navKey(msg)) {
		return nil
	}

	// Everything else edits the query.
	var cmds []tea.Cmd
	if m.treeFocused {
		m.treeFocused = false
		cmds = append(cmds, m.input.Focus())
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.input.Value() != before {
		cmds = append(cmds, m.startSearch(m.input.Value()))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.offset--
		m.clampOffset()
	case msg.Button == tea.MouseButtonWheelDown:
		m.offset++
		m.clampOffset()
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		row := msg.Y - 1 // the search input sits on the first line
		if row < 0 || row >= m.rows() {
			return
		}
		if err := m.ctrl.Activate(m.offset + row); err != nil {
			debug.Log("ui: click on row %d: %v", row, err)
			return
		}
		m.queue.Push(tasks.Attach())
	}
}

// startSearch begins a search and returns the command that runs it. Only
// the most recently started search is applied when its result arrives.
func (m *Model) startSearch(q string) tea.Cmd {
	p := m.engine.Search(m.ctx, q)
	m.pending = p
	return func() tea.Msg {
		return searchResultMsg{outcome: p.Run()}
	}
}

func (m *Model) afterBulkChange() {
	m.queue.Push(tasks.Attach())
	if i := m.engine.Snapshot().FocusIndex(); i >= 0 {
		m.queue.Push(tasks.Scroll(i))
	}
}

func (m *Model) applyReload(msg ReloadedMsg) tea.Cmd {
	if msg.Err != nil {
		m.opts.Logger.Printf("warning: reload failed: %v", msg.Err)
		m.setStatus(fmt.Sprintf("Reload error: %v", msg.Err), true)
		return nil
	}
	diff := datasource.DiffListings(m.listing, msg.Listing)
	if !diff.HasChanges() {
		m.setStatus("Reloaded: "+diff.Summary(), false)
		return nil
	}
	debug.Log("ui: reload changes\n%s", diff.Details(20))

	m.listing = msg.Listing
	p := m.engine.Replant(m.ctx, msg.Tree)
	m.queue.Push(tasks.Attach())
	if i := m.engine.Snapshot().FocusIndex(); i >= 0 {
		m.queue.Push(tasks.Scroll(i))
	}
	m.setStatus("Reloaded: "+diff.Summary(), false)
	if p == nil {
		return nil
	}
	m.pending = p
	return func() tea.Msg {
		return searchResultMsg{outcome: p.Run()}
	}
}

// drainTasks performs the queued side effects in order.
func (m *Model) drainTasks() []tea.Cmd {
	var cmds []tea.Cmd
	m.queue.Drain(func(t tasks.Task) {
		switch t.Kind {
		case tasks.ScrollTo:
			m.scrollTo(t.Index)
		case tasks.FocusSearchInput:
			m.treeFocused = false
			cmds = append(cmds, m.input.Focus())
		case tasks.FocusExplorer:
			m.treeFocused = true
			m.input.Blur()
		case tasks.AttachNavigation:
			m.attachNavigation()
		case tasks.Activate:
			cmds = append(cmds, m.activate(t.Path))
		default:
			panic(fmt.Sprintf("ui: unhandled task %v", t))
		}
	})
	return cmds
}

// attachNavigation syncs which navigation keys are live with the snapshot
// on screen.
func (m *Model) attachNavigation() {
	snap := m.engine.Snapshot()
	hasRows := snap.Len() > 0
	focused := snap.Focused != tree.None
	m.keys.Up.SetEnabled(hasRows)
	m.keys.Down.SetEnabled(hasRows)
	m.keys.Left.SetEnabled(focused)
	m.keys.Right.SetEnabled(focused)
	m.keys.Enter.SetEnabled(focused)
	m.keys.CopyPath.SetEnabled(focused)
	m.clampOffset()
}

func (m *Model) activate(p string) tea.Cmd {
	full := m.fullPath(p)
	debug.Log("ui: activate %s (%s)", full, m.opts.Activate)
	switch m.opts.Activate {
	case config.ActivateClipboard:
		m.copyPath(full)
		return nil
	case config.ActivateOpen:
		cmd, what, err := openPath(full)
		if err != nil {
			m.setStatus(err.Error(), true)
			return nil
		}
		m.setStatus(fmt.Sprintf("Opened %s with %s", p, what), false)
		return cmd
	default:
		m.selected = full
		return m.quit()
	}
}

func (m *Model) copyPath(full string) {
	if err := clipboard.WriteAll(full); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus("Copied "+full, false)
}

func (m *Model) fullPath(p string) string {
	if m.opts.Root == "" {
		return p
	}
	return filepath.Join(m.opts.Root, filepath.FromSlash(p))
}

func (m *Model) quit() tea.Cmd {
	if m.pending != nil {
		m.pending.Cancel()
		m.pending = nil
	}
	m.quitting = true
	return tea.Quit
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

// rows is the number of tree rows that fit.
func (m *Model) rows() int {
	avail := defaultRows
	if m.height > 0 {
		avail = m.height - chromeLines
	}
	if m.opts.Height > 0 && m.opts.Height < avail {
		avail = m.opts.Height
	}
	return max(avail, 1)
}

// scrollTo brings row i into the window, moving the window as little as
// possible.
func (m *Model) scrollTo(i int) {
	if i < 0 {
		return
	}
	visibleCount := m.rows()

	// Row above viewport - scroll up to show it at top
	if i < m.offset {
		m.offset = i
	}
	// Row below viewport - scroll down to show it at bottom
	if i >= m.offset+visibleCount {
		m.offset = i - visibleCount + 1
	}
	m.clampOffset()
}

func (m *Model) clampOffset() {
	maxOffset := max(m.engine.Snapshot().Len()-m.rows(), 0)
	if m.offset > maxOffset {
		m.offset = maxOffset
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// visibleRange returns the window [start, end) of snapshot rows on screen.
func (m *Model) visibleRange() (int, int) {
	total := m.engine.Snapshot().Len()
	start := m.offset
	end := min(start+m.rows(), total)
	return start, end
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	defer metrics.Timer(metrics.UIRender)()

	var sb strings.Builder
	if m.opts.Title != "" {
		sb.WriteString(m.theme.Header.Render(m.opts.Title))
		sb.WriteString(" ")
	}
	sb.WriteString(m.input.View())
	sb.WriteString("\n")

	snap := m.engine.Snapshot()
	if snap.Len() == 0 {
		sb.WriteString(m.theme.MutedText.Render("No results found."))
		sb.WriteString("\n")
	} else {
		q := search.ParseQuery(snap.Query)
		start, end := m.visibleRange()
		for i := start; i < end; i++ {
			id := snap.Nodes[i]
			sb.WriteString(m.renderRow(snap, id, id == snap.Focused, q))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(m.renderStatus(snap))
	sb.WriteString("\n")
	sb.WriteString(m.renderHelp())
	return sb.String()
}

func (m *Model) renderRow(snap visible.Snapshot, id tree.ID, isSelected bool, q search.Query) string {
	n := m.engine.Tree().Node(id)
	indent := strings.Repeat(indentUnit, snap.Depth(id))

	glyph := glyphLeaf
	name := n.Name
	style := m.theme.Leaf
	if n.IsContainer() {
		glyph = glyphCollapsed
		if snap.IsExpanded(id) {
			glyph = glyphExpanded
		}
		name += "/"
		style = m.theme.Container
	}
	if n.Truncated {
		name += " " + glyphTruncated
	}
	if !q.Empty() {
		if q.Match(m.fold, n) {
			style = m.theme.Match
		} else {
			style = m.theme.Context
		}
	}

	width := m.width
	if width <= 0 {
		width = 80
	}
	name = truncate(name, width-lipgloss.Width(indent)-2)
	line := indent + m.theme.Indicator.Render(glyph) + " " + style.Render(name)
	if isSelected {
		line = m.theme.Selected.Width(width).MaxWidth(width).Render(line)
	}
	return line
}

// renderStatus renders the position indicator and the last status message.
func (m *Model) renderStatus(snap visible.Snapshot) string {
	var parts []string
	if total := snap.Len(); total > m.rows() {
		start, end := m.visibleRange()
		parts = append(parts, fmt.Sprintf("(%d-%d of %d)", start+1, end, total))
	}
	if m.engine.Searching() {
		parts = append(parts, "searching...")
	}
	status := m.theme.MutedText.Render(strings.Join(parts, " "))
	if m.statusMsg != "" {
		style := m.theme.MutedText
		if m.statusIsError {
			style = m.theme.ErrorText
		}
		if status != "" {
			status += " "
		}
		status += style.Render(m.statusMsg)
	}
	return status
}

func (m *Model) renderHelp() string {
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.theme.MutedText.Render(strings.Join(parts, " • "))
}
