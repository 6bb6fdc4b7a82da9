package picker

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrPickerActive is returned by Start when another picker is already
// reading input; only one may be active at a time.
var ErrPickerActive = errors.New("picker: another picker is active")

// activePickers guards the single-active-picker invariant.
var activePickers atomic.Int32

// Options configures a Picker. Zero values select the defaults noted per
// field; a nil Choose callback accepts the current item and stops.
type Options struct {
	// Items is the initial candidate set; leave nil when a Source (or a
	// later SetItems call) resolves items asynchronously.
	Items []any

	// ItemText flattens an item to its display string. Default: fmt.Sprint.
	ItemText func(any) string

	// Choose is invoked with the chosen item and its candidate index;
	// returning false stops the picker. Default: stop.
	Choose func(item any, index int) bool

	// Preview renders the auxiliary preview text for an item.
	Preview func(item any) string

	// Source streams items in asynchronously via the push callback.
	Source Source

	// Caching reuses match index sets per distinct query string.
	Caching bool

	// Prompt precedes the query line. Default "> ".
	Prompt string

	// RefreshInterval is the periodic redraw tick that keeps the view
	// current while a source is still streaming. Default 100ms.
	RefreshInterval time.Duration

	Logger *slog.Logger
}

func (o *Options) withDefaults() error {
	if o.ItemText == nil {
		o.ItemText = func(v any) string { return fmt.Sprint(v) }
	}
	if o.Prompt == "" {
		o.Prompt = "> "
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = 100 * time.Millisecond
	}
	if o.RefreshInterval < time.Millisecond {
		return fmt.Errorf("picker: refresh interval %v too small", o.RefreshInterval)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return nil
}

// Source produces items asynchronously. Run must call push (any number of
// times, each with the complete new item slice) and return when done; it is
// invoked on its own goroutine.
type Source interface {
	Run(push func(items []any)) error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(push func(items []any)) error

func (f SourceFunc) Run(push func(items []any)) error { return f(push) }

// Result is what a finished picker returns.
type Result struct {
	Item  any
	Index int
	// Marked holds the multi-selection when the picker stopped through
	// choose_marked; empty otherwise.
	Marked     []any
	MarkedInds []int
	// Aborted is true when the picker stopped without choosing.
	Aborted bool
}

// Picker owns one interactive picking session.
type Picker struct {
	opts Options
	keys map[string]string

	mu      sync.Mutex
	prog    *tea.Program
	pending []any // items set before the program started
	started bool
}

// New validates options and creates a Picker.
func New(opts Options) (*Picker, error) {
	if err := opts.withDefaults(); err != nil {
		return nil, err
	}
	return &Picker{opts: opts, keys: DefaultKeys()}, nil
}

// SetItems resolves the candidate set. It may be called at any time: before
// Start it seeds the initial set, after Start it is delivered into the
// running event loop.
func (p *Picker) SetItems(items []any) {
	p.mu.Lock()
	prog, started := p.prog, p.started
	if !started {
		p.pending = items
	}
	p.mu.Unlock()
	if started && prog != nil {
		prog.Send(itemsMsg{items: items})
	}
}

// Start runs the picker until a choice or a stop and returns the result.
func (p *Picker) Start() (Result, error) {
	if !activePickers.CompareAndSwap(0, 1) {
		return Result{}, ErrPickerActive
	}
	defer activePickers.Store(0)

	m := newModel(p.opts, p.keys)

	p.mu.Lock()
	if p.pending != nil {
		m.state.SetItems(p.pending, p.opts.ItemText)
		m.resolved = true
	} else if p.opts.Items != nil {
		m.state.SetItems(p.opts.Items, p.opts.ItemText)
		m.resolved = true
	}
	prog := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	p.prog = prog
	p.started = true
	p.mu.Unlock()

	if p.opts.Source != nil {
		go func() {
			err := p.opts.Source.Run(func(items []any) {
				prog.Send(itemsMsg{items: items})
			})
			if err != nil {
				// a failed source means "no items", not a crash
				p.opts.Logger.Warn("picker source failed", "error", err)
			}
			prog.Send(sourceDoneMsg{})
		}()
	}

	final, err := prog.Run()
	p.mu.Lock()
	p.prog = nil
	p.started = false
	p.mu.Unlock()
	if err != nil {
		return Result{}, fmt.Errorf("picker: %w", err)
	}

	fm, ok := final.(*model)
	if !ok {
		return Result{}, fmt.Errorf("picker: unexpected final model %T", final)
	}
	return fm.result, nil
}

// auxView selects which auxiliary buffer replaces the match list.
type auxView int

const (
	auxNone auxView = iota
	auxPreview
	auxInfo
)

type itemsMsg struct{ items []any }
type sourceDoneMsg struct{}
type tickMsg time.Time

// model is the bubbletea model wrapping the picker state machine.
type model struct {
	state *State
	opts  Options
	keys  map[string]string

	width    int
	height   int
	ready    bool
	resolved bool // items have been set at least once
	busy     bool // source still streaming

	aux     auxView
	preview viewport.Model

	result Result
}

func newModel(opts Options, keys map[string]string) *model {
	return &model{
		state:   NewState(10, opts.Caching),
		opts:    opts,
		keys:    keys,
		preview: viewport.New(0, 0),
		busy:    opts.Source != nil,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, m.tick())
}

func (m *model) tick() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := max(msg.Height-headerHeight-footerHeight, 1)
		m.state.SetHeight(listHeight)
		m.preview.Width = msg.Width
		m.preview.Height = listHeight
		m.ready = true
		return m, nil

	case itemsMsg:
		m.state.SetItems(msg.items, m.opts.ItemText)
		m.resolved = true
		return m, nil

	case sourceDoneMsg:
		m.busy = false
		return m, nil

	case tickMsg:
		// periodic redraw keeps the view current while blocked on input;
		// it never mutates picker state
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

const (
	headerHeight = 2 // query line + separator
	footerHeight = 1 // status line
)

// handleKey classifies a key against the action map. Only literal character
// input falls through to the default append handler: named keys and unmapped
// chords must never leak their names into the query as fake tokens.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if action, mapped := m.keys[msg.String()]; mapped {
		return m.apply(action)
	}

	switch {
	case msg.Type == tea.KeySpace:
		if m.state.AppendChar(" ") {
			m.state.Refilter()
		}
	case msg.Type == tea.KeyRunes && msg.Alt:
		// unmapped alt chord, drop
	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1:
		if m.state.AppendChar(string(msg.Runes)) {
			m.state.Refilter()
		}
	case msg.Type == tea.KeyRunes && len(msg.Runes) > 1:
		// bracketed paste arrives as one multi-rune event
		m.state.Paste(string(msg.Runes))
		m.state.Refilter()
	}
	return m, nil
}

// apply executes one named action. Query-mutating actions re-match before
// the next redraw; navigation, scroll, toggles and choose do not.
func (m *model) apply(action string) (tea.Model, tea.Cmd) {
	switch action {
	case ActionCaretLeft:
		m.state.MoveCaret(-1)
	case ActionCaretRight:
		m.state.MoveCaret(1)
	case ActionDeleteChar:
		m.state.DeleteChars(1)
	case ActionDeleteCharRt:
		m.state.DeleteChars(-1)
	case ActionDeleteWord:
		m.state.DeleteWord()
	case ActionDeleteQuery:
		m.state.DeleteAll()
	case ActionPaste:
		if text, err := clipboard.ReadAll(); err == nil {
			m.state.Paste(text)
		}
	case ActionMark:
		m.state.ToggleMark()
	case ActionMarkAll:
		m.state.ToggleMarkAll()
	case ActionMoveDown:
		m.state.MoveCurrent(1)
	case ActionMoveUp:
		m.state.MoveCurrent(-1)
	case ActionMoveStart:
		m.state.SetCurrent(0)
	case ActionScrollDown:
		if m.aux == auxPreview {
			m.preview.HalfViewDown()
		} else {
			// scrolling the match list is a page move of the current index
			m.state.MovePage(1)
		}
	case ActionScrollUp:
		if m.aux == auxPreview {
			m.preview.HalfViewUp()
		} else {
			m.state.MovePage(-1)
		}
	case ActionTogglePreview:
		m.togglePreview()
	case ActionToggleInfo:
		if m.aux == auxInfo {
			m.aux = auxNone
		} else {
			m.aux = auxInfo
		}
	case ActionChoose:
		return m.choose()
	case ActionChooseMarked:
		return m.chooseMarked()
	case ActionStop:
		m.result.Aborted = true
		return m, tea.Quit
	}

	if mutatesQuery(action) {
		m.state.Refilter()
	}
	return m, nil
}

func (m *model) choose() (tea.Model, tea.Cmd) {
	item, index, ok := m.state.CurrentItem()
	if !ok {
		// items unresolved or no matches: choosing is a no-op
		return m, nil
	}
	m.result.Item = item
	m.result.Index = index
	if m.opts.Choose != nil && m.opts.Choose(item, index) {
		return m, nil
	}
	return m, tea.Quit
}

func (m *model) chooseMarked() (tea.Model, tea.Cmd) {
	items, inds := m.state.Marked()
	if len(items) == 0 {
		return m.choose()
	}
	m.result.Marked = items
	m.result.MarkedInds = inds
	if item, index, ok := m.state.CurrentItem(); ok {
		m.result.Item = item
		m.result.Index = index
	}
	return m, tea.Quit
}

func (m *model) togglePreview() {
	if m.aux == auxPreview {
		m.aux = auxNone
		return
	}
	item, _, ok := m.state.CurrentItem()
	if !ok || m.opts.Preview == nil {
		return
	}
	m.preview.SetContent(m.opts.Preview(item))
	m.preview.GotoTop()
	m.aux = auxPreview
}

var (
	styleCurrent = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleMatch   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Underline(true)
	styleMarked  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleDim     = lipgloss.NewStyle().Faint(true)
)

func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.queryLine() + "\n" + styleDim.Render(separator(m.width)) + "\n"

	var body string
	switch m.aux {
	case auxPreview:
		body = m.preview.View()
	case auxInfo:
		body = m.infoView()
	default:
		body = m.listView()
	}

	return header + body + "\n" + m.statusLine()
}

func (m *model) queryLine() string {
	// query tokens are single runes, so the caret index is a rune index
	runes := []rune(m.state.Query())
	caret := min(m.state.Caret(), len(runes))
	left, right := string(runes[:caret]), string(runes[caret:])
	return m.opts.Prompt + left + lipgloss.NewStyle().Reverse(true).Render(" ") + right
}

func (m *model) listView() string {
	from, to := m.state.Window()
	if to < from {
		if !m.resolved || m.busy {
			return styleDim.Render("(loading items...)")
		}
		return styleDim.Render(m.noMatchLine())
	}

	var out []string
	inds := m.state.MatchInds()
	for i := from; i <= to; i++ {
		ind := inds[i]
		line := m.renderItem(ind, i == m.state.Current())
		out = append(out, line)
	}
	// pad to full list height so the footer stays put
	for len(out) < m.height-headerHeight-footerHeight {
		out = append(out, "")
	}
	return joinLines(out)
}

func (m *model) renderItem(ind int, current bool) string {
	text := m.state.ItemString(ind)
	text = highlightOffsets(text, m.state.HighlightOffsets(ind), styleMatch)

	prefix := "  "
	if current {
		prefix = "> "
	}
	if m.state.IsMarked(ind) {
		prefix = strings.TrimSuffix(prefix, " ") + "+"
		text = styleMarked.Render(text)
	}
	line := prefix + text
	if current {
		line = styleCurrent.Render(line)
	}
	return line
}

// noMatchLine describes why nothing matched, naming the active search mode.
func (m *model) noMatchLine() string {
	return fmt.Sprintf("(no match found: mode=%s query=%q)", m.state.Mode(), m.state.Query())
}

func (m *model) infoView() string {
	from, to := m.state.Window()
	return joinLines([]string{
		"picker info",
		"",
		fmt.Sprintf("query:   %q (caret %d)", m.state.Query(), m.state.Caret()),
		fmt.Sprintf("mode:    %s", m.state.Mode()),
		fmt.Sprintf("items:   %d", m.state.ItemCount()),
		fmt.Sprintf("matches: %d", len(m.state.MatchInds())),
		fmt.Sprintf("window:  [%d, %d]", from, to),
	})
}

func (m *model) statusLine() string {
	matches := len(m.state.MatchInds())
	pos := 0
	if matches > 0 {
		pos = m.state.Current() + 1
	}
	status := fmt.Sprintf("%d/%d/%d", pos, matches, m.state.ItemCount())
	if m.busy {
		status += " (loading)"
	}
	return styleDim.Render(status)
}

// highlightOffsets styles the matched byte offsets of text. Offsets come
// from the matcher so they always land on rune starts.
func highlightOffsets(text string, offsets []int, style lipgloss.Style) string {
	if len(offsets) == 0 {
		return text
	}
	set := make(map[int]bool, len(offsets))
	for _, off := range offsets {
		set[off] = true
	}
	var b strings.Builder
	for i, r := range text {
		if set[i] {
			b.WriteString(style.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func separator(w int) string {
	if w <= 0 {
		w = 1
	}
	return strings.Repeat("─", w)
}

func joinLines(lines []string) string { return strings.Join(lines, "\n") }
