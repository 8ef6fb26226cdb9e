package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cheesefinder/internal/config"
	"cheesefinder/internal/domain"
	"cheesefinder/internal/eventbus"
	"cheesefinder/internal/finder"
	"cheesefinder/internal/ui/services/history"
	"cheesefinder/internal/ui/views"
)

// recentShown is how many past queries the footer lists
const recentShown = 5

// E2EEnv makes the title carry the marker end-to-end tests wait for
const E2EEnv = "CHEESEFINDER_E2E_TEST"

// pager shows content outside the bubbletea screen
type pager interface {
	Show(content string) error
}

// Model is the finder screen. It is also the finder's presenter: the
// presenter methods only ever run inside Update, from tasks the UI
// scheduler delivers as messages.
type Model struct {
	bus    eventbus.EventBus
	config *config.Config

	keys     keyMap
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	renderer *views.Renderer
	history  *history.Service

	width  int
	height int
	e2e    bool
	hint   string
	paused bool // the pager owns the terminal

	lastValue string // query box content last published

	searching bool
	result    *domain.ResultSet
	err       error
	offset    int

	// commands queued by presenter calls, returned from the next Update
	pending []tea.Cmd

	sender Sender
	pager  pager
}

// NewModel creates a new UI model
func NewModel(bus eventbus.EventBus, cfg *config.Config) *Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ti := textinput.New()
	ti.Placeholder = "Search for a cheese"
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Focus()

	variant, err := finder.ParseVariant(cfg.Search.Variant)
	if err != nil {
		variant = finder.VariantMerged
	}
	button, typing := variant.Inputs()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	return &Model{
		bus:      bus,
		config:   cfg,
		keys:     defaultKeyMap(),
		input:    ti,
		spinner:  sp,
		help:     help.New(),
		renderer: views.NewRenderer(),
		history:  history.NewService(bus, cfg.UISettings.HistorySize),
		e2e:      os.Getenv(E2EEnv) == "1",
		hint:     views.IdleHint(cfg.Search.MinQueryLength, button, typing),
	}
}

// Close stops the model's bus listeners
func (m *Model) Close() {
	m.history.Close()
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.sender = p
	m.pager = NewPagerOps(p)
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskMsg:
		msg.run()
		return m, m.flush()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = msg.Width - 12
		return m, nil

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pauseRenderingMsg:
		m.paused = true
		return m, nil

	case resumeRenderingMsg:
		m.paused = false
		return m, nil

	case pagerMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("pager: %w", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Search):
		m.publish(eventbus.SearchButtonPressedEvent{Text: m.input.Value()})
		return m, nil

	case key.Matches(msg, m.keys.Pager):
		return m, m.openPager()

	case key.Matches(msg, m.keys.Up):
		m.scroll(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.scroll(1)
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.RecallPrev):
		if query, ok := m.history.Previous(); ok {
			m.recall(query)
		}
		return m, nil

	case key.Matches(msg, m.keys.RecallNext):
		if query, ok := m.history.Next(); ok {
			m.recall(query)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.inputChanged() {
		m.history.Reset()
	}
	return m, cmd
}

// recall puts a past query in the box as if it had been typed
func (m *Model) recall(query string) {
	m.input.SetValue(query)
	m.input.CursorEnd()
	m.inputChanged()
}

// inputChanged publishes the box content if it differs from the last
// published value
func (m *Model) inputChanged() bool {
	value := m.input.Value()
	if value == m.lastValue {
		return false
	}
	m.lastValue = value
	m.publish(eventbus.QueryChangedEvent{Text: value})
	return true
}

func (m *Model) scroll(delta int) {
	if m.result == nil {
		return
	}
	rows := views.ResultRows(m.height, m.footerView())
	m.offset = views.ClampOffset(m.offset+delta, m.result.Len(), rows)
}

func (m *Model) openPager() tea.Cmd {
	if m.result == nil || m.result.Empty() || m.pager == nil {
		return nil
	}
	content := views.PlainResults(m.result.Query, m.result.Items, m.result.Took)
	p, sender := m.pager, m.sender

	return func() tea.Msg {
		if sender != nil {
			sender.Send(pauseRenderingMsg{})
		}
		err := p.Show(content)
		if sender != nil {
			sender.Send(resumeRenderingMsg{})
		}
		return pagerMsg{err: err}
	}
}

func (m *Model) flush() tea.Cmd {
	cmds := m.pending
	m.pending = nil
	return tea.Batch(cmds...)
}

func (m *Model) publish(event eventbus.DomainEvent) {
	if m.bus != nil {
		m.bus.Publish(event)
	}
}

func (m *Model) helpView() string {
	if !m.config.UISettings.ShowHelp {
		return ""
	}
	return m.help.View(m.keys)
}

func (m *Model) recentView() string {
	recent := m.history.Recent()
	if len(recent) == 0 {
		return ""
	}
	if len(recent) > recentShown {
		recent = recent[:recentShown]
	}
	queries := make([]string, 0, len(recent))
	for _, e := range recent {
		queries = append(queries, e.Query)
	}
	return "recent: " + strings.Join(queries, " · ")
}

// footerView is everything rendered below the results
func (m *Model) footerView() string {
	var parts []string
	for _, part := range []string{m.recentView(), m.helpView()} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n")
}

// View renders the UI
func (m *Model) View() string {
	if m.paused {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	state := views.ViewState{
		Width:     m.width,
		Height:    m.height,
		Ready:     m.e2e,
		Variant:   m.config.Search.Variant,
		Hint:      m.hint,
		Input:     m.input.View(),
		Searching: m.searching,
		Spinner:   m.spinner.View(),
		Err:       m.err,
		Help:      m.footerView(),
	}
	if m.result != nil {
		state.HasResult = true
		state.Query = m.result.Query
		state.Results = m.result.Items
		state.Took = m.result.Took
		state.ResultOffset = m.offset
	}
	return m.renderer.Render(state)
}

// ShowProgress implements finder.Presenter
func (m *Model) ShowProgress() {
	if !m.searching {
		m.pending = append(m.pending, m.spinner.Tick)
	}
	m.searching = true
	m.err = nil
}

// HideProgress implements finder.Presenter
func (m *Model) HideProgress() {
	m.searching = false
}

// ShowResult implements finder.Presenter
func (m *Model) ShowResult(rs domain.ResultSet) {
	m.result = &rs
	m.offset = 0
}

// ShowError implements finder.Presenter
func (m *Model) ShowError(err error) {
	m.err = err
}
