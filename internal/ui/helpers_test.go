package ui

import (
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"cheesefinder/internal/config"
	"cheesefinder/internal/eventbus"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
	ch   chan tea.Msg
}

func newFakeSender() *fakeSender {
	return &fakeSender{ch: make(chan tea.Msg, 100)}
}

func (s *fakeSender) Send(msg tea.Msg) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
	s.ch <- msg
}

func (s *fakeSender) sent() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tea.Msg(nil), s.msgs...)
}

type fakePager struct {
	content string
	err     error
}

func (p *fakePager) Show(content string) error {
	p.content = content
	return p.err
}

type fakeTerminal struct {
	calls      []string
	releaseErr error
}

func (f *fakeTerminal) ReleaseTerminal() error {
	f.calls = append(f.calls, "release")
	return f.releaseErr
}

func (f *fakeTerminal) RestoreTerminal() error {
	f.calls = append(f.calls, "restore")
	return nil
}

var errCellar = errors.New("cellar flooded")

// newTestModel returns a sized model on a synchronous bus and the events
// it publishes
func newTestModel(t *testing.T) (*Model, *[]eventbus.DomainEvent) {
	t.Helper()
	bus := eventbus.NewSync()
	t.Cleanup(bus.Close)

	var events []eventbus.DomainEvent
	record := func(e eventbus.DomainEvent) { events = append(events, e) }
	bus.Subscribe(eventbus.EventQueryChanged, record)
	bus.Subscribe(eventbus.EventSearchButtonPressed, record)

	m := NewModel(bus, config.DefaultConfig())
	_, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	require.Nil(t, cmd)
	return m, &events
}

func typeRunes(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// runOnUI delivers fn the way the UI scheduler does
func runOnUI(m *Model, fn func()) tea.Cmd {
	_, cmd := m.Update(taskMsg{run: fn})
	return cmd
}
