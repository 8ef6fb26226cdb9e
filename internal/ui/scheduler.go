package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"cheesefinder/internal/rx"
)

// Sender is the part of *tea.Program the UI scheduler needs.
type Sender interface {
	Send(msg tea.Msg)
}

// NewScheduler returns the UI context: a loop that hands every task to
// the program as a message, so the task runs inside Model.Update on the
// bubbletea goroutine. Tasks keep their scheduling order.
//
// Once the program has exited, Send drops messages and the tasks with
// them.
func NewScheduler(s Sender, opts ...rx.Option) *rx.Loop {
	opts = append(opts, rx.WithExecutor(func(task func()) {
		s.Send(taskMsg{run: task})
	}))
	return rx.NewLoop("ui", opts...)
}
