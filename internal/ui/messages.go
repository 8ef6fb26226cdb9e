package ui

// taskMsg carries a task scheduled on the UI context into Update
type taskMsg struct {
	run func()
}

// pagerMsg contains the result of a pager command
type pagerMsg struct {
	err error
}

// pauseRenderingMsg signals to pause rendering while the pager owns the terminal
type pauseRenderingMsg struct{}

// resumeRenderingMsg signals to resume rendering
type resumeRenderingMsg struct{}
