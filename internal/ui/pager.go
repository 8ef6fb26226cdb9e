package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/noborus/ov/oviewer"
)

// terminal is the part of *tea.Program that hands the terminal over
type terminal interface {
	ReleaseTerminal() error
	RestoreTerminal() error
}

// PagerOps shows long content in the ov pager
type PagerOps struct {
	program terminal
	view    func(content string) error
}

// NewPagerOps creates a pager bound to the program's terminal
func NewPagerOps(program terminal) *PagerOps {
	return &PagerOps{program: program, view: runOviewer}
}

// Show releases the terminal, runs the pager until the user quits it and
// restores the terminal
func (p *PagerOps) Show(content string) error {
	if p.program == nil {
		return fmt.Errorf("program not set")
	}

	if err := p.program.ReleaseTerminal(); err != nil {
		return err
	}
	defer func() {
		// Give ov time to leave the alternate screen
		time.Sleep(100 * time.Millisecond)
		_ = p.program.RestoreTerminal()
	}()

	return p.view(content)
}

func runOviewer(content string) error {
	root, err := oviewer.NewRoot(strings.NewReader(content))
	if err != nil {
		return err
	}

	// Don't write the document back to our screen on exit
	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}
