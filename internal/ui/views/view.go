package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// ViewState contains all the state needed for rendering
type ViewState struct {
	Width  int
	Height int

	Ready     bool // print the marker end-to-end tests wait for
	Variant   string
	Hint      string // idle status line, see IdleHint
	Input     string // rendered query box
	Searching bool
	Spinner   string // current spinner frame

	HasResult    bool
	Query        string
	Results      []string
	Took         time.Duration
	ResultOffset int

	Err  error
	Help string // rendered key help
}

// Renderer handles all view rendering
type Renderer struct {
	styles *Styles
}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{styles: NewStyles()}
}

// Styles exposes the styles the renderer uses
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// headerLines is how many lines the title, query box, status and the
// main padding take
const headerLines = 10

// Render produces the complete view
func (r *Renderer) Render(state ViewState) string {
	content := &strings.Builder{}

	title := r.styles.Title.Render("cheesefinder")
	if state.Variant != "" {
		title += r.styles.Dim.Render(fmt.Sprintf("  [%s]", state.Variant))
	}
	if state.Ready {
		title += " " + r.styles.Ready.Render("__READY__")
	}
	content.WriteString(title)
	content.WriteString("\n")

	content.WriteString(r.styles.Input.Render(state.Input))
	content.WriteString("\n")

	content.WriteString(r.renderStatus(state))
	content.WriteString("\n")

	if state.Err != nil {
		content.WriteString(r.styles.ErrorBox.Render(r.styles.StatusError.Render(state.Err.Error())))
		content.WriteString("\n")
	}

	content.WriteString(r.renderResults(state))

	if state.Help != "" {
		// Push help to the bottom
		current := strings.Count(content.String(), "\n") + 1
		available := state.Height - 2
		if available <= 0 {
			available = 22
		}
		helpLines := strings.Count(state.Help, "\n") + 1
		if pad := available - current - helpLines; pad > 0 {
			content.WriteString(strings.Repeat("\n", pad))
		}
		content.WriteString("\n")
		content.WriteString(r.styles.Help.Render(state.Help))
	}

	mainStyle := r.styles.Main
	if state.Height > 0 {
		mainStyle = mainStyle.MaxHeight(state.Height)
	}
	return mainStyle.Render(content.String())
}

func (r *Renderer) renderStatus(state ViewState) string {
	switch {
	case state.Searching:
		return r.styles.Searching.Render(fmt.Sprintf("%s Searching...", state.Spinner))
	case state.HasResult:
		return r.styles.Status.Render(Summary(state.Query, len(state.Results), state.Took))
	default:
		hint := state.Hint
		if hint == "" {
			hint = IdleHint(0, true, true)
		}
		return r.styles.Status.Render(hint)
	}
}

// IdleHint tells the user what starts a search
func IdleHint(minLength int, button, typing bool) string {
	typeText := "Type"
	if minLength > 0 {
		typeText = "Type at least " + english.Plural(minLength, "letter", "")
	}
	switch {
	case button && typing:
		return typeText + ", or press enter to search"
	case typing:
		return typeText + " to search"
	default:
		return "Press enter to search"
	}
}

// Summary describes a result set in one line
func Summary(query string, count int, took time.Duration) string {
	return fmt.Sprintf("%s %s for %q in %s",
		humanize.Comma(int64(count)),
		english.PluralWord(count, "cheese", "cheeses"),
		query,
		took.Round(time.Millisecond))
}

func (r *Renderer) renderResults(state ViewState) string {
	if !state.HasResult {
		return ""
	}
	if len(state.Results) == 0 {
		return r.styles.Dim.Render("No cheese matches.")
	}

	visible := ResultRows(state.Height, state.Help)
	offset := ClampOffset(state.ResultOffset, len(state.Results), visible)
	end := offset + visible
	if end > len(state.Results) {
		end = len(state.Results)
	}

	var lines []string
	for _, name := range state.Results[offset:end] {
		lines = append(lines, "  "+r.highlight(name, state.Query))
	}
	if offset > 0 {
		lines[0] = r.styles.Scroll.Render("  ↑ (more above)")
	}
	if end < len(state.Results) {
		lines[len(lines)-1] = r.styles.Scroll.Render(fmt.Sprintf("  ↓ %s more (ctrl+o to page)", humanize.Comma(int64(len(state.Results)-end+1))))
	}
	return strings.Join(lines, "\n")
}

// ResultRows is how many result lines fit on a screen of the given height
func ResultRows(height int, help string) int {
	visible := height - headerLines
	if help != "" {
		visible -= strings.Count(help, "\n") + 2
	}
	if visible < 3 {
		visible = 3
	}
	return visible
}

// highlight emphasises the first case-insensitive occurrence of query
func (r *Renderer) highlight(name, query string) string {
	q := strings.TrimSpace(query)
	i := strings.Index(strings.ToLower(name), strings.ToLower(q))
	if q == "" || i < 0 || i+len(q) > len(name) {
		return r.styles.Result.Render(name)
	}
	return r.styles.Result.Render(name[:i]) +
		r.styles.Highlight.Render(name[i:i+len(q)]) +
		r.styles.Result.Render(name[i+len(q):])
}

// ClampOffset keeps a scroll offset inside [0, total-visible]
func ClampOffset(offset, total, visible int) int {
	maxOffset := total - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// PlainResults renders a result set for the pager
func PlainResults(query string, results []string, took time.Duration) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Render(Summary(query, len(results), took)))
	b.WriteString("\n\n")
	for _, name := range results {
		b.WriteString(name)
		b.WriteString("\n")
	}
	return b.String()
}
