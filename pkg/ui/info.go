package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/storyreel/pkg/debug"
	"github.com/vanderheijden86/storyreel/pkg/story"
)

// InfoModel is the deck information overlay: the deck description and a
// card table rendered as markdown in a scrollable viewport.
type InfoModel struct {
	theme    Theme
	viewport viewport.Model
	markdown string
	width    int
}

// NewInfoModel creates an overlay of the given size.
func NewInfoModel(theme Theme, width, height int) InfoModel {
	m := InfoModel{theme: theme}
	m.SetSize(width, height)
	return m
}

// SetSize resizes the overlay and re-renders its content.
func (m *InfoModel) SetSize(width, height int) {
	m.width = max(20, width)
	m.viewport = viewport.New(m.width, max(3, height))
	if m.markdown != "" {
		m.viewport.SetContent(m.render())
	}
}

// SetMarkdown replaces the overlay content.
func (m *InfoModel) SetMarkdown(md string) {
	m.markdown = md
	m.viewport.SetContent(m.render())
	m.viewport.GotoTop()
}

// Markdown returns the source of the current content.
func (m InfoModel) Markdown() string { return m.markdown }

func (m InfoModel) render() string {
	style := "light"
	if m.theme.Renderer == nil || m.theme.Renderer.HasDarkBackground() {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(m.width-4),
	)
	if err != nil {
		debug.Log("ui: markdown renderer: %v", err)
		return m.markdown
	}
	out, err := r.Render(m.markdown)
	if err != nil {
		debug.Log("ui: markdown render: %v", err)
		return m.markdown
	}
	// glamour pads with trailing blank lines
	return strings.TrimRight(out, "\n ")
}

// Update scrolls the viewport.
func (m InfoModel) Update(msg tea.Msg) (InfoModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the overlay.
func (m InfoModel) View() string {
	return m.viewport.View()
}

// DeckMarkdown describes a deck: its description and one table row per card
// with the recorded progress.
func DeckMarkdown(d story.Deck, seen map[string]int) string {
	var b strings.Builder
	title := d.Title
	if title == "" {
		title = "Untitled deck"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if desc := strings.TrimSpace(d.Description); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}

	b.WriteString("| # | Card | Kind | Steps | Seen |\n")
	b.WriteString("|---|------|------|-------|------|\n")
	total, done := 0, 0
	for i, c := range d.Cards {
		kind := c.Kind
		if kind == "" {
			kind = story.KindCaption
		}
		n := seen[c.Title]
		fmt.Fprintf(&b, "| %d | %s | %s | %d | %d |\n", i+1, escapeCell(c.Title), kind, len(c.Steps), n)
		total += len(c.Steps)
		done += min(n, len(c.Steps))
	}
	fmt.Fprintf(&b, "\n%d of %d steps seen.\n", done, total)
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
