package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/vanderheijden86/storyreel/pkg/flip"
	"github.com/vanderheijden86/storyreel/pkg/story"
)

// Card frames lose two columns to the border and two to the padding.
const (
	cardChromeCols = 4
	cardChromeRows = 2
	minCardCols    = cardChromeCols + 4
	minCardRows    = cardChromeRows + 3
)

// Measurer returns the text measurer matching the card frames drawn by this
// package.
func Measurer(c Cells) story.CellMeasurer {
	return story.CellMeasurer{CellWidth: c.Width, Padding: cardChromeCols}
}

// cardView renders one story card at a fixed size in cells.
type cardView struct {
	theme   Theme
	card    *story.Card
	cache   *story.LayoutCache
	cols    int
	rows    int
	focused bool
}

func (v cardView) inner() (int, int) {
	return max(1, v.cols-cardChromeCols), max(1, v.rows-cardChromeRows)
}

// Render returns the card as exactly rows lines of cols cells.
func (v cardView) Render() string {
	if v.cols < minCardCols || v.rows < minCardRows {
		return blankBlock(v.cols, v.rows)
	}
	w, h := v.inner()
	t := v.theme

	view := story.View{Phase: -1}
	if vw, ok := v.card.Strategy().(story.Viewer); ok {
		view = vw.View()
	}

	var lines []string

	// header: kind badge, gear indicator, step dots
	header := RenderKindBadge(t, v.card.Kind)
	if g := RenderGear(view.Phase); g != "" {
		header += " " + t.Renderer.NewStyle().Foreground(t.Gear).Render(g)
	}
	dots := RenderStepDots(t, v.card.Step(), v.card.StepCount())
	if gap := w - ansi.StringWidth(header) - ansi.StringWidth(dots); gap > 0 {
		header += strings.Repeat(" ", gap) + dots
	}
	lines = append(lines, header)

	titleRows := max(1, v.cache.MaxTitleLines)
	title := story.Wrap(v.card.Title, w)
	for i := 0; i < titleRows; i++ {
		l := ""
		if i < len(title) {
			l = title[i]
		}
		lines = append(lines, t.Title.Render(l))
	}

	captionRows := max(1, v.cache.MaxCaptionLines)
	artRows := h - len(lines) - captionRows - 2 // blank separator and action line
	if view.Illustration != nil && artRows > 0 {
		art := renderArt(t, v.card.Kind, view, w, artRows)
		lines = append(lines, art...)
	} else if artRows > 0 {
		for i := 0; i < artRows; i++ {
			lines = append(lines, "")
		}
	}
	lines = append(lines, "")
	lines = append(lines, renderCaptions(t, view.Captions, w, captionRows)...)

	action := ""
	if c, ok := v.card.Caption(); ok && c.IsAction() {
		action = t.Action.Render(ansi.Truncate("↗ "+c.URL, w, "…"))
	}
	lines = append(lines, action)

	for i := range lines {
		lines[i] = fitCells(lines[i], w)
	}
	if len(lines) > h {
		lines = lines[:h]
	}

	style := t.Card
	if v.focused {
		style = t.CardFocused
	}
	return style.Width(v.cols - 2).Height(h).Render(strings.Join(lines, "\n"))
}

// renderArt draws the illustration area: flips squash the displayed face by
// the cosine of the rotation, fades show the most opaque layer and reveals
// show only the top part of the art.
func renderArt(t Theme, kind story.Kind, view story.View, width, height int) []string {
	sw := view.Illustration
	var (
		content flip.Content
		dim     bool
		scale   = 1.0
	)
	switch kind {
	case story.KindFlip, story.KindGear:
		content = sw.Displayed()
		scale = math.Abs(math.Cos(sw.Rotation.Get() * math.Pi / 180))
	default:
		best := -1.0
		for _, l := range sw.Layers() {
			if op := l.Opacity.Get(); op >= best && op > 0 {
				best = op
				content = l.Content
			}
		}
		if best < 0.15 {
			content = nil
		}
		dim = best < 0.6
	}

	ill, _ := content.(story.Illustration)
	src := ill.Lines
	if kind == story.KindReveal {
		n := int(math.Ceil(view.Reveal * float64(len(src))))
		src = src[:min(max(n, 0), len(src))]
	}

	style := t.Art
	if dim {
		style = t.ArtDim
	}
	out := make([]string, height)
	// vertically centered
	top := max(0, (height-len(ill.Lines))/2)
	for i, l := range src {
		row := top + i
		if row >= height {
			break
		}
		if scale < 1 {
			l = squash(l, scale)
		}
		out[row] = style.Render(centerCells(l, width))
	}
	return out
}

// renderCaptions draws the caption slots. The two slots of a slide are
// always one card width apart, so a row is the left slot up to where the
// right one starts.
func renderCaptions(t Theme, slots []*story.CaptionSlot, width, rows int) []string {
	out := make([]string, rows)
	type placed struct {
		lines []string
		shift int
		dim   bool
	}
	var ps []placed
	for _, s := range slots {
		if s.Hidden || s.Opacity.Get() < 0.05 {
			continue
		}
		ps = append(ps, placed{
			lines: story.Wrap(s.Caption.Text, width),
			shift: int(math.Round(s.Offset.Get() * float64(width))),
			dim:   s.Opacity.Get() < 0.5,
		})
	}
	if len(ps) == 2 && ps[1].shift < ps[0].shift {
		ps[0], ps[1] = ps[1], ps[0]
	}

	for r := 0; r < rows; r++ {
		var parts []string
		for _, p := range ps {
			text := ""
			if r < len(p.lines) {
				text = p.lines[r]
			}
			style := t.CaptionText
			if p.dim {
				style = t.CaptionDim
			}
			parts = append(parts, style.Render(slideLine(text, p.shift, width)))
		}
		switch len(parts) {
		case 0:
		case 1:
			out[r] = parts[0]
		default:
			boundary := min(max(ps[1].shift, 0), width)
			out[r] = ansi.Truncate(parts[0], boundary, "") + ansi.Cut(parts[1], boundary, width)
		}
	}
	return out
}

// slideLine returns s moved right by shift cells (left when negative),
// cropped and padded to exactly width cells.
func slideLine(s string, shift, width int) string {
	if shift >= width || (shift < 0 && -shift >= ansi.StringWidth(s)) {
		return strings.Repeat(" ", width)
	}
	if shift >= 0 {
		s = strings.Repeat(" ", shift) + s
	} else {
		s = ansi.TruncateLeft(s, -shift, "")
	}
	return fitCells(s, width)
}

// squash compresses a line horizontally by scale, keeping it centered within
// its original width.
func squash(line string, scale float64) string {
	rs := []rune(line)
	n := len(rs)
	tw := int(math.Round(float64(n) * scale))
	if tw <= 0 {
		return strings.Repeat(" ", n)
	}
	out := make([]rune, 0, n)
	pad := (n - tw) / 2
	for i := 0; i < pad; i++ {
		out = append(out, ' ')
	}
	for j := 0; j < tw; j++ {
		out = append(out, rs[min(int(float64(j)/scale), n-1)])
	}
	return string(out)
}

// centerCells centers s in width cells, cropping it when wider.
func centerCells(s string, width int) string {
	w := ansi.StringWidth(s)
	if w >= width {
		return ansi.Truncate(s, width, "")
	}
	return strings.Repeat(" ", (width-w)/2) + s
}

// fitCells crops or pads s to exactly width cells.
func fitCells(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := ansi.StringWidth(s)
	if w > width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-w)
}

func blankBlock(cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	line := strings.Repeat(" ", cols)
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
