package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/vanderheijden86/storyreel/pkg/carousel"
)

// Cells converts between the carousel's pixel geometry and terminal cells.
type Cells struct {
	Width  float64 // pixels per column
	Height float64 // pixels per row
}

// Col returns the column holding pixel x.
func (c Cells) Col(x float64) int { return int(math.Round(x / c.Width)) }

// X returns the pixel at the center of column col.
func (c Cells) X(col int) float64 { return (float64(col) + 0.5) * c.Width }

// renderStrip draws the visible cards of ctl into a cols x rows block. Cards
// are placed at their animated positions and cropped at the viewport edges.
func renderStrip(t Theme, ctl *carousel.Controller, cells Cells, cols, rows int) string {
	canvas := make([]string, rows)
	for i := range canvas {
		canvas[i] = strings.Repeat(" ", cols)
	}
	if ctl.VisibleCount() == 0 || rows <= 0 {
		return strings.Join(canvas, "\n")
	}

	cardCols := int(ctl.CardWidth() / cells.Width)
	for i, card := range ctl.Cards() {
		left := cells.Col(ctl.CardX(i))
		right := left + cardCols
		if left >= cols || right <= 0 {
			continue
		}
		block := cardView{
			theme:   t,
			card:    card,
			cache:   ctl.LayoutCache(),
			cols:    cardCols,
			rows:    rows,
			focused: i == ctl.Focused(),
		}.Render()

		from := max(0, -left)
		to := min(cardCols, cols-left)
		for r, line := range strings.Split(block, "\n") {
			if r >= rows {
				break
			}
			seg := fitCells(ansi.Cut(line, from, to), to-from)
			at := left + from
			canvas[r] = ansi.Truncate(canvas[r], at, "") + seg + ansi.Cut(canvas[r], at+(to-from), cols)
		}
	}
	return strings.Join(canvas, "\n")
}
