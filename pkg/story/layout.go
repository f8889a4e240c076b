package story

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// LayoutCache holds measurements shared by every card of a carousel so that
// all cards reserve the same title and caption height. The carousel recomputes
// it once per layout; cards only read it.
type LayoutCache struct {
	CardWidth       float64 // pixels
	Columns         int     // text columns available inside a card
	MaxTitleLines   int
	MaxCaptionLines int
}

// Measurer converts widths and measures wrapped text.
type Measurer interface {
	// Columns returns how many text columns fit in width pixels.
	Columns(width float64) int
	// Lines returns how many lines text takes when wrapped at cols.
	Lines(text string, cols int) int
}

// CellMeasurer measures text in fixed-width terminal cells.
type CellMeasurer struct {
	CellWidth float64 // pixels per column
	Padding   int     // columns lost to borders and padding
}

func (m CellMeasurer) Columns(width float64) int {
	cw := m.CellWidth
	if cw <= 0 {
		cw = 8
	}
	cols := int(width/cw) - m.Padding
	if cols < 1 {
		cols = 1
	}
	return cols
}

func (m CellMeasurer) Lines(text string, cols int) int {
	return len(Wrap(text, cols))
}

// Recompute refreshes the cache for cards laid out at cardWidth pixels.
func (lc *LayoutCache) Recompute(cards []*Card, cardWidth float64, m Measurer) {
	lc.CardWidth = cardWidth
	lc.Columns = m.Columns(cardWidth)
	lc.MaxTitleLines = 0
	lc.MaxCaptionLines = 0
	for _, c := range cards {
		if n := m.Lines(c.Title, lc.Columns); n > lc.MaxTitleLines {
			lc.MaxTitleLines = n
		}
		for _, caption := range c.Captions() {
			if n := m.Lines(caption.Text, lc.Columns); n > lc.MaxCaptionLines {
				lc.MaxCaptionLines = n
			}
		}
	}
}

// Wrap breaks text into lines of at most cols display columns, splitting on
// spaces and hard-breaking words that are longer than a line.
func Wrap(text string, cols int) []string {
	if cols < 1 {
		cols = 1
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		var cur strings.Builder
		curW := 0
		for _, w := range words {
			ww := runewidth.StringWidth(w)
			for ww > cols {
				if curW > 0 {
					lines = append(lines, cur.String())
					cur.Reset()
					curW = 0
				}
				head := runewidth.Truncate(w, cols, "")
				if head == "" {
					// a single rune wider than the line
					head = string([]rune(w)[:1])
				}
				lines = append(lines, head)
				w = w[len(head):]
				ww = runewidth.StringWidth(w)
			}
			if w == "" {
				continue
			}
			switch {
			case curW == 0:
				cur.WriteString(w)
				curW = ww
			case curW+1+ww <= cols:
				cur.WriteByte(' ')
				cur.WriteString(w)
				curW += 1 + ww
			default:
				lines = append(lines, cur.String())
				cur.Reset()
				cur.WriteString(w)
				curW = ww
			}
		}
		if curW > 0 {
			lines = append(lines, cur.String())
		}
	}
	return lines
}
