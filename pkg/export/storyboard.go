package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/storyreel/pkg/metrics"
	"github.com/vanderheijden86/storyreel/pkg/story"
)

// StoryboardOptions controls storyboard export.
type StoryboardOptions struct {
	Path   string            // Output path; format inferred from extension when Format empty
	Format string            // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string            // Optional heading; defaults to the deck title
	Deck   story.Deck        // Deck to render
	Assets story.AssetLoader // Resolves illustrations; nil renders names only
}

// SaveStoryboard renders every step of every card of a deck as a grid of
// frames: one row per card, one column per step.
func SaveStoryboard(opts StoryboardOptions) error {
	defer metrics.Timer(metrics.SnapshotExport)()

	if len(opts.Deck.Cards) == 0 {
		return fmt.Errorf("no cards to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	board := buildBoard(opts)

	switch format {
	case "svg":
		return renderSVG(opts.Path, board)
	default:
		return renderPNG(opts.Path, board)
	}
}

// --- layout ----------------------------------------------------------------

const (
	frameW       = 240
	frameGap     = 16
	margin       = 24
	headerH      = 64
	rowLabelH    = 22
	lineH        = 15
	captionCols  = 30
	artCols      = 32
	maxArtLines  = 8
	captionLimit = 4
)

type frame struct {
	Step     int
	Caption  []string
	URL      string
	Art      []string
	ArtName  string
	Terminal bool
	X, Y, H  int
}

type boardRow struct {
	Title  string
	Kind   story.Kind
	Y      int
	Frames []frame
}

type board struct {
	Title  string
	Sub    string
	Rows   []boardRow
	Width  int
	Height int
}

func buildBoard(opts StoryboardOptions) board {
	b := board{Title: opts.Title}
	if b.Title == "" {
		b.Title = opts.Deck.Title
	}
	if b.Title == "" {
		b.Title = "Storyboard"
	}

	steps := 0
	for _, c := range opts.Deck.Cards {
		steps += len(c.Steps)
	}
	b.Sub = fmt.Sprintf("cards: %d  steps: %d", len(opts.Deck.Cards), steps)

	// every row is as tall as the tallest frame in the deck
	frameH := 0
	maxCols := 0
	for _, def := range opts.Deck.Cards {
		row := boardRow{Title: def.Title, Kind: def.Kind}
		if row.Kind == "" {
			row.Kind = story.KindCaption
		}
		var shown string
		for i, st := range def.Steps {
			f := frame{
				Step:     i + 1,
				Caption:  capLines(story.Wrap(st.Caption, captionCols), captionLimit),
				URL:      st.URL,
				Terminal: i == len(def.Steps)-1,
			}
			// illustrated kinds keep showing the last art until a step names a new one
			if row.Kind != story.KindCaption && st.Illustration != "" {
				shown = st.Illustration
			}
			if row.Kind != story.KindCaption && shown != "" {
				f.ArtName = shown
				f.Art = capLines(loadArt(opts.Assets, shown), maxArtLines)
			}
			if h := frameHeight(f); h > frameH {
				frameH = h
			}
			f.X = margin + i*(frameW+frameGap)
			row.Frames = append(row.Frames, f)
		}
		if len(row.Frames) > maxCols {
			maxCols = len(row.Frames)
		}
		b.Rows = append(b.Rows, row)
	}

	// rows are placed once the frame height is known
	y := margin + headerH
	for i := range b.Rows {
		b.Rows[i].Y = y
		for j := range b.Rows[i].Frames {
			b.Rows[i].Frames[j].Y = y + rowLabelH
			b.Rows[i].Frames[j].H = frameH
		}
		y += rowLabelH + frameH + frameGap
	}

	b.Width = 2*margin + maxCols*frameW + (maxCols-1)*frameGap
	if b.Width < 360 {
		b.Width = 360
	}
	b.Height = y + margin - frameGap
	return b
}

func frameHeight(f frame) int {
	h := 28 + len(f.Caption)*lineH
	if f.URL != "" {
		h += lineH
	}
	if f.ArtName != "" {
		h += 10 + (1+len(f.Art))*lineH
	}
	return h + 10
}

func loadArt(l story.AssetLoader, name string) []string {
	if l == nil {
		return nil
	}
	h, err := l.Load(name)
	if err != nil {
		return []string{"(missing)"}
	}
	return h.Lines()
}

func capLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	out := append([]string(nil), lines[:n]...)
	out[n-1] = "..."
	return out
}

// --- rendering -------------------------------------------------------------

var (
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorLink     = color.RGBA{0x1e, 0x5a, 0xc8, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorFrame    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorTerminal = color.RGBA{0xe8, 0xf5, 0xe9, 0xff}
	colorArt      = color.RGBA{0x37, 0x47, 0x4f, 0xff}
)

func frameFill(f frame) color.RGBA {
	if f.Terminal {
		return colorTerminal
	}
	return colorFrame
}

func renderPNG(path string, b board) error {
	dc := gg.NewContext(b.Width, b.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorHeaderBG)
	dc.DrawRectangle(0, 0, float64(b.Width), float64(margin+headerH-16))
	dc.Fill()
	dc.SetColor(colorText)
	dc.DrawStringAnchored(b.Title, margin, 30, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(b.Sub, margin, 50, 0, 0.5)

	for _, row := range b.Rows {
		dc.SetColor(colorText)
		dc.DrawStringAnchored(fmt.Sprintf("%s  [%s]", row.Title, row.Kind), margin, float64(row.Y+rowLabelH/2), 0, 0.5)
		for _, f := range row.Frames {
			drawFramePNG(dc, f)
		}
	}
	return dc.SavePNG(path)
}

func drawFramePNG(dc *gg.Context, f frame) {
	x, y := float64(f.X), float64(f.Y)
	dc.SetColor(frameFill(f))
	dc.DrawRoundedRectangle(x, y, frameW, float64(f.H), 8)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, frameW, float64(f.H), 8)
	dc.Stroke()

	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("step %d", f.Step), x+10, y+16, 0, 0.5)
	ly := y + 16 + lineH
	dc.SetColor(colorText)
	for _, l := range f.Caption {
		dc.DrawStringAnchored(l, x+10, ly, 0, 0.5)
		ly += lineH
	}
	if f.URL != "" {
		dc.SetColor(colorLink)
		dc.DrawStringAnchored(truncate("-> "+f.URL, captionCols), x+10, ly, 0, 0.5)
		ly += lineH
	}
	if f.ArtName != "" {
		ly += 10
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(truncate(f.ArtName, artCols), x+10, ly, 0, 0.5)
		ly += lineH
		dc.SetColor(colorArt)
		for _, l := range f.Art {
			dc.DrawStringAnchored(truncate(l, artCols), x+10, ly, 0, 0.5)
			ly += lineH
		}
	}
}

func renderSVG(path string, b board) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create svg: %w", err)
	}
	defer f.Close()
	if err := writeSVG(f, b); err != nil {
		return err
	}
	return f.Close()
}

// WriteStoryboardSVG renders the storyboard of opts to w.
func WriteStoryboardSVG(w io.Writer, opts StoryboardOptions) error {
	if len(opts.Deck.Cards) == 0 {
		return fmt.Errorf("no cards to export")
	}
	return writeSVG(w, buildBoard(opts))
}

func writeSVG(w io.Writer, b board) error {
	canvas := svg.New(w)
	canvas.Start(b.Width, b.Height)
	canvas.Rect(0, 0, b.Width, b.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Rect(0, 0, b.Width, margin+headerH-16, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(margin, 34, b.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(margin, 54, b.Sub, textStyle(colorSubtle, 13))

	for _, row := range b.Rows {
		canvas.Text(margin, row.Y+rowLabelH/2+5, fmt.Sprintf("%s  [%s]", row.Title, row.Kind),
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		for _, f := range row.Frames {
			drawFrameSVG(canvas, f)
		}
	}
	canvas.End()
	return nil
}

func drawFrameSVG(canvas *svg.SVG, f frame) {
	canvas.Roundrect(f.X, f.Y, frameW, f.H, 8, 8,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(frameFill(f)), css(colorStroke)))
	canvas.Text(f.X+10, f.Y+20, fmt.Sprintf("step %d", f.Step), textStyle(colorSubtle, 11))
	y := f.Y + 20 + lineH
	for _, l := range f.Caption {
		canvas.Text(f.X+10, y, l, textStyle(colorText, 12))
		y += lineH
	}
	if f.URL != "" {
		canvas.Text(f.X+10, y, truncate("-> "+f.URL, captionCols), textStyle(colorLink, 12))
		y += lineH
	}
	if f.ArtName != "" {
		y += 10
		canvas.Text(f.X+10, y, truncate(f.ArtName, artCols), textStyle(colorSubtle, 11))
		y += lineH
		for _, l := range f.Art {
			canvas.Text(f.X+10, y, truncate(l, artCols), textStyle(colorArt, 12)+";white-space:pre")
			y += lineH
		}
	}
}

// --- helpers ---------------------------------------------------------------

func textStyle(c color.RGBA, size int) string {
	return fmt.Sprintf("fill:%s;font-size:%dpx;font-family:monospace", css(c), size)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
