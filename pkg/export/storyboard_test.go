package export

import (
	"bytes"
	"encoding/xml"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/storyreel/pkg/assets"
	"github.com/vanderheijden86/storyreel/pkg/story"
)

func sampleDeck() story.Deck {
	return story.Deck{
		Title: "Tour",
		Cards: []story.CardDef{
			{Title: "Intro", Steps: []story.StepDef{
				{Caption: "Welcome aboard"},
				{Caption: "Read the docs & more", URL: "https://example.com/?a=1&b=2"},
			}},
			{Title: "Rocket", Kind: story.KindFlip, Steps: []story.StepDef{
				{Caption: "Fuel", Illustration: "rocket"},
				{Caption: "Ignite"},
				{Caption: "Lift off", Illustration: "flame"},
			}},
		},
	}
}

var sampleArt = assets.Static{
	"rocket": "  /\\\n |<>|\n /__\\",
	"flame":  " ^^^",
}

func TestSaveStoryboard_SVGAndPNG(t *testing.T) {
	tmp := t.TempDir()
	cases := []struct {
		name string
		file string
	}{
		{"svg", "board.svg"},
		{"png", "board.png"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(tmp, "nested", tc.file)
			err := SaveStoryboard(StoryboardOptions{Path: out, Deck: sampleDeck(), Assets: sampleArt})
			if err != nil {
				t.Fatalf("SaveStoryboard error: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatalf("output file is empty")
			}
		})
	}
}

func TestSaveStoryboard_PNGDecodes(t *testing.T) {
	out := filepath.Join(t.TempDir(), "board.png")
	if err := SaveStoryboard(StoryboardOptions{Path: out, Deck: sampleDeck()}); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	b := buildBoard(StoryboardOptions{Deck: sampleDeck()})
	if img.Bounds().Dx() != b.Width || img.Bounds().Dy() != b.Height {
		t.Errorf("image is %v, want %dx%d", img.Bounds(), b.Width, b.Height)
	}
}

func TestSaveStoryboard_Errors(t *testing.T) {
	if err := SaveStoryboard(StoryboardOptions{Path: "x.svg"}); err == nil {
		t.Error("expected error for empty deck")
	}
	if err := SaveStoryboard(StoryboardOptions{Path: "x.txt", Format: "txt", Deck: sampleDeck()}); err == nil {
		t.Error("expected error for invalid format")
	}
	if err := SaveStoryboard(StoryboardOptions{Deck: sampleDeck()}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestSaveStoryboard_AddsExtension(t *testing.T) {
	base := filepath.Join(t.TempDir(), "board")
	if err := SaveStoryboard(StoryboardOptions{Path: base, Deck: sampleDeck()}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(base + ".svg"); err != nil {
		t.Errorf("expected %s.svg: %v", base, err)
	}
}

func TestWriteStoryboardSVG_ValidXML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStoryboardSVG(&buf, StoryboardOptions{Deck: sampleDeck(), Assets: sampleArt}); err != nil {
		t.Fatal(err)
	}
	var doc interface{}
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("SVG is not valid XML: %v\n%s", err, buf.String())
	}

	out := buf.String()
	for _, want := range []string{"Tour", "Intro  [caption]", "Rocket  [flip]", "step 3", "Read the docs &amp; more", "rocket", "flame"} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

func TestBuildBoard_Layout(t *testing.T) {
	b := buildBoard(StoryboardOptions{Deck: sampleDeck(), Assets: sampleArt})

	if b.Title != "Tour" || b.Sub != "cards: 2  steps: 5" {
		t.Errorf("header = %q / %q", b.Title, b.Sub)
	}
	if len(b.Rows) != 2 {
		t.Fatalf("rows = %d", len(b.Rows))
	}
	if want := 2*margin + 3*frameW + 2*frameGap; b.Width != want {
		t.Errorf("width = %d, want %d", b.Width, want)
	}

	intro := b.Rows[0].Frames
	if intro[0].ArtName != "" {
		t.Error("caption cards carry no art")
	}
	if intro[1].URL == "" || !intro[1].Terminal || intro[0].Terminal {
		t.Errorf("intro frames = %+v", intro)
	}

	rocket := b.Rows[1].Frames
	wantArt := []string{"rocket", "rocket", "flame"}
	for i, f := range rocket {
		if f.ArtName != wantArt[i] {
			t.Errorf("frame %d art = %q, want %q", i+1, f.ArtName, wantArt[i])
		}
	}
	if len(rocket[0].Art) != 3 {
		t.Errorf("rocket art lines = %d", len(rocket[0].Art))
	}

	// uniform frame height and rows stacked without overlap
	h := intro[0].H
	for _, row := range b.Rows {
		for _, f := range row.Frames {
			if f.H != h {
				t.Errorf("frame heights differ: %d vs %d", f.H, h)
			}
		}
	}
	if b.Rows[1].Y < intro[0].Y+h {
		t.Errorf("row 2 at %d overlaps row 1 ending at %d", b.Rows[1].Y, intro[0].Y+h)
	}
}

func TestBuildBoard_MissingArt(t *testing.T) {
	d := sampleDeck()
	d.Cards[1].Steps[0].Illustration = "nope"
	b := buildBoard(StoryboardOptions{Deck: d, Assets: sampleArt})
	if got := b.Rows[1].Frames[0].Art; len(got) != 1 || got[0] != "(missing)" {
		t.Errorf("art = %q", got)
	}
}

func TestCapLines(t *testing.T) {
	got := capLines([]string{"a", "b", "c", "d"}, 3)
	if len(got) != 3 || got[2] != "..." {
		t.Errorf("capLines = %q", got)
	}
	if got := capLines([]string{"a"}, 3); len(got) != 1 {
		t.Errorf("short input changed: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 2, "he"},
		{"hello", 0, ""},
		{"日本語テキスト", 5, "日本..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
