package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/storyreel/pkg/story"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Card kinds
	Caption   lipgloss.AdaptiveColor
	Flip      lipgloss.AdaptiveColor
	Reveal    lipgloss.AdaptiveColor
	Crossfade lipgloss.AdaptiveColor
	Fade      lipgloss.AdaptiveColor
	Gear      lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Link      lipgloss.AdaptiveColor

	// Styles
	Base   lipgloss.Style
	Header lipgloss.Style

	// Pre-computed card styles, created once instead of per frame
	Card        lipgloss.Style // resting card frame
	CardFocused lipgloss.Style // focused card frame
	Title       lipgloss.Style
	CaptionText lipgloss.Style
	CaptionDim  lipgloss.Style // caption sliding in or out
	Art         lipgloss.Style
	ArtDim      lipgloss.Style // art mid-fade
	Action      lipgloss.Style // call-to-action hint
	DotOn       lipgloss.Style
	DotOff      lipgloss.Style
	MutedText   lipgloss.Style
	StatusInfo  lipgloss.Style
	StatusError lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"}, // Dim

		Caption:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"},
		Flip:      lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}, // Cyan
		Reveal:    lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}, // Orange
		Crossfade: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}, // Green
		Fade:      lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#6699FF"}, // Blue
		Gear:      lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}, // Red

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Link:      lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#8BE9FD"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Card = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	t.CardFocused = t.Card.BorderForeground(t.Primary)

	t.Title = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.CaptionText = t.Base
	t.CaptionDim = r.NewStyle().Foreground(t.Muted)
	t.Art = r.NewStyle().Foreground(ThemeFg("#F1FA8C"))
	t.ArtDim = r.NewStyle().Foreground(t.Muted).Faint(true)
	t.Action = r.NewStyle().Foreground(t.Link).Underline(true)
	t.DotOn = r.NewStyle().Foreground(t.Primary)
	t.DotOff = r.NewStyle().Foreground(t.Border)
	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.StatusInfo = r.NewStyle().Foreground(ColorInfo)
	t.StatusError = r.NewStyle().Foreground(ColorDanger).Bold(true)

	return t
}

// GetKindColor returns the accent color of a card kind.
func (t Theme) GetKindColor(k story.Kind) lipgloss.AdaptiveColor {
	switch k {
	case story.KindCaption, "":
		return t.Caption
	case story.KindFlip:
		return t.Flip
	case story.KindReveal:
		return t.Reveal
	case story.KindCrossfade:
		return t.Crossfade
	case story.KindFade:
		return t.Fade
	case story.KindGear:
		return t.Gear
	default:
		return t.Subtext
	}
}

// GetKindIcon returns a one-cell glyph for a card kind.
func (t Theme) GetKindIcon(k story.Kind) (string, lipgloss.AdaptiveColor) {
	c := t.GetKindColor(k)
	switch k {
	case story.KindCaption, "":
		return "¶", c
	case story.KindFlip:
		return "⇄", c
	case story.KindReveal:
		return "▤", c
	case story.KindCrossfade:
		return "◩", c
	case story.KindFade:
		return "◌", c
	case story.KindGear:
		return "⚙", c
	default:
		return "·", c
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
