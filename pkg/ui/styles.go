package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/storyreel/pkg/story"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// Light mode colors tuned for WCAG AA compliance (contrast ratio >= 4.5:1)
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBg          = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}
	ColorBgSubtle    = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Kind badge text color (white on colored background)
	ColorKindBadgeText = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}
)

// gearFrames animate the gear indicator; the phase picks the frame.
var gearFrames = []string{"◐", "◓", "◑", "◒"}

// RenderKindBadge returns a one-cell colored badge for a card kind.
func RenderKindBadge(t Theme, k story.Kind) string {
	icon, bg := t.GetKindIcon(k)
	return t.Renderer.NewStyle().
		Foreground(ColorKindBadgeText).
		Background(bg).
		Bold(true).
		Render(icon)
}

// RenderStepDots renders one dot per step with the current one filled.
func RenderStepDots(t Theme, step, total int) string {
	if total <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 1; i <= total; i++ {
		if i > 1 {
			b.WriteByte(' ')
		}
		if i == step {
			b.WriteString(t.DotOn.Render("●"))
		} else {
			b.WriteString(t.DotOff.Render("○"))
		}
	}
	return b.String()
}

// RenderGear returns the gear indicator frame for a phase in [0, 1).
func RenderGear(phase float64) string {
	if phase < 0 {
		return ""
	}
	i := int(phase*float64(len(gearFrames))) % len(gearFrames)
	return gearFrames[i]
}

// RenderProgressBar renders a bar filled to value in [0, 1].
func RenderProgressBar(t Theme, value float64, width int) string {
	if width <= 0 {
		return ""
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value * float64(width))

	var barColor lipgloss.AdaptiveColor
	switch {
	case value >= 1:
		barColor = ColorSuccess
	case value >= 0.5:
		barColor = ColorInfo
	default:
		barColor = ColorMuted
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return t.Renderer.NewStyle().Foreground(barColor).Render(bar)
}

// RenderDivider renders a horizontal divider line
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}
