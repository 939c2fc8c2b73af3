package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile, computed once at
// package init.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor || hex == "" {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and ANSI white
// (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 || hex == "" {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme is the set of styles the viewer draws with.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Header   lipgloss.Style
	Headline lipgloss.Style
	Caption  lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style

	// Navigation buttons
	ButtonEnabled  lipgloss.Style
	ButtonDisabled lipgloss.Style

	// Map cells
	Graticule lipgloss.Style
	Marker    lipgloss.Style
	Center    lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   ColorPrimary,
		Secondary: ColorSecondary,
		Subtext:   ColorSubtext,
		Border:    ColorBgHighlight,
		Muted:     ColorMuted,
	}

	t.Base = r.NewStyle().Foreground(ColorText)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Headline = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.Caption = r.NewStyle().Foreground(t.Subtext).Italic(true)
	t.Status = r.NewStyle().Foreground(ColorInfo)
	t.Error = r.NewStyle().Foreground(ColorDanger).Bold(true)

	t.ButtonEnabled = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.ButtonDisabled = r.NewStyle().Foreground(t.Muted).Faint(true)

	t.Graticule = r.NewStyle().Foreground(ColorBgHighlight)
	t.Marker = r.NewStyle().Foreground(ColorWarning).Bold(true)
	t.Center = r.NewStyle().Foreground(ColorMuted)

	return t
}

// LineStyle returns the style for a line cell painted with hex.
func (t Theme) LineStyle(hex string) lipgloss.Style {
	return t.Renderer.NewStyle().Foreground(ThemeFg(hex))
}

// Panel returns the bordered panel style, tinted by a slide background color
// when one is set.
func (t Theme) Panel(background string) lipgloss.Style {
	st := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	if background != "" {
		st = st.BorderForeground(ThemeFg(background)).Background(ThemeBg(background))
	}
	return st
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
