package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/storymap/pkg/story"
)

// WizardConfig holds the answers collected by the export wizard.
type WizardConfig struct {
	Format Format
	Path   string
	Slide  int
	Width  int
	Height int
}

// Wizard asks for the export settings not given on the command line.
type Wizard struct {
	story  *story.Story
	config WizardConfig
	title  string
}

// NewWizard creates a wizard for s seeded with defaults.
func NewWizard(s *story.Story, title string, defaults WizardConfig) *Wizard {
	return &Wizard{story: s, config: defaults, title: title}
}

// IsTerminal reports whether stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm falls back to accessible prompts without a TTY.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run asks for format, slide, size and output path.
func (w *Wizard) Run() (WizardConfig, error) {
	if w.config.Format == "" {
		w.config.Format = FormatSVG
	}
	format := string(w.config.Format)
	formatOptions := make([]huh.Option[string], 0, len(Formats))
	for _, f := range Formats {
		formatOptions = append(formatOptions, huh.NewOption(formatLabel(f), string(f)))
	}

	slideOptions := make([]huh.Option[int], 0, w.story.Len())
	for i, sl := range w.story.Slides {
		slideOptions = append(slideOptions, huh.NewOption(heading(i, sl.Text.Headline), i))
	}
	slide := w.config.Slide

	if err := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Export format").
				Options(formatOptions...).
				Value(&format),
			huh.NewSelect[int]().
				Title("Highlight which slide?").
				Description("Lines into this slide are drawn in the highlight color").
				Options(slideOptions...).
				Value(&slide),
		),
	).Run(); err != nil {
		return w.config, err
	}
	w.config.Format = Format(format)
	w.config.Slide = slide

	width := strconv.Itoa(orDefault(w.config.Width, DefaultWidth))
	height := strconv.Itoa(orDefault(w.config.Height, DefaultHeight))
	path := w.config.Path
	if path == "" || filepath.Ext(path) != w.config.Format.Ext() {
		path = DefaultFilename(w.title, w.config.Format)
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Output file").
			Value(&path).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("output path is required")
				}
				return nil
			}),
	}
	if w.config.Format == FormatSVG || w.config.Format == FormatPNG {
		fields = append(fields,
			huh.NewInput().Title("Width (px)").Value(&width).Validate(positiveInt),
			huh.NewInput().Title("Height (px)").Value(&height).Validate(positiveInt),
		)
	}
	if err := newForm(huh.NewGroup(fields...)).Run(); err != nil {
		return w.config, err
	}

	w.config.Path = path
	w.config.Width, _ = strconv.Atoi(width)
	w.config.Height, _ = strconv.Atoi(height)
	return w.config, nil
}

func formatLabel(f Format) string {
	switch f {
	case FormatSVG:
		return "SVG map snapshot"
	case FormatPNG:
		return "PNG map snapshot"
	case FormatGeoJSON:
		return "GeoJSON lines, markers and slides"
	case FormatSQLite:
		return "SQLite database"
	case FormatMarkdown:
		return "Markdown handout"
	default:
		return string(f)
	}
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
