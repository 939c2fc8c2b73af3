// Package testutil provides story fixtures and assertions shared by package
// tests. Generators are deterministic for a given seed.
package testutil

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/storymap/pkg/story"
)

// GeneratorConfig controls story generation.
type GeneratorConfig struct {
	Seed        int64   // Random seed for determinism (0 = 42)
	LocatedProb float64 // Chance a slide has a valid location
	LineProb    float64 // Chance a located slide asks for a line
	IconProb    float64 // Chance a located slide has an icon
	MediaProb   float64 // Chance a slide has media
	StringNums  bool    // Encode coordinates as strings
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42,
		LocatedProb: 0.8,
		LineProb:    0.6,
		IconProb:    0.5,
		MediaProb:   0.5,
	}
}

// Generator creates stories.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator { return New(DefaultConfig()) }

// Story generates a story with n slides.
func (g *Generator) Story(n int) *story.Story {
	s := &story.Story{Title: fmt.Sprintf("Generated %d", n)}
	for i := 0; i < n; i++ {
		sl := story.Slide{Text: story.Text{
			Headline: fmt.Sprintf("Slide %d", i),
			Body:     fmt.Sprintf("<p>Body of slide %d</p>", i),
		}}
		if g.rng.Float64() < g.cfg.LocatedProb {
			sl.Location = g.location()
		}
		if g.rng.Float64() < g.cfg.MediaProb {
			sl.Media = g.media(i)
		}
		s.Slides = append(s.Slides, sl)
	}
	return s
}

func (g *Generator) location() *story.Location {
	lat := g.rng.Float64()*140 - 70
	lon := g.rng.Float64()*360 - 180
	loc := &story.Location{
		Lat:  g.num(lat),
		Lon:  g.num(lon),
		Zoom: g.num(float64(2 + g.rng.Intn(10))),
		Line: story.Flag(g.rng.Float64() < g.cfg.LineProb),
	}
	if g.rng.Float64() < g.cfg.IconProb {
		loc.Icon = "icons/pin.png"
	}
	return loc
}

func (g *Generator) num(f float64) story.Number {
	if g.cfg.StringNums {
		return story.Str(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return story.Num(f)
}

func (g *Generator) media(i int) *story.Media {
	switch g.rng.Intn(3) {
	case 0:
		return &story.Media{URL: fmt.Sprintf("https://www.youtube.com/watch?v=vid%d", i)}
	case 1:
		return &story.Media{URL: fmt.Sprintf("images/%d.png", i), Caption: fmt.Sprintf("Image %d", i)}
	default:
		return &story.Media{URL: fmt.Sprintf("docs/%d.pdf", i)}
	}
}

// Located returns a slide at lat/lon with an optional line to the next slide.
func Located(headline string, lat, lon float64, line bool) story.Slide {
	return story.Slide{
		Text:     story.Text{Headline: headline, Body: "<p>" + headline + "</p>"},
		Location: &story.Location{Lat: story.Num(lat), Lon: story.Num(lon), Line: story.Flag(line)},
	}
}

// Unlocated returns a slide without a location.
func Unlocated(headline string) story.Slide {
	return story.Slide{Text: story.Text{Headline: headline, Body: "<p>" + headline + "</p>"}}
}

// Stories wraps slides in a story.
func Stories(slides ...story.Slide) *story.Story {
	return &story.Story{Title: "Test", Slides: slides}
}

// Journey returns an n-slide story where every slide is located, has an icon,
// and every slide but the last asks for a line.
func Journey(n int) *story.Story {
	s := &story.Story{Title: "Journey"}
	for i := 0; i < n; i++ {
		sl := Located(fmt.Sprintf("Stop %d", i), 40+float64(i), float64(i)*2, i < n-1)
		sl.Location.Icon = "pin.png"
		s.Slides = append(s.Slides, sl)
	}
	return s
}

// ToJSON encodes s as a storymap document.
func ToJSON(s *story.Story) string {
	b, err := json.MarshalIndent(map[string]*story.Story{"storymap": s}, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}

// StoryGen draws stories of 1 to maxSlides slides with a mix of valid,
// invalid and missing locations, line flags and icons.
func StoryGen(maxSlides int) *rapid.Generator[*story.Story] {
	return rapid.Custom(func(t *rapid.T) *story.Story {
		n := rapid.IntRange(1, maxSlides).Draw(t, "slides")
		s := &story.Story{}
		for i := 0; i < n; i++ {
			sl := story.Slide{Text: story.Text{Headline: fmt.Sprintf("S%d", i)}}
			switch rapid.IntRange(0, 3).Draw(t, "loc") {
			case 0:
				// no location
			case 1:
				sl.Location = &story.Location{Lat: story.Str("n/a"), Lon: story.Num(1)}
			default:
				sl.Location = &story.Location{
					Lat: story.Num(rapid.Float64Range(-80, 80).Draw(t, "lat")),
					Lon: story.Num(rapid.Float64Range(-179, 179).Draw(t, "lon")),
				}
			}
			if sl.Location != nil {
				sl.Location.Line = story.Flag(rapid.Bool().Draw(t, "line"))
				if rapid.Bool().Draw(t, "icon") {
					sl.Location.Icon = "pin.png"
				}
			}
			s.Slides = append(s.Slides, sl)
		}
		return s
	})
}
