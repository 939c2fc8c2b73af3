package story

import (
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"pgregory.net/rapid"
)

const sampleDoc = `{
  "storymap": {
    "title": "Sample",
    "slides": [
      {"text": {"headline": "Start", "text": "<p>Hello</p>"},
       "location": {"lat": 48.85, "lon": "2.35", "zoom": "9", "line": true, "icon": "pin.png"},
       "media": {"url": "https://www.youtube.com/watch?v=abc", "caption": "clip"}},
      {"text": {"headline": "Middle", "text": ""},
       "location": {"lat": "51.5", "lon": -0.12},
       "background": {"color": "#222222", "url": "bg.jpg", "opacity": 40}},
      {"text": {"headline": "End", "text": "<p>Bye</p>"}}
    ]
  }
}`

func TestParse_MixedNumbers(t *testing.T) {
	s, err := Parse(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Title != "Sample" {
		t.Errorf("expected title 'Sample', got %q", s.Title)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 slides, got %d", s.Len())
	}

	first := s.Slides[0]
	if !first.Located() {
		t.Fatal("expected first slide to be located")
	}
	p := first.Location.LngLat()
	if p.Lat != 48.85 || p.Lon != 2.35 {
		t.Errorf("unexpected coordinate %+v", p)
	}
	if z := first.Location.ZoomOr(1); z != 9 {
		t.Errorf("expected zoom 9, got %v", z)
	}
	if !first.Location.HasLine() {
		t.Error("expected line flag")
	}
	if first.Icon() != "pin.png" {
		t.Errorf("expected icon pin.png, got %q", first.Icon())
	}

	if s.Slides[1].Background.OpacityOr() != 0.4 {
		t.Errorf("expected opacity 0.4, got %v", s.Slides[1].Background.OpacityOr())
	}
	if s.Slides[2].Located() {
		t.Error("slide without location must not be located")
	}
	if idx, ok := s.FirstLocated(); !ok || idx != 0 {
		t.Errorf("expected first located 0, got %d %v", idx, ok)
	}
}

func TestParse_StripsBOM(t *testing.T) {
	doc := "\xEF\xBB\xBF" + `{"storymap":{"slides":[{"text":{"headline":"A","text":""}}]}}`
	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Slides[0].Text.Headline != "A" {
		t.Errorf("unexpected headline %q", s.Slides[0].Text.Headline)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"storymap":`},
		{"missing storymap", `{"slides":[]}`},
		{"no slides", `{"storymap":{"slides":[]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, err := Parse(strings.NewReader(`{"storymap":{"slides":[]}}`))
	if !errors.Is(err, ErrNoSlides) {
		t.Errorf("expected ErrNoSlides, got %v", err)
	}
}

func TestParse_WarnsOnUnusableLocation(t *testing.T) {
	doc := `{"storymap":{"slides":[{"text":{"headline":"A","text":""},"location":{"lat":"north","lon":1}}]}}`
	var warnings []string
	_, err := ParseWithOptions(strings.NewReader(doc), ParseOptions{
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "slide 0") {
		t.Errorf("expected one warning for slide 0, got %v", warnings)
	}
}

func TestParse_MalformedPartsAreOmitted(t *testing.T) {
	doc := `{"storymap":{"slides":[
		{"text":{"headline":"A","text":""},"location":"nowhere","media":42,"background":["x"]},
		{"text":{"headline":"B","text":""},"location":{"lat":1,"lon":2,"icon":7},"background":{"url":"bg.jpg","opacity":"40"}},
		"stray",
		{"text":"just text","location":{"lat":3,"lon":4}}]}}`
	var warnings []string
	s, err := ParseWithOptions(strings.NewReader(doc), ParseOptions{
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Len() != 4 {
		t.Fatalf("expected 4 slides, got %d", s.Len())
	}

	a := s.Slides[0]
	if a.Text.Headline != "A" || a.Location != nil || a.Media != nil || a.Background != nil {
		t.Errorf("malformed parts of slide 0 should be absent, got %+v", a)
	}
	b := s.Slides[1]
	if b.Location != nil {
		t.Error("location with a non-string icon should be absent")
	}
	if b.Background == nil || math.Abs(b.Background.OpacityOr()-0.4) > 1e-9 {
		t.Errorf("string opacity \"40\" should read as 0.4, got %+v", b.Background)
	}
	if s.Slides[2].Text.Headline != "" || s.Slides[2].Located() {
		t.Errorf("non-object slide should be empty, got %+v", s.Slides[2])
	}
	d := s.Slides[3]
	if d.Text.Headline != "" || !d.Located() {
		t.Errorf("slide 3 should keep its location and lose its text, got %+v", d)
	}

	want := []string{
		"slide 0: media is malformed",
		"slide 0: location is malformed",
		"slide 0: background is malformed",
		"slide 1: location is malformed",
		"slide 2: slide is malformed",
		"slide 3: text is malformed",
	}
	if len(warnings) != len(want) {
		t.Fatalf("expected %d warnings, got %v", len(want), warnings)
	}
	for i, w := range want {
		if !strings.HasPrefix(warnings[i], w) {
			t.Errorf("warning %d = %q, want prefix %q", i, warnings[i], w)
		}
	}
}

func TestParse_WarnsOnUnknownMedia(t *testing.T) {
	doc := `{"storymap":{"slides":[
		{"text":{"headline":"A","text":""},"media":{"url":"docs/report.pdf"}},
		{"text":{"headline":"B","text":""},"media":{"url":"photo.png"}}]}}`
	var warnings []string
	s, err := ParseWithOptions(strings.NewReader(doc), ParseOptions{
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Slides[0].MediaURL() != "docs/report.pdf" {
		t.Error("unknown media URL should still be kept on the slide")
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "slide 0") || !strings.Contains(warnings[0], "report.pdf") {
		t.Errorf("expected one media warning for slide 0, got %v", warnings)
	}
}

func TestParse_LineFlagOnlyLiteralTrue(t *testing.T) {
	doc := `{"storymap":{"slides":[
		{"text":{"headline":"A","text":""},"location":{"lat":1,"lon":1,"line":"true"}},
		{"text":{"headline":"B","text":""},"location":{"lat":1,"lon":1,"line":1}},
		{"text":{"headline":"C","text":""},"location":{"lat":1,"lon":1,"line":true}}]}}`
	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Slides[0].Location.HasLine() || s.Slides[1].Location.HasLine() {
		t.Error("only a literal true may set the line flag")
	}
	if !s.Slides[2].Location.HasLine() {
		t.Error("expected literal true to set the line flag")
	}
}

func TestLocationValid(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want bool
	}{
		{"nil", nil, false},
		{"numbers", &Location{Lat: Num(10), Lon: Num(20)}, true},
		{"strings", &Location{Lat: Str("10.5"), Lon: Str(" -20")}, true},
		{"numeric prefix", &Location{Lat: Str("10.5N"), Lon: Str("20E")}, true},
		{"missing lat", &Location{Lon: Num(20)}, false},
		{"missing lon", &Location{Lat: Num(20)}, false},
		{"word", &Location{Lat: Str("north"), Lon: Num(20)}, false},
		{"empty string", &Location{Lat: Str(""), Lon: Num(20)}, false},
		{"infinity", &Location{Lat: Str("Infinity"), Lon: Num(20)}, false},
		{"overflow", &Location{Lat: Str("1e400"), Lon: Num(20)}, false},
		{"sign only", &Location{Lat: Str("-"), Lon: Num(20)}, false},
		{"zero", &Location{Lat: Num(0), Lon: Num(0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocationValid_FiniteNumbersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lat := rapid.Float64Range(-90, 90).Draw(t, "lat")
		lon := rapid.Float64Range(-180, 180).Draw(t, "lon")
		asString := rapid.Bool().Draw(t, "asString")

		loc := &Location{Lat: Num(lat), Lon: Num(lon)}
		if asString {
			loc = &Location{Lat: Str(Num(lat).Raw()), Lon: Str(Num(lon).Raw())}
		}
		if !loc.Valid() {
			t.Fatalf("expected %v,%v to be valid", lat, lon)
		}
		got := loc.LngLat()
		if got.Lat != lat || got.Lon != lon {
			t.Fatalf("round trip changed coordinate: %+v", got)
		}
	})
}

func TestLocationValid_NonNumericProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		junk := rapid.StringMatching(`[a-zA-Z ,;:]*`).Draw(t, "junk")
		lon := rapid.Float64Range(-180, 180).Draw(t, "lon")
		badLat := rapid.Bool().Draw(t, "badLat")

		loc := &Location{Lat: Str(junk), Lon: Num(lon)}
		if !badLat {
			loc = &Location{Lat: Num(lon / 2), Lon: Str(junk)}
		}
		if loc.Valid() {
			t.Fatalf("expected %q to invalidate the location", junk)
		}
	})
}

func TestZoomOr(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want float64
	}{
		{"nil", nil, 3},
		{"absent", &Location{}, 3},
		{"zero", &Location{Zoom: Num(0)}, 3},
		{"junk", &Location{Zoom: Str("close")}, 3},
		{"number", &Location{Zoom: Num(7)}, 7},
		{"string", &Location{Zoom: Str("11.5")}, 11.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.ZoomOr(3); got != tt.want {
				t.Errorf("ZoomOr(3) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpacityOr(t *testing.T) {
	var nilBg *Background
	if nilBg.OpacityOr() != 1 {
		t.Error("nil background should be opaque")
	}
	if (&Background{}).OpacityOr() != 1 {
		t.Error("unset opacity should be opaque")
	}
	if got := (&Background{Opacity: Num(25)}).OpacityOr(); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("expected 0.25, got %v", got)
	}
	if got := (&Background{Opacity: Str("40")}).OpacityOr(); math.Abs(got-0.4) > 1e-9 {
		t.Errorf("expected 0.4 from a string percentage, got %v", got)
	}
	if got := (&Background{Opacity: Str("dim")}).OpacityOr(); got != 1 {
		t.Errorf("non-numeric opacity should be opaque, got %v", got)
	}
}

func TestNumberMarshal(t *testing.T) {
	tests := []struct {
		n    Number
		want string
	}{
		{Number{}, "null"},
		{Num(12.5), "12.5"},
		{Str("12.5"), "12.5"},
		{Str("12.5N"), `"12.5N"`},
		{Str("north"), `"north"`},
	}
	for _, tt := range tests {
		got, err := tt.n.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON: %v", err)
		}
		if string(got) != tt.want {
			t.Errorf("MarshalJSON(%q) = %s, want %s", tt.n.Raw(), got, tt.want)
		}
	}
}

func TestLint(t *testing.T) {
	doc := `{"storymap":{"slides":[
		{"text":{"headline":"A","text":""},"location":{"lat":1,"lon":1,"line":true}},
		{"text":{"headline":"","text":""},"location":{"lat":"x","lon":1,"icon":"i.png"},"media":{"url":"clip.gif"}},
		{"text":{"headline":"C","text":""},"location":{"lat":1,"lon":1,"line":true}}]}}`
	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	errs := multierr.Errors(Lint(s))
	// slide 0: line to invalid slide 1
	// slide 1: empty headline, invalid location, icon ignored, unsupported media
	// slide 2: line on last slide
	if len(errs) != 6 {
		t.Fatalf("expected 6 findings, got %d: %v", len(errs), errs)
	}
	var f Finding
	if !errors.As(errs[0], &f) || f.Slide != 0 {
		t.Errorf("expected first finding on slide 0, got %v", errs[0])
	}
}

func TestLint_CleanStory(t *testing.T) {
	s, err := Parse(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := Lint(s); err != nil {
		t.Errorf("expected no findings, got %v", err)
	}
}

func TestLint_BackgroundOpacity(t *testing.T) {
	doc := `{"storymap":{"slides":[
		{"text":{"headline":"A","text":""},"background":{"url":"a.jpg","opacity":"40"}},
		{"text":{"headline":"B","text":""},"background":{"url":"b.jpg","opacity":"dim"}},
		{"text":{"headline":"C","text":""},"background":{"url":"c.jpg","opacity":150}},
		{"text":{"headline":"D","text":""},"background":{"color":"#000"}}]}}`
	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	errs := multierr.Errors(Lint(s))
	if len(errs) != 2 {
		t.Fatalf("expected 2 findings, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Error(), `slide 1: background opacity "dim" is not a number`) {
		t.Errorf("unexpected finding %v", errs[0])
	}
	if !strings.Contains(errs[1].Error(), "slide 2: background opacity 150 outside 0-100") {
		t.Errorf("unexpected finding %v", errs[1])
	}
}
