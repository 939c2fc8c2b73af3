package export

import (
	"bytes"
	"database/sql"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/storymap/pkg/controller"
	"github.com/vanderheijden86/storymap/pkg/testutil"
)

func journeyScene(t *testing.T, slide int) *Scene {
	t.Helper()
	s := testutil.Journey(4)
	s.Title = "My Trip!"
	sc, err := BuildScene(s, SceneOptions{Profile: controller.Classic, Slide: slide, Width: 300, Height: 200})
	if err != nil {
		t.Fatalf("BuildScene: %v", err)
	}
	return sc
}

func TestBuildScene(t *testing.T) {
	sc := journeyScene(t, 2)
	if sc.Slide != 2 {
		t.Errorf("expected slide 2, got %d", sc.Slide)
	}
	if len(sc.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(sc.Lines))
	}
	if got := len(sc.Canvas.Markers()); got != 4 {
		t.Errorf("expected 4 eager markers, got %d", got)
	}
	if sc.Doc.Headline() != "Stop 2" {
		t.Errorf("expected headline of slide 2, got %q", sc.Doc.Headline())
	}
	testutil.AssertLineColors(t, sc.Canvas, map[string]bool{controller.LineID(1): true},
		controller.HighlightColor, controller.NeutralColor)

	vp := sc.Viewport()
	for i, sl := range sc.Story.Slides {
		x, y := vp.Project(sl.Location.LngLat())
		if !vp.Contains(x, y) {
			t.Errorf("slide %d projected off frame at (%.1f, %.1f)", i, x, y)
		}
	}
}

func TestBuildScene_LazyProfileOnlyShownMarker(t *testing.T) {
	sc, err := BuildScene(testutil.Journey(3), SceneOptions{Profile: controller.Example, Slide: 1})
	if err != nil {
		t.Fatal(err)
	}
	markers := sc.Canvas.Markers()
	if len(markers) != 1 || markers[0].Slide != 1 {
		t.Errorf("expected only the shown slide's marker, got %+v", markers)
	}
}

func TestBuildScene_Unlocated(t *testing.T) {
	sc, err := BuildScene(testutil.Stories(testutil.Unlocated("a")), SceneOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sc.Camera != controller.GlobalView {
		t.Errorf("expected global view, got %+v", sc.Camera)
	}
	if sc.Width != DefaultWidth || sc.Height != DefaultHeight {
		t.Errorf("expected default size, got %dx%d", sc.Width, sc.Height)
	}
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, journeyScene(t, 2)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<svg", "My Trip!", "Stop 2", "slide 3 of 4", "stroke:#ff0000", "stroke-dasharray:9,6"} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if got := strings.Count(out, "stroke:#888888;stroke-width:3;"); got != 2 {
		t.Errorf("expected 2 neutral lines, got %d", got)
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, journeyScene(t, 0)); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 200 {
		t.Errorf("expected 300x200, got %v", b)
	}
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, journeyScene(t, 1)); err != nil {
		t.Fatal(err)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(buf.Bytes(), &fc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %q", fc.Type)
	}
	kinds := map[string]int{}
	for _, f := range fc.Features {
		kinds[f.Properties["kind"].(string)]++
	}
	if kinds["line"] != 3 || kinds["marker"] != 4 || kinds["slide"] != 4 {
		t.Errorf("unexpected feature kinds %v", kinds)
	}
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trip.sqlite3")
	if err := WriteSQLite(journeyScene(t, 1), path); err != nil {
		t.Fatalf("WriteSQLite: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	count := func(q string) int {
		t.Helper()
		var n int
		if err := db.QueryRow(q).Scan(&n); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		return n
	}
	if n := count(`SELECT COUNT(*) FROM slides`); n != 4 {
		t.Errorf("expected 4 slides, got %d", n)
	}
	if n := count(`SELECT COUNT(*) FROM lines`); n != 3 {
		t.Errorf("expected 3 lines, got %d", n)
	}
	if n := count(`SELECT COUNT(*) FROM markers`); n != 4 {
		t.Errorf("expected 4 markers, got %d", n)
	}
	if n := count(`SELECT COUNT(*) FROM lines WHERE color = '#ff0000' AND to_slide = 1`); n != 1 {
		t.Errorf("expected the line into slide 1 highlighted, got %d", n)
	}
	if n := count(`SELECT COUNT(*) FROM slides_fts WHERE slides_fts MATCH 'Stop'`); n != 4 {
		t.Errorf("expected full-text hits for every slide, got %d", n)
	}

	var title string
	if err := db.QueryRow(`SELECT value FROM export_meta WHERE key = 'title'`).Scan(&title); err != nil {
		t.Fatal(err)
	}
	if title != "My Trip!" {
		t.Errorf("expected title meta, got %q", title)
	}
}

func TestGenerateMarkdown(t *testing.T) {
	s := testutil.Journey(2)
	s.Slides = append(s.Slides, testutil.Unlocated("Stop 0"))
	sc, err := BuildScene(s, SceneOptions{})
	if err != nil {
		t.Fatal(err)
	}
	md := GenerateMarkdown(sc)
	for _, want := range []string{"# Journey", "## 1. Stop 0", "## 3. Stop 0", "(#1-stop-0)", "(#3-stop-0)", "*Location: 40.00000, 0.00000*"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"svg", FormatSVG},
		{".PNG", FormatPNG},
		{"json", FormatGeoJSON},
		{"sqlite3", FormatSQLite},
		{"markdown", FormatMarkdown},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Error("expected error for gif")
	}
}

func TestOptionsResolve(t *testing.T) {
	o, err := Options{}.Resolve("My Trip!")
	if err != nil {
		t.Fatal(err)
	}
	if o.Format != FormatSVG || o.Path != "my-trip.svg" {
		t.Errorf("defaults = %+v", o)
	}

	o, _ = Options{Path: "out/map.png"}.Resolve("x")
	if o.Format != FormatPNG {
		t.Errorf("format from extension = %q", o.Format)
	}

	o, _ = Options{Path: "out/map", Format: FormatSQLite}.Resolve("x")
	if o.Path != "out/map.sqlite3" {
		t.Errorf("extension not appended: %q", o.Path)
	}

	o, _ = Options{OutDir: "dist", Format: FormatGeoJSON}.Resolve("")
	if o.Path != filepath.Join("dist", "storymap.geojson") {
		t.Errorf("empty title fallback = %q", o.Path)
	}
}

func TestWrite_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	sc := journeyScene(t, 0)
	for _, f := range Formats {
		opts, err := Write(sc, Options{Format: f, OutDir: filepath.Join(dir, "nested")})
		if err != nil {
			t.Fatalf("Write %s: %v", f, err)
		}
		info, err := os.Stat(opts.Path)
		if err != nil || info.Size() == 0 {
			t.Errorf("%s: expected non-empty %s", f, opts.Path)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo world", 8); got != "héllo..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 3); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
