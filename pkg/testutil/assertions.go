package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/storymap/pkg/mapview"
	"github.com/vanderheijden86/storymap/pkg/page"
)

// TB is the part of testing.TB the assertions use. *rapid.T satisfies it.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// AssertButtons verifies that prev is disabled exactly at the first slide and
// next exactly at the last, with the matching presentation.
func AssertButtons(t TB, doc *page.Document, index, n int) {
	t.Helper()
	wantPrev, wantNext := page.Enabled, page.Enabled
	if index == 0 {
		wantPrev = page.Disabled
	}
	if index == n-1 {
		wantNext = page.Disabled
	}
	if got := doc.StateOf(page.Prev); got != wantPrev {
		t.Errorf("index %d/%d: prev button = %+v, want %+v", index, n, got, wantPrev)
	}
	if got := doc.StateOf(page.Next); got != wantNext {
		t.Errorf("index %d/%d: next button = %+v, want %+v", index, n, got, wantNext)
	}
}

// AssertLineColors verifies that exactly the layers in highlighted carry the
// highlight color and every other layer the neutral color.
func AssertLineColors(t TB, c *mapview.Canvas, highlighted map[string]bool, highlight, neutral string) {
	t.Helper()
	for _, l := range c.Layers() {
		want := neutral
		if highlighted[l.ID] {
			want = highlight
		}
		if l.Paint.Color != want {
			t.Errorf("layer %s color = %s, want %s", l.ID, l.Paint.Color, want)
		}
	}
}

// AssertJSONEqual compares two values after JSON encoding.
func AssertJSONEqual(t testing.TB, expected, actual any) {
	t.Helper()
	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// WriteStoryFile writes a storymap document into dir and returns its path.
func WriteStoryFile(t testing.TB, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write story: %v", err)
	}
	return path
}
