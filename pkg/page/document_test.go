package page

import (
	"encoding/json"
	"testing"

	"github.com/vanderheijden86/storymap/pkg/media"
	"github.com/vanderheijden86/storymap/pkg/story"
)


func TestApplyBackground(t *testing.T) {
	d := New()
	if d.Overlay() != nil {
		t.Fatal("overlay should not exist before first use")
	}

	d.ApplyBackground(&story.Background{Color: "#222222", URL: "bg.jpg", Opacity: story.Num(40)})
	o := d.Overlay()
	if o == nil || !o.Visible || o.Image != "bg.jpg" || o.Opacity != 0.4 || o.ZIndex != 0 {
		t.Errorf("unexpected overlay %+v", o)
	}
	c := d.Container()
	if c.Position != "relative" || c.BackgroundColor != "#222222" || c.BackgroundImage != "" {
		t.Errorf("unexpected container %+v", c)
	}
	if snap := d.Snapshot(); snap.Content.ZIndex != 1 {
		t.Errorf("content must sit above the overlay, got z %d", snap.Content.ZIndex)
	}

	d.ApplyBackground(&story.Background{URL: "other.png"})
	if o := d.Overlay(); o.Opacity != 1 || o.Image != "other.png" {
		t.Errorf("absent opacity should be fully opaque, got %+v", o)
	}
	if d.Container().BackgroundColor != "" {
		t.Error("absent color should clear the container color")
	}

	d.ApplyBackground(&story.Background{Color: "#000000"})
	if o := d.Overlay(); o.Visible || o.Image != "" {
		t.Errorf("background without image should hide the overlay, got %+v", o)
	}
	if d.Container().BackgroundColor != "#000000" {
		t.Error("color should still apply")
	}

	d.ApplyBackground(nil)
	if o := d.Overlay(); o.Visible || o.Image != "" {
		t.Errorf("no background should hide the overlay, got %+v", o)
	}
	if d.Container().BackgroundColor != "" {
		t.Error("no background should clear the color")
	}
}

func TestClasses(t *testing.T) {
	d := New()
	d.AddClass("slide-out-left")
	d.AddClass("slide-out-left")
	if got := d.Classes(); len(got) != 1 {
		t.Fatalf("expected one class, got %v", got)
	}
	d.AddClass("slide-in-right")
	d.RemoveClass("slide-out-left")
	if d.HasClass("slide-out-left") || !d.HasClass("slide-in-right") {
		t.Errorf("unexpected classes %v", d.Classes())
	}
	d.RemoveClass("missing")
}

func TestRevisionAndSnapshot(t *testing.T) {
	d := New()
	r0 := d.Revision()
	d.SetHeadline("Paris")
	d.SetBody("<p>City</p>")
	d.ClearMedia()
	d.AppendMedia(media.Classify("a.png", "cap"))
	d.SetButton(Prev, Disabled)
	if d.Revision() != r0+5 {
		t.Errorf("expected 5 revisions, got %d", d.Revision()-r0)
	}

	snap := d.Snapshot()
	if snap.Headline != "Paris" || len(snap.Media) != 1 || !snap.Prev.Disabled || snap.Next.Disabled {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if d.StateOf(Prev) != Disabled || d.StateOf(Next) != Enabled {
		t.Errorf("unexpected button states")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back["headline"] != "Paris" {
		t.Errorf("unexpected json %s", raw)
	}
}

func TestSnapshot_EmptySlicesEncodeAsArrays(t *testing.T) {
	raw, _ := json.Marshal(New().Snapshot())
	var back map[string]any
	_ = json.Unmarshal(raw, &back)
	if _, ok := back["media"].([]any); !ok {
		t.Errorf("expected media array, got %s", raw)
	}
}

func TestBodyText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "  ", ""},
		{"plain", "Just words", "Just words"},
		{"paragraphs", "<p>One</p><p>Two</p>", "One\n\nTwo"},
		{"emphasis", "<p>A <strong>bold</strong> and <em>soft</em> word</p>", "A **bold** and _soft_ word"},
		{"link", `<p>See <a href="https://x.org">docs</a>.</p>`, "See docs (https://x.org)."},
		{"bare link", `<a href="https://x.org">https://x.org</a>`, "https://x.org"},
		{"break", "line one<br>line two", "line one  \nline two"},
		{"list", "<ul><li>a</li><li>b</li></ul>", "- a\n- b"},
		{"ordered", "<ol><li>a</li><li>b</li></ol>", "1. a\n2. b"},
		{"heading", "<h2>Title</h2><p>x</p>", "## Title\n\nx"},
		{"script dropped", "<p>ok</p><script>alert(1)</script>", "ok"},
		{"whitespace collapsed", "<p>a\n   b</p>", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BodyText(tt.in); got != tt.want {
				t.Errorf("BodyText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
