package media

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		caption string
		want    Element
	}{
		{
			name: "youtube watch link",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: Element{
				Kind:            Video,
				Src:             "https://www.youtube.com/embed/dQw4w9WgXcQ",
				Width:           "100%",
				Allow:           Permissions,
				AllowFullscreen: true,
			},
		},
		{
			name:    "png image",
			url:     "images/harbor.png",
			caption: "The harbor",
			want:    Element{Kind: Image, Src: "images/harbor.png", Alt: "The harbor"},
		},
		{
			name: "jpg without caption",
			url:  "https://example.com/a.jpg",
			want: Element{Kind: Image, Src: "https://example.com/a.jpg"},
		},
		{name: "gif unsupported", url: "a.gif", want: Element{Kind: None}},
		{name: "uppercase extension unsupported", url: "a.PNG", want: Element{Kind: None}},
		{name: "empty", url: "", want: Element{Kind: None}},
		{name: "vimeo unsupported", url: "https://vimeo.com/1234", want: Element{Kind: None}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.url, tt.caption); got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassify_VideoWinsOverImageSuffix(t *testing.T) {
	el := Classify("https://youtube.com/watch?v=x&thumb=a.png", "")
	if el.Kind != Video {
		t.Fatalf("expected video, got %v", el.Kind)
	}
}

func TestEmbedURL_RewritesFirstOccurrenceOnly(t *testing.T) {
	got := EmbedURL("https://youtube.com/watch?v=a&next=watch?v=b")
	want := "https://youtube.com/embed/a&next=watch?v=b"
	if got != want {
		t.Errorf("EmbedURL = %q, want %q", got, want)
	}
}

func TestClassify_VideoProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[A-Za-z0-9_-]{1,11}`).Draw(t, "id")
		el := Classify("https://www.youtube.com/watch?v="+id, "")
		if el.Kind != Video {
			t.Fatalf("expected video kind")
		}
		if strings.Contains(el.Src, "watch?v=") || !strings.HasSuffix(el.Src, "/embed/"+id) {
			t.Fatalf("unexpected embed src %q", el.Src)
		}
	})
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{None: "none", Video: "video", Image: "image"} {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
