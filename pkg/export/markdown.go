package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/gosimple/slug"

	"github.com/vanderheijden86/storymap/pkg/media"
	"github.com/vanderheijden86/storymap/pkg/page"
)

// WriteMarkdown writes a handout: a table of contents and one section per
// slide with its body, media and location.
func WriteMarkdown(w io.Writer, sc *Scene) error {
	_, err := io.WriteString(w, GenerateMarkdown(sc))
	return err
}

// GenerateMarkdown renders the handout as a string.
func GenerateMarkdown(sc *Scene) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", sc.Title())

	located := 0
	for _, sl := range sc.Story.Slides {
		if sl.Located() {
			located++
		}
	}
	sb.WriteString("| Slides | Located | Lines |\n|--------|---------|-------|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d |\n\n", sc.Story.Len(), located, len(sc.Lines))

	// Anchors must be unique for duplicate headlines.
	counts := make(map[string]int)
	anchors := make([]string, sc.Story.Len())
	for i, sl := range sc.Story.Slides {
		anchors[i] = uniqueSlug(slug.Make(heading(i, sl.Text.Headline)), counts)
	}

	sb.WriteString("## Contents\n\n")
	for i, sl := range sc.Story.Slides {
		fmt.Fprintf(&sb, "- [%s](#%s)\n", heading(i, sl.Text.Headline), anchors[i])
	}
	sb.WriteString("\n")

	for i, sl := range sc.Story.Slides {
		fmt.Fprintf(&sb, "## %s\n\n", heading(i, sl.Text.Headline))
		if body := page.BodyText(sl.Text.Body); body != "" {
			sb.WriteString(body)
			sb.WriteString("\n\n")
		}
		if url := sl.MediaURL(); url != "" {
			switch media.KindOf(url) {
			case media.Image:
				fmt.Fprintf(&sb, "![%s](%s)\n\n", sl.Media.Caption, url)
			case media.Video:
				fmt.Fprintf(&sb, "Video: <%s>\n\n", url)
			}
		}
		if sl.Located() {
			p := sl.Location.LngLat()
			fmt.Fprintf(&sb, "*Location: %.5f, %.5f*\n\n", p.Lat, p.Lon)
		}
	}
	return sb.String()
}

func heading(i int, headline string) string {
	if strings.TrimSpace(headline) == "" {
		return fmt.Sprintf("%d. Untitled", i+1)
	}
	return fmt.Sprintf("%d. %s", i+1, headline)
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "slide"
	}
	n := counts[base]
	counts[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}
