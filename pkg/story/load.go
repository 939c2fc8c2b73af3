package story

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/storymap/pkg/media"
)

// ErrNoSlides is returned for a document without any slide.
var ErrNoSlides = errors.New("story document has no slides")

// DefaultMaxDocumentSize caps how much of a document is read (32MB).
const DefaultMaxDocumentSize = 32 << 20

// ParseOptions configures Parse.
type ParseOptions struct {
	// WarningHandler receives non-fatal findings. If nil, warnings are
	// dropped.
	WarningHandler func(string)

	// MaxSize limits the bytes read. If 0, DefaultMaxDocumentSize is used.
	MaxSize int64
}

type document struct {
	Storymap *rawStory `json:"storymap"`
}

type rawStory struct {
	Title  string            `json:"title"`
	Slides []json.RawMessage `json:"slides"`
}

// rawSlide defers each part of a slide so a malformed part drops only
// itself.
type rawSlide struct {
	Text       json.RawMessage `json:"text"`
	Media      json.RawMessage `json:"media"`
	Location   json.RawMessage `json:"location"`
	Background json.RawMessage `json:"background"`
}

func (r rawSlide) slide(warn func(string)) Slide {
	var (
		s  Slide
		t  Text
		m  Media
		l  Location
		bg Background
	)
	if decodePart(r.Text, &t) {
		s.Text = t
	} else {
		warn("text is malformed; slide shown without text")
	}
	if present(r.Media) {
		if decodePart(r.Media, &m) {
			s.Media = &m
		} else {
			warn("media is malformed; ignored")
		}
	}
	if present(r.Location) {
		if decodePart(r.Location, &l) {
			s.Location = &l
		} else {
			warn("location is malformed; ignored")
		}
	}
	if present(r.Background) {
		if decodePart(r.Background, &bg) {
			s.Background = &bg
		} else {
			warn("background is malformed; ignored")
		}
	}
	return s
}

// present reports whether a part was given and is not null.
func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// decodePart decodes an object into v. An absent or null part leaves v
// zero and counts as decoded.
func decodePart(raw json.RawMessage, v any) bool {
	if !present(raw) {
		return true
	}
	if bytes.TrimSpace(raw)[0] != '{' {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Parse reads a storymap JSON document.
func Parse(r io.Reader) (*Story, error) {
	return ParseWithOptions(r, ParseOptions{})
}

// ParseWithOptions reads a storymap JSON document with custom options.
func ParseWithOptions(r io.Reader, opts ParseOptions) (*Story, error) {
	limit := opts.MaxSize
	if limit <= 0 {
		limit = DefaultMaxDocumentSize
	}
	warn := opts.WarningHandler
	if warn == nil {
		warn = func(string) {}
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading story document: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("story document exceeds %d bytes", limit)
	}
	data = stripBOM(data)

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing story document: %w", err)
	}
	if doc.Storymap == nil {
		return nil, fmt.Errorf("parsing story document: missing \"storymap\" object")
	}
	if len(doc.Storymap.Slides) == 0 {
		return nil, ErrNoSlides
	}

	st := &Story{Title: doc.Storymap.Title, Slides: make([]Slide, len(doc.Storymap.Slides))}
	for i, raw := range doc.Storymap.Slides {
		slideWarn := func(msg string) { warn(fmt.Sprintf("slide %d: %s", i, msg)) }
		var rs rawSlide
		if !decodePart(raw, &rs) {
			slideWarn("slide is malformed; shown empty")
		}
		s := rs.slide(slideWarn)
		if s.Location != nil && !s.Location.Valid() {
			slideWarn("location without usable coordinates")
		}
		if url := s.MediaURL(); url != "" && media.KindOf(url) == media.None {
			slideWarn(fmt.Sprintf("media URL %q is neither a video link nor a .jpg/.png image; not shown", url))
		}
		st.Slides[i] = s
	}
	return st, nil
}

// Load reads a story from a file path or an http(s) URL.
func Load(ctx context.Context, source string) (*Story, error) {
	return LoadWithOptions(ctx, source, ParseOptions{})
}

// LoadWithOptions is Load with custom parse options.
func LoadWithOptions(ctx context.Context, source string, opts ParseOptions) (*Story, error) {
	if IsRemote(source) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("building request for %s: %w", source, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", source, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching %s: unexpected status %s", source, resp.Status)
		}
		return ParseWithOptions(resp.Body, opts)
	}

	if _, err := os.Stat(source); os.IsNotExist(err) {
		return nil, fmt.Errorf("no story document found at %s", source)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open story document: %w", err)
	}
	defer f.Close()
	return ParseWithOptions(f, opts)
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
