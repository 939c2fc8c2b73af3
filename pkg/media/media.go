// Package media decides how a slide's media URL is presented.
//
// Classification is a pure function of the URL: a YouTube link becomes an
// embedded video frame, a .jpg or .png becomes an image, and anything else is
// not rendered.
package media

import "strings"

// Kind is the presentation chosen for a media URL.
type Kind int

const (
	None Kind = iota
	Video
	Image
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Image:
		return "image"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// VideoHost marks URLs that are embedded as video frames.
const VideoHost = "youtube.com"

// Permissions is the allow-list granted to embedded video frames.
const Permissions = "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture"

var imageSuffixes = []string{".jpg", ".png"}

// Element is a media element ready to be placed in the media region.
type Element struct {
	Kind Kind   `json:"kind"`
	Src  string `json:"src,omitempty"`

	// Image
	Alt string `json:"alt,omitempty"`

	// Video frame
	Width           string `json:"width,omitempty"`
	Height          string `json:"height,omitempty"`
	FrameBorder     string `json:"frameBorder,omitempty"`
	Allow           string `json:"allow,omitempty"`
	AllowFullscreen bool   `json:"allowFullscreen,omitempty"`
}

// KindOf classifies url.
func KindOf(url string) Kind {
	switch {
	case url == "":
		return None
	case strings.Contains(url, VideoHost):
		return Video
	case hasImageSuffix(url):
		return Image
	default:
		return None
	}
}

// Classify builds the element for url. caption becomes the image alt text.
func Classify(url, caption string) Element {
	switch KindOf(url) {
	case Video:
		return Element{
			Kind:            Video,
			Src:             EmbedURL(url),
			Width:           "100%",
			Allow:           Permissions,
			AllowFullscreen: true,
		}
	case Image:
		return Element{Kind: Image, Src: url, Alt: caption}
	default:
		return Element{Kind: None}
	}
}

// EmbedURL rewrites a watch link to its embeddable form.
func EmbedURL(url string) string {
	return strings.Replace(url, "watch?v=", "embed/", 1)
}

func hasImageSuffix(url string) bool {
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(url, suffix) {
			return true
		}
	}
	return false
}
