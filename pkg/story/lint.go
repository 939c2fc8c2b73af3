package story

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/vanderheijden86/storymap/pkg/media"
)

// Finding is one lint result tied to a slide.
type Finding struct {
	Slide   int
	Message string
}

func (f Finding) Error() string {
	return fmt.Sprintf("slide %d: %s", f.Slide, f.Message)
}

// Lint reports parts of the document that the viewer will silently skip:
// unusable coordinates, line flags without a destination, icons that never
// become markers and media URLs that render as nothing. The result combines
// Findings with multierr; use multierr.Errors to list them.
func Lint(s *Story) error {
	if s.Len() == 0 {
		return ErrNoSlides
	}
	var err error
	last := len(s.Slides) - 1
	for i, sl := range s.Slides {
		if strings.TrimSpace(sl.Text.Headline) == "" {
			err = multierr.Append(err, Finding{i, "empty headline"})
		}
		if loc := sl.Location; loc != nil {
			if !loc.Valid() {
				err = multierr.Append(err, Finding{i, "location has no usable latitude/longitude"})
				if loc.Icon != "" {
					err = multierr.Append(err, Finding{i, "icon ignored without a valid location"})
				}
			}
			if loc.HasLine() {
				switch {
				case i == last:
					err = multierr.Append(err, Finding{i, "line requested on the last slide"})
				case !loc.Valid() || !s.Slides[i+1].Located():
					err = multierr.Append(err, Finding{i, fmt.Sprintf("line to slide %d skipped: both ends need valid coordinates", i+1)})
				}
			}
		}
		if url := sl.MediaURL(); url != "" && media.KindOf(url) == media.None {
			err = multierr.Append(err, Finding{i, fmt.Sprintf("media URL %q is neither a video link nor a .jpg/.png image", url)})
		}
		if bg := sl.Background; bg != nil && bg.Opacity.IsSet() {
			switch pct, ok := bg.Opacity.Float(); {
			case !ok:
				err = multierr.Append(err, Finding{i, fmt.Sprintf("background opacity %q is not a number; shown fully opaque", bg.Opacity.Raw())})
			case pct < 0 || pct > 100:
				err = multierr.Append(err, Finding{i, fmt.Sprintf("background opacity %v outside 0-100", pct)})
			}
		}
	}
	return err
}
