package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/metrics"
)

// Format is an export file format.
type Format string

const (
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
	FormatGeoJSON  Format = "geojson"
	FormatSQLite   Format = "sqlite"
	FormatMarkdown Format = "md"
)

// Formats lists the supported formats in picker order.
var Formats = []Format{FormatSVG, FormatPNG, FormatGeoJSON, FormatSQLite, FormatMarkdown}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatSQLite {
		return ".sqlite3"
	}
	return "." + string(f)
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want svg, png, geojson, sqlite or md)", s)
	}
}

// FormatFromPath infers the format from an output path's extension.
func FormatFromPath(path string) (Format, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	f, err := ParseFormat(ext)
	return f, err == nil
}

// DefaultFilename derives an output name from the story title.
func DefaultFilename(title string, f Format) string {
	base := slug.Make(title)
	if base == "" {
		base = "storymap"
	}
	return base + f.Ext()
}

// Options selects what Write produces.
type Options struct {
	Format Format
	// Path is the output file. Empty means a slug of the title in OutDir.
	Path   string
	OutDir string
}

// Resolve fills in the format and path. An explicit format wins over the
// path's extension; a path without extension gets one.
func (o Options) Resolve(title string) (Options, error) {
	if o.Format == "" {
		f, ok := FormatFromPath(o.Path)
		if !ok {
			f = FormatSVG
		}
		o.Format = f
	}
	if _, err := ParseFormat(string(o.Format)); err != nil {
		return o, err
	}
	switch {
	case o.Path == "":
		o.Path = filepath.Join(o.OutDir, DefaultFilename(title, o.Format))
	case filepath.Ext(o.Path) == "":
		o.Path += o.Format.Ext()
	}
	return o, nil
}

// Write renders the scene to opts.Path and returns the resolved options.
func Write(sc *Scene, opts Options) (Options, error) {
	defer metrics.TimerWithCallback(metrics.Export, func(d time.Duration) {
		debug.LogTiming("export "+string(opts.Format), d)
	})()

	opts, err := opts.Resolve(sc.Title())
	if err != nil {
		return opts, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return opts, fmt.Errorf("create parent dir: %w", err)
	}

	if opts.Format == FormatSQLite {
		return opts, WriteSQLite(sc, opts.Path)
	}

	f, err := os.Create(opts.Path)
	if err != nil {
		return opts, err
	}
	bw := bufio.NewWriter(f)
	if err := writeTo(bw, sc, opts.Format); err != nil {
		f.Close()
		return opts, err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return opts, err
	}
	return opts, f.Close()
}

func writeTo(w io.Writer, sc *Scene, f Format) error {
	switch f {
	case FormatSVG:
		return WriteSVG(w, sc)
	case FormatPNG:
		return WritePNG(w, sc)
	case FormatGeoJSON:
		return WriteGeoJSON(w, sc)
	case FormatMarkdown:
		return WriteMarkdown(w, sc)
	default:
		return fmt.Errorf("unhandled format %q", f)
	}
}
