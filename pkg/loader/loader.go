// Package loader resolves a story argument to a document and its optional
// tile archive, and loads both.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/metrics"
	"github.com/vanderheijden86/storymap/pkg/story"
	"github.com/vanderheijden86/storymap/pkg/tiles"
)

// StoryDirEnvVar names a directory to search when no story is given.
const StoryDirEnvVar = "STORYMAP_DIR"

// ArchiveExt is the tile archive file extension.
const ArchiveExt = ".pmtiles"

// PreferredStoryNames defines the lookup order inside a directory.
var PreferredStoryNames = []string{"storymap.json", "story.json"}

// Bundle is a loaded story with its basemap archive, if any.
type Bundle struct {
	Source   string
	Story    *story.Story
	Archive  string
	Header   *tiles.Header
	Warnings []string
}

// Options configures Load.
type Options struct {
	// Archive overrides archive discovery. "-" disables the archive.
	Archive string

	// RequireArchive fails the load when the archive header cannot be read
	// instead of recording a warning.
	RequireArchive bool

	// MaxSize limits the document size; zero uses the story default.
	MaxSize int64
}

// ResolveSource turns an argument into a story source. URLs pass through, a
// directory is searched with FindStoryPath, and an empty argument searches
// STORYMAP_DIR or the working directory.
func ResolveSource(arg string) (string, error) {
	if story.IsRemote(arg) {
		return arg, nil
	}
	if arg == "" {
		arg = os.Getenv(StoryDirEnvVar)
	}
	if arg == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		arg = wd
	}
	info, err := os.Stat(arg)
	if err != nil {
		return "", fmt.Errorf("no story document found at %s", arg)
	}
	if info.IsDir() {
		return FindStoryPath(arg)
	}
	return arg, nil
}

// FindStoryPath locates the story document in dir: a preferred name first,
// then the single remaining .json file. Backup files are skipped.
func FindStoryPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read story directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") || strings.HasPrefix(name, ".") {
			continue
		}
		candidates = append(candidates, name)
	}

	for _, preferred := range PreferredStoryNames {
		for _, name := range candidates {
			if name == preferred {
				return filepath.Join(dir, name), nil
			}
		}
	}
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no story document found in %s", dir)
	case 1:
		return filepath.Join(dir, candidates[0]), nil
	default:
		return "", fmt.Errorf("several story documents in %s (%s); name one", dir, strings.Join(candidates, ", "))
	}
}

// ArchiveFor returns the tile archive that belongs to source: the file with
// the same base name and a .pmtiles extension, or the only archive in the
// same directory. Remote sources use the sibling URL without checking it.
func ArchiveFor(source string) string {
	ext := filepath.Ext(source)
	sibling := strings.TrimSuffix(source, ext) + ArchiveExt
	if story.IsRemote(source) {
		return sibling
	}
	if _, err := os.Stat(sibling); err == nil {
		return sibling
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(source), "*"+ArchiveExt))
	if len(matches) == 1 {
		return matches[0]
	}
	return ""
}

// Load reads the story and the archive header concurrently.
func Load(ctx context.Context, source string, opts Options) (*Bundle, error) {
	defer metrics.TimerWithCallback(metrics.StoryLoad, func(d time.Duration) {
		debug.LogTiming("load "+source, d)
	})()

	b := &Bundle{Source: source, Archive: opts.Archive}
	switch b.Archive {
	case "-":
		b.Archive = ""
	case "":
		b.Archive = ArchiveFor(source)
	}

	var warnings []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := story.LoadWithOptions(gctx, source, story.ParseOptions{
			MaxSize:        opts.MaxSize,
			WarningHandler: func(msg string) { warnings = append(warnings, msg) },
		})
		if err != nil {
			return err
		}
		b.Story = s
		return nil
	})

	var headerErr error
	if b.Archive != "" {
		g.Go(func() error {
			h, err := tiles.ReadHeader(gctx, b.Archive)
			if err != nil {
				if opts.RequireArchive {
					return fmt.Errorf("reading tile archive: %w", err)
				}
				headerErr = err
				return nil
			}
			b.Header = h
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	b.Warnings = warnings
	if headerErr != nil {
		b.Warnings = append(b.Warnings, fmt.Sprintf("tile archive %s unusable: %v", b.Archive, headerErr))
		b.Archive = ""
	}
	debug.Log("loaded %s: %d slides, archive=%q", source, b.Story.Len(), b.Archive)
	return b, nil
}

// WatchPaths returns the local files a reload should follow.
func (b *Bundle) WatchPaths() []string {
	var paths []string
	if !story.IsRemote(b.Source) {
		paths = append(paths, b.Source)
	}
	if b.Archive != "" && !story.IsRemote(b.Archive) {
		paths = append(paths, b.Archive)
	}
	return paths
}
