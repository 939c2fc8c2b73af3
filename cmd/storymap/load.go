package main

import (
	"context"
	"fmt"
	"io"

	cli "github.com/urfave/cli/v3"

	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/loader"
	"github.com/vanderheijden86/storymap/pkg/watcher"
)

// loadStory resolves the SOURCE argument, which may be a configured story
// name, a file, a directory or a URL, and loads it.
func loadStory(ctx context.Context, cmd *cli.Command) (*loader.Bundle, loader.Options, error) {
	env := envFrom(ctx)
	opts := loader.Options{Archive: env.cfg.Map.Tiles}

	src, err := loader.ResolveSource(env.cfg.ResolveSource(cmd.Args().First()))
	if err != nil {
		return nil, opts, err
	}
	b, err := loader.Load(ctx, src, opts)
	if err != nil {
		return nil, opts, fmt.Errorf("loading %s: %w", src, err)
	}
	printWarnings(cmd.Root().ErrWriter, b.Warnings)
	return b, opts, nil
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}

// startWatcher follows the bundle's local files. Remote stories have nothing
// to watch and yield a nil watcher.
func startWatcher(ctx context.Context, b *loader.Bundle) (*watcher.Watcher, error) {
	paths := b.WatchPaths()
	if len(paths) == 0 {
		debug.Log("watch: %s is remote, nothing to watch", b.Source)
		return nil, nil
	}
	w, err := watcher.New(paths, watcher.WithOnError(func(err error) {
		debug.Log("watch: %v", err)
	}))
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", b.Source, err)
	}
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("watching %s: %w", b.Source, err)
	}
	debug.Log("watch: %v (polling=%v)", w.Paths(), w.IsPolling())
	return w, nil
}
