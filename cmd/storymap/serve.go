package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/loader"
	"github.com/vanderheijden86/storymap/pkg/server"
)

func runServe(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	b, loadOpts, err := loadStory(ctx, cmd)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = env.cfg.Server.Addr
	}

	srv := server.New(b, env.profile)

	if cmd.Bool("watch") || env.cfg.View.Watch {
		w, err := startWatcher(ctx, b)
		if err != nil {
			return err
		}
		if w != nil {
			defer w.Stop()
			go reloadOnChange(ctx, cmd, w.Changed(), b.Source, loadOpts, srv)
		}
	}

	fmt.Fprintf(cmd.Root().ErrWriter, "serving %q (%d slides, profile %s) on %s\n",
		b.Story.Title, b.Story.Len(), env.profile.Name, addr)
	return srv.ListenAndServe(ctx, addr)
}

// reloadOnChange swaps the served story on every file change. Sessions
// already open keep the story they started with.
func reloadOnChange(ctx context.Context, cmd *cli.Command, changed <-chan []string, source string, opts loader.Options, srv *server.Server) {
	for {
		select {
		case <-ctx.Done():
			return
		case paths, ok := <-changed:
			if !ok {
				return
			}
			debug.Log("serve: changed %v", paths)
			b, err := loader.Load(ctx, source, opts)
			if err != nil {
				fmt.Fprintf(cmd.Root().ErrWriter, "reload failed: %v\n", err)
				continue
			}
			printWarnings(cmd.Root().ErrWriter, b.Warnings)
			srv.Replace(b)
			fmt.Fprintf(cmd.Root().ErrWriter, "reloaded %d slides\n", b.Story.Len())
		}
	}
}
