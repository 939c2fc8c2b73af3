package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	cli "github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/loader"
	"github.com/vanderheijden86/storymap/pkg/ui"
)

func runView(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("view needs a terminal; try export or serve")
	}

	b, loadOpts, err := loadStory(ctx, cmd)
	if err != nil {
		return err
	}

	// Debug output would corrupt the alternate screen.
	if debug.Enabled() {
		restore, err := redirectDebug(env.cfg.DebugLogPath())
		if err != nil {
			return err
		}
		defer restore()
	}

	opts := []ui.Option{
		ui.WithPlain(cmd.Bool("plain") || env.cfg.View.Plain),
		ui.WithStartIndex(int(cmd.Int("slide"))),
	}
	if cmd.Bool("watch") || env.cfg.View.Watch {
		w, err := startWatcher(ctx, b)
		if err != nil {
			return err
		}
		if w != nil {
			defer w.Stop()
			source := b.Source
			opts = append(opts, ui.WithWatcher(w, func(ctx context.Context) (*loader.Bundle, error) {
				return loader.Load(ctx, source, loadOpts)
			}))
		}
	}

	m, err := ui.NewModel(b, env.profile, opts...)
	if err != nil {
		return err
	}
	defer m.Close()
	return runTUIProgram(ctx, m)
}

// redirectDebug sends debug output to path until the returned func runs.
func redirectDebug(path string) (func(), error) {
	if path == "" {
		prev := debug.SetOutput(io.Discard)
		return func() { debug.SetOutput(prev) }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create debug log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	prev := debug.SetOutput(f)
	return func() {
		debug.SetOutput(prev)
		f.Close()
	}, nil
}

func runTUIProgram(ctx context.Context, m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown when the context ends, forced after a grace period.
	go func() {
		select {
		case <-runDone:
			return
		case <-ctx.Done():
		}

		p.Quit()

		select {
		case <-runDone:
		case <-time.After(5 * time.Second):
			p.Kill()
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
