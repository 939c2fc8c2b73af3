package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	cli "github.com/urfave/cli/v3"

	"github.com/vanderheijden86/storymap/pkg/export"
)

func runExport(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	b, _, err := loadStory(ctx, cmd)
	if err != nil {
		return err
	}

	wc := export.WizardConfig{
		Path:   cmd.String("out"),
		Slide:  int(cmd.Int("slide")),
		Width:  int(cmd.Int("width")),
		Height: int(cmd.Int("height")),
	}
	if f := cmd.String("format"); f != "" {
		if wc.Format, err = export.ParseFormat(f); err != nil {
			return err
		}
	} else if f, ok := export.FormatFromPath(wc.Path); ok {
		wc.Format = f
	}

	// Ask only for what the command line left open.
	if wc.Format == "" && !cmd.Bool("no-input") && export.IsTerminal() {
		title := b.Story.Title
		if title == "" {
			title = "storymap"
		}
		wc, err = export.NewWizard(b.Story, title, wc).Run()
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	if wc.Format == "" && env.cfg.Export.Format != "" {
		if wc.Format, err = export.ParseFormat(env.cfg.Export.Format); err != nil {
			return fmt.Errorf("config export.format: %w", err)
		}
	}
	if wc.Width <= 0 {
		wc.Width = env.cfg.Export.Width
	}
	if wc.Height <= 0 {
		wc.Height = env.cfg.Export.Height
	}

	sc, err := export.BuildScene(b.Story, export.SceneOptions{
		Profile: env.profile,
		Slide:   wc.Slide,
		Width:   wc.Width,
		Height:  wc.Height,
		Header:  b.Header,
		Archive: b.Archive,
	})
	if err != nil {
		return err
	}
	out, err := export.Write(sc, export.Options{
		Format: wc.Format,
		Path:   wc.Path,
		OutDir: env.cfg.Export.OutDir,
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", out.Format, err)
	}
	_, err = fmt.Fprintf(cmd.Root().Writer, "wrote %s (%s)\n", out.Path, out.Format)
	return err
}
