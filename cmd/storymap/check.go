package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/vanderheijden86/storymap/pkg/story"
)

func runCheck(ctx context.Context, cmd *cli.Command) error {
	b, _, err := loadStory(ctx, cmd)
	if err != nil {
		return err
	}

	findings := multierr.Errors(story.Lint(b.Story))
	out := cmd.Root().Writer
	for _, f := range findings {
		fmt.Fprintln(out, f)
	}
	if len(findings) > 0 {
		return fmt.Errorf("%d problem(s) in %s", len(findings), b.Source)
	}
	fmt.Fprintf(out, "%s: %d slides, no problems\n", b.Source, b.Story.Len())
	return nil
}
