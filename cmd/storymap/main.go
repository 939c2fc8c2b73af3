package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/vanderheijden86/storymap/pkg/config"
	"github.com/vanderheijden86/storymap/pkg/controller"
	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/version"
)

// appEnv is the state shared by all commands once flags are parsed.
type appEnv struct {
	cfg     config.Config
	cfgPath string
	profile controller.Profile
}

type envKey struct{}

func envFrom(ctx context.Context) *appEnv {
	if e, ok := ctx.Value(envKey{}).(*appEnv); ok {
		return e
	}
	return &appEnv{cfg: config.DefaultConfig(), profile: controller.Classic}
}

// initializeAppContext loads configuration and resolves the profile after
// the command line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		debug.SetEnabled(true)
	}

	env := &appEnv{cfgPath: cmd.String("config")}
	var err error
	if env.cfgPath != "" {
		env.cfg, err = config.LoadFrom(env.cfgPath)
	} else {
		env.cfgPath = config.ConfigPath()
		env.cfg, err = config.Load()
	}
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}

	if env.profile, err = env.cfg.Profile(cmd.String("profile")); err != nil {
		return ctx, err
	}
	debug.Log("storymap %s: profile=%s config=%s", version.Version, env.profile.Name, env.cfgPath)
	return context.WithValue(ctx, envKey{}, env), nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            "storymap",
		Usage:           "narrated map slideshows in the terminal, over HTTP and as static exports",
		Version:         version.Version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.StringFlag{Name: "profile", Usage: "page profile `NAME` (" + joinNames() + ")", Sources: cli.EnvVars("STORYMAP_PROFILE")},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "write debug logging", Sources: cli.EnvVars("STORYMAP_DEBUG")},
		},
		Commands: []*cli.Command{
			{
				Name:      "view",
				Usage:     "Shows a story in the terminal",
				ArgsUsage: "SOURCE",
				Action:    runView,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "plain", Usage: "no colors or markdown styling"},
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "reload when the story file changes"},
					&cli.IntFlag{Name: "slide", Usage: "start at slide `N` (0-based)"},
				},
			},
			{
				Name:      "serve",
				Usage:     "Serves a story over HTTP with one slideshow per session",
				ArgsUsage: "SOURCE",
				Action:    runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen on `ADDR`"},
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "serve new sessions from the changed story"},
				},
			},
			{
				Name:      "export",
				Usage:     "Writes a map snapshot, GeoJSON, SQLite database or Markdown handout",
				ArgsUsage: "SOURCE",
				Action:    runExport,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output `FORMAT` (svg, png, geojson, sqlite, md)"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output `PATH`"},
					&cli.IntFlag{Name: "slide", Usage: "highlight the lines into slide `N`"},
					&cli.IntFlag{Name: "width", Usage: "image width in pixels"},
					&cli.IntFlag{Name: "height", Usage: "image height in pixels"},
					&cli.BoolFlag{Name: "no-input", Usage: "never prompt, even on a terminal"},
				},
			},
			{
				Name:      "check",
				Usage:     "Reports parts of a story the viewer would skip",
				ArgsUsage: "SOURCE",
				Action:    runCheck,
			},
			{
				Name:   "version",
				Usage:  "Prints the version",
				Action: runVersion,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp().Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "storymap: %v\n", err)
		os.Exit(1)
	}
}

func runVersion(ctx context.Context, cmd *cli.Command) error {
	_, err := fmt.Fprintf(cmd.Root().Writer, "storymap %s\n", version.Version)
	return err
}

func joinNames() string {
	return strings.Join(controller.ProfileNames(), ", ")
}
