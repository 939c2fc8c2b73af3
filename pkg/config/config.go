// Package config handles loading and saving storymap configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/storymap/config.yaml
//   - State:   ~/.local/state/storymap/ (debug log)
//
// Environment variables (STORYMAP_PROFILE, STORYMAP_ADDR, ...) override the
// file; see ApplyEnv.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/storymap/pkg/controller"
)

// StoryRef is a named story document, so `storymap view harbor` can stand in
// for a long path or URL.
type StoryRef struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

// MapConfig tunes the slideshow.
type MapConfig struct {
	Profile        string  `yaml:"profile,omitempty"         env:"STORYMAP_PROFILE"`
	TransitionMs   int     `yaml:"transition_ms,omitempty"   env:"STORYMAP_TRANSITION_MS"`
	HighlightColor string  `yaml:"highlight_color,omitempty" env:"STORYMAP_HIGHLIGHT_COLOR"`
	NeutralColor   string  `yaml:"neutral_color,omitempty"   env:"STORYMAP_NEUTRAL_COLOR"`
	LineWidth      float64 `yaml:"line_width,omitempty"      env:"STORYMAP_LINE_WIDTH"`
	StyleURL       string  `yaml:"style_url,omitempty"       env:"STORYMAP_STYLE_URL"`
	// Tiles overrides the tile archive found next to the story.
	Tiles string `yaml:"tiles,omitempty" env:"STORYMAP_TILES"`
}

// ViewConfig holds terminal UI settings.
type ViewConfig struct {
	Watch     bool   `yaml:"watch,omitempty"      env:"STORYMAP_WATCH"`
	Plain     bool   `yaml:"plain,omitempty"      env:"STORYMAP_PLAIN"`
	DebugFile string `yaml:"debug_file,omitempty" env:"STORYMAP_DEBUG_FILE"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty" env:"STORYMAP_ADDR"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Format string `yaml:"format,omitempty"`
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
	OutDir string `yaml:"out_dir,omitempty" env:"STORYMAP_EXPORT_DIR"`
}

// Config is the top-level configuration for storymap.
type Config struct {
	Stories []StoryRef   `yaml:"stories,omitempty"`
	Map     MapConfig    `yaml:"map,omitempty"`
	View    ViewConfig   `yaml:"view,omitempty"`
	Server  ServerConfig `yaml:"server,omitempty"`
	Export  ExportConfig `yaml:"export,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Map: MapConfig{
			Profile:        controller.Classic.Name,
			TransitionMs:   int(controller.DefaultTransitionDelay / time.Millisecond),
			HighlightColor: controller.HighlightColor,
			NeutralColor:   controller.NeutralColor,
			LineWidth:      controller.LineWidth,
		},
		Server: ServerConfig{Addr: ":8080"},
		Export: ExportConfig{Format: "svg", Width: 1200, Height: 800},
	}
}

// ConfigDir returns the XDG config directory for storymap.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "storymap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "storymap")
}

// StateDir returns the XDG state directory for storymap.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "storymap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "storymap")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DebugLogPath returns where the terminal UI writes debug output.
func (c Config) DebugLogPath() string {
	if c.View.DebugFile != "" {
		return expandHome(c.View.DebugFile)
	}
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "debug.log")
}

// Load reads the config file from the XDG config directory and applies
// environment overrides. Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		cfg := DefaultConfig()
		return cfg, cfg.ApplyEnv()
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path and applies environment
// overrides. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	for i := range cfg.Stories {
		cfg.Stories[i].Source = expandSource(cfg.Stories[i].Source)
	}
	cfg.Map.Tiles = expandSource(cfg.Map.Tiles)
	cfg.Export.OutDir = expandHome(cfg.Export.OutDir)

	return cfg, cfg.ApplyEnv()
}

// ApplyEnv overrides fields from STORYMAP_* environment variables. Unset
// variables leave the field alone.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindStory returns the story registered under name, or nil.
func (c Config) FindStory(name string) *StoryRef {
	for i := range c.Stories {
		if strings.EqualFold(c.Stories[i].Name, name) {
			return &c.Stories[i]
		}
	}
	return nil
}

// ResolveSource maps a registered story name to its source; anything else is
// returned unchanged with ~ expanded.
func (c Config) ResolveSource(arg string) string {
	if ref := c.FindStory(arg); ref != nil {
		return ref.Source
	}
	return expandSource(arg)
}

// AddStory registers or updates a named story.
func (c *Config) AddStory(name, source string) {
	if ref := c.FindStory(name); ref != nil {
		ref.Source = source
		return
	}
	c.Stories = append(c.Stories, StoryRef{Name: name, Source: source})
}

// Profile returns the configured controller profile with the map overrides
// applied. An empty name selects the configured profile.
func (c Config) Profile(name string) (controller.Profile, error) {
	if name == "" {
		name = c.Map.Profile
	}
	p, err := controller.LookupProfile(name)
	if err != nil {
		return p, err
	}
	if c.Map.TransitionMs > 0 {
		p.TransitionDelay = time.Duration(c.Map.TransitionMs) * time.Millisecond
	}
	if c.Map.HighlightColor != "" {
		p.HighlightColor = c.Map.HighlightColor
	}
	if c.Map.NeutralColor != "" {
		p.NeutralColor = c.Map.NeutralColor
	}
	if c.Map.LineWidth > 0 {
		p.LineWidth = c.Map.LineWidth
	}
	if c.Map.StyleURL != "" && !p.TileArchive {
		p.StyleURL = c.Map.StyleURL
	}
	return p, nil
}

func expandSource(s string) string {
	if strings.Contains(s, "://") {
		return s
	}
	return expandHome(s)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
