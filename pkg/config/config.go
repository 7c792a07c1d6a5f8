// Package config handles loading and saving ft configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/ft/config.yaml
//   - State:   ~/.local/state/ft/ (listing snapshots)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Activate actions for a confirmed leaf.
const (
	ActivatePrint     = "print"
	ActivateClipboard = "clipboard"
	ActivateOpen      = "open"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Source is a named listing source, usable in place of a path on the
// command line.
type Source struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	Height      int    `yaml:"height,omitempty"`       // Rows of tree shown; 0 = fill the terminal
	ExpandDepth int    `yaml:"expand_depth,omitempty"` // Containers expanded on open
	Activate    string `yaml:"activate,omitempty"`     // print, clipboard, open
}

// SearchConfig tunes the search filter.
type SearchConfig struct {
	ParallelThreshold int `yaml:"parallel_threshold,omitempty"` // Node count above which scans are split
}

// LoaderConfig controls listing ingestion.
type LoaderConfig struct {
	Ignore     []string `yaml:"ignore,omitempty"`      // Glob patterns; empty = built-in defaults
	MaxEntries int      `yaml:"max_entries,omitempty"` // Directory walk bound; 0 = unlimited
}

// WatchConfig controls live reload.
type WatchConfig struct {
	Enabled  *bool         `yaml:"enabled,omitempty"`
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// Config is the top-level configuration for ft.
type Config struct {
	Sources []Source     `yaml:"sources,omitempty"`
	UI      UIConfig     `yaml:"ui,omitempty"`
	Search  SearchConfig `yaml:"search,omitempty"`
	Loader  LoaderConfig `yaml:"loader,omitempty"`
	Watch   WatchConfig  `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			Activate: ActivatePrint,
		},
		Search: SearchConfig{
			ParallelThreshold: 4096,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// WatchEnabled reports whether live reload is on. It defaults to true.
func (c Config) WatchEnabled() bool {
	return c.Watch.Enabled == nil || *c.Watch.Enabled
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	switch c.UI.Activate {
	case ActivatePrint, ActivateClipboard, ActivateOpen:
	default:
		return fmt.Errorf("%w: ui.activate must be one of print, clipboard, open (got %q)", ErrInvalid, c.UI.Activate)
	}
	if c.UI.Height < 0 {
		return fmt.Errorf("%w: ui.height must not be negative", ErrInvalid)
	}
	if c.UI.ExpandDepth < 0 {
		return fmt.Errorf("%w: ui.expand_depth must not be negative", ErrInvalid)
	}
	if c.Search.ParallelThreshold < 0 {
		return fmt.Errorf("%w: search.parallel_threshold must not be negative", ErrInvalid)
	}
	if c.Loader.MaxEntries < 0 {
		return fmt.Errorf("%w: loader.max_entries must not be negative", ErrInvalid)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must not be negative", ErrInvalid)
	}
	for _, s := range c.Sources {
		if s.Name == "" || s.Path == "" {
			return fmt.Errorf("%w: sources entries need a name and a path", ErrInvalid)
		}
	}
	return nil
}

// ConfigDir returns the XDG config directory for ft.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "ft")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ft")
}

// StateDir returns the XDG state directory for ft.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "ft")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "ft")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.UI.Activate == "" {
		cfg.UI.Activate = ActivatePrint
	}

	// Expand ~ in source paths
	for i := range cfg.Sources {
		cfg.Sources[i].Path = expandHome(cfg.Sources[i].Path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
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

// FindSource returns the source with the given name, or nil.
func (c Config) FindSource(name string) *Source {
	for i := range c.Sources {
		if strings.EqualFold(c.Sources[i].Name, name) {
			return &c.Sources[i]
		}
	}
	return nil
}

// ResolveSource maps a command-line argument to a path: a configured
// source name yields its path, anything else is returned with ~ expanded.
func (c Config) ResolveSource(arg string) string {
	if s := c.FindSource(arg); s != nil {
		return s.Path
	}
	return expandHome(arg)
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
