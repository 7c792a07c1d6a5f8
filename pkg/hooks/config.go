// Package hooks runs user commands around "ft export".
//
// Hooks live in the snapshot folder of the exported directory
// (<dir>/.ft/hooks.yaml):
//
//	hooks:
//	  pre-export:
//	    - name: check
//	      command: test -n "$FT_SOURCE_PATH"
//	  post-export:
//	    - command: cp "$FT_EXPORT_PATH" /backup/
//	      timeout: 10s
//	      on_error: fail
//
// A failing pre-export hook cancels the export. Post-export hooks all run.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/ft/internal/datasource"
)

// ConfigFile is the hooks file name inside the snapshot folder.
const ConfigFile = "hooks.yaml"

// DefaultTimeout applies to hooks without a timeout.
const DefaultTimeout = 30 * time.Second

// HookPhase says when a hook runs.
type HookPhase string

const (
	PreExport  HookPhase = "pre-export"
	PostExport HookPhase = "post-export"
)

// ErrorPolicy decides whether a failed hook fails the export step.
type ErrorPolicy string

const (
	Fail     ErrorPolicy = "fail"
	Continue ErrorPolicy = "continue"
)

// defaultPolicy: pre-export hooks guard the export, post-export hooks are
// best effort.
func defaultPolicy(p HookPhase) ErrorPolicy {
	if p == PreExport {
		return Fail
	}
	return Continue
}

// Hook is one configured command. Timeout accepts a Go duration ("5s") or a
// bare number of seconds.
type Hook struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Timeout time.Duration     `yaml:"-"`
	Env     map[string]string `yaml:"env"`
	OnError ErrorPolicy       `yaml:"on_error"`
}

// UnmarshalYAML decodes a hook, reading timeout by hand.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	type fields Hook
	if err := node.Decode((*fields)(h)); err != nil {
		return err
	}
	switch h.OnError {
	case "", Fail, Continue:
	default:
		return fmt.Errorf("line %d: on_error must be %q or %q, got %q", node.Line, Fail, Continue, h.OnError)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "timeout" {
			continue
		}
		v := node.Content[i+1]
		d, err := parseTimeout(v.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", v.Line, err)
		}
		h.Timeout = d
	}
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Config is the content of a hooks file after defaults were applied.
type Config struct {
	PreExport  []Hook `yaml:"pre-export"`
	PostExport []Hook `yaml:"post-export"`

	// Warnings lists the hooks that were dropped while loading.
	Warnings []string `yaml:"-"`
}

// Empty reports whether no hook is configured.
func (c *Config) Empty() bool {
	return c == nil || len(c.PreExport)+len(c.PostExport) == 0
}

// Phase returns the hooks of one phase.
func (c *Config) Phase(p HookPhase) []Hook {
	if c == nil {
		return nil
	}
	switch p {
	case PreExport:
		return c.PreExport
	case PostExport:
		return c.PostExport
	}
	return nil
}

// ConfigPath returns the hooks file of the directory source dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, datasource.SnapshotDir, ConfigFile)
}

// LoadConfig reads the hooks of the directory source dir. A missing file
// yields an empty config.
func LoadConfig(dir string) (*Config, error) {
	path := ConfigPath(dir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading hooks: %w", err)
	}

	var file struct {
		Hooks Config `yaml:"hooks"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	c := &file.Hooks
	c.PreExport = c.prepare(PreExport, c.PreExport)
	c.PostExport = c.prepare(PostExport, c.PostExport)
	return c, nil
}

// prepare fills in names, timeouts and policies and drops hooks without a
// command.
func (c *Config) prepare(phase HookPhase, hooks []Hook) []Hook {
	kept := hooks[:0]
	for i, h := range hooks {
		if strings.TrimSpace(h.Command) == "" {
			c.Warnings = append(c.Warnings, fmt.Sprintf("%s hook %d has no command, skipped", phase, i+1))
			continue
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		if h.Timeout <= 0 {
			h.Timeout = DefaultTimeout
		}
		if h.OnError == "" {
			h.OnError = defaultPolicy(phase)
		}
		kept = append(kept, h)
	}
	return kept
}

// ExportContext describes the export to the hook commands.
type ExportContext struct {
	SourcePath   string
	ExportPath   string // "-" for stdout
	ExportFormat string
	EntryCount   int
	Timestamp    time.Time
}

// ToEnv returns the FT_* variables handed to every hook.
func (c ExportContext) ToEnv() []string {
	vars := [][2]string{
		{"FT_SOURCE_PATH", c.SourcePath},
		{"FT_EXPORT_PATH", c.ExportPath},
		{"FT_EXPORT_FORMAT", c.ExportFormat},
		{"FT_ENTRY_COUNT", strconv.Itoa(c.EntryCount)},
		{"FT_TIMESTAMP", c.Timestamp.Format(time.RFC3339)},
	}
	env := make([]string, len(vars))
	for i, kv := range vars {
		env[i] = kv[0] + "=" + kv[1]
	}
	return env
}
