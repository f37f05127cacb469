// Package config handles loading and saving jscope configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/jscope/config.yaml
//   - State:   ~/.local/state/jscope/ (cpu profiles, last session)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/jointscope/pkg/builder"
	"github.com/vanderheijden86/jointscope/pkg/filter"
)

// BuilderConfig selects which collector passes run.
type BuilderConfig struct {
	ShowManagers   *bool `yaml:"show_managers,omitempty"`
	ShowNodes      *bool `yaml:"show_nodes,omitempty"`
	ShowProperties *bool `yaml:"show_properties,omitempty"`
}

// TagConfig is a preset tag predicate.
type TagConfig struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled,omitempty"`
}

type FilterConfig struct {
	FlattenOnFilter bool        `yaml:"flatten_on_filter,omitempty"`
	Tags            []TagConfig `yaml:"tags,omitempty"`
}

// WatchConfig controls live reload.
type WatchConfig struct {
	Enabled      *bool         `yaml:"enabled,omitempty"`
	Debounce     time.Duration `yaml:"debounce,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	ForcePoll    bool          `yaml:"force_poll,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	HighlightMatches *bool `yaml:"highlight_matches,omitempty"`
	ShowTypes        bool  `yaml:"show_types,omitempty"` // Class column next to each row
}

// Config is the top-level configuration for jscope.
type Config struct {
	// Documents are opened when none are given on the command line.
	Documents []string      `yaml:"documents,omitempty"`
	Builder   BuilderConfig `yaml:"builder,omitempty"`
	Filter    FilterConfig  `yaml:"filter,omitempty"`
	Watch     WatchConfig   `yaml:"watch,omitempty"`
	UI        UIConfig      `yaml:"ui,omitempty"`
}

// DefaultTags are the presets bound to keys 1-9 when the config names none.
var DefaultTags = []string{
	"Tag:Manager", "Tag:Node", "Tag:Property", "Tag:FString", "Tag:FName", "Tag:FText",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	tags := make([]TagConfig, len(DefaultTags))
	for i, name := range DefaultTags {
		tags[i] = TagConfig{Name: name}
	}
	return Config{
		Filter: FilterConfig{Tags: tags},
		Watch: WatchConfig{
			Debounce:     200 * time.Millisecond,
			PollInterval: 2 * time.Second,
		},
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// BuilderArgs returns the pass selection; unset keys default to true.
func (c Config) BuilderArgs() builder.Args {
	return builder.Args{
		ShowManagers:   boolOr(c.Builder.ShowManagers, true),
		ShowNodes:      boolOr(c.Builder.ShowNodes, true),
		ShowProperties: boolOr(c.Builder.ShowProperties, true),
	}
}

// TagItems returns the configured tag presets.
func (c Config) TagItems() []filter.FilterItem {
	out := make([]filter.FilterItem, 0, len(c.Filter.Tags))
	for _, t := range c.Filter.Tags {
		out = append(out, filter.FilterItem{Name: t.Name, Enabled: t.Enabled})
	}
	return out
}

func (c Config) WatchEnabled() bool { return boolOr(c.Watch.Enabled, true) }

func (c Config) HighlightMatches() bool { return boolOr(c.UI.HighlightMatches, true) }

// ApplyEnv overlays JSCOPE_FORCE_POLL and JSCOPE_DEBOUNCE_MS.
func (c *Config) ApplyEnv() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("JSCOPE_FORCE_POLL"))) {
	case "1", "true", "yes", "y", "on":
		c.Watch.ForcePoll = true
	}
	if v := strings.TrimSpace(os.Getenv("JSCOPE_DEBOUNCE_MS")); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Watch.Debounce = time.Duration(ms) * time.Millisecond
		}
	}
}

// ConfigDir returns the XDG config directory for jscope.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "jscope")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "jscope")
}

// StateDir returns the XDG state directory for jscope.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "jscope")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "jscope")
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

	for i := range cfg.Documents {
		cfg.Documents[i] = expandHome(cfg.Documents[i])
	}
	if cfg.Watch.Debounce < 0 {
		cfg.Watch.Debounce = 0
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
