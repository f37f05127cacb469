// Package hooks runs user commands around document saves. Hooks are
// configured in .jscope/hooks.yaml next to the documents and run before
// (pre-save) and after (post-save) each document is written.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Phase represents when a hook runs
type Phase string

const (
	// PreSave runs before a document is written. Failure cancels the save.
	PreSave Phase = "pre-save"
	// PostSave runs after a document is written. Failure is logged only.
	PostSave Phase = "post-save"
)

// Hook defines a single hook configuration
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`                       // run with sh -c
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`   // default 30s
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`           // values are expanded
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"` // "fail" or "continue"
}

// Config holds all hook configurations
type Config struct {
	Hooks ByPhase `yaml:"hooks" json:"hooks"`
}

// ByPhase organizes hooks by their execution phase
type ByPhase struct {
	PreSave  []Hook `yaml:"pre-save,omitempty" json:"pre-save,omitempty"`
	PostSave []Hook `yaml:"post-save,omitempty" json:"post-save,omitempty"`
}

// SaveContext describes the save a hook runs for. It reaches the hook
// through the environment.
type SaveContext struct {
	Document   string    // JSCOPE_DOCUMENT
	Format     string    // JSCOPE_FORMAT: sqlite, json or yaml
	FieldCount int       // JSCOPE_FIELD_COUNT
	Timestamp  time.Time // JSCOPE_TIMESTAMP (RFC3339)
}

// ToEnv converts the save context to environment variables
func (c SaveContext) ToEnv() []string {
	return []string{
		"JSCOPE_DOCUMENT=" + c.Document,
		"JSCOPE_FORMAT=" + c.Format,
		fmt.Sprintf("JSCOPE_FIELD_COUNT=%d", c.FieldCount),
		"JSCOPE_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// ConfigDir is the directory, relative to the documents, holding hooks.yaml.
const ConfigDir = ".jscope"

// Loader loads hook configuration from .jscope/hooks.yaml
type Loader struct {
	dir      string
	config   *Config
	warnings []string
}

// LoaderOption configures the loader
type LoaderOption func(*Loader)

// WithDir sets the directory searched for .jscope/hooks.yaml (default: cwd)
func WithDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.dir = dir
	}
}

// NewLoader creates a new hook loader with options
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.dir == "" {
		l.dir, _ = os.Getwd()
	}
	return l
}

// Path returns the hooks file the loader reads.
func (l *Loader) Path() string {
	return filepath.Join(l.dir, ConfigDir, "hooks.yaml")
}

// Load reads the hooks file. A missing file means no hooks.
func (l *Loader) Load() error {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	config.Hooks.PreSave, l.warnings = normalizeHooks(config.Hooks.PreSave, PreSave, l.warnings)
	config.Hooks.PostSave, l.warnings = normalizeHooks(config.Hooks.PostSave, PostSave, l.warnings)
	l.config = &config
	return nil
}

// normalizeHooks applies defaults, drops empty commands, and accumulates warnings.
func normalizeHooks(hooks []Hook, phase Phase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i := range hooks {
		hook := hooks[i]
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout == 0 {
			hook.Timeout = DefaultTimeout
		}
		switch hook.OnError {
		case "fail", "continue":
		case "":
			if phase == PreSave {
				hook.OnError = "fail"
			} else {
				hook.OnError = "continue"
			}
		default:
			warnings = append(warnings, fmt.Sprintf("%s hook %d: unknown on_error %q, using fail", phase, i+1, hook.OnError))
			hook.OnError = "fail"
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration (or empty if not loaded)
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks returns true if any hooks are configured
func (l *Loader) HasHooks() bool {
	if l.config == nil {
		return false
	}
	return len(l.config.Hooks.PreSave) > 0 || len(l.config.Hooks.PostSave) > 0
}

// Warnings returns any warnings from loading
func (l *Loader) Warnings() []string {
	return l.warnings
}

// UnmarshalYAML accepts timeouts as durations ("5s") or plain seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}

	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError

	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err == nil {
			h.Timeout = d
		} else {
			var seconds float64
			if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr == nil {
				h.Timeout = time.Duration(seconds * float64(time.Second))
			} else {
				return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
			}
		}
	}
	return nil
}
