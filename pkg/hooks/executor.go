package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Result records one hook run.
type Result struct {
	Hook     Hook
	Phase    Phase
	Success  bool
	Stdout   string
	Stderr   string
	Err      error
	Duration time.Duration
}

// Executor runs the configured hooks for one save.
type Executor struct {
	config  *Config
	save    SaveContext
	results []Result
}

// NewExecutor creates an executor for the given save.
func NewExecutor(config *Config, save SaveContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, save: save}
}

// RunPreSave runs the pre-save hooks in order. The first failing hook with
// on_error=fail stops the run and its error is returned.
func (e *Executor) RunPreSave(ctx context.Context) error {
	return e.runPhase(ctx, PreSave, e.config.Hooks.PreSave)
}

// RunPostSave runs the post-save hooks. Every hook runs; failures of hooks
// with on_error=fail are joined into the returned error.
func (e *Executor) RunPostSave(ctx context.Context) error {
	return e.runPhase(ctx, PostSave, e.config.Hooks.PostSave)
}

func (e *Executor) runPhase(ctx context.Context, phase Phase, hooks []Hook) error {
	var errs []error
	for _, h := range hooks {
		r := e.run(ctx, phase, h)
		e.results = append(e.results, r)
		if r.Success || h.OnError == "continue" {
			continue
		}
		err := fmt.Errorf("%s hook %q: %w", phase, h.Name, r.Err)
		if phase == PreSave {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Executor) run(ctx context.Context, phase Phase, h Hook) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), e.save.ToEnv()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r := Result{
		Hook:     h,
		Phase:    phase,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		r.Err = fmt.Errorf("timed out after %s", timeout)
	case err != nil:
		r.Err = err
		if r.Stderr != "" {
			r.Err = fmt.Errorf("%w: %s", err, truncate(r.Stderr, 200))
		}
	default:
		r.Success = true
	}
	return r
}

// Results returns the runs so far, in order.
func (e *Executor) Results() []Result {
	return e.results
}

// Summary describes the runs in one line, e.g. "hooks: 2 succeeded, 1 failed".
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	ok, failed := 0, 0
	var names []string
	for _, r := range e.results {
		if r.Success {
			ok++
		} else {
			failed++
			names = append(names, r.Hook.Name)
		}
	}
	s := fmt.Sprintf("hooks: %d succeeded, %d failed", ok, failed)
	if failed > 0 {
		s += " (" + strings.Join(names, ", ") + ")"
	}
	return s
}

// RunSave loads the hooks configured in dir and wraps write with them. With
// no hooks configured it only calls write.
func RunSave(ctx context.Context, dir string, save SaveContext, write func() error) (*Executor, error) {
	l := NewLoader(WithDir(dir))
	if err := l.Load(); err != nil {
		return nil, err
	}
	if !l.HasHooks() {
		return nil, write()
	}
	e := NewExecutor(l.Config(), save)
	if err := e.RunPreSave(ctx); err != nil {
		return e, err
	}
	if err := write(); err != nil {
		return e, err
	}
	return e, e.RunPostSave(ctx)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
