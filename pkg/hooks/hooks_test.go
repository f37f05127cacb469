package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeHooksFile(t *testing.T, dir, content string) {
	t.Helper()
	cfg := filepath.Join(dir, ConfigDir)
	if err := os.MkdirAll(cfg, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg, "hooks.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write hooks.yaml: %v", err)
	}
}

func TestSaveContextToEnv(t *testing.T) {
	env := SaveContext{
		Document:   "/tmp/graph.yaml",
		Format:     "yaml",
		FieldCount: 3,
		Timestamp:  time.Date(2025, 11, 30, 10, 30, 0, 0, time.UTC),
	}.ToEnv()

	want := []string{
		"JSCOPE_DOCUMENT=/tmp/graph.yaml",
		"JSCOPE_FORMAT=yaml",
		"JSCOPE_FIELD_COUNT=3",
		"JSCOPE_TIMESTAMP=2025-11-30T10:30:00Z",
	}
	if strings.Join(env, "\n") != strings.Join(want, "\n") {
		t.Errorf("got %v", env)
	}
}

func TestLoader_NoConfig(t *testing.T) {
	l := NewLoader(WithDir(t.TempDir()))
	if err := l.Load(); err != nil {
		t.Fatalf("missing config must not fail: %v", err)
	}
	if l.HasHooks() {
		t.Error("expected no hooks")
	}
}

func TestLoader_Defaults(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, `
hooks:
  pre-save:
    - name: lint
      command: echo lint
      timeout: 5s
    - command: "   "
  post-save:
    - command: echo done
      timeout: 2
    - command: echo odd
      on_error: sometimes
`)
	l := NewLoader(WithDir(dir))
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}
	c := l.Config()
	if len(c.Hooks.PreSave) != 1 || len(c.Hooks.PostSave) != 2 {
		t.Fatalf("unexpected hooks %+v", c.Hooks)
	}
	pre := c.Hooks.PreSave[0]
	if pre.Timeout != 5*time.Second || pre.OnError != "fail" {
		t.Errorf("pre-save defaults: %+v", pre)
	}
	post := c.Hooks.PostSave[0]
	if post.Name != "post-save-1" || post.Timeout != 2*time.Second || post.OnError != "continue" {
		t.Errorf("post-save defaults: %+v", post)
	}
	if c.Hooks.PostSave[1].OnError != "fail" {
		t.Errorf("unknown on_error must fall back to fail")
	}
	if len(l.Warnings()) != 2 {
		t.Errorf("expected 2 warnings, got %v", l.Warnings())
	}
}

func TestLoader_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, "hooks: [")
	if err := NewLoader(WithDir(dir)).Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestHook_UnmarshalTimeout(t *testing.T) {
	var h Hook
	if err := yaml.Unmarshal([]byte("command: x\ntimeout: 1.5"), &h); err != nil {
		t.Fatal(err)
	}
	if h.Timeout != 1500*time.Millisecond {
		t.Errorf("got %s", h.Timeout)
	}
	if err := yaml.Unmarshal([]byte("command: x\ntimeout: soon"), &h); err == nil {
		t.Error("expected error for bad timeout")
	}
}

func TestExecutor_EnvAndOutput(t *testing.T) {
	t.Setenv("HOOK_TEST_VAR", "expanded")
	cfg := &Config{Hooks: ByPhase{PreSave: []Hook{{
		Name:    "env",
		Command: `echo "$JSCOPE_DOCUMENT $JSCOPE_FIELD_COUNT $CUSTOM"`,
		Timeout: 5 * time.Second,
		OnError: "fail",
		Env:     map[string]string{"CUSTOM": "${HOOK_TEST_VAR}"},
	}}}}

	e := NewExecutor(cfg, SaveContext{Document: "/d.json", FieldCount: 7, Timestamp: time.Now()})
	if err := e.RunPreSave(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := e.Results()[0].Stdout; got != "/d.json 7 expanded" {
		t.Errorf("got %q", got)
	}
}

func TestExecutor_PreSaveStopsOnFail(t *testing.T) {
	cfg := &Config{Hooks: ByPhase{PreSave: []Hook{
		{Name: "bad", Command: "echo nope >&2; exit 3", Timeout: time.Second, OnError: "fail"},
		{Name: "never", Command: "echo ok", Timeout: time.Second, OnError: "fail"},
	}}}
	e := NewExecutor(cfg, SaveContext{})
	err := e.RunPreSave(context.Background())
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected failure carrying stderr, got %v", err)
	}
	if len(e.Results()) != 1 {
		t.Errorf("later hooks must not run, got %d results", len(e.Results()))
	}
}

func TestExecutor_PostSaveRunsAll(t *testing.T) {
	cfg := &Config{Hooks: ByPhase{PostSave: []Hook{
		{Name: "fail", Command: "exit 1", Timeout: time.Second, OnError: "fail"},
		{Name: "soft", Command: "exit 1", Timeout: time.Second, OnError: "continue"},
		{Name: "ok", Command: "true", Timeout: time.Second, OnError: "fail"},
	}}}
	e := NewExecutor(cfg, SaveContext{})
	if err := e.RunPostSave(context.Background()); err == nil {
		t.Error("expected error from the fail hook")
	}
	if len(e.Results()) != 3 {
		t.Fatalf("expected 3 results, got %d", len(e.Results()))
	}
	if got := e.Summary(); got != "hooks: 1 succeeded, 2 failed (fail, soft)" {
		t.Errorf("summary %q", got)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	cfg := &Config{Hooks: ByPhase{PreSave: []Hook{
		{Name: "slow", Command: "sleep 5", Timeout: 100 * time.Millisecond, OnError: "fail"},
	}}}
	e := NewExecutor(cfg, SaveContext{})
	err := e.RunPreSave(context.Background())
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestRunSave(t *testing.T) {
	ctx := context.Background()

	t.Run("no hooks", func(t *testing.T) {
		called := false
		e, err := RunSave(ctx, t.TempDir(), SaveContext{}, func() error { called = true; return nil })
		if err != nil || e != nil || !called {
			t.Errorf("e=%v err=%v called=%v", e, err, called)
		}
	})

	t.Run("pre-save veto", func(t *testing.T) {
		dir := t.TempDir()
		writeHooksFile(t, dir, "hooks:\n  pre-save:\n    - command: exit 1\n")
		called := false
		_, err := RunSave(ctx, dir, SaveContext{}, func() error { called = true; return nil })
		if err == nil || called {
			t.Errorf("save must be vetoed: err=%v called=%v", err, called)
		}
	})

	t.Run("post-save sees the write", func(t *testing.T) {
		dir := t.TempDir()
		marker := filepath.Join(dir, "written")
		writeHooksFile(t, dir, "hooks:\n  post-save:\n    - command: test -f \"$JSCOPE_DOCUMENT\"\n      on_error: fail\n")
		e, err := RunSave(ctx, dir, SaveContext{Document: marker}, func() error {
			return os.WriteFile(marker, nil, 0o644)
		})
		if err != nil {
			t.Fatal(err)
		}
		if got := e.Summary(); got != "hooks: 1 succeeded, 0 failed" {
			t.Errorf("summary %q", got)
		}
	})

	t.Run("write error", func(t *testing.T) {
		dir := t.TempDir()
		writeHooksFile(t, dir, "hooks:\n  post-save:\n    - command: echo never\n")
		boom := errors.New("boom")
		e, err := RunSave(ctx, dir, SaveContext{}, func() error { return boom })
		if !errors.Is(err, boom) {
			t.Errorf("got %v", err)
		}
		if len(e.Results()) != 0 {
			t.Error("post-save must not run after a failed write")
		}
	})
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("abcdefghijklmnopqrstuvwxyz", 8); got != "abcde..." {
		t.Errorf("got %q", got)
	}
}
