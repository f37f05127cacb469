package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			callCount.Add(1)
		})
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() {
		called.Store(true)
	})
	d.Cancel()
	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func writeDoc(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	for _, poll := range []bool{false, true} {
		t.Run(fmt.Sprintf("poll=%v", poll), func(t *testing.T) {
			dir := t.TempDir()
			doc := filepath.Join(dir, "graph.yaml")
			writeDoc(t, doc, "managers: []")

			var rec recorder
			w, err := NewWatcher([]string{doc},
				WithDebounceDuration(50*time.Millisecond),
				WithPollInterval(30*time.Millisecond),
				WithForcePoll(poll),
				WithOnChange(rec.record),
			)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.Start(); err != nil {
				t.Fatal(err)
			}
			defer w.Stop()
			if w.IsPolling() != poll {
				t.Errorf("expected polling=%v", poll)
			}

			time.Sleep(100 * time.Millisecond)
			writeDoc(t, doc, "managers: [{name: M}]")
			time.Sleep(400 * time.Millisecond)

			got := rec.seen()
			if len(got) == 0 || got[0] != doc {
				t.Errorf("expected change on %s, got %v", doc, got)
			}
		})
	}
}

func TestWatcher_OnlyChangedDocumentReported(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	writeDoc(t, a, "{}")
	writeDoc(t, b, "{}")
	writeDoc(t, filepath.Join(dir, "unrelated.txt"), "x")

	w, err := NewWatcher([]string{a, b, a}, WithDebounceDuration(30*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Paths()) != 2 {
		t.Fatalf("expected duplicates to collapse, got %v", w.Paths())
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	writeDoc(t, filepath.Join(dir, "unrelated.txt"), "y")
	writeDoc(t, b, `{"managers":[]}`)

	select {
	case got := <-w.Changed():
		if got != b {
			t.Errorf("expected %s, got %s", b, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv(ForcePollEnvVar, "yes")
	doc := filepath.Join(t.TempDir(), "graph.json")
	writeDoc(t, doc, "{}")

	w, err := NewWatcher([]string{doc})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if !w.IsPolling() {
		t.Error("expected polling from environment")
	}
}

func TestWatcher_FileRemovedWhilePolling(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "graph.json")
	writeDoc(t, doc, "{}")

	errCh := make(chan error, 4)
	w, err := NewWatcher([]string{doc},
		WithForcePoll(true),
		WithPollInterval(20*time.Millisecond),
		WithOnError(func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(doc); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrFileRemoved) {
			t.Errorf("expected ErrFileRemoved, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for removal")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	if _, err := NewWatcher(nil); !errors.Is(err, ErrNoPaths) {
		t.Errorf("expected ErrNoPaths, got %v", err)
	}

	doc := filepath.Join(t.TempDir(), "missing.json")
	w, err := NewWatcher([]string{doc})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("missing file should not fail Start: %v", err)
	}
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	w.Stop()
	if w.IsStarted() {
		t.Error("expected stopped")
	}
	if err := w.Start(); err != nil {
		t.Errorf("restart failed: %v", err)
	}
	w.Stop()
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true}, {"true", true}, {"YES", true}, {" on ", true},
		{"0", false}, {"false", false}, {"maybe", false}, {"", false},
	}
	for _, tt := range tests {
		t.Setenv("JSCOPE_TEST_BOOL", tt.value)
		if got := envBool("JSCOPE_TEST_BOOL"); got != tt.want {
			t.Errorf("envBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestReload_RetriesUntilValid(t *testing.T) {
	var calls atomic.Int32
	opts := ReloadOptions{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxTries: 5}
	got, err := Reload(context.Background(), opts, func(context.Context) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errors.New("half written")
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("expected 42, got %d %v", got, err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestReload_MissingFileIsPermanent(t *testing.T) {
	var calls atomic.Int32
	_, err := Reload(context.Background(), DefaultReloadOptions(), func(context.Context) (int, error) {
		calls.Add(1)
		_, err := os.Stat(filepath.Join(t.TempDir(), "gone.json"))
		return 0, err
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestReload_GivesUp(t *testing.T) {
	opts := ReloadOptions{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, MaxTries: 2}
	var calls atomic.Int32
	_, err := Reload(context.Background(), opts, func(context.Context) (string, error) {
		calls.Add(1)
		return "", errors.New("still broken")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}
