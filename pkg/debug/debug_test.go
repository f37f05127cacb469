package debug

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T, on bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(on)
	ResetCheckpoints()
	t.Cleanup(func() {
		SetEnabled(false)
		SetOutput(os.Stderr)
		ResetCheckpoints()
	})
	return &buf
}

func TestDisabledWritesNothing(t *testing.T) {
	buf := capture(t, false)

	Log("hello %d", 1)
	LogTiming("op", time.Second)
	LogEnterExit("fn")()
	Dump("v", 42)
	Section("s")
	Checkpoint("c")
	Assert(false, "ignored while disabled")

	if buf.Len() != 0 {
		t.Errorf("expected no output while disabled, got %q", buf.String())
	}
	if Enabled() {
		t.Error("Enabled() should be false")
	}
}

func TestEnabledOutput(t *testing.T) {
	buf := capture(t, true)

	Log("managers=%d", 3)
	Section("build")
	Dump("items", []string{"a", "b"})
	LogTiming("build 1", 5*time.Millisecond)

	out := buf.String()
	for _, want := range []string{
		prefix,
		"managers=3",
		"=== build ===",
		"items: []string = [a b]",
		"build 1 took 5ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckpointNumbering(t *testing.T) {
	buf := capture(t, true)

	Checkpoint("first")
	Checkpoint("second")
	ResetCheckpoints()
	Checkpoint("again")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{"[1] first", "[2] second", "[1] again"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("line %d: expected suffix %q, got %q", i, want, lines[i])
		}
	}
}

func TestLogEnterExit(t *testing.T) {
	buf := capture(t, true)

	done := LogEnterExit("Reload")
	if !strings.Contains(buf.String(), "-> Reload") {
		t.Fatalf("entry not logged: %q", buf.String())
	}
	if strings.Contains(buf.String(), "<- Reload") {
		t.Fatal("exit logged before the returned func ran")
	}
	done()
	if !strings.Contains(buf.String(), "<- Reload (") {
		t.Errorf("exit not logged: %q", buf.String())
	}
}

func TestAssert(t *testing.T) {
	buf := capture(t, true)

	Assert(true, "holds")
	if buf.Len() != 0 {
		t.Errorf("passing assertion wrote %q", buf.String())
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic from failed assertion")
		}
		if !strings.Contains(r.(string), "one load result per document") {
			t.Errorf("unexpected panic value %v", r)
		}
		if !strings.Contains(buf.String(), "ASSERTION FAILED: one load result per document") {
			t.Errorf("failure not logged: %q", buf.String())
		}
	}()
	Assert(false, "one load result per document")
}
