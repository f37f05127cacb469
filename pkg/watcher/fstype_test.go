package watcher

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFilesystemType_String(t *testing.T) {
	tests := []struct {
		fsType FilesystemType
		want   string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeSSHFS, "sshfs"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.fsType.String(); got != tt.want {
			t.Errorf("FilesystemType(%d).String() = %q, want %q", tt.fsType, got, tt.want)
		}
	}
}

func TestDetectFilesystemType_EmptyPath(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("DetectFilesystemType(\"\") = %v, want unknown", got)
	}
}

func TestDetectFilesystemType_NonExistentPathUsesParent(t *testing.T) {
	dir := t.TempDir()
	var asked string
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(p string) FilesystemType {
		asked = p
		return FSTypeSMB
	}
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	got := DetectFilesystemType(filepath.Join(dir, "missing", "graph.json"))
	if got != FSTypeSMB || asked != dir {
		t.Errorf("got %v for %q, want smb for %q", got, asked, dir)
	}
}

func TestIsRemoteFilesystem(t *testing.T) {
	for _, ft := range []FilesystemType{FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE} {
		if !isRemoteFilesystem(ft) {
			t.Errorf("%v must be remote", ft)
		}
	}
	for _, ft := range []FilesystemType{FSTypeUnknown, FSTypeLocal} {
		if isRemoteFilesystem(ft) {
			t.Errorf("%v must not be remote", ft)
		}
	}
}

func TestWatcher_RemoteFilesystemUsesPolling(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "local.json")
	remote := filepath.Join(dir, "remote.json")
	writeDoc(t, local, "{}")
	writeDoc(t, remote, "{}")

	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(p string) FilesystemType {
		if p == remote {
			return FSTypeNFS
		}
		return FSTypeLocal
	}
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w, err := NewWatcher([]string{local, remote}, WithPollInterval(25*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected polling when any document is on a remote filesystem")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Errorf("expected nfs, got %v", got)
	}
}

func TestWatcher_LocalFilesystemUsesNotify(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "graph.json")
	writeDoc(t, doc, "{}")

	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeLocal }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w, err := NewWatcher([]string{doc})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if w.FilesystemType() != FSTypeLocal {
		t.Errorf("expected local, got %v", w.FilesystemType())
	}
}
