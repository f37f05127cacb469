package watcher

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Superblock magic numbers from linux/magic.h and the cifs/smb2 clients.
const (
	nfsSuperMagic  = 0x6969
	smbSuperMagic  = 0x517B
	cifsMagic      = 0xFF534D42
	smb2Magic      = 0xFE534D42
	fuseSuperMagic = 0x65735546
)

func detectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	switch uint32(st.Type) {
	case nfsSuperMagic:
		return FSTypeNFS
	case smbSuperMagic, cifsMagic, smb2Magic:
		return FSTypeSMB
	case fuseSuperMagic:
		f, err := os.Open("/proc/self/mounts")
		if err != nil {
			return FSTypeFUSE
		}
		defer f.Close()
		if abs, err := filepath.Abs(path); err == nil && mountType(f, abs) == "fuse.sshfs" {
			return FSTypeSSHFS
		}
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}

// mountType returns the type of the longest mount point in mounts (the
// /proc/self/mounts format) containing path.
func mountType(mounts io.Reader, path string) string {
	best, typ := "", ""
	sc := bufio.NewScanner(mounts)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 3 {
			continue
		}
		mnt := strings.ReplaceAll(f[1], `\040`, " ")
		if !within(path, mnt) || len(mnt) < len(best) {
			continue
		}
		best, typ = mnt, f[2]
	}
	return typ
}

func within(path, mnt string) bool {
	if mnt == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == mnt || strings.HasPrefix(path, mnt+"/")
}
