package watcher

import (
	"strings"

	"golang.org/x/sys/unix"
)

func detectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	switch name := unix.ByteSliceToString(st.Fstypename[:]); name {
	case "nfs":
		return FSTypeNFS
	case "smbfs", "cifs":
		return FSTypeSMB
	case "macfuse", "osxfuse", "fusefs":
		return FSTypeFUSE
	default:
		if name == "fuse.sshfs" {
			return FSTypeSSHFS
		}
		if strings.HasPrefix(name, "fuse") {
			return FSTypeFUSE
		}
		return FSTypeLocal
	}
}
