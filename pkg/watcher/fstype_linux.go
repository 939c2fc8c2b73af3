//go:build linux

package watcher

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// statfs magic numbers from linux/magic.h.
const (
	nfsMagic   = 0x6969
	smbMagic   = 0x517b
	cifsMagic  = 0xff534d42
	smb2Magic  = 0xfe534d42
	fuseMagic  = 0x65735546
	fuseblkSub = "fuse.sshfs"
)

func detectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	switch uint32(st.Type) {
	case nfsMagic:
		return FSTypeNFS
	case smbMagic, cifsMagic, smb2Magic:
		return FSTypeSMB
	case fuseMagic:
		if isSSHFS(path) {
			return FSTypeSSHFS
		}
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}

// isSSHFS looks the mount up in /proc/self/mounts; statfs reports every
// FUSE filesystem with the same magic.
func isSSHFS(path string) bool {
	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return false
	}
	best, sshfs := "", false
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mnt, fstype := fields[1], fields[2]
		if strings.HasPrefix(path, mnt) && len(mnt) > len(best) {
			best, sshfs = mnt, fstype == fuseblkSub
		}
	}
	return sshfs
}
