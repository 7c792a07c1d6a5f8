package watcher

import (
	"os"
	"path/filepath"
)

// FilesystemType is a coarse classification of the filesystem backing a
// watched path. Remote filesystems rarely deliver inotify/kqueue events, so
// the watcher polls on them.
type FilesystemType int

const (
	FSTypeUnknown FilesystemType = iota
	FSTypeLocal
	FSTypeNFS
	FSTypeSMB
	FSTypeSSHFS
	FSTypeFUSE
)

func (t FilesystemType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeNFS:
		return "nfs"
	case FSTypeSMB:
		return "smb"
	case FSTypeSSHFS:
		return "sshfs"
	case FSTypeFUSE:
		return "fuse"
	default:
		return "unknown"
	}
}

// detectFilesystemTypeFunc is swapped out in tests.
var detectFilesystemTypeFunc = DetectFilesystemType

// DetectFilesystemType classifies the filesystem holding path. A path that
// does not exist yet is classified by its nearest existing ancestor.
func DetectFilesystemType(path string) FilesystemType {
	if path == "" {
		return FSTypeUnknown
	}
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			return statFilesystemType(p)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return FSTypeUnknown
		}
		p = parent
	}
}

func isRemoteFilesystem(t FilesystemType) bool {
	switch t {
	case FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE:
		return true
	default:
		return false
	}
}
