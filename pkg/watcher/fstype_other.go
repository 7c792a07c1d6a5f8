//go:build !linux && !darwin

package watcher

func statFilesystemType(string) FilesystemType {
	return FSTypeUnknown
}
