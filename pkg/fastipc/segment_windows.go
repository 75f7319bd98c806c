//go:build windows

package fastipc

import "errors"

// Windows has no /dev/shm-style tmpfs and a different shared-memory API
// (CreateFileMapping/MapViewOfFile) and no futex syscall at all; wiring
// that up is future work, not attempted here. Non-goals in spec.md §1
// already scope this module to the primary Linux-like target.
var errUnsupportedPlatform = errors.New("fastipc: unsupported platform")

func tryAttachOrCreate(path string, size int) (attachResult, error) {
	return attachResult{}, errUnsupportedPlatform
}

func unmapSegment(buf []byte) error { return nil }

func unlinkSegment(path string) error { return nil }

func pidAlive(pid int) bool { return true }

var errSegmentRace = errUnsupportedPlatform

type attachResult struct {
	buf         []byte
	size        int
	createdByUs bool
}

func shmPath(pidRoot, name string) string {
	return pidRoot + "\\" + name + ".shm"
}
