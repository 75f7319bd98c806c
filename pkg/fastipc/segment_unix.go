//go:build !windows

package fastipc

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// shmPath returns the filesystem path backing a named shared-memory
// segment: a regular file "{name}.shm" beside the PID directories under the
// PID root. With the default PID root on /dev/shm it lives on a tmpfs, as
// POSIX shared memory does, and opening it with O_CREAT|O_EXCL avoids
// binding shm_open(3) through cgo. It is not the object shm_open(name)
// would open.
func shmPath(pidRoot, name string) string {
	return pidRoot + "/" + name + ".shm"
}

// attachResult is the outcome of one attach-or-create attempt.
type attachResult struct {
	buf         []byte
	size        int
	createdByUs bool
}

// errSegmentRace is returned internally when a concurrent creator or closer
// invalidated this attempt; the caller loops and retries.
var errSegmentRace = os.ErrNotExist

// tryAttachOrCreate performs one pass of GuardedSegment's attach-or-create
// step (spec.md §4.1, steps 1-4). It never retries itself; Open's loop does.
func tryAttachOrCreate(path string, size int) (attachResult, error) {
	// Step 1: attach to an existing segment.
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err == nil {
		return mapExisting(fd)
	}
	if err != unix.ENOENT {
		return attachResult{}, wrap(err)
	}

	// Step 2: not found, try to create exclusively.
	fd, err = unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0o666)
	if err != nil {
		if err == unix.EEXIST {
			// Step 3: lost the create race; retry the whole attempt.
			return attachResult{}, errSegmentRace
		}
		return attachResult{}, wrap(err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Unlink(path)
		return attachResult{}, wrap(err)
	}
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Unlink(path)
		return attachResult{}, wrap(err)
	}
	return attachResult{buf: buf, size: size, createdByUs: true}, nil
}

func mapExisting(fd int) (attachResult, error) {
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return attachResult{}, wrap(err)
	}
	actual := int(st.Size)
	if actual == 0 {
		// Another participant created the file but hasn't ftruncate'd it
		// yet; treat as a race and retry rather than mmap a zero-length
		// file, which fails.
		return attachResult{}, errSegmentRace
	}
	// Map only what's actually there; if it's short of requestedSize, Open
	// rejects with ErrSizeMismatch without ever touching bytes past actual.
	buf, err := unix.Mmap(fd, 0, actual, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		if err == unix.ENOENT || err == unix.EINVAL {
			return attachResult{}, errSegmentRace
		}
		return attachResult{}, wrap(err)
	}
	return attachResult{buf: buf, size: actual}, nil
}

func unmapSegment(buf []byte) error {
	if buf == nil {
		return nil
	}
	return unix.Munmap(buf)
}

func unlinkSegment(path string) error {
	err := unix.Unlink(path)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

// pidAlive probes whether pid is alive via a null signal, per spec.md
// §4.1's close protocol: ESRCH means dead, EPERM means alive (owned by
// someone else but running), anything else is conservatively alive.
func pidAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	if err == syscall.ESRCH {
		return false
	}
	return true
}
