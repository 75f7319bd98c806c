//go:build linux

package fastipc

import (
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Futex op codes. Deliberately NOT the _PRIVATE variants: FUTEX_WAIT_PRIVATE/
// FUTEX_WAKE_PRIVATE key the kernel's wait queue off the waiter's virtual
// address as an optimization that's only valid when every waiter shares one
// address space (e.g. goroutines in one process). This module's whole point
// is a word shared across independent processes that each map the same
// MAP_SHARED segment at whatever address their own mmap happens to pick —
// using the private variants here would silently split waiters onto
// different queues and break cross-process wakeups. The plain (non-private)
// ops key off the underlying physical page instead, which is what
// mmap(MAP_SHARED)-backed coordination requires.
const (
	futexWait = 0
	futexWake = 1
)

// futexWaitOn blocks while *addr == val, waking on a matching futexWake or
// after timeout elapses. timeout < 0 means wait forever. Spurious wakeups
// are possible and are the caller's responsibility to handle by re-checking
// the word.
func futexWaitOn(addr *uint32, val uint32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	_, _, errno := syscall.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWait),
		uintptr(val),
		uintptr(unsafe.Pointer(ts)),
		0, 0,
	)
	switch errno {
	case 0, syscall.EAGAIN, syscall.EINTR:
		// EAGAIN: *addr != val, the word moved before we parked — treat as
		// a wakeup, caller re-checks.
		// EINTR: signal delivered; the primitive's default policy is to
		// retry transparently (spec.md §5, Cancellation).
		return nil
	case syscall.ETIMEDOUT:
		return syscall.ETIMEDOUT
	default:
		return errno
	}
}

// futexWakeOne wakes at most one waiter parked on addr.
func futexWakeOne(addr *uint32) {
	futexWakeN(addr, 1)
}

// futexWakeN wakes up to n waiters parked on addr.
func futexWakeN(addr *uint32, n int) {
	syscall.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWake),
		uintptr(n),
		0, 0, 0,
	)
}
