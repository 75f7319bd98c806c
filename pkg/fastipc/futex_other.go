//go:build !linux

package fastipc

import (
	"sync/atomic"
	"syscall"
	"time"
)

// Non-Linux hosts have no futex(2) equivalent exposed portably through
// golang.org/x/sys/unix, so parking degrades to a short-interval poll of
// the word. Correctness (spec.md §8 invariants) is unaffected — only the
// "block without syscalls between wakeups" efficiency claim is linux-only,
// noted as a platform caveat rather than re-specified behavior.
const pollInterval = 500 * time.Microsecond

func futexWaitOn(addr *uint32, val uint32, timeout time.Duration) error {
	deadline := time.Time{}
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if atomic.LoadUint32(addr) != val {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return syscall.ETIMEDOUT
		}
		time.Sleep(pollInterval)
	}
}

func futexWakeOne(addr *uint32) {}

func futexWakeN(addr *uint32, n int) {}
