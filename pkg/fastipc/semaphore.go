package fastipc

import (
	"math"
	"time"
)

// Semaphore interprets a Segment's state word as a non-negative permit
// count (spec.md §4.3).
type Semaphore struct {
	w word32
}

// NewSemaphore builds a Semaphore over buf's first 4 bytes. As with Mutex,
// the word's initial value is the creator's responsibility (spec.md §4.4).
func NewSemaphore(buf []byte) *Semaphore {
	return &Semaphore{w: newWord32(buf)}
}

// Post adds n permits, release-ordered, and wakes up to n waiters if the
// word was at zero before the add. Fails with ErrOverflow rather than
// wrapping past math.MaxInt32.
func (s *Semaphore) Post(n uint32) error {
	if n == 0 {
		return nil
	}
	for {
		cur := s.w.load()
		if uint64(cur)+uint64(n) > math.MaxInt32 {
			return wrap(ErrOverflow)
		}
		if s.w.cas(cur, cur+n) {
			if cur == 0 {
				futexWakeN(s.w.addr(), int(n))
			}
			return nil
		}
	}
}

// Post1 is shorthand for Post(1) and takes the same path, including the
// overflow check.
func (s *Semaphore) Post1() error {
	return s.Post(1)
}

// Value returns a relaxed, advisory snapshot of the permit count.
func (s *Semaphore) Value() uint32 {
	return s.w.load()
}

// Wait attempts to consume one permit. It first spins up to spin
// iterations trying to take one; if that fails and blocking is false, it
// returns false without parking. Otherwise it parks in the kernel for up
// to timeout (negative means forever, zero means poll-only after the spin
// phase).
//
// The remaining timeout budget is tracked from a monotonic clock captured
// at the first park, per spec.md §4.3 — a woken-but-still-zero waiter
// re-parks with what's left of its original budget, not the full timeout
// again.
func (s *Semaphore) Wait(blocking bool, timeout time.Duration, spin int) bool {
	for i := 0; i < spin; i++ {
		if s.tryDecrement() {
			return true
		}
	}
	if s.tryDecrement() {
		return true
	}
	if !blocking {
		return false
	}

	var deadline time.Time
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		remaining := timeout
		if hasDeadline {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return false
			}
		}

		if err := futexWaitOn(s.w.addr(), 0, remaining); err != nil {
			// Real ETIMEDOUT from the kernel: fall through to the
			// deadline re-check above, which will catch it too, but
			// return false promptly rather than looping once more.
			if hasDeadline && time.Now().After(deadline) {
				return false
			}
		}
		if s.tryDecrement() {
			return true
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return false
		}
	}
}

func (s *Semaphore) tryDecrement() bool {
	for {
		cur := s.w.load()
		if cur == 0 {
			return false
		}
		if s.w.cas(cur, cur-1) {
			return true
		}
	}
}
