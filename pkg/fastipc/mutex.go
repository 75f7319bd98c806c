package fastipc

// Mutex word states, per spec.md §4.2.
const (
	mutexFree            uint32 = 0
	mutexLockedNoWaiters uint32 = 1
	mutexLockedWaiters   uint32 = 2
)

// Mutex interprets a Segment's state word as a non-reentrant,
// non-ownership-tracked lock shared across processes (spec.md §4.2).
// Any participant may call Release, not only the one that called Acquire
// — it's a coordination token, not an owning lock.
type Mutex struct {
	w word32
}

// NewMutex builds a Mutex over buf's first 4 bytes. It does not initialize
// the word; callers that created the backing segment are responsible for
// that (spec.md §4.4, §9 Open Questions).
func NewMutex(buf []byte) *Mutex {
	return &Mutex{w: newWord32(buf)}
}

// TryAcquire attempts the FREE -> LOCKED_NOWAITERS transition without
// blocking. Returns true on success.
func (m *Mutex) TryAcquire() bool {
	return m.w.cas(mutexFree, mutexLockedNoWaiters)
}

// Acquire blocks until the mutex is held by this caller. It always
// eventually returns true under the default interrupt policy (spec.md §5,
// Cancellation): a signal-interrupted kernel wait is retried transparently.
func (m *Mutex) Acquire() bool {
	if m.TryAcquire() {
		return true
	}
	for {
		v := m.w.load()
		if v == mutexFree {
			if m.TryAcquire() {
				return true
			}
			continue
		}

		if v == mutexLockedNoWaiters {
			// Announce contention; fine if a racing release drops it to
			// FREE first — we just loop and try the fast path again.
			m.w.cas(mutexLockedNoWaiters, mutexLockedWaiters)
			continue
		}

		// v == mutexLockedWaiters: park until woken or the word changes.
		// Spurious wakeups are permitted by the futex contract; the loop
		// re-validates unconditionally.
		_ = futexWaitOn(m.w.addr(), mutexLockedWaiters, -1)

		// On wake, we must publish WAITERS again: other waiters may still
		// be parked and we cannot prove we're the only one left.
		if m.w.cas(mutexFree, mutexLockedWaiters) {
			return true
		}
	}
}

// Release hands the mutex back, waking one waiter if any was recorded.
// Any participant may call Release; there is no ownership check in
// release builds (spec.md §4.2's NotOwned is a debug-only assertion this
// module does not implement as a runtime check, since the mutex is
// explicitly non-owned).
func (m *Mutex) Release() {
	prev := m.w.swap(mutexFree)
	if prev == mutexLockedWaiters {
		futexWakeOne(m.w.addr())
	}
}
