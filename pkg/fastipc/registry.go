package fastipc

import (
	"io"
	"os"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// deadlockTimeout bounds how long go-deadlock waits before reporting a
// suspected deadlock on the registry lock, once FASTIPC_DEBUG opts in.
const deadlockTimeout = 30 * time.Second

// registry dedupes concurrent opens of the same named primitive within a
// single process. The underlying GuardedSegment protocol already tolerates
// two independent opens of the same name in one process (each gets its own
// PID-file-backed handle and its own mapping), but that wastes a syscall
// round trip and, for Mutex/Semaphore in particular, two Go-level handles
// over the same word work fine but needlessly duplicate bookkeeping — so
// callers going through the package-level Acquire-style helpers share one
// handle per name, ref-counted.
//
// The lock guarding the registry uses go-deadlock instead of sync.Mutex
// when FASTIPC_DEBUG is set, the same opt-in deadlock-detection pattern the
// reference app applies to its own UI-state locks — useful here since a
// hang inside Open (e.g. a wedged backoff loop) while holding this lock
// would otherwise present as an unexplained stall.
type registry[T io.Closer] struct {
	mu      deadlock.Mutex
	entries map[string]*registryEntry[T]
}

type registryEntry[T io.Closer] struct {
	handle   T
	refCount int
}

func newRegistry[T io.Closer]() *registry[T] {
	if os.Getenv("FASTIPC_DEBUG") != "" {
		deadlock.Opts.DeadlockTimeout = deadlockTimeout
	} else {
		// With detection disabled, deadlock.Mutex behaves as a plain sync.Mutex.
		deadlock.Opts.Disable = true
	}
	return &registry[T]{entries: make(map[string]*registryEntry[T])}
}

// getOrOpen returns the shared handle for name, opening it via open() only
// if this is the first reference.
func (r *registry[T]) getOrOpen(name string, open func() (T, error)) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		e.refCount++
		return e.handle, nil
	}

	handle, err := open()
	if err != nil {
		var zero T
		return zero, err
	}
	r.entries[name] = &registryEntry[T]{handle: handle, refCount: 1}
	return handle, nil
}

// release drops a reference, closing the handle once it reaches zero.
func (r *registry[T]) release(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil
	}
	e.refCount--
	if e.refCount > 0 {
		return nil
	}
	delete(r.entries, name)
	return e.handle.Close()
}
