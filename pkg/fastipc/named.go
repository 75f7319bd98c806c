package fastipc

import (
	"encoding/binary"
	"time"

	"github.com/BlindedShooter/fastipc-go/pkg/config"
)

// namedPrefix is the segment-name prefix every named primitive derives its
// backing segment name from (spec.md §4.4).
const namedPrefix = "__pyfastipc_"

// NamedMutex binds a name to a 4-byte GuardedSegment and a Mutex over it.
type NamedMutex struct {
	seg   *Segment
	mutex *Mutex
}

// NewNamedMutex opens (creating if necessary) the segment for name and
// wraps it in a Mutex. If this call created the segment, the state word is
// explicitly zeroed before use, belt-and-suspenders alongside the
// fresh-shared-memory-is-zeroed assumption documented in spec.md §9.
func NewNamedMutex(name string, opts config.Options) (*NamedMutex, error) {
	seg, err := Open(namedPrefix+name, 4, opts)
	if err != nil {
		return nil, err
	}
	if seg.CreatedByUs() {
		binary.LittleEndian.PutUint32(seg.Buffer()[:4], mutexFree)
	}
	return &NamedMutex{seg: seg, mutex: NewMutex(seg.Buffer())}, nil
}

func (n *NamedMutex) TryAcquire() bool { return n.mutex.TryAcquire() }
func (n *NamedMutex) Acquire() bool    { return n.mutex.Acquire() }
func (n *NamedMutex) Release()         { n.mutex.Release() }

// WithLock acquires the mutex, runs fn, and always releases, the Go
// equivalent of the Python NamedMutex's __enter__/__exit__ pair.
func (n *NamedMutex) WithLock(fn func() error) error {
	n.Acquire()
	defer n.Release()
	return fn()
}

// ParticipantCount is advisory; see Segment.ParticipantCount.
func (n *NamedMutex) ParticipantCount() int { return n.seg.ParticipantCount() }

// Close tears down the backing segment via the cooperative close protocol.
func (n *NamedMutex) Close() error { return n.seg.Close() }

// NamedSemaphore binds a name to a 4-byte GuardedSegment and a Semaphore
// over it.
type NamedSemaphore struct {
	seg *Segment
	sem *Semaphore
	// defaultSpin is used by Wait when the caller doesn't override spin
	// count per call.
	defaultSpin int
}

// NewNamedSemaphore opens (creating if necessary) the segment for name and
// wraps it in a Semaphore. initial is only applied if this call created
// the backing segment — a non-creating attacher leaves whatever value the
// creator (or a prior run) established (spec.md §4.4).
func NewNamedSemaphore(name string, initial uint32, opts config.Options) (*NamedSemaphore, error) {
	seg, err := Open(namedPrefix+name, 4, opts)
	if err != nil {
		return nil, err
	}
	if seg.CreatedByUs() {
		binary.LittleEndian.PutUint32(seg.Buffer()[:4], initial)
	}
	return &NamedSemaphore{seg: seg, sem: NewSemaphore(seg.Buffer()), defaultSpin: opts.Spin}, nil
}

func (n *NamedSemaphore) Post(v uint32) error { return n.sem.Post(v) }
func (n *NamedSemaphore) Post1() error        { return n.sem.Post1() }
func (n *NamedSemaphore) Value() uint32       { return n.sem.Value() }

// Wait consumes one permit, spinning then parking per spec.md §4.3, using
// the configured default spin count.
func (n *NamedSemaphore) Wait(blocking bool, timeout time.Duration) bool {
	return n.sem.Wait(blocking, timeout, n.defaultSpin)
}

// WaitSpin is Wait with an explicit spin override, for callers tuning
// latency against CPU burn on a per-call basis.
func (n *NamedSemaphore) WaitSpin(blocking bool, timeout time.Duration, spin int) bool {
	return n.sem.Wait(blocking, timeout, spin)
}

// WithPermit waits for a permit, runs fn, and always posts it back.
func (n *NamedSemaphore) WithPermit(fn func() error) error {
	n.Wait(true, -1)
	defer n.Post1()
	return fn()
}

// ParticipantCount is advisory; see Segment.ParticipantCount.
func (n *NamedSemaphore) ParticipantCount() int { return n.seg.ParticipantCount() }

// Close tears down the backing segment via the cooperative close protocol.
func (n *NamedSemaphore) Close() error { return n.seg.Close() }
