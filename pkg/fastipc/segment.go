package fastipc

import (
	"errors"
	"io"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/BlindedShooter/fastipc-go/pkg/applog"
	"github.com/BlindedShooter/fastipc-go/pkg/config"
	"github.com/BlindedShooter/fastipc-go/pkg/utils"
)

// closerFunc adapts a plain func() error to io.Closer so Close's teardown
// steps can be aggregated through utils.CloseMany.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Segment is a named, fixed-size region of shared memory plus its
// participant set, per spec.md §3 "Segment". Construct one with Open.
type Segment struct {
	name        string
	size        int
	buf         []byte
	createdByUs bool

	pidDir string
	pid    int
	opts   config.Options
	log    *logrus.Entry

	mu     sync.Mutex
	closed bool
}

// Open implements spec.md §4.1's attach-or-create loop: ensure the PID
// directory exists, then alternate attach/create attempts (bounded by
// opts.MaxAttempts) with randomized backoff between them, finally
// registering this process's PID file.
func Open(name string, size int, opts config.Options) (*Segment, error) {
	pidDir := opts.PIDRoot + "/" + name + ".pids"
	if err := os.MkdirAll(pidDir, 0o755); err != nil && !os.IsExist(err) {
		return nil, wrap(err)
	}

	path := shmPath(opts.PIDRoot, name)
	log := applog.New(opts.Debug, opts.PIDRoot, name)

	var result attachResult
	var lastErr error
	attempted := false
	for i := 0; i < opts.MaxAttempts; i++ {
		r, err := tryAttachOrCreate(path, size)
		if err == nil {
			result = r
			attempted = true
			break
		}
		if err == errSegmentRace {
			lastErr = err
			time.Sleep(backoffDuration(opts.BackoffBase))
			continue
		}
		return nil, err
	}
	if !attempted {
		if lastErr == nil {
			lastErr = ErrAttachTimeout
		}
		return nil, wrapf(ErrAttachTimeout, "open %q after %d attempts", name, opts.MaxAttempts)
	}

	if result.size < size {
		unmapSegment(result.buf)
		return nil, wrapf(ErrSizeMismatch, "segment %q: existing size %d < requested %d", name, result.size, size)
	}

	pid := os.Getpid()
	pidFile := pidDir + "/" + strconv.Itoa(pid)
	f, err := os.OpenFile(pidFile, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		unmapSegment(result.buf)
		return nil, wrap(err)
	}
	f.Close()

	seg := &Segment{
		name:        name,
		size:        result.size,
		buf:         result.buf,
		createdByUs: result.createdByUs,
		pidDir:      pidDir,
		pid:         pid,
		opts:        opts,
		log:         log,
	}
	log.WithField("createdByUs", result.createdByUs).Debug("segment opened")
	return seg, nil
}

// backoffDuration implements the "backoff_base * (1 + U[0,1))" jitter from
// spec.md §4.1, to avoid convoying retriers.
func backoffDuration(base float64) time.Duration {
	return time.Duration(base * (1 + rand.Float64()) * float64(time.Second))
}

// Size returns the segment's byte size, stable for this handle's lifetime.
func (s *Segment) Size() int { return s.size }

// Buffer returns the mutable mapped region backing this segment.
func (s *Segment) Buffer() []byte { return s.buf }

// CreatedByUs reports whether this participant won the create race.
func (s *Segment) CreatedByUs() bool { return s.createdByUs }

// ParticipantCount returns the number of PID-directory entries that parse
// as decimal PIDs. Advisory: it may include stale entries for processes
// that crashed without reaping.
func (s *Segment) ParticipantCount() int {
	entries, err := os.ReadDir(s.pidDir)
	if err != nil {
		return 0
	}
	pids := lo.FilterMap(entries, func(e os.DirEntry, _ int) (int, bool) {
		pid, err := strconv.Atoi(e.Name())
		return pid, err == nil
	})
	return len(pids)
}

// Close runs the cooperative teardown protocol from spec.md §4.1: reap
// dead peers, deregister self, survey survivors, and unlink the segment
// only if no live participant remains. It is idempotent and absorbs
// "not found" at every filesystem step.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.reapDeadPeers()
	s.deregisterSelf()

	if s.hasLivePeer() {
		s.log.Debug("close: live peers remain, leaving segment mapped")
		return unmapSegment(s.buf)
	}

	s.log.Debug("close: last participant, unlinking segment")
	closers := []io.Closer{
		closerFunc(func() error {
			return unlinkSegment(shmPath(s.opts.PIDRoot, s.name))
		}),
		closerFunc(func() error {
			// Non-recursive; tolerate "not empty" from a racing joiner per
			// spec.md §4.1 step 4 — cheap to leave behind, will be reused.
			err := os.Remove(s.pidDir)
			if err == nil || os.IsNotExist(err) ||
				errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) {
				return nil
			}
			return err
		}),
		closerFunc(func() error { return unmapSegment(s.buf) }),
	}
	if err := utils.CloseMany(closers); err != nil {
		s.log.WithError(err).Warn("close: teardown step failed")
		return err
	}
	return nil
}

func (s *Segment) reapDeadPeers() {
	entries, err := os.ReadDir(s.pidDir)
	if err != nil {
		return
	}
	deadPids := lo.FilterMap(entries, func(e os.DirEntry, _ int) (int, bool) {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			return 0, false
		}
		return pid, !pidAlive(pid)
	})
	for _, pid := range deadPids {
		path := s.pidDir + "/" + strconv.Itoa(pid)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.WithError(err).WithField("pid", pid).Warn("close: failed to reap dead peer")
		}
	}
}

func (s *Segment) deregisterSelf() {
	path := s.pidDir + "/" + strconv.Itoa(s.pid)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.WithError(err).Warn("close: failed to deregister self")
	}
}

func (s *Segment) hasLivePeer() bool {
	entries, err := os.ReadDir(s.pidDir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if pidAlive(pid) {
			return true
		}
	}
	return false
}
