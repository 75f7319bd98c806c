package fastipc

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestSemaphore(t *testing.T, initial uint32) *Semaphore {
	t.Helper()
	buf := make([]byte, 4)
	s := NewSemaphore(buf)
	require.NoError(t, s.Post(initial))
	return s
}

func TestSemaphoreNonBlockingWaitOnZero(t *testing.T) {
	s := newTestSemaphore(t, 0)
	ok := s.Wait(false, 0, 4)
	assert.False(t, ok)
}

func TestSemaphoreTimeoutAfterSpinExhaustion(t *testing.T) {
	s := newTestSemaphore(t, 0)
	start := time.Now()
	ok := s.Wait(true, 0, 4)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestSemaphorePostKTimesWaitKTimes(t *testing.T) {
	s := newTestSemaphore(t, 0)
	const k = 5
	require.NoError(t, s.Post(k))

	for i := 0; i < k; i++ {
		require.True(t, s.Wait(false, 0, 4), "wait #%d should succeed", i)
	}
	assert.False(t, s.Wait(false, 0, 4), "k+1th wait must fail")
}

func TestSemaphoreRendezvous(t *testing.T) {
	s := newTestSemaphore(t, 0)
	done := make(chan bool, 1)
	go func() {
		done <- s.Wait(true, -1, 0)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Post1())

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke after post")
	}
	assert.Equal(t, uint32(0), s.Value())
}

func TestSemaphoreBurstWakesAtMostN(t *testing.T) {
	s := newTestSemaphore(t, 0)
	const waiters = 5
	const posted = 3

	var woke int32
	done := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			if s.Wait(true, 500*time.Millisecond, 0) {
				atomic.AddInt32(&woke, 1)
			}
			done <- struct{}{}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Post(posted))

	for i := 0; i < waiters; i++ {
		<-done
	}
	assert.Equal(t, int32(posted), atomic.LoadInt32(&woke))
	assert.Equal(t, uint32(0), s.Value())
}

func TestSemaphoreOverflow(t *testing.T) {
	buf := make([]byte, 4)
	s := NewSemaphore(buf)
	require.NoError(t, s.Post(1<<31-2))
	err := s.Post(10)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestSemaphoreConcurrentPostWaitConserveCount(t *testing.T) {
	s := newTestSemaphore(t, 0)
	const n = 2000

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < n; i++ {
			if err := s.Post1(); err != nil {
				return err
			}
		}
		return nil
	})

	completed := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			s.Wait(true, -1, 16)
		}
		close(completed)
	}()

	require.NoError(t, g.Wait())
	select {
	case <-completed:
	case <-time.After(5 * time.Second):
		t.Fatal("waits did not drain all posts")
	}
	assert.Equal(t, uint32(0), s.Value())
}
