package fastipc

import "github.com/BlindedShooter/fastipc-go/pkg/config"

// Package-level registries let independent call sites within one process
// share a single handle per name rather than each opening their own
// GuardedSegment, as described in registry.go.
var (
	sharedMutexes    = newRegistry[*NamedMutex]()
	sharedSemaphores = newRegistry[*NamedSemaphore]()
)

// AcquireSharedMutex returns the process's shared NamedMutex handle for
// name, opening it on first use. Pair every call with ReleaseSharedMutex.
func AcquireSharedMutex(name string, opts config.Options) (*NamedMutex, error) {
	return sharedMutexes.getOrOpen(name, func() (*NamedMutex, error) {
		return NewNamedMutex(name, opts)
	})
}

// ReleaseSharedMutex drops this process's reference to name's shared
// handle, closing the underlying segment once the last reference goes.
func ReleaseSharedMutex(name string) error {
	return sharedMutexes.release(name)
}

// AcquireSharedSemaphore returns the process's shared NamedSemaphore handle
// for name, opening (and initializing, if we create it) on first use.
func AcquireSharedSemaphore(name string, initial uint32, opts config.Options) (*NamedSemaphore, error) {
	return sharedSemaphores.getOrOpen(name, func() (*NamedSemaphore, error) {
		return NewNamedSemaphore(name, initial, opts)
	})
}

// ReleaseSharedSemaphore drops this process's reference to name's shared
// handle, closing the underlying segment once the last reference goes.
func ReleaseSharedSemaphore(name string) error {
	return sharedSemaphores.release(name)
}
