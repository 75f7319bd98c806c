package fastipc

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Sentinel errors forming the taxonomy from the design's error handling
// section. Callers should compare with errors.Is, since every returned
// error is wrapped with a stack trace via wrap().
var (
	// ErrAttachTimeout is returned when Open exhausts its attach/create
	// attempts without reaching a stable segment.
	ErrAttachTimeout = errors.New("fastipc: attach/create timed out")

	// ErrSizeMismatch is returned when an existing segment is smaller than
	// the requested size.
	ErrSizeMismatch = errors.New("fastipc: existing segment smaller than requested")

	// ErrOverflow is returned when a semaphore Post would push the word
	// past the representable range.
	ErrOverflow = errors.New("fastipc: semaphore post would overflow")

	// ErrInterrupted is reserved for a future opt-in policy under which a
	// blocking call returns instead of transparently retrying on signal
	// interruption. No code path produces it yet.
	ErrInterrupted = errors.New("fastipc: blocking call interrupted")

	// ErrNotOwned names a release without a matching acquire. The mutex is
	// not ownership-tracked, so no code path returns it.
	ErrNotOwned = errors.New("fastipc: release without matching acquire")
)

// wrap attaches a stack trace to err for easier postmortem diagnosis,
// matching the way the reference app wraps its top-level error in main.go.
// A nil err passes through unchanged.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, 1)
}

// wrapf wraps err with additional context, preserving errors.Is matching
// against the sentinel passed as cause.
func wrapf(cause error, format string, args ...interface{}) error {
	return wrap(fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), cause))
}
