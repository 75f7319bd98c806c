package fastipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlindedShooter/fastipc-go/pkg/config"
)

func testOpts(t *testing.T) config.Options {
	t.Helper()
	o := config.Default()
	o.PIDRoot = t.TempDir()
	o.MaxAttempts = 32
	return o
}

func TestSegmentCreateThenAttach(t *testing.T) {
	opts := testOpts(t)

	a, err := Open("shared", 64, opts)
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.CreatedByUs())
	assert.Equal(t, 64, a.Size())

	b, err := Open("shared", 64, opts)
	require.NoError(t, err)
	defer b.Close()
	assert.False(t, b.CreatedByUs())
	assert.Equal(t, a.Size(), b.Size())

	a.Buffer()[0] = 0x42
	assert.Equal(t, byte(0x42), b.Buffer()[0], "both handles must map the same physical pages")
}

func TestSegmentSizeMismatch(t *testing.T) {
	opts := testOpts(t)

	a, err := Open("small", 64, opts)
	require.NoError(t, err)
	defer a.Close()

	_, err = Open("small", 128, opts)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestSegmentParticipantCount(t *testing.T) {
	opts := testOpts(t)

	a, err := Open("counted", 4, opts)
	require.NoError(t, err)
	defer a.Close()

	// A single process opening the same name twice still has only one PID
	// file, since PID files are keyed by process id, not by handle.
	assert.Equal(t, 1, a.ParticipantCount())

	b, err := Open("counted", 4, opts)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, 1, b.ParticipantCount(), "same PID re-registers the same file")
}

func TestSegmentCloseIsIdempotent(t *testing.T) {
	opts := testOpts(t)
	seg, err := Open("idempotent", 4, opts)
	require.NoError(t, err)

	require.NoError(t, seg.Close())
	require.NoError(t, seg.Close())
	require.NoError(t, seg.Close())
}

func TestSegmentLastCloserUnlinksAndEmptiesDir(t *testing.T) {
	opts := testOpts(t)

	seg, err := Open("lastout", 4, opts)
	require.NoError(t, err)

	require.NoError(t, seg.Close())
	assert.Equal(t, 0, seg.ParticipantCount(), "last closer must leave the PID directory empty or absent")

	// A fresh Open of the same name must create anew rather than attach
	// to anything left behind.
	seg2, err := Open("lastout", 4, opts)
	require.NoError(t, err)
	defer seg2.Close()
	assert.True(t, seg2.CreatedByUs())
}

func TestSegmentParticipantCountAdvisoryOnMissingDir(t *testing.T) {
	opts := testOpts(t)
	seg, err := Open("vanish", 4, opts)
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	assert.Equal(t, 0, seg.ParticipantCount())
}
