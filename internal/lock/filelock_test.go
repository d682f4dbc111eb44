package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesPID(t *testing.T) {
	t.Parallel()

	path := PathFor(filepath.Join(t.TempDir(), "journal.db"))
	l, err := Acquire(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Release() })

	pid, ok := Holder(path)
	require.True(t, ok)
	assert.Equal(t, os.Getpid(), pid)
	assert.Equal(t, path, l.Path())
}

func TestAcquireTwiceFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db.lock")
	first, err := Acquire(path)
	require.NoError(t, err)

	assert.True(t, Held(path))

	_, err = Acquire(path)
	require.ErrorIs(t, err, ErrHeld)
	assert.Contains(t, err.Error(), "pid")

	require.NoError(t, first.Release())
	assert.False(t, Held(path))

	second, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestReleaseIsSafeToRepeat(t *testing.T) {
	t.Parallel()

	l, err := Acquire(filepath.Join(t.TempDir(), "x.lock"))
	require.NoError(t, err)
	require.NoError(t, l.Release())
	require.NoError(t, l.Release())

	var nilLock *FileLock
	assert.NoError(t, nilLock.Release())
}

func TestHolderMissingFile(t *testing.T) {
	t.Parallel()

	_, ok := Holder(filepath.Join(t.TempDir(), "missing.lock"))
	assert.False(t, ok)
	assert.False(t, Held(filepath.Join(t.TempDir(), "missing.lock")))
	assert.Equal(t, "a.db.lock", PathFor("a.db"))
}

func TestAcquireEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Acquire("")
	assert.Error(t, err)
}
