package cli

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/obsq/internal/events"
	"github.com/mattjoyce/obsq/internal/queue"
)

func TestDriveEveryDrainsCooperativeQueue(t *testing.T) {
	t.Parallel()

	q := queue.New[string](queue.ModeCooperative)
	defer q.Close()

	var seen atomic.Int32
	q.AddFunc(func(*string) error {
		seen.Add(1)
		return nil
	})
	q.Push("a")
	q.Push("b")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		driveEvery(stop, q, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return seen.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	close(stop)
	<-done
}

func TestPipelineCloseJoinsDriver(t *testing.T) {
	t.Parallel()

	cfg := testConfig("cooperative")
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	p := newTestPipeline(t, cfg)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	p.queue.AddFunc(func(*string) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})

	p.startDriving(time.Millisecond)
	p.push("slow", "test")
	<-started

	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a driven consumer was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-closed)
	assert.True(t, finished.Load())
	assert.NoError(t, p.Close(), "second Close is a no-op")

	for _, ev := range p.hub.SnapshotSince(0) {
		assert.NotEqual(t, events.TypeConsumerFailed, ev.Type, string(ev.Data))
	}
}

func TestStartDrivingIgnoresThreadedQueue(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, testConfig("threaded"))
	p.startDriving(time.Millisecond)
	assert.Nil(t, p.driveStop)
	require.NoError(t, p.Close())
}
