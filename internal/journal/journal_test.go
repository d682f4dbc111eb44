package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/obsq/internal/queue"
	"github.com/mattjoyce/obsq/internal/storage"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "journal.db")
	db, err := storage.OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	j := openJournal(t)
	ctx := context.Background()

	for _, p := range []string{"alpha", "beta", "gamma"} {
		_, err := j.Record(ctx, "lines", p)
		require.NoError(t, err)
	}
	_, err := j.Record(ctx, "other", "ignored")
	require.NoError(t, err)

	got, err := j.Recent(ctx, "lines", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "gamma", got[0].Payload)
	assert.Equal(t, "beta", got[1].Payload)
	assert.Equal(t, Digest("gamma"), got[0].Digest)
	assert.False(t, got[0].RecordedAt.IsZero())

	n, err := j.Count(ctx, "lines")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordRequiresQueue(t *testing.T) {
	t.Parallel()

	j := openJournal(t)
	_, err := j.Record(context.Background(), "", "x")
	assert.Error(t, err)
}

func TestDigestIsStable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Digest("same"), Digest("same"))
	assert.NotEqual(t, Digest("same"), Digest("different"))
	assert.Len(t, Digest(""), 64)
}

func TestConsumerRecordsQueueDeliveries(t *testing.T) {
	t.Parallel()

	j := openJournal(t)
	ctx := context.Background()

	q := queue.New[string](queue.ModeCooperative)
	defer q.Close()

	q.Add(j.Consumer(ctx, "lines"))
	q.Add(j.Consumer(ctx, "lines"))
	require.Equal(t, 1, q.Consumers(), "journal consumers share one shape")

	q.Push("one")
	q.Push("two")
	q.Drive()

	got, err := j.Recent(ctx, "lines", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Payload)
	assert.Equal(t, "one", got[1].Payload)
}

func TestConsumerDroppedWhenWriteFails(t *testing.T) {
	t.Parallel()

	j := openJournal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := queue.New[string](queue.ModeCooperative)
	defer q.Close()

	q.Add(j.Consumer(ctx, "lines"))
	q.Push("lost")
	q.Drive()

	assert.Equal(t, 0, q.Consumers())
	assert.Equal(t, uint64(1), q.Stats().Failures)
}
