// Package journal records the items a queue delivered into SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/mattjoyce/obsq/internal/queue"
)

// Entry is one recorded item.
type Entry struct {
	Seq        int64
	ID         string
	Queue      string
	Payload    string
	Digest     string
	RecordedAt time.Time
}

// Journal appends delivered items to the journal table.
type Journal struct {
	db *sql.DB
}

func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Digest returns the hex BLAKE3 digest stored next to each payload.
func Digest(payload string) string {
	sum := blake3.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Record inserts payload for queueName and returns the new entry id.
func (j *Journal) Record(ctx context.Context, queueName, payload string) (string, error) {
	if queueName == "" {
		return "", fmt.Errorf("queue name is empty")
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := j.db.ExecContext(ctx, `
INSERT INTO journal(id, queue, payload, digest, recorded_at)
VALUES(?, ?, ?, ?, ?);
`, id, queueName, payload, Digest(payload), now)
	if err != nil {
		return "", fmt.Errorf("record journal entry: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries for queueName, newest first.
func (j *Journal) Recent(ctx context.Context, queueName string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT seq, id, queue, payload, digest, recorded_at
FROM journal
WHERE queue = ?
ORDER BY seq DESC
LIMIT ?;
`, queueName, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e           Entry
			recordedAtS string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.Queue, &e.Payload, &e.Digest, &recordedAtS); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, recordedAtS); err == nil {
			e.RecordedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return out, nil
}

// Count returns the number of entries recorded for queueName.
func (j *Journal) Count(ctx context.Context, queueName string) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal WHERE queue = ?;`, queueName).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}

// Consumer returns a queue consumer that records every item it sees. A
// failed write is returned to the queue, which drops the consumer.
func (j *Journal) Consumer(ctx context.Context, queueName string) queue.StringConsumer {
	return &recorder{j: j, ctx: ctx, queue: queueName}
}

type recorder struct {
	j     *Journal
	ctx   context.Context
	queue string
}

func (r *recorder) Consume(item *string) error {
	_, err := r.j.Record(r.ctx, r.queue, *item)
	return err
}
