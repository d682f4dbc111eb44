package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/obsq/internal/config"
	"github.com/mattjoyce/obsq/internal/events"
	"github.com/mattjoyce/obsq/internal/journal"
	"github.com/mattjoyce/obsq/internal/lock"
	"github.com/mattjoyce/obsq/internal/queue"
	"github.com/mattjoyce/obsq/internal/storage"
)

// defaultDriveInterval paces cooperative dispatch when items can arrive from
// somewhere other than the owning goroutine.
const defaultDriveInterval = 100 * time.Millisecond

// pipeline is the line queue plus everything hung off it: the activity feed
// and, when enabled, the locked journal database.
type pipeline struct {
	name   string
	queue  *queue.Queue[string]
	hub    *events.Hub
	db     *sql.DB
	lock   *lock.FileLock
	logger *slog.Logger

	driveStop chan struct{}
	driveDone chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func openPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	mode, err := queue.ParseMode(cfg.Queue.Mode)
	if err != nil {
		return nil, err
	}

	hub := events.NewHub(cfg.API.FeedSize)
	q := queue.New[string](mode,
		queue.WithName(cfg.Queue.Name),
		queue.WithLogger(logger),
		queue.WithFailureHandler(func(e *queue.ConsumerError) {
			hub.Publish(events.TypeConsumerFailed, map[string]any{
				"handle": e.Handle.String(),
				"shape":  string(e.Shape),
				"error":  e.Err.Error(),
				"panic":  e.Panic != nil,
			})
		}),
	)

	p := &pipeline{
		name:   cfg.Queue.Name,
		queue:  q,
		hub:    hub,
		logger: logger,
	}

	if cfg.Journal.Enabled {
		l, err := lock.Acquire(lock.PathFor(cfg.Journal.Path))
		if err != nil {
			_ = q.Close()
			return nil, fmt.Errorf("lock journal: %w", err)
		}
		db, err := storage.OpenSQLite(ctx, cfg.Journal.Path)
		if err != nil {
			_ = l.Release()
			_ = q.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		p.db = db
		p.lock = l
		q.Add(journal.New(db).Consumer(ctx, cfg.Queue.Name))
		logger.Info("journal enabled", "path", cfg.Journal.Path)
	}

	return p, nil
}

// push enqueues line and records it on the activity feed.
func (p *pipeline) push(line, source string) queue.Ticket {
	t := p.queue.Push(line)
	p.hub.Publish(events.TypeItemPushed, map[string]any{
		"ticket": uint64(t),
		"bytes":  len(line),
		"source": source,
	})
	return t
}

// startDriving drives a cooperative queue every interval on its own
// goroutine until Close. It does nothing in threaded mode or when already
// started.
func (p *pipeline) startDriving(interval time.Duration) {
	if p.queue.Mode() != queue.ModeCooperative || p.driveStop != nil {
		return
	}
	p.driveStop = make(chan struct{})
	p.driveDone = make(chan struct{})
	go func() {
		defer close(p.driveDone)
		driveEvery(p.driveStop, p.queue, interval)
	}()
}

// driveEvery drives q on a ticker until stop is closed.
func driveEvery(stop <-chan struct{}, q *queue.Queue[string], interval time.Duration) {
	if interval <= 0 {
		interval = defaultDriveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			q.Drive()
		}
	}
}

// Close stops the queue and joins the drive goroutine before the journal is
// closed, so no consumer writes to the database after it is gone. Later
// calls return the first result.
func (p *pipeline) Close() error {
	p.closeOnce.Do(func() {
		if p.driveStop != nil {
			close(p.driveStop)
		}
		err := p.queue.Close()
		if p.driveDone != nil {
			<-p.driveDone
		}
		if p.db != nil {
			if cerr := p.db.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close journal: %w", cerr))
			}
		}
		if p.lock != nil {
			if lerr := p.lock.Release(); lerr != nil {
				err = errors.Join(err, fmt.Errorf("release journal lock: %w", lerr))
			}
		}
		p.closeErr = err
	})
	return p.closeErr
}
