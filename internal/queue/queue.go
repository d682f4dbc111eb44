package queue

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Option configures a Queue.
type Option func(*options)

type options struct {
	name      string
	logger    *slog.Logger
	onFailure func(*ConsumerError)
}

// WithName labels the queue in log output.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFailureHandler is called on the dispatching goroutine after a failing
// consumer has been removed.
func WithFailureHandler(fn func(*ConsumerError)) Option {
	return func(o *options) { o.onFailure = fn }
}

// Queue is an in-process FIFO that delivers every item to every registered
// consumer, in registration order, before discarding it.
type Queue[T any] struct {
	mode      Mode
	store     storage[T]
	reg       registry[T]
	logger    *slog.Logger
	onFailure func(*ConsumerError)

	state    atomic.Int32
	stopCh   chan struct{}
	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	driving  atomic.Bool

	pushed     atomic.Uint64
	dispatched atomic.Uint64
	failures   atomic.Uint64
}

// New creates an empty queue. In ModeThreaded the worker goroutine is started
// before New returns; call Close to stop it.
func New[T any](mode Mode, opts ...Option) *Queue[T] {
	o := options{
		name:   "default",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	q := &Queue[T]{
		mode:      mode,
		logger:    o.logger.With("component", "queue", "queue", o.name, "mode", mode.String()),
		onFailure: o.onFailure,
		stopCh:    make(chan struct{}),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	if mode == ModeThreaded {
		go q.run()
	} else {
		close(q.done)
	}
	q.logger.Debug("queue started")
	return q
}

// run is the threaded-mode worker loop.
func (q *Queue[T]) run() {
	defer close(q.done)
	for {
		select {
		case <-q.stopCh:
			return
		case <-q.wake:
		}
		q.dispatchPass()
	}
}

func (q *Queue[T]) stopping() bool {
	return State(q.state.Load()) != StateRunning
}

func (q *Queue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Push appends item to the tail and, in threaded mode, wakes the worker. The
// returned ticket can be passed to Update while the item is still pending.
func (q *Queue[T]) Push(item T) Ticket {
	t := q.store.push(item)
	q.pushed.Add(1)
	if q.stopping() {
		q.logger.Debug("item pushed after shutdown, it will not be dispatched", "ticket", uint64(t))
		return t
	}
	if q.mode == ModeThreaded {
		q.signal()
	}
	return t
}

// Update runs fn on the pending item identified by t under the storage lock.
// It returns false if the item is gone or is being dispatched right now.
func (q *Queue[T]) Update(t Ticket, fn func(item *T)) bool {
	return q.store.update(t, fn)
}

// TryPopFront removes the next pending item without dispatching it. If out is
// non-nil the item is copied into it. An item currently being dispatched is
// skipped. It returns false when nothing is pending.
func (q *Queue[T]) TryPopFront(out *T) bool {
	return q.store.tryPopFront(out)
}

// Size returns the number of items in storage, including one that is being
// dispatched.
func (q *Queue[T]) Size() int {
	return q.store.size()
}

// Add registers c. If a consumer with the same shape is already registered the
// call is a no-op and the existing entry's handle is returned. A nil consumer
// yields the zero handle.
func (q *Queue[T]) Add(c Consumer[T]) Handle {
	if c == nil {
		return Handle{}
	}
	if f, ok := c.(ConsumerFunc[T]); ok && f == nil {
		return Handle{}
	}
	h, added := q.reg.add(c)
	if added {
		q.logger.Debug("consumer added", "shape", string(ShapeOf(c)), "handle", h.String())
	}
	return h
}

// AddFunc registers fn as a ConsumerFunc.
func (q *Queue[T]) AddFunc(fn func(item *T) error) Handle {
	if fn == nil {
		return Handle{}
	}
	return q.Add(ConsumerFunc[T](fn))
}

// Remove unregisters every consumer sharing c's shape, whichever instance
// registered it. It returns the number of entries removed.
func (q *Queue[T]) Remove(c Consumer[T]) int {
	if c == nil {
		return 0
	}
	return q.RemoveShape(ShapeOf(c))
}

// RemoveFunc is the ConsumerFunc counterpart of Remove.
func (q *Queue[T]) RemoveFunc(fn func(item *T) error) int {
	if fn == nil {
		return 0
	}
	return q.Remove(ConsumerFunc[T](fn))
}

// RemoveShape unregisters every consumer with the given shape.
func (q *Queue[T]) RemoveShape(s Shape) int {
	n := q.reg.removeShape(s)
	if n > 0 {
		q.logger.Debug("consumer removed", "shape", string(s))
	}
	return n
}

// RemoveHandle unregisters exactly the entry identified by h.
func (q *Queue[T]) RemoveHandle(h Handle) bool {
	return q.reg.removeHandle(h)
}

// Consumers returns the number of registered consumers.
func (q *Queue[T]) Consumers() int {
	return q.reg.size()
}

// Drive runs one dispatch pass on the calling goroutine and returns the number
// of items dispatched. It only does work in ModeCooperative; in threaded mode,
// after shutdown, or when called from inside a consumer during a pass it
// returns 0 immediately.
func (q *Queue[T]) Drive() int {
	if q.mode != ModeCooperative || q.stopping() {
		return 0
	}
	if !q.driving.CompareAndSwap(false, true) {
		return 0
	}
	defer q.driving.Store(false)
	return q.dispatchPass()
}

// Close requests shutdown. Pending items are abandoned. In threaded mode it
// blocks until the worker has left its current pass; a consumer invocation in
// progress is allowed to finish. Close must not be called from a consumer of a
// threaded queue. Calling it again is a no-op.
func (q *Queue[T]) Close() error {
	q.stopOnce.Do(func() {
		q.state.Store(int32(StateShuttingDown))
		close(q.stopCh)
		<-q.done
		q.state.Store(int32(StateStopped))
		q.logger.Debug("queue stopped", "abandoned", q.store.size())
	})
	return nil
}

// Mode returns the mode chosen at construction.
func (q *Queue[T]) Mode() Mode { return q.mode }

// State returns the current lifecycle state.
func (q *Queue[T]) State() State { return State(q.state.Load()) }

// Stats returns a snapshot of the queue counters.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Mode:       q.mode,
		State:      q.State(),
		Pending:    q.Size(),
		Consumers:  q.Consumers(),
		Pushed:     q.pushed.Load(),
		Dispatched: q.dispatched.Load(),
		Failures:   q.failures.Load(),
	}
}
