package queue

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// dispatchPass drains storage: every item is shown to a fresh registry
// snapshot and then removed. It returns the number of items removed. The
// shutdown flag is checked before each item and before each invocation.
func (q *Queue[T]) dispatchPass() int {
	dispatched := 0
	for !q.stopping() {
		n, ok := q.store.peek()
		if !ok {
			break
		}

		entries := q.reg.snapshot()
		delivered := 0
		for _, e := range entries {
			if q.stopping() {
				q.logger.Debug("dispatch interrupted by shutdown",
					"ticket", uint64(n.ticket),
					"delivered", delivered,
					"skipped", len(entries)-delivered,
				)
				break
			}
			q.invoke(e, &n.value)
			delivered++
		}

		q.store.finish(n)
		q.dispatched.Add(1)
		dispatched++
	}
	return dispatched
}

// invoke runs one consumer. A returned error or a panic drops the entry from
// the live registry; nothing propagates to the caller.
func (q *Queue[T]) invoke(e *entry[T], item *T) {
	err := q.call(e, item)
	if err == nil {
		return
	}

	q.reg.removeHandle(e.handle)
	q.failures.Add(1)

	cerr := &ConsumerError{Handle: e.handle, Shape: e.shape, Err: err}
	if pe, ok := err.(*panicError); ok {
		cerr.Err = fmt.Errorf("%w: %v", ErrConsumerPanic, pe.value)
		cerr.Panic = pe.value
		q.logger.Warn("consumer panicked, removed",
			slog.String("shape", string(e.shape)),
			slog.String("handle", e.handle.String()),
			slog.Any("panic", pe.value),
			slog.String("stack", pe.stack),
		)
	} else {
		q.logger.Warn("consumer failed, removed",
			slog.String("shape", string(e.shape)),
			slog.String("handle", e.handle.String()),
			slog.Any("error", err),
		)
	}

	if q.onFailure != nil {
		q.onFailure(cerr)
	}
}

type panicError struct {
	value any
	stack string
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func (q *Queue[T]) call(e *entry[T], item *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: string(debug.Stack())}
		}
	}()
	return e.consumer.Consume(item)
}
