// Package queue implements an in-process observable FIFO.
//
// Producers push items; the dispatch engine hands each item, in order, to
// every registered consumer and then drops it. Consumers can be added and
// removed at any time, including from inside another consumer.
//
// Modes (fixed at construction):
//   - ModeThreaded: a background goroutine sleeps until an item is pushed or
//     the queue is closed, drains storage, and sleeps again.
//   - ModeCooperative: nothing is dispatched until the owner calls Drive,
//     which drains storage on the caller's goroutine.
//
// Consumer identity:
//   - Every consumer has a Shape. Function consumers are keyed by the source
//     position of their literal, other consumers by their type, unless they
//     implement Shaper.
//   - Add is idempotent per shape; Remove drops every entry of a shape, no
//     matter which instance registered it.
//   - Add returns a Handle for removing exactly one entry via RemoveHandle.
//
// Failure isolation:
//   - A consumer that returns an error or panics is removed for good after
//     that single invocation. Producers and other consumers never see the
//     failure; it is logged and passed to the optional failure handler.
//
// Locking:
//   - Storage and the consumer registry have separate mutexes, never nested
//     and never held while a consumer runs. Each item is dispatched against a
//     snapshot of the registry taken when the item reaches the head.
//
// Shutdown:
//   - Close stops dispatch between invocations and between items. Pending
//     items are abandoned. In threaded mode Close waits for the worker.
package queue
