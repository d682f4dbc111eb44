package queue

import (
	"sync"

	"github.com/google/uuid"
)

type entry[T any] struct {
	handle   Handle
	shape    Shape
	consumer Consumer[T]
}

// registry holds consumer entries in registration order, at most one per
// shape.
type registry[T any] struct {
	mu      sync.Mutex
	entries []*entry[T]
}

// add registers c unless an entry with the same shape exists. It returns the
// handle of the entry now holding the shape and whether a new one was created.
func (r *registry[T]) add(c Consumer[T]) (Handle, bool) {
	shape := ShapeOf(c)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.shape == shape {
			return e.handle, false
		}
	}
	e := &entry[T]{
		handle:   Handle(uuid.New()),
		shape:    shape,
		consumer: c,
	}
	r.entries = append(r.entries, e)
	return e.handle, true
}

func (r *registry[T]) removeShape(shape Shape) int {
	return r.removeWhere(func(e *entry[T]) bool { return e.shape == shape })
}

func (r *registry[T]) removeHandle(h Handle) bool {
	return r.removeWhere(func(e *entry[T]) bool { return e.handle == h }) > 0
}

func (r *registry[T]) removeWhere(match func(*entry[T]) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	removed := 0
	for _, e := range r.entries {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = nil
	}
	r.entries = kept
	return removed
}

func (r *registry[T]) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// snapshot returns an independent copy of the entries for one item.
func (r *registry[T]) snapshot() []*entry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entry[T], len(r.entries))
	copy(out, r.entries)
	return out
}
