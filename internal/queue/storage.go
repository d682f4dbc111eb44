package queue

import "sync"

type node[T any] struct {
	ticket Ticket
	value  T
}

// storage is the FIFO of items awaiting dispatch. The head may be marked in
// flight while the dispatch engine walks consumers over it; an in-flight node
// is never handed out to Update or TryPopFront.
type storage[T any] struct {
	mu       sync.Mutex
	items    []*node[T]
	next     Ticket
	inflight *node[T]
}

func (s *storage[T]) push(v T) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.items = append(s.items, &node[T]{ticket: s.next, value: v})
	return s.next
}

func (s *storage[T]) update(t Ticket, fn func(*T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.items {
		if n.ticket != t {
			continue
		}
		if n == s.inflight {
			return false
		}
		fn(&n.value)
		return true
	}
	return false
}

func (s *storage[T]) tryPopFront(out *T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := 0
	if len(s.items) > 0 && s.items[0] == s.inflight {
		idx = 1
	}
	if idx >= len(s.items) {
		return false
	}

	n := s.items[idx]
	if out != nil {
		*out = n.value
	}
	s.removeAtLocked(idx)
	return true
}

func (s *storage[T]) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// peek marks the head in flight and returns it. The caller owns the value
// until finish is called.
func (s *storage[T]) peek() (*node[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil, false
	}
	s.inflight = s.items[0]
	return s.inflight, true
}

// finish removes the in-flight node after dispatch.
func (s *storage[T]) finish(n *node[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight == n {
		s.inflight = nil
	}
	for i, it := range s.items {
		if it == n {
			s.removeAtLocked(i)
			return
		}
	}
}

func (s *storage[T]) removeAtLocked(i int) {
	if i == 0 {
		s.items[0] = nil
		s.items = s.items[1:]
		return
	}
	copy(s.items[i:], s.items[i+1:])
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
}
