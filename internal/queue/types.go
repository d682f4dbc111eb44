package queue

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"

	"github.com/google/uuid"
)

// Mode selects how the dispatch engine runs. It is fixed at construction.
type Mode int

const (
	// ModeThreaded dispatches on a dedicated background goroutine.
	ModeThreaded Mode = iota
	// ModeCooperative dispatches only when the owner calls Drive.
	ModeCooperative
)

func (m Mode) String() string {
	switch m {
	case ModeThreaded:
		return "threaded"
	case ModeCooperative:
		return "cooperative"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "threaded", "":
		return ModeThreaded, nil
	case "cooperative":
		return ModeCooperative, nil
	default:
		return 0, fmt.Errorf("unknown queue mode %q", s)
	}
}

// State is the lifecycle state of a Queue.
type State int32

const (
	// StateRunning accepts and dispatches items.
	StateRunning State = iota
	// StateShuttingDown is set by Close; no further item is dispatched.
	StateShuttingDown
	// StateStopped is reached once Close has joined the worker.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handle identifies one registry entry. It is returned by Add and accepted by
// RemoveHandle for instance-level removal.
type Handle uuid.UUID

func (h Handle) String() string { return uuid.UUID(h).String() }

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// Shape is the identity tag of a consumer. Entries with equal shapes are the
// same entry as far as Add and Remove are concerned.
type Shape string

// Ticket identifies a pushed item while it is still pending.
type Ticket uint64

// Consumer receives every dispatched item. A non-nil error or a panic marks
// the consumer as failed and it is removed from the queue for good.
type Consumer[T any] interface {
	Consume(item *T) error
}

//go:generate mockgen -destination=mocks/mock_consumer.go -package=mocks github.com/mattjoyce/obsq/internal/queue StringConsumer

// StringConsumer is a Consumer of text lines, the item type obsq's front ends
// push.
type StringConsumer = Consumer[string]

// ConsumerFunc adapts a plain function to Consumer. All closures created from
// the same function literal share one shape.
type ConsumerFunc[T any] func(item *T) error

// Consume calls f(item).
func (f ConsumerFunc[T]) Consume(item *T) error { return f(item) }

// Shaper lets a consumer declare its shape explicitly instead of having it
// derived from its type.
type Shaper interface {
	Shape() Shape
}

// ShapeOf returns the identity tag of c.
//
// Explicit Shaper tags win. Function consumers are keyed by the source
// position of their literal, so distinct closures of one literal collapse
// into one shape, even when built through an inlined helper. Two literals on
// the same line share a shape. Everything else is keyed by its dynamic type.
func ShapeOf[T any](c Consumer[T]) Shape {
	if s, ok := c.(Shaper); ok {
		return s.Shape()
	}
	if f, ok := c.(ConsumerFunc[T]); ok {
		return funcShape(f)
	}
	return typeShape(reflect.TypeOf(c))
}

func funcShape(fn any) Shape {
	v := reflect.ValueOf(fn)
	if v.IsNil() {
		return "func:<nil>"
	}
	pc := v.Pointer()
	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return Shape(fmt.Sprintf("func:%#x", pc))
	}
	// Inlining gives each copy of a literal its own symbol name, but every
	// copy keeps the literal's source position.
	if file, line := rf.FileLine(rf.Entry()); file != "" && line > 0 {
		return Shape(fmt.Sprintf("func:%s:%d", file, line))
	}
	return Shape("func:" + rf.Name())
}

func typeShape(t reflect.Type) Shape {
	if t == nil {
		return "type:<nil>"
	}
	prefix := ""
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		prefix += "*"
		t = t.Elem()
	}
	if t.PkgPath() != "" {
		return Shape("type:" + prefix + t.PkgPath() + "." + t.Name())
	}
	return Shape("type:" + prefix + t.String())
}

// ErrConsumerPanic is wrapped by ConsumerError when a consumer panicked.
var ErrConsumerPanic = errors.New("consumer panicked")

// ConsumerError describes a consumer that failed and was removed.
type ConsumerError struct {
	Handle Handle
	Shape  Shape
	Err    error
	// Panic holds the recovered value when the consumer panicked.
	Panic any
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("consumer %s (%s) failed: %v", e.Shape, e.Handle, e.Err)
}

func (e *ConsumerError) Unwrap() error { return e.Err }

// Stats is a point-in-time view of queue counters.
type Stats struct {
	Mode       Mode
	State      State
	Pending    int
	Consumers  int
	Pushed     uint64
	Dispatched uint64
	Failures   uint64
}
