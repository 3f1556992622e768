package reorder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrReorderDisabled     = errors.New("reordering is disabled")
	ErrSessionInFlight     = errors.New("a reorder is already in progress")
	ErrItemNotFound        = errors.New("item is not in the list")
	ErrGeometryUnavailable = errors.New("item geometry is unavailable")
	ErrNoHandler           = errors.New("no reorder handler")
	ErrClosed              = errors.New("coordinator is closed")
)

// Handler is implemented by the owner of a reorderable list (a view model).
type Handler[T comparable] interface {
	// CanReorder gates new sessions. It is read once when a session starts.
	CanReorder() bool
	// Items is the exact collection the UI observes and the coordinator mutates.
	Items() List[T]
	// OnReorderCompleted persists a committed move. It is called at most once per session,
	// after the list has already been moved.
	OnReorderCompleted(ctx context.Context, item T, oldIndex, newIndex int) error
}

// Refresher is the recovery step a Handler may offer: reload Items from the source of truth.
// The coordinator calls it after a persistence failure or after a cancel raced a write.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// PointerAffordance is the pointer feedback the host should show.
type PointerAffordance int

const (
	AffordanceNone PointerAffordance = iota
	AffordanceGrab
	AffordanceGrabbing
)

func (k PointerAffordance) String() string {
	switch k {
	case AffordanceGrab:
		return "grab"
	case AffordanceGrabbing:
		return "grabbing"
	default:
		return "none"
	}
}

// Host receives rendering intent from the coordinator. The coordinator never draws.
type Host interface {
	SetPointerAffordance(kind PointerAffordance)
	// SetDragActive marks the item at index as being dragged (the host typically hides or dims it).
	SetDragActive(index int, active bool)
}

// Registry resolves reorder handlers by name. Handlers are registered explicitly by the code
// that owns them and looked up with LookupHandler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]any
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]any{}}
}

// Register adds or replaces the handler stored under name.
func Register[T comparable](r *Registry, name string, h Handler[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LookupHandler returns the handler registered under name if it handles items of type T.
func LookupHandler[T comparable](r *Registry, name string) (Handler[T], error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, name)
	}
	r.mu.RLock()
	v, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, name)
	}
	h, ok := v.(Handler[T])
	if !ok {
		return nil, fmt.Errorf("handler %s (%T) does not handle the requested item type", name, v)
	}
	return h, nil
}
