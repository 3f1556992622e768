package reorder

import "sync"

// List is an externally owned ordered collection. The engine only ever calls Move on it.
type List[T any] interface {
	Len() int
	At(i int) T
	// Move removes the element at from and reinserts it at to.
	Move(from, to int)
}

// SliceList is a slice-backed List. It is safe for concurrent use, so a recovery refresh
// running on the persistence goroutine can Reset it while the UI reads.
type SliceList[T any] struct {
	mu    sync.RWMutex
	items []T
}

func NewSliceList[T any](items []T) *SliceList[T] {
	return &SliceList[T]{items: append([]T(nil), items...)}
}

func (l *SliceList[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *SliceList[T]) At(i int) T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items[i]
}

// Items returns a copy of the current order.
func (l *SliceList[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.items...)
}

// Reset replaces the contents, keeping the list identity the UI observes.
func (l *SliceList[T]) Reset(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items[:0:0], items...)
}

func (l *SliceList[T]) Append(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, item)
}

func (l *SliceList[T]) RemoveAt(i int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.items) {
		return
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
}

func (l *SliceList[T]) Move(from, to int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}
	it := l.items[from]
	if from < to {
		copy(l.items[from:to], l.items[from+1:to+1])
	} else {
		copy(l.items[to+1:from+1], l.items[to:from])
	}
	l.items[to] = it
}

// IndexOf returns the position of item in l, or -1.
func IndexOf[T comparable](l List[T], item T) int {
	if l == nil {
		return -1
	}
	for i := 0; i < l.Len(); i++ {
		if l.At(i) == item {
			return i
		}
	}
	return -1
}
