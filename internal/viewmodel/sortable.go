// Package viewmodel holds the reorderable lists the terminal UI and CLI render.
// Each view model implements reorder.Handler and reorder.Refresher for one entity list.
package viewmodel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"taskpilot/internal/logging"
	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/store"
)

// SortOrderWriter persists a batch of sort-order changes.
type SortOrderWriter interface {
	ApplySortOrders(ctx context.Context, kind store.Kind, orders map[int64]int) error
}

// SortDirection is shared by every view model that offers a sort toggle.
type SortDirection bool

const (
	Ascending  SortDirection = true
	Descending SortDirection = false
)

func (d SortDirection) String() string {
	if d {
		return "asc"
	}
	return "desc"
}

func loggerOrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return logging.NewNop()
	}
	return l
}

// orderedList is the list a view model hands to its coordinator. Move runs on the
// goroutine that ends the gesture: it renumbers the items densely, mirrors the new orders onto
// them and keeps the id order for the persistence call. The persistence goroutine only reads
// that id snapshot, never the items.
type orderedList[T any] struct {
	*reorder.SliceList[T]
	id       func(T) int64
	setOrder func(T, int)

	mu      sync.Mutex
	pending []int64
}

func newOrderedList[T any](id func(T) int64, setOrder func(T, int)) *orderedList[T] {
	return &orderedList[T]{
		SliceList: reorder.NewSliceList[T](nil),
		id:        id,
		setOrder:  setOrder,
	}
}

func (l *orderedList[T]) Move(from, to int) {
	l.SliceList.Move(from, to)
	items := l.Items()
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = l.id(it)
		l.setOrder(it, i)
	}
	l.mu.Lock()
	l.pending = ids
	l.mu.Unlock()
}

// takePending returns the order recorded by the last Move and clears it.
func (l *orderedList[T]) takePending() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.pending
	l.pending = nil
	return ids
}

// persistOrder writes the order recorded by the last move.
func persistOrder[T any](ctx context.Context, w SortOrderWriter, kind store.Kind, list *orderedList[T]) error {
	ids := list.takePending()
	if len(ids) == 0 {
		return nil
	}
	if err := w.ApplySortOrders(ctx, kind, store.PlanSortOrders(ids)); err != nil {
		return fmt.Errorf("reorder %s: %w", kind, err)
	}
	return nil
}

// matchesWords reports whether every whitespace-separated word of query occurs in text,
// case-insensitively.
func matchesWords(query, text string) bool {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return true
	}
	text = strings.ToLower(text)
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// cmpInt64 is a three-way compare used by the sort functions.
func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var (
	_ reorder.Handler[*model.Project]   = (*ProjectsBrowser)(nil)
	_ reorder.Handler[*model.Task]      = (*ProjectPage)(nil)
	_ reorder.Handler[*model.Milestone] = (*Milestones)(nil)
	_ reorder.Handler[*model.TaskType]  = (*TaskTypes)(nil)
	_ reorder.Refresher                 = (*ProjectsBrowser)(nil)
	_ reorder.Refresher                 = (*ProjectPage)(nil)
	_ reorder.Refresher                 = (*Milestones)(nil)
	_ reorder.Refresher                 = (*TaskTypes)(nil)
)
