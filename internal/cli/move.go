package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskpilot/internal/reorder"
)

type moveResult struct {
	ID    int64   `json:"id"`
	From  int     `json:"from"`
	To    int     `json:"to"`
	Moved bool    `json:"moved"`
	Order []int64 `json:"order"`
}

// runMove drives one reorder session headlessly against the handler registered as name.
// Rows get uniform geometry and the pointer is placed over the target slot, so the move
// takes the same coordinator path as a drag in the TUI.
func runMove[T comparable](
	ctx context.Context,
	reg *reorder.Registry,
	name string,
	logger *slog.Logger,
	timeout time.Duration,
	match func(T) bool,
	idOf func(T) int64,
	to int,
) (moveResult, error) {
	h, err := reorder.LookupHandler[T](reg, name)
	if err != nil {
		return moveResult{}, err
	}
	if r, ok := h.(reorder.Refresher); ok {
		if err := r.Refresh(ctx); err != nil {
			return moveResult{}, err
		}
	}

	list := h.Items()
	n := list.Len()
	var item T
	from := -1
	for i := 0; i < n; i++ {
		if match(list.At(i)) {
			item, from = list.At(i), i
			break
		}
	}
	if from < 0 {
		return moveResult{}, reorder.ErrItemNotFound
	}
	if to < 0 || to >= n {
		return moveResult{}, outOfRangeError{index: to, count: n}
	}

	c := reorder.NewCoordinator[T](h, reorder.Options{Logger: logger, PersistTimeout: timeout})
	defer c.Close()

	comp, err := c.MoveTo(ctx, item, reorder.UniformGeometry(n, 1), to)
	if err != nil {
		return moveResult{}, fmt.Errorf("%s: %w", name, err)
	}
	if err := comp.Wait(ctx); err != nil {
		return moveResult{}, err
	}

	out := moveResult{ID: idOf(item), From: from, To: from, Moved: comp.Committed()}
	if comp.Committed() {
		out.To = comp.Outcome().NewIndex
	}
	for i := 0; i < list.Len(); i++ {
		out.Order = append(out.Order, idOf(list.At(i)))
	}
	return out, nil
}
