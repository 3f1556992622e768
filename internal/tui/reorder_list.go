package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"taskpilot/internal/reorder"
)

// rowHeight is the number of terminal lines per row. Two lines give every row an
// upper and a lower half, which is what the target-slot mapping needs.
const rowHeight = 2

// handleWidth is the width of the drag handle column, including its gap.
const handleWidth = 2

// rowFunc renders the two lines of a row (without the handle column).
type rowFunc[T any] func(item T) (title, meta string)

// reorderSettledMsg reports a finished persistence call back to the update loop.
type reorderSettledMsg struct {
	list      string
	committed bool
	cancelled bool
	err       error
}

// listView is the non-generic face of reorderList, so the app can hold lists of
// different item types.
type listView interface {
	name() string
	len() int
	cursorIndex() int
	setBounds(top, width, height int)
	moveCursor(delta int)
	handleMouse(ctx context.Context, msg tea.MouseMsg) tea.Cmd
	step(ctx context.Context, delta int) tea.Cmd
	dragging() bool
	cancelDrag() bool
	busy() bool
	view() string
	close()
	wait(ctx context.Context)
}

// reorderList renders a Handler's items with drag handles and drives a
// reorder.Coordinator from mouse and keyboard input. It is the coordinator's Host.
//
// All methods run on the bubbletea update goroutine; only the persistence call
// runs elsewhere, and it reports back through reorderSettledMsg.
type reorderList[T comparable] struct {
	id      string
	handler reorder.Handler[T]
	coord   *reorder.Coordinator[T]
	row     rowFunc[T]
	logger  *slog.Logger

	cursor int
	scroll int // first visible row
	hover  int // row under the pointer, -1 when none

	top, width, height int

	// Host state.
	affordance reorder.PointerAffordance
	dragIndex  int

	// saving is the last committed move, kept so shutdown can wait for its write.
	saving *reorder.Completion[T]
}

var _ reorder.Host = (*reorderList[int])(nil)

func newReorderList[T comparable](reg *reorder.Registry, id string, row rowFunc[T], opts reorder.Options) (*reorderList[T], error) {
	h, err := reorder.LookupHandler[T](reg, id)
	if err != nil {
		return nil, err
	}
	l := &reorderList[T]{
		id:        id,
		handler:   h,
		row:       row,
		logger:    opts.Logger,
		hover:     -1,
		dragIndex: -1,
	}
	opts.Host = l
	l.coord = reorder.NewCoordinator(h, opts)
	l.coord.OnCompleted(func(out reorder.Outcome[T], err error) {
		if err != nil && l.logger != nil {
			l.logger.Warn("reorder not saved", "list", id, "old", out.OldIndex, "new", out.NewIndex, "err", err)
		}
	})
	return l, nil
}

func (l *reorderList[T]) SetPointerAffordance(kind reorder.PointerAffordance) {
	l.affordance = kind
}

func (l *reorderList[T]) SetDragActive(index int, active bool) {
	switch {
	case active:
		l.dragIndex = index
	case l.dragIndex == index:
		l.dragIndex = -1
	}
}

func (l *reorderList[T]) name() string { return l.id }

func (l *reorderList[T]) len() int { return l.handler.Items().Len() }

func (l *reorderList[T]) cursorIndex() int { return l.cursor }

// selected returns the item under the cursor.
func (l *reorderList[T]) selected() (T, bool) {
	var zero T
	items := l.handler.Items()
	if l.cursor < 0 || l.cursor >= items.Len() {
		return zero, false
	}
	return items.At(l.cursor), true
}

// selectItem moves the cursor to item, if it is listed.
func (l *reorderList[T]) selectItem(item T) {
	if i := reorder.IndexOf(l.handler.Items(), item); i >= 0 {
		l.cursor = i
		l.clamp()
	}
}

func (l *reorderList[T]) setBounds(top, width, height int) {
	l.top, l.width, l.height = top, width, max(height, rowHeight)
	l.clamp()
}

func (l *reorderList[T]) visibleRows() int { return max(l.height/rowHeight, 1) }

// clamp keeps the cursor inside the list and visible.
func (l *reorderList[T]) clamp() {
	n := l.len()
	l.cursor = max(0, min(l.cursor, n-1))
	vis := l.visibleRows()
	if l.cursor < l.scroll {
		l.scroll = l.cursor
	}
	if l.cursor >= l.scroll+vis {
		l.scroll = l.cursor - vis + 1
	}
	l.scroll = max(0, min(l.scroll, n-vis))
}

func (l *reorderList[T]) moveCursor(delta int) {
	if l.dragging() {
		return
	}
	l.cursor += delta
	l.clamp()
}

// geometry is the on-screen layout of every row, including rows scrolled out of view.
func (l *reorderList[T]) geometry() []reorder.ItemGeometry {
	heights := make([]float64, l.len())
	for i := range heights {
		heights[i] = rowHeight
	}
	return reorder.StackGeometry(float64(l.top-l.scroll*rowHeight), heights)
}

// rowAt maps a screen line to a row index, or -1.
func (l *reorderList[T]) rowAt(y int) int {
	if y < l.top || y >= l.top+l.height {
		return -1
	}
	i := (y-l.top)/rowHeight + l.scroll
	if i >= l.len() {
		return -1
	}
	return i
}

func onHandle(x int) bool { return x >= 0 && x < handleWidth }

func (l *reorderList[T]) dragging() bool {
	_, ok := l.coord.Snapshot()
	return ok
}

func (l *reorderList[T]) busy() bool { return l.coord.Busy() }

func (l *reorderList[T]) handleMouse(ctx context.Context, msg tea.MouseMsg) tea.Cmd {
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			l.moveCursor(-1)
		case tea.MouseButtonWheelDown:
			l.moveCursor(1)
		case tea.MouseButtonLeft:
			return l.press(msg.X, msg.Y)
		}
	case tea.MouseActionMotion:
		l.hover = l.rowAt(msg.Y)
		if l.dragging() {
			l.coord.UpdatePointer(float64(msg.Y))
			return nil
		}
		l.coord.HoverHandle(l.hover >= 0 && onHandle(msg.X))
	case tea.MouseActionRelease:
		if l.dragging() {
			return l.settle(l.coord.End(ctx))
		}
	}
	return nil
}

func (l *reorderList[T]) press(x, y int) tea.Cmd {
	idx := l.rowAt(y)
	if idx < 0 || l.dragging() {
		return nil
	}
	l.cursor = idx
	if !onHandle(x) {
		return nil
	}
	item := l.handler.Items().At(idx)
	if _, err := l.coord.TryBegin(item, l.geometry()); err != nil {
		return statusCmd(beginError(err))
	}
	l.coord.UpdatePointer(float64(y))
	return nil
}

// step moves the selected row by delta slots through a full session, the same
// way a drag would.
func (l *reorderList[T]) step(ctx context.Context, delta int) tea.Cmd {
	item, ok := l.selected()
	if !ok || l.dragging() {
		return nil
	}
	if _, err := l.coord.TryBegin(item, l.geometry()); err != nil {
		return statusCmd(beginError(err))
	}
	l.coord.Step(delta)
	return l.settle(l.coord.End(ctx))
}

func (l *reorderList[T]) cancelDrag() bool {
	return l.coord.Cancel()
}

// settle follows the moved item with the cursor and waits for persistence.
func (l *reorderList[T]) settle(comp *reorder.Completion[T]) tea.Cmd {
	if !comp.Committed() {
		return nil
	}
	l.cursor = comp.Outcome().NewIndex
	l.clamp()
	l.saving = comp
	id := l.id
	return func() tea.Msg {
		<-comp.Done()
		return reorderSettledMsg{list: id, committed: true, cancelled: comp.Cancelled(), err: comp.Err()}
	}
}

func (l *reorderList[T]) close() { l.coord.Close() }

// wait blocks until the last committed move has been written, or ctx is done.
func (l *reorderList[T]) wait(ctx context.Context) {
	if l.saving == nil {
		return
	}
	select {
	case <-l.saving.Done():
	case <-ctx.Done():
		if l.logger != nil {
			l.logger.Warn("gave up waiting for a move to be saved", "list", l.id, "err", ctx.Err())
		}
	}
}

func (l *reorderList[T]) view() string {
	list := l.handler.Items()
	n := list.Len()
	items := make([]T, n)
	for i := range items {
		items[i] = list.At(i)
	}
	if n == 0 {
		return styleMuted().Render("  (empty)")
	}

	// While dragging, rows make room for the dragged row at its candidate slot.
	offsets := make([]float64, n)
	if snap, ok := l.coord.Snapshot(); ok && len(snap.Geometry) == n {
		offsets = reorder.GapOffsets(snap.Geometry, snap.OriginalIndex, snap.CandidateIndex)
	}

	lines := make([]string, l.visibleRows()*rowHeight)
	canReorder := l.handler.CanReorder()
	for i, it := range items {
		y := i*rowHeight + int(offsets[i]) - l.scroll*rowHeight
		if y < 0 || y+rowHeight > len(lines) {
			continue
		}
		rendered := l.renderRow(i, it, canReorder)
		copy(lines[y:y+rowHeight], rendered)
	}
	return strings.Join(lines, "\n")
}

func (l *reorderList[T]) renderRow(i int, item T, canReorder bool) []string {
	title, meta := l.row(item)

	handle := strings.Repeat(" ", handleWidth)
	if canReorder {
		grab := i == l.dragIndex || (i == l.hover && l.affordance == reorder.AffordanceGrab)
		handle = styleHandle(grab).Render(glyphHandle()) + " "
	}
	width := max(l.width-handleWidth, 1)
	title = xansi.Truncate(title, width, "…")
	meta = xansi.Truncate(meta, width, "…")

	line1 := handle + title
	line2 := strings.Repeat(" ", handleWidth) + styleMuted().Render(meta)

	switch {
	case i == l.dragIndex:
		line1 = styleDragged().Render(padRight(line1, l.width))
		line2 = styleDragged().Render(padRight(line2, l.width))
	case i == l.cursor:
		line1 = styleSelected().Render(padRight(line1, l.width))
	}
	return []string{line1, line2}
}

func padRight(s string, width int) string {
	if w := xansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// statusMsg sets the status line.
type statusMsg struct {
	text string
	err  bool
}

func statusCmd(err error) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: err.Error(), err: true} }
}

func beginError(err error) error {
	switch {
	case errors.Is(err, reorder.ErrReorderDisabled):
		return errors.New("reordering is off while sorted or filtered (press s to return to manual order)")
	case errors.Is(err, reorder.ErrSessionInFlight):
		return errors.New("still saving the previous move")
	}
	return fmt.Errorf("cannot move: %w", err)
}
