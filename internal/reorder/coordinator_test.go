package reorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	mu        sync.Mutex
	can       bool
	list      *SliceList[string]
	calls     []Outcome[string]
	err       error
	gate      chan struct{}
	started   chan struct{}
	refreshes int
	onRefresh func()
}

func newFakeHandler(items ...string) *fakeHandler {
	return &fakeHandler{can: true, list: NewSliceList(items)}
}

func (h *fakeHandler) CanReorder() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.can
}

func (h *fakeHandler) Items() List[string] { return h.list }

func (h *fakeHandler) OnReorderCompleted(ctx context.Context, item string, oldIndex, newIndex int) error {
	h.mu.Lock()
	h.calls = append(h.calls, Outcome[string]{Item: item, OldIndex: oldIndex, NewIndex: newIndex})
	gate, started, err := h.gate, h.started, h.err
	h.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (h *fakeHandler) Refresh(ctx context.Context) error {
	h.mu.Lock()
	h.refreshes++
	fn := h.onRefresh
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (h *fakeHandler) Calls() []Outcome[string] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Outcome[string](nil), h.calls...)
}

func (h *fakeHandler) Refreshes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshes
}

type recorder struct {
	mu         sync.Mutex
	previews   []Outcome[string]
	completing []Outcome[string]
	completed  []Outcome[string]
	errs       []error
}

func record(c *Coordinator[string]) *recorder {
	r := &recorder{}
	c.OnPreview(func(o Outcome[string]) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.previews = append(r.previews, o)
	})
	c.OnCompleting(func(ev *CompletingEvent[string]) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.completing = append(r.completing, ev.Outcome)
	})
	c.OnCompleted(func(o Outcome[string], err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.completed = append(r.completed, o)
		r.errs = append(r.errs, err)
	})
	return r
}

func (r *recorder) counts() (previews, completing, completed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.previews), len(r.completing), len(r.completed)
}

type fakeHost struct {
	mu          sync.Mutex
	affordances []PointerAffordance
	active      map[int]bool
}

func (h *fakeHost) SetPointerAffordance(kind PointerAffordance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.affordances = append(h.affordances, kind)
}

func (h *fakeHost) SetDragActive(index int, active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		h.active = map[int]bool{}
	}
	h.active[index] = active
}

const row = 10.0

func waitSettled(t *testing.T, comp *Completion[string]) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := comp.Wait(ctx)
	require.False(t, errors.Is(err, context.DeadlineExceeded), "completion did not settle")
	return err
}

func TestCoordinator_DragFirstItemOverLowerHalfOfD(t *testing.T) {
	h := newFakeHandler("A", "B", "C", "D", "E")
	c := NewCoordinator[string](h, Options{})
	rec := record(c)

	sess := c.Begin("A", UniformGeometry(5, row))
	require.NotNil(t, sess)
	assert.Equal(t, Active, sess.State())

	c.UpdatePointer(3*row + 0.8*row)
	assert.Equal(t, 3, sess.CandidateIndex())
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, h.list.Items(), "preview must not mutate the list")

	comp := c.End(context.Background())
	assert.True(t, comp.Committed())
	assert.Equal(t, []string{"B", "C", "D", "A", "E"}, h.list.Items(), "list is moved before persistence runs")

	require.NoError(t, waitSettled(t, comp))
	assert.Equal(t, []Outcome[string]{{Item: "A", OldIndex: 0, NewIndex: 3}}, h.Calls())
	assert.Equal(t, Idle, sess.State())

	p, cg, cd := rec.counts()
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, cg)
	assert.Equal(t, 1, cd)
	assert.Nil(t, rec.errs[0])
	assert.False(t, c.Busy())
}

func TestCoordinator_DragToLastSlot(t *testing.T) {
	h := newFakeHandler("A", "B", "C", "D", "E")
	c := NewCoordinator[string](h, Options{})

	require.NotNil(t, c.Begin("C", UniformGeometry(5, row)))
	c.UpdatePointer(4*row + row/2)
	require.NoError(t, waitSettled(t, c.End(context.Background())))

	assert.Equal(t, []string{"A", "B", "D", "E", "C"}, h.list.Items())
	assert.Equal(t, []Outcome[string]{{Item: "C", OldIndex: 2, NewIndex: 4}}, h.Calls())
}

func TestCoordinator_ReorderDisabled(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	h.can = false
	host := &fakeHost{}
	c := NewCoordinator[string](h, Options{Host: host})
	rec := record(c)

	assert.Nil(t, c.Begin("A", UniformGeometry(3, row)))
	_, err := c.TryBegin("A", UniformGeometry(3, row))
	assert.ErrorIs(t, err, ErrReorderDisabled)

	c.UpdatePointer(25)
	comp := c.End(context.Background())
	assert.False(t, comp.Committed())

	assert.Equal(t, []string{"A", "B", "C"}, h.list.Items())
	p, cg, cd := rec.counts()
	assert.Zero(t, p+cg+cd)
	assert.Empty(t, h.Calls())
	assert.Empty(t, host.affordances)
}

func TestCoordinator_AtMostOneSession(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	c := NewCoordinator[string](h, Options{})

	require.NotNil(t, c.Begin("A", UniformGeometry(3, row)))
	assert.Nil(t, c.Begin("B", UniformGeometry(3, row)))
	_, err := c.TryBegin("B", UniformGeometry(3, row))
	assert.ErrorIs(t, err, ErrSessionInFlight)

	c.Cancel()
	assert.NotNil(t, c.Begin("B", UniformGeometry(3, row)))
}

func TestCoordinator_RefusesBeginWhilePersisting(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	h.gate = make(chan struct{})
	h.started = make(chan struct{})
	c := NewCoordinator[string](h, Options{})

	require.NotNil(t, c.Begin("A", UniformGeometry(3, row)))
	c.UpdatePointer(100)
	comp := c.End(context.Background())
	<-h.started

	assert.True(t, c.Busy())
	_, err := c.TryBegin("B", UniformGeometry(3, row))
	assert.ErrorIs(t, err, ErrSessionInFlight)

	close(h.gate)
	require.NoError(t, waitSettled(t, comp))
	assert.NotNil(t, c.Begin("B", UniformGeometry(3, row)))
}

func TestCoordinator_NoOpRelease(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	c := NewCoordinator[string](h, Options{})
	rec := record(c)

	require.NotNil(t, c.Begin("B", UniformGeometry(3, row)))
	c.UpdatePointer(28) // over C: preview to 2
	c.UpdatePointer(12) // back over its own slot
	comp := c.End(context.Background())

	assert.False(t, comp.Committed())
	require.NoError(t, waitSettled(t, comp))
	assert.Equal(t, []string{"A", "B", "C"}, h.list.Items())
	assert.Empty(t, h.Calls())
	p, cg, cd := rec.counts()
	assert.Equal(t, 2, p)
	assert.Zero(t, cg)
	assert.Zero(t, cd)
	assert.False(t, c.Busy())
}

func TestCoordinator_CancelReverts(t *testing.T) {
	h := newFakeHandler("A", "B", "C", "D", "E")
	c := NewCoordinator[string](h, Options{})
	rec := record(c)

	require.NotNil(t, c.Begin("E", UniformGeometry(5, row)))
	c.UpdatePointer(2*row + 1)
	snap, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 2, snap.CandidateIndex)

	assert.True(t, c.Cancel())
	assert.False(t, c.Cancel())

	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, h.list.Items())
	p, _, cd := rec.counts()
	assert.Equal(t, 1, p, "the advisory preview stays fired")
	assert.Zero(t, cd)
	assert.Empty(t, h.Calls())
	_, ok = c.Snapshot()
	assert.False(t, ok)
}

func TestCoordinator_CompletingVeto(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	c := NewCoordinator[string](h, Options{})
	rec := record(c)
	c.OnCompleting(func(ev *CompletingEvent[string]) {
		if ev.NewIndex == 2 {
			ev.Cancel = true
		}
	})

	require.NotNil(t, c.Begin("A", UniformGeometry(3, row)))
	c.UpdatePointer(29)
	comp := c.End(context.Background())

	assert.False(t, comp.Committed())
	assert.Equal(t, []string{"A", "B", "C"}, h.list.Items())
	assert.Empty(t, h.Calls())
	_, cg, cd := rec.counts()
	assert.Equal(t, 1, cg)
	assert.Zero(t, cd)
	assert.NotNil(t, c.Begin("A", UniformGeometry(3, row)), "a vetoed session frees the coordinator")
}

func TestCoordinator_CancelFromCompletingListener(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	c := NewCoordinator[string](h, Options{})
	c.OnCompleting(func(ev *CompletingEvent[string]) { c.Cancel() })

	require.NotNil(t, c.Begin("C", UniformGeometry(3, row)))
	c.UpdatePointer(0)
	comp := c.End(context.Background())

	assert.False(t, comp.Committed())
	assert.Equal(t, []string{"A", "B", "C"}, h.list.Items())
	assert.Empty(t, h.Calls())
}

func TestCoordinator_PersistenceFailureKeepsOrderAndRefreshes(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	h.err = errors.New("disk full")
	c := NewCoordinator[string](h, Options{})
	rec := record(c)

	require.NotNil(t, c.Begin("A", UniformGeometry(3, row)))
	c.UpdatePointer(100)
	comp := c.End(context.Background())
	err := waitSettled(t, comp)

	require.EqualError(t, err, "disk full")
	assert.Equal(t, err, comp.Err())
	assert.Equal(t, []string{"B", "C", "A"}, h.list.Items(), "the in-memory move is not undone")
	assert.Equal(t, 1, h.Refreshes())
	_, _, cd := rec.counts()
	require.Equal(t, 1, cd)
	assert.EqualError(t, rec.errs[0], "disk full")
	assert.Equal(t, Outcome[string]{Item: "A", OldIndex: 0, NewIndex: 2}, rec.completed[0])
	assert.False(t, c.Busy())
}

type panickyHandler struct{ *fakeHandler }

func (p panickyHandler) OnReorderCompleted(context.Context, string, int, int) error {
	panic("boom")
}

func TestCoordinator_HandlerPanicIsReportedAsError(t *testing.T) {
	h := panickyHandler{newFakeHandler("A", "B")}
	c := NewCoordinator[string](h, Options{})

	require.NotNil(t, c.Begin("A", UniformGeometry(2, row)))
	c.UpdatePointer(100)
	err := waitSettled(t, c.End(context.Background()))
	assert.ErrorContains(t, err, "boom")
	assert.NotNil(t, c.Begin("A", UniformGeometry(2, row)))
}

func TestCoordinator_CancelWhileCompletingReverts(t *testing.T) {
	h := newFakeHandler("A", "B", "C", "D")
	h.gate = make(chan struct{})
	h.started = make(chan struct{})
	c := NewCoordinator[string](h, Options{})
	rec := record(c)

	require.NotNil(t, c.Begin("B", UniformGeometry(4, row)))
	c.UpdatePointer(100)
	comp := c.End(context.Background())
	<-h.started
	assert.Equal(t, []string{"A", "C", "D", "B"}, h.list.Items())

	assert.True(t, c.Cancel())
	assert.Equal(t, []string{"A", "B", "C", "D"}, h.list.Items())
	assert.True(t, c.Busy(), "the persistence call is still settling")

	err := waitSettled(t, comp)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, comp.Cancelled())
	_, _, cd := rec.counts()
	assert.Zero(t, cd)
	assert.Equal(t, 1, h.Refreshes())
	assert.Len(t, h.Calls(), 1)
	assert.False(t, c.Busy())
}

func TestCoordinator_GeometryUnavailable(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	c := NewCoordinator[string](h, Options{})

	geo := UniformGeometry(3, row)
	geo[2].Height = 0
	assert.Nil(t, c.Begin("A", geo))
	_, err := c.TryBegin("A", UniformGeometry(2, row))
	assert.ErrorIs(t, err, ErrGeometryUnavailable)

	_, err = c.TryBegin("Z", UniformGeometry(3, row))
	assert.ErrorIs(t, err, ErrItemNotFound)

	assert.False(t, c.Busy())
}

func TestCoordinator_KeyboardStep(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	c := NewCoordinator[string](h, Options{})

	require.NotNil(t, c.Begin("C", UniformGeometry(3, row)))
	c.Step(-1)
	c.Step(-5)
	snap, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 0, snap.CandidateIndex)

	require.NoError(t, waitSettled(t, c.End(context.Background())))
	assert.Equal(t, []string{"C", "A", "B"}, h.list.Items())
}

func TestCoordinator_HostAffordances(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	host := &fakeHost{}
	c := NewCoordinator[string](h, Options{Host: host})

	c.HoverHandle(true)
	require.NotNil(t, c.Begin("B", UniformGeometry(3, row)))
	assert.True(t, host.active[1])
	c.UpdatePointer(0)
	require.NoError(t, waitSettled(t, c.End(context.Background())))
	assert.False(t, host.active[1])
	c.HoverHandle(false)

	assert.Equal(t, []PointerAffordance{AffordanceGrab, AffordanceGrabbing, AffordanceNone, AffordanceNone}, host.affordances)
}

func TestCoordinator_CloseCancelsAndRefuses(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	host := &fakeHost{}
	c := NewCoordinator[string](h, Options{Host: host})

	require.NotNil(t, c.Begin("A", UniformGeometry(3, row)))
	c.UpdatePointer(100)
	c.Close()

	assert.Equal(t, []string{"A", "B", "C"}, h.list.Items())
	_, err := c.TryBegin("A", UniformGeometry(3, row))
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, c.CanReorder())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	h := newFakeHandler("A")
	Register[string](r, "letters", h)

	got, err := LookupHandler[string](r, "letters")
	require.NoError(t, err)
	assert.Same(t, h, got.(*fakeHandler))

	_, err = LookupHandler[int](r, "letters")
	assert.Error(t, err)

	_, err = LookupHandler[string](r, "missing")
	assert.ErrorIs(t, err, ErrNoHandler)

	assert.Equal(t, []string{"letters"}, r.Names())
	r.Unregister("letters")
	assert.Empty(t, r.Names())
}

func TestCoordinator_MoveToTakesTheDragPath(t *testing.T) {
	h := newFakeHandler("A", "B", "C", "D", "E")
	c := NewCoordinator[string](h, Options{})
	rec := record(c)
	geo := UniformGeometry(5, 1)

	comp, err := c.MoveTo(context.Background(), "D", geo, 1)
	require.NoError(t, err)
	require.NoError(t, waitSettled(t, comp))
	assert.Equal(t, []string{"A", "D", "B", "C", "E"}, h.list.Items())

	comp, err = c.MoveTo(context.Background(), "A", geo, 0)
	require.NoError(t, err)
	assert.False(t, comp.Committed(), "moving to the same slot is a no-op")

	_, err = c.MoveTo(context.Background(), "Z", geo, 0)
	require.ErrorIs(t, err, ErrItemNotFound)

	_, cg, cd := rec.counts()
	assert.Equal(t, 1, cg)
	assert.Equal(t, 1, cd)
}

func TestCoordinator_ListChangedDuringDragIsAbandoned(t *testing.T) {
	h := newFakeHandler("Charlie", "Alpha", "Bravo")
	c := NewCoordinator[string](h, Options{})
	rec := record(c)

	require.NotNil(t, c.Begin("Charlie", UniformGeometry(3, row)))
	// The host re-sorts the list while the pointer is still down.
	h.list.Reset([]string{"Alpha", "Bravo", "Charlie"})
	c.UpdatePointer(2*row + 0.8*row)
	comp := c.End(context.Background())

	assert.False(t, comp.Committed())
	require.NoError(t, waitSettled(t, comp))
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, h.list.Items(), "no other item is moved")
	assert.Empty(t, h.Calls())
	_, _, cd := rec.counts()
	assert.Zero(t, cd)
	assert.False(t, c.Busy())

	h.list.Reset([]string{"Alpha", "Bravo"})
	require.NotNil(t, c.Begin("Alpha", UniformGeometry(2, row)))
	h.list.Append("Charlie")
	c.UpdatePointer(100)
	assert.False(t, c.End(context.Background()).Committed(), "a length change also abandons")
}

func TestCoordinator_CloseLetsPendingWriteFinish(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	h.gate = make(chan struct{})
	h.started = make(chan struct{})
	host := &fakeHost{}
	c := NewCoordinator[string](h, Options{Host: host})

	require.NotNil(t, c.Begin("A", UniformGeometry(3, row)))
	c.UpdatePointer(100)
	comp := c.End(context.Background())
	<-h.started

	c.Close()
	assert.Equal(t, []string{"B", "C", "A"}, h.list.Items(), "the committed move is kept")
	assert.True(t, c.Busy())

	close(h.gate)
	require.NoError(t, waitSettled(t, comp))
	assert.False(t, comp.Cancelled())
	assert.Zero(t, h.Refreshes())
	assert.False(t, c.Busy())
	_, err := c.TryBegin("A", UniformGeometry(3, row))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCoordinator_RecoveryRunsWhileBusy(t *testing.T) {
	h := newFakeHandler("A", "B", "C")
	h.err = errors.New("disk full")
	c := NewCoordinator[string](h, Options{})

	var busyDuringRefresh bool
	h.onRefresh = func() { busyDuringRefresh = c.Busy() }

	require.NotNil(t, c.Begin("A", UniformGeometry(3, row)))
	c.UpdatePointer(100)
	require.Error(t, waitSettled(t, c.End(context.Background())))
	assert.True(t, busyDuringRefresh, "no session can start while the list is being reloaded")
}
