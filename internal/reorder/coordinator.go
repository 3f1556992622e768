package reorder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const DefaultPersistTimeout = 10 * time.Second

type Options struct {
	Logger *slog.Logger
	Host   Host
	// PersistTimeout bounds each OnReorderCompleted call. Zero means DefaultPersistTimeout.
	PersistTimeout time.Duration
}

// CompletingEvent is raised before a move is committed. Listeners may veto it with Cancel.
type CompletingEvent[T comparable] struct {
	Outcome[T]
	Cancel bool
}

// Snapshot is a copy of the in-flight session, for rendering.
type Snapshot[T comparable] struct {
	Item           T
	OriginalIndex  int
	CandidateIndex int
	State          State
	Geometry       []ItemGeometry
}

// Coordinator binds the reorder engine to one list. It owns at most one session at a time:
// a new session is refused while another is Active or while its persistence call is in flight.
//
// Events are delivered synchronously on the caller's goroutine, except the completed event
// of a committed session, which is delivered on the persistence goroutine.
type Coordinator[T comparable] struct {
	handler        Handler[T]
	logger         *slog.Logger
	persistTimeout time.Duration

	mu            sync.Mutex
	host          Host
	session       *Session[T]
	inflight      bool
	cancelPersist context.CancelFunc
	closed        bool

	previewFns    []func(Outcome[T])
	completingFns []func(*CompletingEvent[T])
	completedFns  []func(Outcome[T], error)
}

func NewCoordinator[T comparable](h Handler[T], opts Options) *Coordinator[T] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.PersistTimeout
	if timeout <= 0 {
		timeout = DefaultPersistTimeout
	}
	return &Coordinator[T]{
		handler:        h,
		logger:         logger,
		persistTimeout: timeout,
		host:           opts.Host,
	}
}

func (c *Coordinator[T]) OnPreview(fn func(Outcome[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previewFns = append(c.previewFns, fn)
}

func (c *Coordinator[T]) OnCompleting(fn func(*CompletingEvent[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completingFns = append(c.completingFns, fn)
}

func (c *Coordinator[T]) OnCompleted(fn func(Outcome[T], error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completedFns = append(c.completedFns, fn)
}

// SetHost swaps the rendering host (nil detaches it).
func (c *Coordinator[T]) SetHost(h Host) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host = h
}

// CanReorder reports whether a session could start now. Hosts use it to show or hide handles.
func (c *Coordinator[T]) CanReorder() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.handler != nil && c.handler.CanReorder()
}

// Busy reports whether a session is active or its persistence call has not settled.
func (c *Coordinator[T]) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busyLocked()
}

func (c *Coordinator[T]) busyLocked() bool {
	return c.inflight || (c.session != nil && c.session.state == Active)
}

// Snapshot returns the active session, if any.
func (c *Coordinator[T]) Snapshot() (Snapshot[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s == nil || s.state != Active {
		return Snapshot[T]{}, false
	}
	return Snapshot[T]{
		Item:           s.item,
		OriginalIndex:  s.originalIndex,
		CandidateIndex: s.candidateIndex,
		State:          s.state,
		Geometry:       append([]ItemGeometry(nil), s.geometry...),
	}, true
}

// HoverHandle updates the pointer affordance when the pointer enters or leaves a drag handle.
func (c *Coordinator[T]) HoverHandle(over bool) {
	c.mu.Lock()
	host := c.host
	idle := !c.busyLocked()
	can := !c.closed && c.handler != nil && c.handler.CanReorder()
	c.mu.Unlock()
	if host == nil || !idle {
		return
	}
	if over && can {
		host.SetPointerAffordance(AffordanceGrab)
		return
	}
	host.SetPointerAffordance(AffordanceNone)
}

// Begin starts a session for item, or returns nil when one cannot start.
func (c *Coordinator[T]) Begin(item T, geometry []ItemGeometry) *SessionHandle[T] {
	h, err := c.TryBegin(item, geometry)
	if err != nil {
		c.logger.Debug("reorder not started", "err", err)
		return nil
	}
	return h
}

// TryBegin is Begin with the reason a session could not start.
func (c *Coordinator[T]) TryBegin(item T, geometry []ItemGeometry) (*SessionHandle[T], error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.busyLocked() {
		c.mu.Unlock()
		return nil, ErrSessionInFlight
	}
	if c.handler == nil {
		c.mu.Unlock()
		return nil, ErrNoHandler
	}
	if !c.handler.CanReorder() {
		c.mu.Unlock()
		return nil, ErrReorderDisabled
	}
	list := c.handler.Items()
	if list == nil {
		c.mu.Unlock()
		return nil, ErrNoHandler
	}
	idx := IndexOf(list, item)
	if idx < 0 {
		c.mu.Unlock()
		return nil, ErrItemNotFound
	}
	snap, err := snapshotGeometry(geometry, list.Len())
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrGeometryUnavailable, err)
	}
	s := newSession(item, idx, snap)
	s.activate()
	c.session = s
	host := c.host
	c.mu.Unlock()

	if host != nil {
		host.SetDragActive(idx, true)
		host.SetPointerAffordance(AffordanceGrabbing)
	}
	c.logger.Debug("reorder started", "index", idx)
	return &SessionHandle[T]{c: c, s: s}, nil
}

// UpdatePointer feeds a pointer position (list coordinates) to the active session.
// It is a no-op unless a session is Active.
func (c *Coordinator[T]) UpdatePointer(y float64) {
	c.mu.Lock()
	s := c.session
	if s == nil || !s.update(y) {
		c.mu.Unlock()
		return
	}
	out := s.outcome()
	fns := append([]func(Outcome[T]){}, c.previewFns...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(out)
	}
}

// Step moves the active session's candidate slot by delta (keyboard reordering).
func (c *Coordinator[T]) Step(delta int) {
	c.mu.Lock()
	s := c.session
	if s == nil || !s.step(delta) {
		c.mu.Unlock()
		return
	}
	out := s.outcome()
	fns := append([]func(Outcome[T]){}, c.previewFns...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(out)
	}
}

// End finishes the active session. A vetoed or no-op session ends without touching the list
// and the returned Completion is already settled. Otherwise the list is moved before End
// returns and the Completion settles when OnReorderCompleted does.
func (c *Coordinator[T]) End(ctx context.Context) *Completion[T] {
	c.mu.Lock()
	s := c.session
	if s == nil || s.state != Active || s.ending {
		c.mu.Unlock()
		return settledCompletion(Outcome[T]{OldIndex: -1, NewIndex: -1})
	}
	s.ending = true
	out := s.outcome()
	fns := append([]func(*CompletingEvent[T]){}, c.completingFns...)
	c.mu.Unlock()

	ev := &CompletingEvent[T]{Outcome: out}
	if out.OldIndex != out.NewIndex {
		for _, fn := range fns {
			fn(ev)
		}
	}

	c.mu.Lock()
	if c.session != s || s.state != Active {
		// A listener cancelled the session.
		c.mu.Unlock()
		return settledCompletion(out)
	}
	host := c.host
	if ev.Cancel || out.OldIndex == out.NewIndex {
		s.abandon()
		c.session = nil
		c.mu.Unlock()
		c.resetHost(host, out.OldIndex)
		if ev.Cancel {
			c.logger.Debug("reorder vetoed", "old", out.OldIndex, "new", out.NewIndex)
		}
		return settledCompletion(out)
	}

	if !s.commit(c.handler.Items()) {
		s.abandon()
		c.session = nil
		c.mu.Unlock()
		c.resetHost(host, out.OldIndex)
		c.logger.Warn("reorder abandoned, list changed during the gesture",
			"item", fmt.Sprint(out.Item), "old", out.OldIndex, "new", out.NewIndex)
		return settledCompletion(out)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pctx, cancel := context.WithTimeout(ctx, c.persistTimeout)
	c.inflight = true
	c.cancelPersist = cancel
	comp := newCompletion(out, true)
	c.mu.Unlock()

	c.resetHost(host, out.OldIndex)
	go c.persist(pctx, cancel, s, comp)
	return comp
}

// MoveTo runs a whole session without a pointer: it begins on item, places the pointer over
// slot to and ends. geometry must be in index order. Headless callers use it so every move
// takes the same path as a drag.
func (c *Coordinator[T]) MoveTo(ctx context.Context, item T, geometry []ItemGeometry, to int) (*Completion[T], error) {
	h, err := c.TryBegin(item, geometry)
	if err != nil {
		return nil, err
	}
	c.UpdatePointer(PointerFor(geometry, h.OriginalIndex(), to))
	return c.End(ctx), nil
}

func (c *Coordinator[T]) persist(ctx context.Context, cancel context.CancelFunc, s *Session[T], comp *Completion[T]) {
	out := comp.outcome
	err := c.callHandler(ctx, out)
	cancel()

	c.mu.Lock()
	cancelled := s.state == Cancelled
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("reorder persistence failed",
			"item", fmt.Sprint(out.Item), "old", out.OldIndex, "new", out.NewIndex, "err", err)
	}
	// Recovery runs before the coordinator goes idle, so no new session sees the list reset.
	if err != nil || cancelled {
		c.runRecovery(out)
	}

	c.mu.Lock()
	s.settle()
	if c.session == s {
		c.session = nil
	}
	c.inflight = false
	c.cancelPersist = nil
	fns := append([]func(Outcome[T], error){}, c.completedFns...)
	c.mu.Unlock()

	if !cancelled {
		for _, fn := range fns {
			fn(out, err)
		}
	}
	comp.settle(err, cancelled)
}

func (c *Coordinator[T]) callHandler(ctx context.Context, out Outcome[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reorder handler panicked: %v", r)
		}
	}()
	return c.handler.OnReorderCompleted(ctx, out.Item, out.OldIndex, out.NewIndex)
}

// runRecovery runs the handler's Refresh step so the list matches the source of truth again.
func (c *Coordinator[T]) runRecovery(out Outcome[T]) {
	r, ok := c.handler.(Refresher)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
	defer cancel()
	if err := r.Refresh(ctx); err != nil {
		c.logger.Error("reorder recovery refresh failed", "old", out.OldIndex, "new", out.NewIndex, "err", err)
	}
}

// Cancel ends the in-flight session, moving the item back if the list was already moved.
// A persistence call that is already running has its context cancelled and is left to settle;
// no completed event is raised for it. Cancel reports whether there was anything to cancel.
func (c *Coordinator[T]) Cancel() bool {
	return c.cancel(true)
}

// cancel is Cancel; with completing false a session whose move is being written is left alone.
func (c *Coordinator[T]) cancel(completing bool) bool {
	c.mu.Lock()
	s := c.session
	if s == nil || (!completing && s.state == Completing) {
		c.mu.Unlock()
		return false
	}
	wasCompleting := s.state == Completing
	if !s.cancel(c.handler.Items()) {
		c.mu.Unlock()
		return false
	}
	if wasCompleting {
		if c.cancelPersist != nil {
			c.cancelPersist()
		}
	} else {
		c.session = nil
	}
	host := c.host
	out := s.outcome()
	c.mu.Unlock()

	c.resetHost(host, out.OldIndex)
	c.logger.Debug("reorder cancelled", "old", out.OldIndex, "new", out.NewIndex, "completing", wasCompleting)
	return true
}

// Close tears the coordinator down: it cancels an Active session, refuses new ones and
// detaches the host. A move that is already being written is kept and its write runs to the
// end; wait on its Completion to know when.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel(false)

	c.mu.Lock()
	c.host = nil
	c.mu.Unlock()
}

func (c *Coordinator[T]) resetHost(host Host, index int) {
	if host == nil {
		return
	}
	host.SetDragActive(index, false)
	host.SetPointerAffordance(AffordanceNone)
}

// SessionHandle is the caller's view of a session started by Begin.
type SessionHandle[T comparable] struct {
	c *Coordinator[T]
	s *Session[T]
}

func (h *SessionHandle[T]) Item() T { return h.s.item }

func (h *SessionHandle[T]) OriginalIndex() int { return h.s.originalIndex }

func (h *SessionHandle[T]) CandidateIndex() int {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.s.candidateIndex
}

func (h *SessionHandle[T]) State() State {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.s.state
}
