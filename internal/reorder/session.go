package reorder

// State is the lifecycle stage of a drag session.
type State int

const (
	Idle State = iota
	Active
	Completing
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Completing:
		return "completing"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome describes a (proposed or committed) move of one item.
type Outcome[T any] struct {
	Item     T
	OldIndex int
	NewIndex int
}

// Session is the state of one reorder gesture. It is created per gesture and never reused.
// A Session is not safe for concurrent use; the Coordinator serializes access to it.
type Session[T comparable] struct {
	item           T
	originalIndex  int
	candidateIndex int
	geometry       []ItemGeometry
	state          State
	// mutated is set once the move has been applied to the list.
	mutated bool
	// ending freezes the candidate while completing listeners run.
	ending bool
}

func newSession[T comparable](item T, index int, geometry []ItemGeometry) *Session[T] {
	return &Session[T]{
		item:           item,
		originalIndex:  index,
		candidateIndex: index,
		geometry:       geometry,
		state:          Idle,
	}
}

func (s *Session[T]) Item() T             { return s.item }
func (s *Session[T]) OriginalIndex() int  { return s.originalIndex }
func (s *Session[T]) CandidateIndex() int { return s.candidateIndex }
func (s *Session[T]) State() State        { return s.state }

func (s *Session[T]) activate() bool {
	if s.state != Idle {
		return false
	}
	s.state = Active
	return true
}

// update recomputes the candidate slot for pointerY and reports whether it changed.
func (s *Session[T]) update(pointerY float64) bool {
	if s.state != Active || s.ending {
		return false
	}
	next := ComputeTargetIndex(pointerY, s.geometry, s.originalIndex)
	if next < 0 || next >= len(s.geometry) || next == s.candidateIndex {
		return false
	}
	s.candidateIndex = next
	return true
}

// step moves the candidate by delta slots, clamped to the list bounds.
func (s *Session[T]) step(delta int) bool {
	if s.state != Active || s.ending || len(s.geometry) == 0 {
		return false
	}
	next := s.candidateIndex + delta
	if next < 0 {
		next = 0
	}
	if next >= len(s.geometry) {
		next = len(s.geometry) - 1
	}
	if next == s.candidateIndex {
		return false
	}
	s.candidateIndex = next
	return true
}

func (s *Session[T]) outcome() Outcome[T] {
	return Outcome[T]{Item: s.item, OldIndex: s.originalIndex, NewIndex: s.candidateIndex}
}

// commit applies the move to list and enters Completing. It refuses when the list no
// longer matches the snapshot taken at Begin, since the indices would then name another item.
func (s *Session[T]) commit(list List[T]) bool {
	if s.state != Active || s.originalIndex == s.candidateIndex {
		return false
	}
	if !s.matches(list) {
		return false
	}
	list.Move(s.originalIndex, s.candidateIndex)
	s.mutated = true
	s.state = Completing
	return true
}

// matches reports whether list still has the length and the dragged item's position the
// session started with.
func (s *Session[T]) matches(list List[T]) bool {
	return list != nil && list.Len() == len(s.geometry) && list.At(s.originalIndex) == s.item
}

// abandon ends an Active session without touching the list.
func (s *Session[T]) abandon() bool {
	if s.state != Active {
		return false
	}
	s.state = Cancelled
	return true
}

// cancel ends an Active or Completing session, undoing the move if it was applied.
func (s *Session[T]) cancel(list List[T]) bool {
	if s.state != Active && s.state != Completing {
		return false
	}
	if s.mutated && list != nil {
		at := s.candidateIndex
		if at >= list.Len() || list.At(at) != s.item {
			at = IndexOf(list, s.item)
		}
		if at >= 0 && at != s.originalIndex && s.originalIndex < list.Len() {
			list.Move(at, s.originalIndex)
		}
		s.mutated = false
	}
	s.state = Cancelled
	return true
}

// settle returns a Completing session to Idle once persistence has resolved.
func (s *Session[T]) settle() bool {
	if s.state != Completing {
		return false
	}
	s.state = Idle
	return true
}
