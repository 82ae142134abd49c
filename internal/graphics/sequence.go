package graphics

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
)

var sequenceIDs atomic.Uint64

// Sequence is an ordered list of graphics elements addressed by
// generation-tagged positions. Order is paint order: index 0 is painted
// first and lies lowest in z-order.
//
// A Sequence is not safe for concurrent use.
type Sequence struct {
	id    uint64
	store Store
	elems []*Element
	gen   uint64
	dirty bool
}

// New creates a sequence bound to store and populated from store.Load
func New(ctx context.Context, store Store) (*Sequence, error) {
	elems, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load elements: %w", err)
	}
	return &Sequence{
		id:    sequenceIDs.Add(1),
		store: store,
		elems: elems,
		gen:   1,
	}, nil
}

// Generation returns the current generation
func (s *Sequence) Generation() uint64 {
	return s.gen
}

// Dirty reports whether the sequence was mutated since it was loaded or last committed
func (s *Sequence) Dirty() bool {
	return s.dirty
}

// MarkDirty records a content change made to an element in place, such as
// committing the children of a container. The generation is unchanged.
func (s *Sequence) MarkDirty() {
	s.dirty = true
}

// Count returns the number of elements, regardless of kind
func (s *Sequence) Count() int {
	return len(s.elems)
}

// Elements returns the elements in paint order. The slice is a copy.
func (s *Sequence) Elements() []*Element {
	return slices.Clone(s.elems)
}

func (s *Sequence) position(slot int) Position {
	return Position{owner: s.id, gen: s.gen, slot: slot}
}

func (s *Sequence) valid(p Position) bool {
	return p.owner == s.id && p.gen == s.gen && p.slot >= 0 && p.slot < len(s.elems)
}

// ID identifies the sequence within the process. It is the first field of
// every position token the sequence issues.
func (s *Sequence) ID() uint64 {
	return s.id
}

// PositionAt rebuilds the position of a parsed token. It fails with
// ErrInvalidPosition unless the token was issued by this sequence in the
// current generation and its index is in range.
func (s *Sequence) PositionAt(tok Token) (Position, error) {
	if tok.Sequence != s.id {
		return NoPosition, fmt.Errorf("%w: %d:%d:%d was issued by another sequence", ErrInvalidPosition, tok.Sequence, tok.Generation, tok.Index)
	}
	p := Position{owner: s.id, gen: tok.Generation, slot: tok.Index}
	if !s.valid(p) {
		return NoPosition, fmt.Errorf("%w: %s (current generation %d, %d elements)", ErrInvalidPosition, p, s.gen, len(s.elems))
	}
	return p, nil
}

// First returns the position of the first element matching f
func (s *Sequence) First(f Filter) (Position, bool) {
	return s.scanForward(0, f)
}

// Last returns the position of the last element matching f
func (s *Sequence) Last(f Filter) (Position, bool) {
	return s.scanBackward(len(s.elems)-1, f)
}

// Next returns the position of the next element after p matching f.
// It panics with *UsageError if p is not a position of the current generation.
func (s *Sequence) Next(p Position, f Filter) (Position, bool) {
	s.mustValid("Next", p)
	return s.scanForward(p.slot+1, f)
}

// Prev returns the position of the previous element before p matching f.
// It panics with *UsageError if p is not a position of the current generation.
func (s *Sequence) Prev(p Position, f Filter) (Position, bool) {
	s.mustValid("Prev", p)
	return s.scanBackward(p.slot-1, f)
}

func (s *Sequence) scanForward(from int, f Filter) (Position, bool) {
	for i := from; i < len(s.elems); i++ {
		if f.Match(s.elems[i].Kind()) {
			return s.position(i), true
		}
	}
	return NoPosition, false
}

func (s *Sequence) scanBackward(from int, f Filter) (Position, bool) {
	for i := from; i >= 0; i-- {
		if f.Match(s.elems[i].Kind()) {
			return s.position(i), true
		}
	}
	return NoPosition, false
}

func (s *Sequence) mustValid(op string, p Position) {
	if s.valid(p) {
		return
	}
	reason := "position is out of range"
	switch {
	case p.IsNone():
		reason = "position is none"
	case p.owner != s.id:
		reason = "position belongs to another sequence"
	case p.gen != s.gen:
		reason = fmt.Sprintf("position is stale, current generation is %d", s.gen)
	}
	panic(&UsageError{Op: op, Position: p, Reason: reason})
}

// Get dereferences a position
func (s *Sequence) Get(p Position) (*Element, error) {
	if !s.valid(p) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPosition, p)
	}
	return s.elems[p.slot], nil
}

// At returns the element at a 0-based index
func (s *Sequence) At(index int) (*Element, error) {
	if index < 0 || index >= len(s.elems) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(s.elems))
	}
	return s.elems[index], nil
}

// IndexOf returns the index of e, or -1 if e is not a member
func (s *Sequence) IndexOf(e *Element) int {
	if e == nil {
		return -1
	}
	return slices.Index(s.elems, e)
}

// PositionOf returns the current position of e
func (s *Sequence) PositionOf(e *Element) (Position, bool) {
	i := s.IndexOf(e)
	if i < 0 {
		return NoPosition, false
	}
	return s.position(i), true
}

// Each calls fn for every element matching f in paint order until fn returns false.
// fn must not mutate the sequence.
func (s *Sequence) Each(f Filter, fn func(Position, *Element) bool) {
	for i, e := range s.elems {
		if f.Match(e.Kind()) && !fn(s.position(i), e) {
			return
		}
	}
}

func (s *Sequence) advance() {
	s.gen++
	s.dirty = true
}

// InsertAfter inserts e immediately after the element at p. NoPosition
// inserts at the front, index 0. Every previously issued position is
// invalid afterwards.
func (s *Sequence) InsertAfter(p Position, e *Element) (Position, error) {
	if e == nil {
		return NoPosition, ErrNilElement
	}
	if s.IndexOf(e) >= 0 {
		return NoPosition, ErrDuplicateElement
	}

	at := 0
	if !p.IsNone() {
		if !s.valid(p) {
			return NoPosition, fmt.Errorf("%w: insert anchor %s", ErrInvalidPosition, p)
		}
		at = p.slot + 1
	}

	s.elems = slices.Insert(s.elems, at, e)
	s.advance()
	return s.position(at), nil
}

// Remove removes e. It returns false if e is not a member.
func (s *Sequence) Remove(e *Element) bool {
	i := s.IndexOf(e)
	if i < 0 {
		return false
	}
	s.elems = slices.Delete(s.elems, i, i+1)
	s.advance()
	return true
}

// RemoveAt removes the element at p. It returns false if p is not a
// position of the current generation.
func (s *Sequence) RemoveAt(p Position) bool {
	if !s.valid(p) {
		return false
	}
	s.elems = slices.Delete(s.elems, p.slot, p.slot+1)
	s.advance()
	return true
}

// MoveAfter moves the element at cur to immediately after the element at
// target, or to the front when target is NoPosition. It returns the
// element's new position.
func (s *Sequence) MoveAfter(cur, target Position) (Position, error) {
	if !s.valid(cur) {
		return NoPosition, fmt.Errorf("%w: move source %s", ErrInvalidPosition, cur)
	}
	if !target.IsNone() && !s.valid(target) {
		return NoPosition, fmt.Errorf("%w: move target %s", ErrInvalidPosition, target)
	}

	moved := s.elems[cur.slot]
	var anchor *Element
	if !target.IsNone() {
		anchor = s.elems[target.slot]
	}

	if anchor == moved {
		s.advance()
		return s.position(cur.slot), nil
	}

	s.elems = slices.Delete(s.elems, cur.slot, cur.slot+1)
	at := 0
	if anchor != nil {
		at = slices.Index(s.elems, anchor) + 1
	}
	s.elems = slices.Insert(s.elems, at, moved)
	s.advance()
	return s.position(at), nil
}

// Commit writes the elements to the backing store. On failure the
// sequence, its generation and its dirty flag are left unchanged.
func (s *Sequence) Commit(ctx context.Context, opt MergeOption) error {
	if err := s.store.Save(ctx, slices.Clone(s.elems), opt); err != nil {
		return &CommitError{Generation: s.gen, Err: err}
	}
	s.gen++
	s.dirty = false
	return nil
}

// Reload discards the in-memory order and imports the elements again from
// the store. Positions and element references obtained earlier are stale.
func (s *Sequence) Reload(ctx context.Context) error {
	elems, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload elements: %w", err)
	}
	s.elems = elems
	s.gen++
	s.dirty = false
	return nil
}
