package sortedmap

import (
	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

// State is the position of an Enumerator.
type State int

// Enumerator states.
const (
	// BeforeStart is the state of a new or reset enumerator.
	BeforeStart State = iota
	// Positioned means Current returns an entry.
	Positioned
	// Exhausted means the enumerator moved past the last entry.
	Exhausted
)

func (s State) String() string {
	switch s {
	case BeforeStart:
		return "before-start"
	case Positioned:
		return "positioned"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Enumerator walks map entries in key order, optionally starting at a bound.
//
// The first MoveNext searches for the starting entry, so a Reset followed by
// MoveNext searches again and picks up entries added in between.
type Enumerator[K, V any] struct {
	seek  func() rbtree.Iterator[Entry[K, V]]
	pos   rbtree.Iterator[Entry[K, V]]
	state State
}

// Enumerator returns an enumerator over every entry.
func (m *Map[K, V]) Enumerator() *Enumerator[K, V] {
	return &Enumerator[K, V]{seek: m.tree.Min}
}

// LowerBoundEnumerator returns an enumerator starting at the first key >= key.
// A nil key yields nothing.
func (m *Map[K, V]) LowerBoundEnumerator(key K) *Enumerator[K, V] {
	return &Enumerator[K, V]{seek: func() rbtree.Iterator[Entry[K, V]] {
		if !m.validKey(key) {
			return m.tree.Limit()
		}

		return m.lowerBound(key)
	}}
}

// UpperBoundEnumerator returns an enumerator starting at the first key > key.
// A nil key yields nothing.
func (m *Map[K, V]) UpperBoundEnumerator(key K) *Enumerator[K, V] {
	return &Enumerator[K, V]{seek: func() rbtree.Iterator[Entry[K, V]] {
		if !m.validKey(key) {
			return m.tree.Limit()
		}

		return m.upperBound(key)
	}}
}

// MoveNext advances to the next entry and reports whether there is one.
func (e *Enumerator[K, V]) MoveNext() bool {
	switch e.state {
	case BeforeStart:
		e.pos = e.seek()
	case Positioned:
		e.pos = e.pos.Next()
	case Exhausted:
		return false
	}

	if e.pos.Limit() {
		e.state = Exhausted

		return false
	}

	e.state = Positioned

	return true
}

// Current returns the entry at the current position. The boolean is false
// unless the enumerator is Positioned.
func (e *Enumerator[K, V]) Current() (Entry[K, V], bool) {
	if e.state != Positioned {
		return Entry[K, V]{}, false
	}

	return *e.pos.Item(), true
}

// Reset moves the enumerator back to BeforeStart.
func (e *Enumerator[K, V]) Reset() {
	e.state = BeforeStart
	e.pos = rbtree.Iterator[Entry[K, V]]{}
}

// State returns the current state.
func (e *Enumerator[K, V]) State() State {
	return e.state
}
