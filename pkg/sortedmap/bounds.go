package sortedmap

import (
	"fmt"
	"iter"

	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

// lowerBound positions at the first entry whose key is not less than key.
func (m *Map[K, V]) lowerBound(key K) rbtree.Iterator[Entry[K, V]] {
	return m.tree.Find(probe[K, V](key), false)
}

// upperBound positions at the first entry whose key is greater than key.
func (m *Map[K, V]) upperBound(key K) rbtree.Iterator[Entry[K, V]] {
	pos := m.lowerBound(key)
	if !pos.Limit() && m.compare(pos.Item().Key, key) == 0 {
		pos = pos.Next()
	}

	return pos
}

// LowerBound returns the value of the first entry whose key is >= key.
func (m *Map[K, V]) LowerBound(key K) (V, error) {
	return m.boundValue("lower bound", key, m.lowerBound)
}

// UpperBound returns the value of the first entry whose key is > key.
func (m *Map[K, V]) UpperBound(key K) (V, error) {
	return m.boundValue("upper bound", key, m.upperBound)
}

// TryLowerBound is LowerBound without the error.
func (m *Map[K, V]) TryLowerBound(key K) (V, bool) {
	value, err := m.LowerBound(key)

	return value, err == nil
}

// TryUpperBound is UpperBound without the error.
func (m *Map[K, V]) TryUpperBound(key K) (V, bool) {
	value, err := m.UpperBound(key)

	return value, err == nil
}

func (m *Map[K, V]) boundValue(op string, key K, seek func(K) rbtree.Iterator[Entry[K, V]]) (V, error) {
	var zero V

	if !m.validKey(key) {
		return zero, ErrInvalidKey
	}

	item := seek(key).Item()
	if item == nil {
		return zero, fmt.Errorf("%s %v: %w", op, key, ErrKeyNotFound)
	}

	return item.Value, nil
}

// LowerBoundItems yields, in key order, every entry whose key is >= key.
// Each range loop over the result starts a fresh search.
func (m *Map[K, V]) LowerBoundItems(key K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		drain(m.LowerBoundEnumerator(key), yield)
	}
}

// UpperBoundItems yields, in key order, every entry whose key is > key.
func (m *Map[K, V]) UpperBoundItems(key K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		drain(m.UpperBoundEnumerator(key), yield)
	}
}

// All yields every entry in key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		drain(m.Enumerator(), yield)
	}
}

// Keys yields every key in order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for key := range m.All() {
			if !yield(key) {
				return
			}
		}
	}
}

// Values yields every value in key order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, value := range m.All() {
			if !yield(value) {
				return
			}
		}
	}
}

// Entries copies every entry, in key order, into a new slice.
func (m *Map[K, V]) Entries() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, m.Len())

	for pos := m.tree.Min(); !pos.Limit(); pos = pos.Next() {
		entries = append(entries, *pos.Item())
	}

	return entries
}

func drain[K, V any](enum *Enumerator[K, V], yield func(K, V) bool) {
	for enum.MoveNext() {
		entry, _ := enum.Current()
		if !yield(entry.Key, entry.Value) {
			return
		}
	}
}
