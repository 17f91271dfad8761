// Package sortedmap provides a key-ordered map on top of the rbtree engine.
//
// A Map performs no locking. Callers that share a map between goroutines
// guard it themselves, typically with the lock returned by SyncRoot.
// Any insertion or removal invalidates enumerators and sequences that were
// obtained before it; using them afterwards has unspecified results.
package sortedmap

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/Sumatoshi-tech/ordmap/pkg/rbtree"
)

// Sentinel errors returned by keyed operations.
var (
	// ErrKeyNotFound is returned when a lookup or bound query finds no entry.
	ErrKeyNotFound = errors.New("sortedmap: key not found")
	// ErrDuplicateKey is returned by Add when the key is already present.
	ErrDuplicateKey = errors.New("sortedmap: duplicate key")
	// ErrInvalidKey is returned when a nil key is passed to a keyed operation.
	ErrInvalidKey = errors.New("sortedmap: invalid key")
)

// Entry is a key/value pair stored in a Map.
type Entry[K, V any] struct {
	Key   K `json:"key"   yaml:"key"`
	Value V `json:"value" yaml:"value"`
}

// Map is an ordered map with unique keys.
type Map[K, V any] struct {
	tree    *rbtree.Tree[Entry[K, V]]
	compare func(a, b K) int
	mu      sync.Mutex

	// nilableKeys is set when K has a nil value that must be rejected.
	nilableKeys bool
}

// New creates a map ordered by the natural order of K.
func New[K cmp.Ordered, V any]() *Map[K, V] {
	return NewFunc[K, V](cmp.Compare[K])
}

// NewFunc creates a map ordered by compare, which must define a strict total
// order on keys.
func NewFunc[K, V any](compare func(a, b K) int) *Map[K, V] {
	if compare == nil {
		panic("sortedmap: nil compare function")
	}

	return &Map[K, V]{
		tree:        rbtree.NewTree(entryCompare[K, V](compare)),
		compare:     compare,
		nilableKeys: canBeNil(reflect.TypeFor[K]()),
	}
}

// entryCompare lifts a key order to entries. Values never take part.
func entryCompare[K, V any](compare func(a, b K) int) rbtree.Compare[Entry[K, V]] {
	return func(a, b Entry[K, V]) int {
		return compare(a.Key, b.Key)
	}
}

// probe builds the placeholder entry used to search for key.
func probe[K, V any](key K) Entry[K, V] {
	return Entry[K, V]{Key: key}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.tree.Len()
}

// SyncRoot returns a lock callers may use to serialize access to the map.
// The map itself never acquires it.
func (m *Map[K, V]) SyncRoot() sync.Locker {
	return &m.mu
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, error) {
	var zero V

	if !m.validKey(key) {
		return zero, ErrInvalidKey
	}

	iter := m.tree.Find(probe[K, V](key), true)
	if iter.Limit() {
		return zero, fmt.Errorf("get %v: %w", key, ErrKeyNotFound)
	}

	return iter.Item().Value, nil
}

// Set stores value under key. An existing entry keeps its position in the
// tree and only has its value replaced.
func (m *Map[K, V]) Set(key K, value V) error {
	if !m.validKey(key) {
		return ErrInvalidKey
	}

	iter := m.tree.Find(probe[K, V](key), true)
	if !iter.Limit() {
		iter.Item().Value = value

		return nil
	}

	_, err := m.tree.Insert(Entry[K, V]{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("set %v: %w", key, err)
	}

	return nil
}

// Add inserts a new entry. It returns ErrDuplicateKey and leaves the map
// unchanged when key is already present.
func (m *Map[K, V]) Add(key K, value V) error {
	if !m.validKey(key) {
		return ErrInvalidKey
	}

	_, err := m.tree.Insert(Entry[K, V]{Key: key, Value: value})
	if errors.Is(err, rbtree.ErrDuplicateItem) {
		return fmt.Errorf("add %v: %w", key, ErrDuplicateKey)
	}

	return err
}

// Remove deletes the entry stored under key and reports whether it existed.
// Only the engine's "not found" outcome turns into false; any other failure is
// returned as an error.
func (m *Map[K, V]) Remove(key K) (bool, error) {
	if !m.validKey(key) {
		return false, ErrInvalidKey
	}

	err := m.tree.Remove(probe[K, V](key))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, rbtree.ErrItemNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("remove %v: %w", key, err)
	}
}

// ContainsKey reports whether key is present. Nil keys are never present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.TryGetValue(key)

	return ok
}

// TryGetValue returns the value stored under key and whether it was found.
func (m *Map[K, V]) TryGetValue(key K) (V, bool) {
	var zero V

	if !m.validKey(key) {
		return zero, false
	}

	item := m.tree.Find(probe[K, V](key), true).Item()
	if item == nil {
		return zero, false
	}

	return item.Value, true
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.tree.Erase()
}

// Clone returns an independent copy of the map. Values are copied with plain
// assignment.
func (m *Map[K, V]) Clone() *Map[K, V] {
	return &Map[K, V]{
		tree:        m.tree.CloneDeep(rbtree.NewAllocator[Entry[K, V]]()),
		compare:     m.compare,
		nilableKeys: m.nilableKeys,
	}
}

// Min returns the entry with the smallest key.
func (m *Map[K, V]) Min() (Entry[K, V], bool) {
	return entryAt(m.tree.Min())
}

// Max returns the entry with the greatest key.
func (m *Map[K, V]) Max() (Entry[K, V], bool) {
	return entryAt(m.tree.Max())
}

// IsValid reports whether the underlying tree satisfies its invariants.
func (m *Map[K, V]) IsValid() bool {
	return m.tree.IsValid()
}

// Validate describes the first violated invariant of the underlying tree.
func (m *Map[K, V]) Validate() error {
	return m.tree.Validate()
}

// Stats reports the shape of the underlying tree.
func (m *Map[K, V]) Stats() rbtree.Stats {
	return m.tree.Stats()
}

func entryAt[K, V any](iter rbtree.Iterator[Entry[K, V]]) (Entry[K, V], bool) {
	item := iter.Item()
	if item == nil {
		return Entry[K, V]{}, false
	}

	return *item, true
}

// validKey rejects nil pointers, interfaces, maps, slices, funcs and channels.
func (m *Map[K, V]) validKey(key K) bool {
	if !m.nilableKeys {
		return true
	}

	value := reflect.ValueOf(any(key))
	if !value.IsValid() {
		return false
	}

	return !canBeNil(value.Type()) || !value.IsNil()
}

func canBeNil(typ reflect.Type) bool {
	switch typ.Kind() { //nolint:exhaustive // every other kind is never nil.
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}
