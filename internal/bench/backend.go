// Package bench times the ordered map against other ordered containers.
package bench

import (
	"fmt"

	nvsortedmap "github.com/NVIDIA/sortedmap"
	"github.com/google/btree"

	"github.com/Sumatoshi-tech/ordmap/pkg/config"
	"github.com/Sumatoshi-tech/ordmap/pkg/sortedmap"
)

// Backend is an ordered int container under measurement. Values equal keys.
type Backend interface {
	Name() string
	Put(key int) error
	Get(key int) (int, bool, error)
	Delete(key int) (bool, error)
	// LowerBound returns the smallest key >= key.
	LowerBound(key int) (int, bool, error)
	Len() int
}

// NewBackend constructs the named backend.
func NewBackend(name string, btreeDegree int) (Backend, error) {
	switch name {
	case config.BackendOrdmap:
		return &ordmapBackend{m: sortedmap.New[int, int]()}, nil
	case config.BackendBTree:
		return &btreeBackend{tree: btree.NewOrderedG[int](btreeDegree)}, nil
	case config.BackendLLRB:
		return &llrbBackend{tree: nvsortedmap.NewLLRBTree(nvsortedmap.CompareInt, nil)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, name)
	}
}

type ordmapBackend struct {
	m *sortedmap.Map[int, int]
}

func (b *ordmapBackend) Name() string { return config.BackendOrdmap }

func (b *ordmapBackend) Put(key int) error {
	return b.m.Set(key, key)
}

func (b *ordmapBackend) Get(key int) (int, bool, error) {
	value, ok := b.m.TryGetValue(key)

	return value, ok, nil
}

func (b *ordmapBackend) Delete(key int) (bool, error) {
	return b.m.Remove(key)
}

func (b *ordmapBackend) LowerBound(key int) (int, bool, error) {
	value, ok := b.m.TryLowerBound(key)

	return value, ok, nil
}

func (b *ordmapBackend) Len() int { return b.m.Len() }

type btreeBackend struct {
	tree *btree.BTreeG[int]
}

func (b *btreeBackend) Name() string { return config.BackendBTree }

func (b *btreeBackend) Put(key int) error {
	b.tree.ReplaceOrInsert(key)

	return nil
}

func (b *btreeBackend) Get(key int) (int, bool, error) {
	value, ok := b.tree.Get(key)

	return value, ok, nil
}

func (b *btreeBackend) Delete(key int) (bool, error) {
	_, ok := b.tree.Delete(key)

	return ok, nil
}

func (b *btreeBackend) LowerBound(key int) (int, bool, error) {
	var (
		ceiling int
		found   bool
	)

	b.tree.AscendGreaterOrEqual(key, func(item int) bool {
		ceiling, found = item, true

		return false
	})

	return ceiling, found, nil
}

func (b *btreeBackend) Len() int { return b.tree.Len() }

// llrbBackend wraps the left-leaning red-black tree, whose keys and values
// are untyped.
type llrbBackend struct {
	tree nvsortedmap.LLRBTree
}

func (b *llrbBackend) Name() string { return config.BackendLLRB }

func (b *llrbBackend) Put(key int) error {
	_, err := b.tree.Put(key, key)
	if err != nil {
		return fmt.Errorf("llrb put %d: %w", key, err)
	}

	return nil
}

func (b *llrbBackend) Get(key int) (int, bool, error) {
	value, ok, err := b.tree.GetByKey(key)
	if err != nil {
		return 0, false, fmt.Errorf("llrb get %d: %w", key, err)
	}

	if !ok {
		return 0, false, nil
	}

	return value.(int), true, nil //nolint:forcetypeassert // only ints are stored.
}

func (b *llrbBackend) Delete(key int) (bool, error) {
	ok, err := b.tree.DeleteByKey(key)
	if err != nil {
		return false, fmt.Errorf("llrb delete %d: %w", key, err)
	}

	return ok, nil
}

// LowerBound uses BisectLeft, which reports the index of the match or of the
// last key below it.
func (b *llrbBackend) LowerBound(key int) (int, bool, error) {
	index, found, err := b.tree.BisectLeft(key)
	if err != nil {
		return 0, false, fmt.Errorf("llrb bisect %d: %w", key, err)
	}

	if !found {
		index++
	}

	_, value, ok, err := b.tree.GetByIndex(index)
	if err != nil {
		return 0, false, fmt.Errorf("llrb index %d: %w", index, err)
	}

	if !ok {
		return 0, false, nil
	}

	return value.(int), true, nil //nolint:forcetypeassert // only ints are stored.
}

func (b *llrbBackend) Len() int {
	n, err := b.tree.Len()
	if err != nil {
		return -1
	}

	return n
}
