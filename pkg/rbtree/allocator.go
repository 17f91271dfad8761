package rbtree

import (
	"math"
)

// color of a node. The zero value is red so that fresh nodes are red.
type color bool

const (
	red   color = false
	black color = true
)

// negativeLimitNode is the index reported by NegativeLimit iterators.
// It is never handed out by the allocator.
const negativeLimitNode = math.MaxUint32

type node[T any] struct {
	item   T
	parent uint32
	left   uint32
	right  uint32
	color  color
}

// Allocator is the arena that holds the nodes of one or more trees.
// Index 0 is reserved and stands for "no node".
type Allocator[T any] struct {
	storage []node[T]
	gaps    []uint32
}

// NewAllocator creates a new allocator for tree nodes.
func NewAllocator[T any]() *Allocator[T] {
	return &Allocator[T]{
		storage: []node[T]{},
		gaps:    []uint32{},
	}
}

// Size returns the currently allocated size, including freed slots.
func (allocator *Allocator[T]) Size() int {
	return len(allocator.storage)
}

// Used returns the number of live nodes contained in the allocator.
func (allocator *Allocator[T]) Used() int {
	if len(allocator.storage) == 0 {
		return 0
	}

	// Slot 0 is the reserved nil node.
	return len(allocator.storage) - len(allocator.gaps) - 1
}

func (allocator *Allocator[T]) malloc() uint32 {
	if n := len(allocator.gaps); n > 0 {
		nodeIdx := allocator.gaps[n-1]
		allocator.gaps = allocator.gaps[:n-1]

		return nodeIdx
	}

	nodeLen := len(allocator.storage)
	if nodeLen == 0 {
		// Zero is reserved.
		allocator.storage = append(allocator.storage, node[T]{})
		nodeLen = 1
	}

	if nodeLen >= negativeLimitNode-1 {
		// [math.MaxUint32] is reserved.
		panic("rbtree allocator has reached the maximum value for uint32")
	}

	allocator.storage = append(allocator.storage, node[T]{})

	return uint32(nodeLen) //nolint:gosec // bounded by the check above.
}

func (allocator *Allocator[T]) free(nodeIdx uint32) {
	if nodeIdx == 0 {
		panic("node #0 is special and cannot be deallocated")
	}

	doAssert(int(nodeIdx) < len(allocator.storage))

	// Drop the item so that the arena does not keep references alive.
	allocator.storage[nodeIdx] = node[T]{}
	allocator.gaps = append(allocator.gaps, nodeIdx)
}
