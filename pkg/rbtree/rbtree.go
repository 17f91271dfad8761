// Package rbtree implements an arena-backed red-black tree with an API
// similar to C++ STL's ordered containers.
//
// A Tree is not safe for concurrent use. Callers that share a tree between
// goroutines must guard every access themselves.
package rbtree

import (
	"errors"
)

// Sentinel errors returned by tree mutations.
var (
	// ErrDuplicateItem is returned by Insert when an equal item is already stored.
	ErrDuplicateItem = errors.New("rbtree: duplicate item")
	// ErrItemNotFound is returned by Remove when no equal item is stored.
	ErrItemNotFound = errors.New("rbtree: item not found")
)

// Compare returns a negative number when a < b, zero when a == b and a
// positive number when a > b. It must define a strict total order.
type Compare[T any] func(a, b T) int

// Tree is a red-black tree whose nodes live in an Allocator.
//
// The implementation follows the classic insertion and deletion fixups with
// parent links, so iterators can walk the tree without an explicit stack.
type Tree[T any] struct {
	// Nodes allocator.
	allocator *Allocator[T]

	compare Compare[T]

	// Root of the tree.
	root uint32

	// The minimum and maximum nodes under the tree.
	minNode, maxNode uint32

	// Number of nodes under root, including the root.
	count int
}

// NewTree creates an empty tree with its own allocator.
func NewTree[T any](compare Compare[T]) *Tree[T] {
	return NewTreeWithAllocator(NewAllocator[T](), compare)
}

// NewTreeWithAllocator creates an empty tree whose nodes are taken from allocator.
// Several trees may share one allocator.
func NewTreeWithAllocator[T any](allocator *Allocator[T], compare Compare[T]) *Tree[T] {
	if compare == nil {
		panic("rbtree: nil compare function")
	}

	return &Tree[T]{allocator: allocator, compare: compare}
}

func (tree *Tree[T]) storage() []node[T] {
	return tree.allocator.storage
}

// Allocator returns the bound nodes allocator.
func (tree *Tree[T]) Allocator() *Allocator[T] {
	return tree.allocator
}

// Len returns the number of elements in the tree.
func (tree *Tree[T]) Len() int {
	return tree.count
}

// Find looks up item. With exact set it returns an iterator at the equal
// item or Limit(). Without exact it returns the first item that is not less
// than item, or Limit() when every item is smaller.
func (tree *Tree[T]) Find(item T, exact bool) Iterator[T] {
	nodeIdx, found := tree.findGE(item)
	if exact && !found {
		return tree.Limit()
	}

	return Iterator[T]{tree, nodeIdx}
}

// FindLE returns the greatest item that is not greater than item,
// or NegativeLimit() when every item is greater.
func (tree *Tree[T]) FindLE(item T) Iterator[T] {
	nodeIdx, found := tree.findGE(item)
	if found {
		return Iterator[T]{tree, nodeIdx}
	}

	if nodeIdx == 0 {
		return tree.Max()
	}

	if nodeIdx == tree.minNode {
		return tree.NegativeLimit()
	}

	return Iterator[T]{tree, doPrev(nodeIdx, tree.storage())}
}

// Min returns an iterator at the smallest item, or Limit() for an empty tree.
func (tree *Tree[T]) Min() Iterator[T] {
	return Iterator[T]{tree, tree.minNode}
}

// Max returns an iterator at the greatest item, or NegativeLimit() for an empty tree.
func (tree *Tree[T]) Max() Iterator[T] {
	if tree.maxNode == 0 {
		return tree.NegativeLimit()
	}

	return Iterator[T]{tree, tree.maxNode}
}

// First is an alias of Min.
func (tree *Tree[T]) First() Iterator[T] {
	return tree.Min()
}

// Last is an alias of Max.
func (tree *Tree[T]) Last() Iterator[T] {
	return tree.Max()
}

// Limit returns the iterator one past the greatest item.
func (tree *Tree[T]) Limit() Iterator[T] {
	return Iterator[T]{tree, 0}
}

// NegativeLimit returns the iterator one before the smallest item.
func (tree *Tree[T]) NegativeLimit() Iterator[T] {
	return Iterator[T]{tree, negativeLimitNode}
}

// Insert adds item to the tree and returns an iterator at it.
// If an equal item is already stored the tree is left unchanged and
// ErrDuplicateItem is returned together with an iterator at that item.
func (tree *Tree[T]) Insert(item T) (Iterator[T], error) {
	nodeIdx, inserted := tree.doInsert(item)
	if !inserted {
		return Iterator[T]{tree, nodeIdx}, ErrDuplicateItem
	}

	tree.fixupInsert(nodeIdx)
	tree.count++

	return Iterator[T]{tree, nodeIdx}, nil
}

// Remove deletes the item equal to item.
// It returns ErrItemNotFound when there is no such item.
func (tree *Tree[T]) Remove(item T) error {
	nodeIdx, found := tree.findGE(item)
	if !found {
		return ErrItemNotFound
	}

	tree.doDelete(nodeIdx)

	return nil
}

// RemoveAt deletes the item referenced by iter.
// The iterator and every other iterator at the same item become invalid.
func (tree *Tree[T]) RemoveAt(iter Iterator[T]) {
	doAssert(iter.tree == tree)
	doAssert(!iter.Limit() && !iter.NegativeLimit())

	tree.doDelete(iter.node)
}

// Erase removes all the nodes from the tree and returns them to the allocator.
func (tree *Tree[T]) Erase() {
	if tree.root == 0 {
		return
	}

	storage := tree.storage()
	stack := make([]uint32, 0, 64)
	stack = append(stack, tree.root)

	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if left := storage[nodeIdx].left; left != 0 {
			stack = append(stack, left)
		}

		if right := storage[nodeIdx].right; right != 0 {
			stack = append(stack, right)
		}

		tree.allocator.free(nodeIdx)
	}

	tree.root = 0
	tree.minNode = 0
	tree.maxNode = 0
	tree.count = 0
}

// CloneDeep copies the tree into allocator. The nodes are created from scratch
// and the item values are copied with plain assignment.
func (tree *Tree[T]) CloneDeep(allocator *Allocator[T]) *Tree[T] {
	clone := &Tree[T]{allocator: allocator, compare: tree.compare, count: tree.count}
	if tree.root == 0 {
		return clone
	}

	nodeMap := make(map[uint32]uint32, tree.count+1)
	nodeMap[0] = 0

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		nodeMap[iter.node] = allocator.malloc()
	}

	originStorage := tree.storage()
	cloneStorage := allocator.storage

	for origin, copied := range nodeMap {
		if origin == 0 {
			continue
		}

		originNode := originStorage[origin]
		cloneStorage[copied] = node[T]{
			item:   originNode.item,
			parent: nodeMap[originNode.parent],
			left:   nodeMap[originNode.left],
			right:  nodeMap[originNode.right],
			color:  originNode.color,
		}
	}

	clone.root = nodeMap[tree.root]
	clone.minNode = nodeMap[tree.minNode]
	clone.maxNode = nodeMap[tree.maxNode]

	return clone
}

func doAssert(condition bool) {
	if !condition {
		panic("rbtree internal assertion failed")
	}
}

// findGE descends from the root remembering the last node where the search
// went left. That node is the lower bound when no equal item exists.
func (tree *Tree[T]) findGE(item T) (nodeIdx uint32, found bool) {
	storage := tree.storage()
	candidate := uint32(0)
	cursor := tree.root

	for cursor != 0 {
		comp := tree.compare(item, storage[cursor].item)

		switch {
		case comp == 0:
			return cursor, true
		case comp < 0:
			candidate = cursor
			cursor = storage[cursor].left
		default:
			cursor = storage[cursor].right
		}
	}

	return candidate, false
}

// doInsert links a new red leaf holding item. It returns the existing node and
// false when an equal item is already stored.
func (tree *Tree[T]) doInsert(item T) (uint32, bool) {
	if tree.root == 0 {
		nodeIdx := tree.allocator.malloc()
		tree.storage()[nodeIdx].item = item
		tree.root = nodeIdx
		tree.minNode = nodeIdx
		tree.maxNode = nodeIdx

		return nodeIdx, true
	}

	parent := tree.root
	goLeft := false

	for {
		parentNode := tree.storage()[parent]
		comp := tree.compare(item, parentNode.item)

		if comp == 0 {
			return parent, false
		}

		goLeft = comp < 0

		next := parentNode.right
		if goLeft {
			next = parentNode.left
		}

		if next == 0 {
			break
		}

		parent = next
	}

	nodeIdx := tree.allocator.malloc()
	storage := tree.storage()
	storage[nodeIdx].item = item
	storage[nodeIdx].parent = parent

	if goLeft {
		storage[parent].left = nodeIdx

		if parent == tree.minNode {
			tree.minNode = nodeIdx
		}
	} else {
		storage[parent].right = nodeIdx

		if parent == tree.maxNode {
			tree.maxNode = nodeIdx
		}
	}

	return nodeIdx, true
}

// doDelete unlinks nodeIdx, rebalances and frees the node.
func (tree *Tree[T]) doDelete(nodeIdx uint32) {
	storage := tree.storage()

	if nodeIdx == tree.minNode {
		tree.minNode = doNext(nodeIdx, storage)
	}

	if nodeIdx == tree.maxNode {
		tree.maxNode = doPrev(nodeIdx, storage)
	}

	if storage[nodeIdx].left != 0 && storage[nodeIdx].right != 0 {
		tree.swapWithPredecessor(nodeIdx)
	}

	child := storage[nodeIdx].left
	if child == 0 {
		child = storage[nodeIdx].right
	}

	if storage[nodeIdx].color == black {
		if getColor(child, storage) == red {
			storage[child].color = black
		} else {
			// A black node with a single black child cannot exist, so nodeIdx is a leaf.
			doAssert(child == 0)
			tree.fixupDelete(nodeIdx)
		}
	}

	tree.replaceNode(nodeIdx, child)
	tree.allocator.free(nodeIdx)
	tree.count--
}

// swapWithPredecessor exchanges the tree positions of nodeIdx and its in-order
// predecessor, the rightmost node of its left subtree. Items stay with their
// nodes, so iterators at the predecessor remain valid.
func (tree *Tree[T]) swapWithPredecessor(nodeIdx uint32) {
	storage := tree.storage()
	pred := maxPredecessor(nodeIdx, storage)
	doAssert(pred != 0 && storage[pred].right == 0)

	left := storage[nodeIdx].left
	right := storage[nodeIdx].right
	nodeColor := storage[nodeIdx].color
	predParent := storage[pred].parent
	predLeft := storage[pred].left
	predColor := storage[pred].color

	// The predecessor takes the place of nodeIdx.
	tree.replaceNode(nodeIdx, pred)
	storage[pred].right = right
	storage[right].parent = pred
	storage[pred].color = nodeColor

	if predParent == nodeIdx {
		storage[pred].left = nodeIdx
		storage[nodeIdx].parent = pred
	} else {
		storage[pred].left = left
		storage[left].parent = pred
		storage[predParent].right = nodeIdx
		storage[nodeIdx].parent = predParent
	}

	// nodeIdx takes the old place of the predecessor.
	storage[nodeIdx].left = predLeft
	storage[nodeIdx].right = 0

	if predLeft != 0 {
		storage[predLeft].parent = nodeIdx
	}

	storage[nodeIdx].color = predColor
}
