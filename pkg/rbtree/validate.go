package rbtree

import (
	"errors"
	"fmt"
)

// ErrCorrupted is wrapped by every error returned from Validate.
var ErrCorrupted = errors.New("rbtree: invariant violated")

// Stats describes the shape of a tree.
type Stats struct {
	Len           int `json:"len"            yaml:"len"`
	Height        int `json:"height"         yaml:"height"`
	BlackHeight   int `json:"black_height"   yaml:"black_height"`
	AllocatorSize int `json:"allocator_size" yaml:"allocator_size"`
	AllocatorUsed int `json:"allocator_used" yaml:"allocator_used"`
}

type validateFrame struct {
	node   uint32
	blacks int
}

// IsValid reports whether every red-black and bookkeeping invariant holds.
// It never panics, even on a corrupted structure.
func (tree *Tree[T]) IsValid() bool {
	return tree.Validate() == nil
}

// Validate checks the tree and describes the first violated invariant:
// BST order, no red node with a red child, equal black height on every path,
// a parentless root, consistent parent links, the cached count and the cached
// minimum and maximum. The traversal is iterative.
func (tree *Tree[T]) Validate() error {
	storage := tree.storage()

	if tree.root == 0 {
		if tree.count != 0 {
			return fmt.Errorf("%w: empty tree reports %d items", ErrCorrupted, tree.count)
		}

		if tree.minNode != 0 || tree.maxNode != 0 {
			return fmt.Errorf("%w: empty tree has cached bounds", ErrCorrupted)
		}

		return nil
	}

	if !inStorage(tree.root, storage) {
		return fmt.Errorf("%w: root %d is outside the allocator", ErrCorrupted, tree.root)
	}

	if storage[tree.root].parent != 0 {
		return fmt.Errorf("%w: root %d has parent %d", ErrCorrupted, tree.root, storage[tree.root].parent)
	}

	err := tree.validateLinks(storage)
	if err != nil {
		return err
	}

	return tree.validateOrder(storage)
}

func (tree *Tree[T]) validateLinks(storage []node[T]) error {
	blackHeight := -1
	visited := 0
	stack := []validateFrame{{node: tree.root}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visited++
		if visited > tree.count {
			return fmt.Errorf("%w: more than %d reachable nodes", ErrCorrupted, tree.count)
		}

		current := storage[frame.node]

		blacks := frame.blacks
		if current.color == black {
			blacks++
		}

		for _, child := range [2]uint32{current.left, current.right} {
			if child == 0 {
				if blackHeight < 0 {
					blackHeight = blacks
				} else if blackHeight != blacks {
					return fmt.Errorf("%w: black height %d below node %d, expected %d",
						ErrCorrupted, blacks, frame.node, blackHeight)
				}

				continue
			}

			if !inStorage(child, storage) {
				return fmt.Errorf("%w: node %d links to %d outside the allocator", ErrCorrupted, frame.node, child)
			}

			if storage[child].parent != frame.node {
				return fmt.Errorf("%w: node %d has parent %d, expected %d",
					ErrCorrupted, child, storage[child].parent, frame.node)
			}

			if current.color == red && storage[child].color == red {
				return fmt.Errorf("%w: red node %d has red child %d", ErrCorrupted, frame.node, child)
			}

			stack = append(stack, validateFrame{node: child, blacks: blacks})
		}
	}

	if visited != tree.count {
		return fmt.Errorf("%w: %d reachable nodes, count is %d", ErrCorrupted, visited, tree.count)
	}

	return nil
}

// validateOrder walks the tree in order with an explicit stack. It relies on
// validateLinks having ruled out cycles.
func (tree *Tree[T]) validateOrder(storage []node[T]) error {
	var (
		stack = make([]uint32, 0, 64)
		prev  uint32
		first uint32
	)

	cursor := tree.root

	for cursor != 0 || len(stack) > 0 {
		for cursor != 0 {
			stack = append(stack, cursor)
			cursor = storage[cursor].left
		}

		cursor = stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if prev == 0 {
			first = cursor
		} else if tree.compare(storage[prev].item, storage[cursor].item) >= 0 {
			return fmt.Errorf("%w: node %d is not ordered after node %d", ErrCorrupted, cursor, prev)
		}

		prev = cursor
		cursor = storage[cursor].right
	}

	if first != tree.minNode {
		return fmt.Errorf("%w: cached minimum %d, actual %d", ErrCorrupted, tree.minNode, first)
	}

	if prev != tree.maxNode {
		return fmt.Errorf("%w: cached maximum %d, actual %d", ErrCorrupted, tree.maxNode, prev)
	}

	return nil
}

// Stats reports the height and black height of the tree along with the
// allocator occupancy.
func (tree *Tree[T]) Stats() Stats {
	stats := Stats{
		Len:           tree.count,
		AllocatorSize: tree.allocator.Size(),
		AllocatorUsed: tree.allocator.Used(),
	}

	if tree.root == 0 {
		return stats
	}

	storage := tree.storage()

	for cursor := tree.root; cursor != 0; cursor = storage[cursor].left {
		if storage[cursor].color == black {
			stats.BlackHeight++
		}
	}

	type depthFrame struct {
		node  uint32
		depth int
	}

	stack := []depthFrame{{node: tree.root, depth: 1}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		stats.Height = max(stats.Height, frame.depth)

		if left := storage[frame.node].left; left != 0 {
			stack = append(stack, depthFrame{node: left, depth: frame.depth + 1})
		}

		if right := storage[frame.node].right; right != 0 {
			stack = append(stack, depthFrame{node: right, depth: frame.depth + 1})
		}
	}

	return stats
}

func inStorage[T any](nodeIdx uint32, storage []node[T]) bool {
	return nodeIdx != 0 && int(nodeIdx) < len(storage)
}
