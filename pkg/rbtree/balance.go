package rbtree

// fixupInsert restores the red-black properties after nodeIdx was linked as a red leaf.
func (tree *Tree[T]) fixupInsert(nodeIdx uint32) {
	storage := tree.storage()

	for {
		parent := storage[nodeIdx].parent
		if parent == 0 {
			storage[nodeIdx].color = black

			return
		}

		if storage[parent].color == black {
			return
		}

		grandparent := storage[parent].parent
		if grandparent == 0 {
			storage[parent].color = black

			return
		}

		uncle := sibling(parent, storage)
		if getColor(uncle, storage) == red {
			storage[parent].color = black
			storage[uncle].color = black
			storage[grandparent].color = red
			nodeIdx = grandparent

			continue
		}

		// Zig-zag: turn it into a zig-zig first.
		if nodeIdx == storage[parent].right && parent == storage[grandparent].left {
			tree.rotateLeft(parent)
			nodeIdx = parent
			parent = storage[nodeIdx].parent
		} else if nodeIdx == storage[parent].left && parent == storage[grandparent].right {
			tree.rotateRight(parent)
			nodeIdx = parent
			parent = storage[nodeIdx].parent
		}

		storage[parent].color = black
		storage[grandparent].color = red

		if nodeIdx == storage[parent].left {
			tree.rotateRight(grandparent)
		} else {
			tree.rotateLeft(grandparent)
		}

		return
	}
}

// fixupDelete rebalances around nodeIdx, a black leaf that is about to be
// unlinked. The node stays in place while the fixup runs and carries the
// missing black.
func (tree *Tree[T]) fixupDelete(nodeIdx uint32) {
	storage := tree.storage()

	for nodeIdx != tree.root && storage[nodeIdx].color == black {
		parent := storage[nodeIdx].parent
		isLeft := nodeIdx == storage[parent].left

		sib := sibling(nodeIdx, storage)
		doAssert(sib != 0)

		if storage[sib].color == red {
			storage[sib].color = black
			storage[parent].color = red
			tree.rotateDirection(parent, isLeft)
			sib = sibling(nodeIdx, storage)
		}

		near, far := storage[sib].left, storage[sib].right
		if !isLeft {
			near, far = far, near
		}

		if getColor(near, storage) == black && getColor(far, storage) == black {
			storage[sib].color = red

			if storage[parent].color == red {
				storage[parent].color = black

				return
			}

			nodeIdx = parent

			continue
		}

		if getColor(far, storage) == black {
			storage[near].color = black
			storage[sib].color = red
			tree.rotateDirection(sib, !isLeft)
			sib = sibling(nodeIdx, storage)

			far = storage[sib].right
			if !isLeft {
				far = storage[sib].left
			}
		}

		storage[sib].color = storage[parent].color
		storage[parent].color = black
		storage[far].color = black
		tree.rotateDirection(parent, isLeft)

		return
	}

	storage[nodeIdx].color = black
}

// replaceNode puts newn where oldn hangs from its parent.
func (tree *Tree[T]) replaceNode(oldn, newn uint32) {
	storage := tree.storage()
	parent := storage[oldn].parent

	switch {
	case parent == 0:
		tree.root = newn
	case oldn == storage[parent].left:
		storage[parent].left = newn
	default:
		storage[parent].right = newn
	}

	if newn != 0 {
		storage[newn].parent = parent
	}
}

// rotateDirection performs a tree rotation in the specified direction.
// IsLeft=true performs left rotation, isLeft=false performs right rotation.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
//
//nolint:dupword // ASCII art diagrams contain intentional repeated letters.
func (tree *Tree[T]) rotateDirection(pivot uint32, isLeft bool) {
	storage := tree.storage()

	child := storage[pivot].left
	if isLeft {
		child = storage[pivot].right
	}

	// The pivot must have a child on the side that moves up.
	doAssert(child != 0)

	var inner uint32
	if isLeft {
		inner = storage[child].left
		storage[pivot].right = inner
	} else {
		inner = storage[child].right
		storage[pivot].left = inner
	}

	if inner != 0 {
		storage[inner].parent = pivot
	}

	tree.replaceNode(pivot, child)

	if isLeft {
		storage[child].left = pivot
	} else {
		storage[child].right = pivot
	}

	storage[pivot].parent = child
}

func (tree *Tree[T]) rotateLeft(nodeIdx uint32) {
	tree.rotateDirection(nodeIdx, true)
}

func (tree *Tree[T]) rotateRight(nodeIdx uint32) {
	tree.rotateDirection(nodeIdx, false)
}

// getColor treats the nil node as black.
func getColor[T any](nodeIdx uint32, storage []node[T]) color {
	if nodeIdx == 0 {
		return black
	}

	return storage[nodeIdx].color
}

func isLeftChild[T any](nodeIdx uint32, storage []node[T]) bool {
	return nodeIdx == storage[storage[nodeIdx].parent].left
}

func sibling[T any](nodeIdx uint32, storage []node[T]) uint32 {
	parent := storage[nodeIdx].parent
	if nodeIdx == storage[parent].left {
		return storage[parent].right
	}

	return storage[parent].left
}

// doNext returns the in-order successor of nodeIdx, or 0.
func doNext[T any](nodeIdx uint32, storage []node[T]) uint32 {
	if storage[nodeIdx].right != 0 {
		cursor := storage[nodeIdx].right

		for storage[cursor].left != 0 {
			cursor = storage[cursor].left
		}

		return cursor
	}

	for nodeIdx != 0 {
		parent := storage[nodeIdx].parent
		if parent == 0 {
			return 0
		}

		if isLeftChild(nodeIdx, storage) {
			return parent
		}

		nodeIdx = parent
	}

	return 0
}

// doPrev returns the in-order predecessor of nodeIdx, or 0.
func doPrev[T any](nodeIdx uint32, storage []node[T]) uint32 {
	if storage[nodeIdx].left != 0 {
		return maxPredecessor(nodeIdx, storage)
	}

	for nodeIdx != 0 {
		parent := storage[nodeIdx].parent
		if parent == 0 {
			return 0
		}

		if !isLeftChild(nodeIdx, storage) {
			return parent
		}

		nodeIdx = parent
	}

	return 0
}

// maxPredecessor returns the rightmost node of the left subtree of nodeIdx.
func maxPredecessor[T any](nodeIdx uint32, storage []node[T]) uint32 {
	cursor := storage[nodeIdx].left
	if cursor == 0 {
		return 0
	}

	for storage[cursor].right != 0 {
		cursor = storage[cursor].right
	}

	return cursor
}
