package rbtree

// Iterator allows scanning tree elements in sort order.
//
// Iterator invalidation rule is the same as C++ std::map<>'s. That
// is, if you delete the element that an iterator points to, the
// iterator becomes invalid. For other operation types, the iterator
// remains valid, but pointers returned by Item may not survive an Insert.
type Iterator[T any] struct {
	tree *Tree[T]
	node uint32
}

// Equal reports whether both iterators point to the same node of the same tree.
func (iter Iterator[T]) Equal(other Iterator[T]) bool {
	return iter.tree == other.tree && iter.node == other.node
}

// Limit checks if the iterator points beyond the max element in the tree.
func (iter Iterator[T]) Limit() bool {
	return iter.node == 0
}

// NegativeLimit checks if the iterator points before the minimum element in the tree.
func (iter Iterator[T]) NegativeLimit() bool {
	return iter.node == negativeLimitNode
}

// Min checks if the iterator points to the minimum element in the tree.
func (iter Iterator[T]) Min() bool {
	return iter.node != 0 && iter.node == iter.tree.minNode
}

// Max checks if the iterator points to the maximum element in the tree.
func (iter Iterator[T]) Max() bool {
	return iter.node != 0 && iter.node == iter.tree.maxNode
}

// Item returns the current element. Allows mutating the stored value
// (fields that take part in the comparison must not change!).
//
// The result is nil if iter.Limit() || iter.NegativeLimit().
func (iter Iterator[T]) Item() *T {
	if iter.Limit() || iter.NegativeLimit() {
		return nil
	}

	return &iter.tree.storage()[iter.node].item
}

// Next creates a new iterator that points to the successor of the current element.
//
// REQUIRES: !iter.Limit().
func (iter Iterator[T]) Next() Iterator[T] {
	doAssert(!iter.Limit())

	if iter.NegativeLimit() {
		return Iterator[T]{iter.tree, iter.tree.minNode}
	}

	return Iterator[T]{iter.tree, doNext(iter.node, iter.tree.storage())}
}

// Prev creates a new iterator that points to the predecessor of the current
// node.
//
// REQUIRES: !iter.NegativeLimit().
func (iter Iterator[T]) Prev() Iterator[T] {
	doAssert(!iter.NegativeLimit())

	if iter.Limit() {
		return iter.tree.Max()
	}

	prev := doPrev(iter.node, iter.tree.storage())
	if prev == 0 {
		return iter.tree.NegativeLimit()
	}

	return Iterator[T]{iter.tree, prev}
}
