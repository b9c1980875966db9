// Package set implements a crit-bit tree over byte strings: an ordered
// set supporting exact membership, insertion, deletion, prefix
// enumeration and bulk clearing. Branch nodes and key copies are
// separately allocated through the Allocator supplied at construction.
package set

import "bytes"

// Ref holds either an owned leaf key or a Node pointer.
type ref struct {
	key  []byte
	node *Node
}

// Node is an internal branch. off is the offset of the first byte at
// which keys below diverge; bits has every bit set except the critical
// one. The reserved prefixMask value marks a branch where the key on
// side 0 is a strict prefix of every key on side 1.
type Node struct {
	child [2]ref
	off   int
	bits  byte
}

const prefixMask = 0xff

// dir calculates the direction for the given key. A key too short to
// have a byte at n.off goes to side 0, where the shorter/prefix leaf
// lives.
func (n *Node) dir(key []byte) int {
	if n.off < len(key) {
		return (1 + int(n.bits|key[n.off])) >> 8
	}
	return 0
}

// rank orders masks along a path: incrementing mod 256 maps the prefix
// mask to zero, below every real mask, without reordering the rest.
func rank(bits byte) int {
	return (int(bits) + 1) & 0xff
}

type Set struct {
	size  int
	root  ref
	alloc Allocator
}

// InitSet initializes a set in place with the given allocator (nil for
// the default heap one) and inserts the initial keys, skipping
// duplicates and any the allocator refuses.
func InitSet(set *Set, alloc Allocator, keys ...[]byte) *Set {
	if alloc == nil {
		alloc = heapAlloc{}
	}
	*set = Set{alloc: alloc}
	for _, key := range keys {
		set.Insert(key)
	}
	return set
}

// NewSet returns an empty set backed by the heap allocator.
func NewSet(keys ...[]byte) *Set {
	return InitSet(&Set{}, nil, keys...)
}

// NewSetAlloc returns an empty set backed by the given allocator.
func NewSetAlloc(alloc Allocator, keys ...[]byte) *Set {
	return InitSet(&Set{}, alloc, keys...)
}

// Len returns the number of keys in the tree.
func (t *Set) Len() int {
	return t.size
}

func (t *Set) Empty() bool {
	return t.size == 0
}

// Contains reports whether the exact key is in the set.
func (t *Set) Contains(key []byte) bool {
	if t.size == 0 {
		return false
	}
	// walk for the closest member
	p := t.root
	for p.node != nil {
		p = p.node.child[p.node.dir(key)]
	}
	// the trie only guarantees the closest candidate, not a match
	return bytes.Equal(p.key, key)
}

// Insert adds a copy of key to the set. It returns ErrDuplicate if the
// key is already present and ErrNoMemory if the allocator refuses; in
// both cases the set is left unchanged.
func (t *Set) Insert(key []byte) error {
	if t.size == 0 {
		dup := t.alloc.NewKey(len(key))
		if dup == nil {
			return ErrNoMemory
		}
		copy(dup, key)
		t.root = ref{key: dup}
		t.size++
		return nil
	}

	// walk for the closest member
	p := t.root
	for p.node != nil {
		p = p.node.child[p.node.dir(key)]
	}
	leaf := p.key

	// find the critical byte
	clen := len(key)
	if len(leaf) < clen {
		clen = len(leaf)
	}
	off := 0
	for off < clen && leaf[off] == key[off] {
		off++
	}

	var bits byte
	var newdir int
	switch {
	case off < clen:
		// find the critical bit inside the differing byte
		x := leaf[off] ^ key[off]
		x |= x >> 1
		x |= x >> 2
		x |= x >> 4
		// (all bits above the msb) | (all bits below the msb)
		bits = (x ^ 0xff) | (x >> 1)
		newdir = (1 + int(bits|leaf[off])) >> 8
	case len(leaf) == len(key):
		return ErrDuplicate
	case len(leaf) < len(key):
		// the closest member is a strict prefix of the new key
		bits = prefixMask
		newdir = 0
	default:
		// the new key is a strict prefix of the closest member
		bits = prefixMask
		newdir = 1
	}

	nn := t.alloc.NewNode()
	if nn == nil {
		return ErrNoMemory
	}
	dup := t.alloc.NewKey(len(key))
	if dup == nil {
		t.alloc.FreeNode(nn)
		return ErrNoMemory
	}
	copy(dup, key)
	*nn = Node{off: off, bits: bits}
	nn.child[1-newdir] = ref{key: dup}

	// walk for the best insertion slot: stop at the first branch that
	// orders after the new one
	wp := &t.root
	for wp.node != nil {
		q := wp.node
		if q.off > off || q.off == off && rank(q.bits) > rank(bits) {
			break
		}
		wp = &q.child[q.dir(key)]
	}
	nn.child[newdir] = *wp
	*wp = ref{node: nn}
	t.size++

	return nil
}

// Delete removes the exact key from the set, or returns ErrNotFound
// without touching it.
func (t *Set) Delete(key []byte) error {
	if t.size == 0 {
		return ErrNotFound
	}
	// walk for the closest member, remembering the parent slot
	var wp *ref
	var dir int
	p := &t.root
	for p.node != nil {
		wp = p
		dir = p.node.dir(key)
		p = &p.node.child[dir]
	}
	if !bytes.Equal(p.key, key) {
		return ErrNotFound
	}
	t.alloc.FreeKey(p.key)
	t.size--
	if wp == nil {
		t.root = ref{}
		return nil
	}
	// promote the sibling, collapsing the parent branch
	q := wp.node
	*wp = q.child[1-dir]
	t.alloc.FreeNode(q)
	return nil
}

// Clear releases every node and key and resets the set to empty.
func (t *Set) Clear() {
	if t.size > 0 {
		t.release(t.root)
	}
	t.root = ref{}
	t.size = 0
}

func (t *Set) release(p ref) {
	if p.node != nil {
		t.release(p.node.child[0])
		t.release(p.node.child[1])
		t.alloc.FreeNode(p.node)
		return
	}
	t.alloc.FreeKey(p.key)
}

// Walk calls visit for every key starting with prefix, in ascending
// order. The first non-zero visit result stops the walk and is
// returned; otherwise Walk returns 0. The key slices are owned by the
// set and must not be modified or retained past the key's deletion.
func (t *Set) Walk(prefix []byte, visit func(key []byte) int) int {
	if t.size == 0 {
		return 0
	}
	// walk for the closest member, remembering the last branch that
	// still tests a byte inside the prefix: its chosen subtree holds
	// exactly the keys sharing the prefix
	p, top := t.root, t.root
	for p.node != nil {
		inside := p.node.off < len(prefix)
		p = p.node.child[p.node.dir(prefix)]
		if inside {
			top = p
		}
	}
	if !bytes.HasPrefix(p.key, prefix) {
		// no member shares the prefix
		return 0
	}
	return t.walk(top, visit)
}

func (t *Set) walk(p ref, visit func(key []byte) int) int {
	if p.node != nil {
		if ret := t.walk(p.node.child[0], visit); ret != 0 {
			return ret
		}
		return t.walk(p.node.child[1], visit)
	}
	return visit(p.key)
}

// Keys returns all keys, as a slice of []byte, in a sorted order.
// The slices are owned by the set, like those seen by Walk visitors.
func (t *Set) Keys() [][]byte {
	keys := make([][]byte, 0, t.size)

	// empty tree?
	if t.size == 0 {
		return keys
	}

	// walk the tree without function recursion
	to_visit := make([]*ref, 1)
	to_visit[0] = &t.root

	for l := len(to_visit); l > 0; l = len(to_visit) {
		p := to_visit[l-1]
		to_visit = to_visit[:l-1]

		// leaf?
		if p.node == nil {
			keys = append(keys, p.key)
		} else {
			// unshift the children and continue
			to_visit = append(to_visit, &p.node.child[1], &p.node.child[0])
		}
	}
	return keys
}

// Merge inserts another set's keys with the given prefix into this
// one. Duplicates are skipped. Returns itself.
func (t *Set) Merge(other *Set, prefix []byte) *Set {
	if other != nil {
		other.Walk(prefix, func(key []byte) int {
			t.Insert(key)
			return 0
		})
	}
	return t
}
