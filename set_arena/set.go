// Package set implements the same crit-bit string set as the sibling
// set package, over an index arena: every insertion claims exactly one
// pool entry colocating the copied key with a branch slot, halving the
// allocation count. The branch slot of an entry can outlive its key's
// deletion while wired in as an ancestor branch; Delete migrates it by
// index into the slot vacated by the splice.
package set

import "bytes"

// ref addresses a pool entry, either as a leaf (its key) or as a
// branch (its branch slot). A negative index marks an empty slot.
type ref struct {
	idx    int
	branch bool
}

var noRef = ref{idx: -1}

// entry is one pool slot: the branch half and the owned key copy. The
// branch half is not necessarily the parent of the key's own leaf; the
// tree position it serves drifts as keys come and go.
type entry struct {
	child [2]ref
	off   int
	bits  byte
	key   []byte
}

const prefixMask = 0xff

// dir calculates the direction for the given key. A key too short to
// have a byte at n.off goes to side 0, where the shorter/prefix leaf
// lives.
func (n *entry) dir(key []byte) int {
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
	size int
	root ref
	// spare is the one entry whose branch half is not wired into the
	// tree; -1 when the set is empty. The first insertion creates it,
	// and deletions hand the role over as branches collapse.
	spare int
	pool  *Pool
}

// InitSet initializes a set in place over the given pool (nil for a
// fresh unbounded one) and inserts the initial keys, skipping
// duplicates and any the pool cannot hold.
func InitSet(set *Set, pool *Pool, keys ...[]byte) *Set {
	if pool == nil {
		pool = NewPool(0, 0)
	}
	*set = Set{root: noRef, spare: -1, pool: pool}
	for _, key := range keys {
		set.Insert(key)
	}
	return set
}

// NewSet returns an empty set over a fresh unbounded pool.
func NewSet(keys ...[]byte) *Set {
	return InitSet(&Set{}, nil, keys...)
}

// NewSetPool returns an empty set over the given pool.
func NewSetPool(pool *Pool, keys ...[]byte) *Set {
	return InitSet(&Set{}, pool, keys...)
}

func (t *Set) at(idx int) *entry {
	return &t.pool.entries[idx]
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
	for p.branch {
		n := t.at(p.idx)
		p = n.child[n.dir(key)]
	}
	// the trie only guarantees the closest candidate, not a match
	return bytes.Equal(t.at(p.idx).key, key)
}

// Insert adds a copy of key to the set. It returns ErrDuplicate if the
// key is already present and ErrNoMemory if the pool is exhausted; in
// both cases the set is left unchanged.
func (t *Set) Insert(key []byte) error {
	if t.size == 0 {
		e := t.pool.get()
		if e < 0 {
			return ErrNoMemory
		}
		ent := t.at(e)
		ent.key = append(ent.key, key...)
		t.root = ref{idx: e}
		t.spare = e
		t.size++
		return nil
	}

	// walk for the closest member
	p := t.root
	for p.branch {
		n := t.at(p.idx)
		p = n.child[n.dir(key)]
	}
	leaf := t.at(p.idx).key

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

	e := t.pool.get()
	if e < 0 {
		return ErrNoMemory
	}
	ent := t.at(e)
	ent.off = off
	ent.bits = bits
	ent.key = append(ent.key, key...)
	ent.child[1-newdir] = ref{idx: e}

	// walk for the best insertion slot: stop at the first branch that
	// orders after the new one
	wp := &t.root
	for wp.branch {
		q := t.at(wp.idx)
		if q.off > off || q.off == off && rank(q.bits) > rank(bits) {
			break
		}
		wp = &q.child[q.dir(key)]
	}
	ent.child[newdir] = *wp
	*wp = ref{idx: e, branch: true}
	t.size++

	return nil
}

// Delete removes the exact key from the set, or returns ErrNotFound
// without touching it. When the deleted key's entry still backs a live
// ancestor branch, that branch is relocated into the entry whose
// branch slot the splice just collapsed; the relocation target is
// always an ancestor of the deleted leaf, so re-descending by the
// deleted key is guaranteed to find the slot to repoint.
func (t *Set) Delete(key []byte) error {
	if t.size == 0 {
		return ErrNotFound
	}
	// walk for the closest member, remembering the parent slot
	var wp *ref
	var dir int
	p := &t.root
	for p.branch {
		wp = p
		n := t.at(p.idx)
		dir = n.dir(key)
		p = &n.child[dir]
	}
	e := p.idx
	if !bytes.Equal(t.at(e).key, key) {
		return ErrNotFound
	}
	t.size--
	if wp == nil {
		// sole leaf
		t.root = noRef
		t.spare = -1
		t.pool.put(e)
		return nil
	}
	// promote the sibling, collapsing the parent branch, which is the
	// branch half of entry f
	f := wp.idx
	*wp = t.at(f).child[1-dir]
	switch {
	case f == e:
		// the collapsed branch was the deleted entry's own
	case t.spare == e:
		// the deleted entry's branch half was the spare one; the
		// collapsed half takes over that role
		t.spare = f
	default:
		// the deleted entry's branch half is still wired in above us;
		// move it into the collapsed half and repoint its parent
		fe, ff := t.at(e), t.at(f)
		ff.off = fe.off
		ff.bits = fe.bits
		ff.child = fe.child
		tp := &t.root
		for tp.branch {
			if tp.idx == e {
				tp.idx = f
				break
			}
			n := t.at(tp.idx)
			tp = &n.child[n.dir(key)]
		}
	}
	t.pool.put(e)
	return nil
}

// Clear returns every entry to the pool and resets the set to empty.
func (t *Set) Clear() {
	if t.size > 0 {
		t.release(t.root)
	}
	t.root = noRef
	t.spare = -1
	t.size = 0
}

// release returns entries via their leaf refs; every entry has exactly
// one leaf ref below p. An entry's branch half is always an ancestor
// of its leaf, so its children are copied out before any recycling
// below can clear them.
func (t *Set) release(p ref) {
	if p.branch {
		n := t.at(p.idx)
		left, right := n.child[0], n.child[1]
		t.release(left)
		t.release(right)
		return
	}
	t.pool.put(p.idx)
}

// Walk calls visit for every key starting with prefix, in ascending
// order. The first non-zero visit result stops the walk and is
// returned; otherwise Walk returns 0. The key slices are owned by the
// pool and must not be modified or retained past the key's deletion.
func (t *Set) Walk(prefix []byte, visit func(key []byte) int) int {
	if t.size == 0 {
		return 0
	}
	// walk for the closest member, remembering the last branch that
	// still tests a byte inside the prefix: its chosen subtree holds
	// exactly the keys sharing the prefix
	p, top := t.root, t.root
	for p.branch {
		n := t.at(p.idx)
		inside := n.off < len(prefix)
		p = n.child[n.dir(prefix)]
		if inside {
			top = p
		}
	}
	if !bytes.HasPrefix(t.at(p.idx).key, prefix) {
		// no member shares the prefix
		return 0
	}
	return t.walk(top, visit)
}

func (t *Set) walk(p ref, visit func(key []byte) int) int {
	if p.branch {
		n := t.at(p.idx)
		if ret := t.walk(n.child[0], visit); ret != 0 {
			return ret
		}
		return t.walk(n.child[1], visit)
	}
	return visit(t.at(p.idx).key)
}

// Keys returns all keys, as a slice of []byte, in a sorted order.
// The slices are owned by the pool, like those seen by Walk visitors.
func (t *Set) Keys() [][]byte {
	keys := make([][]byte, 0, t.size)

	// empty tree?
	if t.size == 0 {
		return keys
	}

	// walk the tree without function recursion
	to_visit := make([]ref, 1)
	to_visit[0] = t.root

	for l := len(to_visit); l > 0; l = len(to_visit) {
		p := to_visit[l-1]
		to_visit = to_visit[:l-1]

		// leaf?
		if !p.branch {
			keys = append(keys, t.at(p.idx).key)
		} else {
			// unshift the children and continue
			n := t.at(p.idx)
			to_visit = append(to_visit, n.child[1], n.child[0])
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
