package set

import "errors"

var (
	// ErrDuplicate reports an insertion of a key already present.
	ErrDuplicate = errors.New("critbit: key already present")
	// ErrNoMemory reports an exhausted pool; the set is unchanged.
	ErrNoMemory = errors.New("critbit: allocation failed")
	// ErrNotFound reports a deletion of a key not present.
	ErrNotFound = errors.New("critbit: key not found")
)

// Pool is the arena all entries live in. Indices into it stay valid
// for the lifetime of their entry, across any growth. A Pool belongs
// to one set at a time; it is fixed at construction.
type Pool struct {
	entries []entry
	free    []int
	limit   int
}

// NewPool returns a pool with room for preAlloc entries. A non-zero
// limit caps the number of live entries; a full pool makes Insert
// report ErrNoMemory.
func NewPool(preAlloc, limit int) *Pool {
	if preAlloc <= 0 {
		preAlloc = 256
	}
	return &Pool{
		entries: make([]entry, 0, preAlloc),
		free:    make([]int, 0, 21),
		limit:   limit,
	}
}

// Live returns the number of entries currently in use.
func (p *Pool) Live() int {
	return len(p.entries) - len(p.free)
}

// get claims an entry, reusing a freed one when possible, and returns
// its index, or -1 when the pool is at its limit.
func (p *Pool) get() (idx int) {
	if l := len(p.free); l > 0 {
		idx = p.free[l-1]
		p.free = p.free[:l-1]
		return idx
	}
	if p.limit > 0 && len(p.entries) >= p.limit {
		return -1
	}
	p.entries = append(p.entries, entry{})
	return len(p.entries) - 1
}

// put clears an entry and stores its index in the free-list for reuse
// by subsequent get calls.
func (p *Pool) put(idx int) {
	p.entries[idx] = entry{}
	p.free = append(p.free, idx)
}

// Reset forgets all entries and free-list indices, keeping the memory.
func (p *Pool) Reset() {
	p.entries = p.entries[:0]
	p.free = p.free[:0]
}
