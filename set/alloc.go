package set

import "errors"

var (
	// ErrDuplicate reports an insertion of a key already present.
	ErrDuplicate = errors.New("critbit: key already present")
	// ErrNoMemory reports a refused allocation; the set is unchanged.
	ErrNoMemory = errors.New("critbit: allocation failed")
	// ErrNotFound reports a deletion of a key not present.
	ErrNotFound = errors.New("critbit: key not found")
)

// Allocator supplies backing storage for branch nodes and key copies.
// Every byte the set owns comes from its allocator, which is fixed at
// construction time. NewNode and NewKey report exhaustion by returning
// nil; the set never retains partially built structure after a failed
// allocation.
type Allocator interface {
	NewNode() *Node
	FreeNode(n *Node)
	// NewKey returns a zeroed buffer of the given length, possibly 0.
	NewKey(size int) []byte
	FreeKey(key []byte)
}

// heapAlloc is the default allocator: plain heap allocations, with
// reclamation left to the garbage collector.
type heapAlloc struct{}

func (heapAlloc) NewNode() *Node         { return new(Node) }
func (heapAlloc) FreeNode(*Node)         {}
func (heapAlloc) NewKey(size int) []byte { return make([]byte, size) }
func (heapAlloc) FreeKey([]byte)         {}
