package set

import (
	"fmt"
	"io"
	"os"

	"github.com/hideo55/go-popcount"
)

// numbit recovers the critical bit number (0 = most significant) from
// a stored mask. Prefix branches have no critical bit and yield -1.
func numbit(bits byte) int {
	if bits == prefixMask {
		return -1
	}
	one := uint64(bits ^ 0xff)
	return 7 - int(popcount.Count(one-1))
}

// Dump writes the tree structure to w: branch byte offsets, critical
// bit numbers and leaf values. The format is diagnostic only.
func (t *Set) Dump(w io.Writer) {
	if t.size == 0 {
		fmt.Fprintln(w, "(empty tree)")
		return
	}
	t.dump(w, t.root, 1, "")
}

// Print dumps the tree to standard output.
func (t *Set) Print() {
	t.Dump(os.Stdout)
}

func (t *Set) dump(w io.Writer, p ref, dir int, indent string) {
	if p.node == nil {
		fmt.Fprintf(w, "%s+-- %d L %q\n", indent, dir, p.key)
		return
	}
	fmt.Fprintf(w, "%s+-- %d N off=%d bit=%d\n", indent, dir, p.node.off, numbit(p.node.bits))
	deeper := indent + "|   "
	if dir == 1 {
		deeper = indent + "    "
	}
	t.dump(w, p.node.child[0], 0, deeper)
	t.dump(w, p.node.child[1], 1, deeper)
}
