package set

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkInvariants walks the whole tree verifying the structural
// contract: path order on (offset, incremented mask), one leaf and at
// most one branch per live entry, every leaf reachable by its own key,
// and exactly one live entry (the spare) with an unwired branch half.
func checkInvariants(t *testing.T, tr *Set) {
	t.Helper()

	if tr.size == 0 {
		require.Equal(t, -1, tr.spare)
		require.Equal(t, 0, tr.pool.Live())
		return
	}

	branches := make(map[int]bool)
	leaves := make(map[int]bool)

	var walk func(p ref, off, rk int)
	walk = func(p ref, off, rk int) {
		require.GreaterOrEqual(t, p.idx, 0)
		if p.branch {
			require.False(t, branches[p.idx], "branch %d wired twice", p.idx)
			branches[p.idx] = true
			n := tr.at(p.idx)
			nrk := rank(n.bits)
			require.True(t, n.off > off || n.off == off && nrk > rk,
				"branch %d out of order: off=%d rank=%d under off=%d rank=%d",
				p.idx, n.off, nrk, off, rk)
			walk(n.child[0], n.off, nrk)
			walk(n.child[1], n.off, nrk)
			return
		}
		require.False(t, leaves[p.idx], "leaf %d reachable twice", p.idx)
		leaves[p.idx] = true

		// descending by the leaf's own key must reproduce its path
		key := tr.at(p.idx).key
		q := tr.root
		for q.branch {
			n := tr.at(q.idx)
			q = n.child[n.dir(key)]
		}
		require.Equal(t, p.idx, q.idx, "leaf %q misplaced", key)
	}
	walk(tr.root, -1, -1)

	require.Equal(t, tr.size, len(leaves))
	require.Equal(t, tr.size-1, len(branches))
	require.Equal(t, tr.size, tr.pool.Live())

	require.True(t, leaves[tr.spare], "spare %d is not a live entry", tr.spare)
	require.False(t, branches[tr.spare], "spare %d has a wired branch half", tr.spare)
	for idx := range leaves {
		if idx != tr.spare {
			require.True(t, branches[idx], "entry %d has an unwired branch half", idx)
		}
	}
}

func count(tr *Set) int {
	n := 0
	tr.Walk(nil, func([]byte) int {
		n++
		return 0
	})
	return n
}

func TestEmptySet(t *testing.T) {
	tr := NewSet()

	assert.Equal(t, 0, tr.Len())
	assert.False(t, tr.Contains([]byte("a")))
	assert.False(t, tr.Contains(nil))
	assert.ErrorIs(t, tr.Delete([]byte("a")), ErrNotFound)
	assert.Equal(t, 0, count(tr))
	checkInvariants(t, tr)
}

func TestInsertContains(t *testing.T) {
	tr := NewSet()
	words := []string{"romane", "romanus", "romulus", "rubens", "ruber", "rubicon", "rubicundus"}

	for _, w := range words {
		require.NoError(t, tr.Insert([]byte(w)), w)
		checkInvariants(t, tr)
	}
	for _, w := range words {
		assert.True(t, tr.Contains([]byte(w)), w)
		assert.ErrorIs(t, tr.Insert([]byte(w)), ErrDuplicate, w)
	}
	assert.False(t, tr.Contains([]byte("roman")))
	assert.False(t, tr.Contains([]byte("rub")))
	assert.False(t, tr.Contains([]byte("")))
	assert.Equal(t, len(words), tr.Len())
	assert.Equal(t, len(words), count(tr))
}

func TestKeyOrder(t *testing.T) {
	tests := []struct {
		ins []string
		res []string
	}{
		{
			[]string{"x", "y", "z", "c", "c", "b", "b", "a", "a"},
			[]string{"a", "b", "c", "x", "y", "z"},
		},
		{
			[]string{"aaa", "aa", "a"},
			[]string{"a", "aa", "aaa"},
		},
		{
			[]string{"b", "a", "aa"},
			[]string{"a", "aa", "b"},
		},
		{
			[]string{"aa", "aaa", "aab", "ab", "ba", "bb", "bba", "bbb"},
			[]string{"aa", "aaa", "aab", "ab", "ba", "bb", "bba", "bbb"},
		},
	}
	for i, test := range tests {
		tr := NewSet()
		for _, s := range test.ins {
			tr.Insert([]byte(s))
			checkInvariants(t, tr)
		}
		keys := tr.Keys()
		require.Equal(t, len(test.res), len(keys), "test %d", i)
		for j, s := range test.res {
			assert.Equal(t, s, string(keys[j]), "test %d at %d", i, j)
		}
		for j := len(keys) - 1; j >= 0; j-- {
			key := append([]byte(nil), keys[j]...)
			require.NoError(t, tr.Delete(key), "test %d: %q", i, key)
			checkInvariants(t, tr)
		}
	}
}

func TestWalkPrefixed(t *testing.T) {
	tr := NewSet()
	for _, s := range []string{"1str", "11str2", "12str", "11str"} {
		require.NoError(t, tr.Insert([]byte(s)))
	}

	tests := []struct {
		prefix string
		keys   []string
	}{
		{"", []string{"11str", "11str2", "12str", "1str"}},
		{"11", []string{"11str", "11str2"}},
		{"13", nil},
		{"12345678", nil}, // longer than any stored key
		{"11str", []string{"11str", "11str2"}},
	}
	for i, test := range tests {
		var got []string
		ret := tr.Walk([]byte(test.prefix), func(key []byte) int {
			got = append(got, string(key))
			return 0
		})
		assert.Zero(t, ret, "test %d", i)
		assert.Equal(t, test.keys, got, "test %d: prefix %q", i, test.prefix)
	}
}

func TestWalkShortCircuit(t *testing.T) {
	tr := NewSet([]byte("a"), []byte("b"), []byte("c"), []byte("d"))

	visited := 0
	ret := tr.Walk(nil, func([]byte) int {
		visited++
		return -1
	})
	assert.Equal(t, -1, ret)
	assert.Equal(t, 1, visited)
}

func TestEmptyStringKey(t *testing.T) {
	tr := NewSet()

	require.NoError(t, tr.Insert([]byte("")))
	assert.True(t, tr.Contains([]byte("")))
	assert.ErrorIs(t, tr.Insert(nil), ErrDuplicate)

	require.NoError(t, tr.Insert([]byte("a")))
	checkInvariants(t, tr)
	assert.True(t, tr.Contains([]byte("")))

	require.NoError(t, tr.Delete([]byte("")))
	checkInvariants(t, tr)
	assert.False(t, tr.Contains([]byte("")))
	assert.True(t, tr.Contains([]byte("a")))
}

// TestDeleteRelocation drives the case where a deleted entry's branch
// half is still wired in as an ancestor of its leaf, so the delete has
// to migrate it into the branch collapsed by the splice.
func TestDeleteRelocation(t *testing.T) {
	tr := NewSet()
	require.NoError(t, tr.Insert([]byte("a")))
	require.NoError(t, tr.Insert([]byte("b"))) // branch of "b" splits a/b
	require.NoError(t, tr.Insert([]byte("c"))) // splices between b's branch and its leaf
	checkInvariants(t, tr)

	// deleting "b" collapses c's branch while b's own branch is still
	// the root; its content has to move into c's slot
	require.NoError(t, tr.Delete([]byte("b")))
	checkInvariants(t, tr)
	assert.True(t, tr.Contains([]byte("a")))
	assert.True(t, tr.Contains([]byte("c")))
	assert.False(t, tr.Contains([]byte("b")))
}

func TestClear(t *testing.T) {
	pool := NewPool(0, 0)
	tr := NewSetPool(pool)
	tr.Clear() // no-op on an empty set

	for _, s := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, tr.Insert([]byte(s)))
	}
	require.Equal(t, 5, pool.Live())

	tr.Clear()
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, pool.Live())
	assert.False(t, tr.Contains([]byte("one")))
	checkInvariants(t, tr)

	// the set and its pool are reusable after a clear
	require.NoError(t, tr.Insert([]byte("six")))
	assert.Equal(t, 1, pool.Live())
	checkInvariants(t, tr)
}

func TestPoolExhausted(t *testing.T) {
	tr := NewSetPool(NewPool(4, 3))

	require.NoError(t, tr.Insert([]byte("aa")))
	require.NoError(t, tr.Insert([]byte("ab")))
	require.NoError(t, tr.Insert([]byte("ac")))

	assert.ErrorIs(t, tr.Insert([]byte("ad")), ErrNoMemory)
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, 3, count(tr))
	assert.False(t, tr.Contains([]byte("ad")))
	checkInvariants(t, tr)

	// duplicates are still detected before any allocation
	assert.ErrorIs(t, tr.Insert([]byte("ab")), ErrDuplicate)

	// a delete makes room again
	require.NoError(t, tr.Delete([]byte("aa")))
	require.NoError(t, tr.Insert([]byte("ad")))
	checkInvariants(t, tr)
}

func TestMerge(t *testing.T) {
	a := NewSet([]byte("ABC"), []byte("DEF"))
	b := NewSet([]byte("ABC"), []byte("GHI"))

	a.Merge(b, nil)

	keys := a.Keys()
	require.Equal(t, 3, len(keys))
	for i, w := range []string{"ABC", "DEF", "GHI"} {
		assert.Equal(t, w, string(keys[i]))
	}
}

func TestRandomDifferential(t *testing.T) {
	const (
		keyRange = 256
		loops    = 64 * keyRange
		seed     = 42
	)

	var (
		tr  = NewSet()
		ref = make(map[string]bool, keyRange)
		rnd = rand.New(rand.NewSource(seed))
	)

	for i := 0; i < loops; i++ {
		key := []byte(fmt.Sprintf("%x", rnd.Intn(keyRange)))
		if ref[string(key)] {
			require.True(t, tr.Contains(key), "%q", key)
			require.NoError(t, tr.Delete(key), "%q", key)
			require.False(t, tr.Contains(key), "%q", key)
			delete(ref, string(key))
		} else {
			require.False(t, tr.Contains(key), "%q", key)
			require.NoError(t, tr.Insert(key), "%q", key)
			require.True(t, tr.Contains(key), "%q", key)
			ref[string(key)] = true
		}
		if i < 512 || i%16 == 0 {
			checkInvariants(t, tr)
		}
	}
	checkInvariants(t, tr)

	require.Equal(t, len(ref), count(tr))
	for key := range ref {
		assert.True(t, tr.Contains([]byte(key)), "%q", key)
	}
}

func TestFakeData(t *testing.T) {
	const (
		total = 2000
		seed  = 1234567890
	)

	var (
		tr    = NewSet()
		state = make(map[string]bool, total)
		fake  = gofakeit.New(seed)
	)

	for i := 0; i < total; i++ {
		key := fake.Sentence(3)
		err := tr.Insert([]byte(key))
		if state[key] {
			require.ErrorIs(t, err, ErrDuplicate, key)
		} else {
			require.NoError(t, err, key)
		}
		state[key] = true
	}
	require.Equal(t, len(state), tr.Len())

	for key := range state {
		assert.True(t, tr.Contains([]byte(key)), key)
	}

	sorted := make([]string, 0, len(state))
	for key := range state {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)

	keys := tr.Keys()
	require.Equal(t, len(sorted), len(keys))
	for i, key := range sorted {
		assert.Equal(t, key, string(keys[i]), "at %d", i)
	}

	// drain in random order, stressing the relocation path
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(len(sorted), func(i, j int) {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	})
	for i, key := range sorted {
		require.NoError(t, tr.Delete([]byte(key)), key)
		if i%64 == 0 {
			checkInvariants(t, tr)
		}
	}
	checkInvariants(t, tr)
	assert.Equal(t, 0, tr.Len())
}
