package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberdb/emberdb/internal/index"
)

func TestInsertAndSearch(t *testing.T) {
	idx, err := Open(t.TempDir(), 4)
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewIntKey(10), 1))
	rids, err := idx.Search(index.NewIntKey(10))
	require.NoError(t, err)
	require.Equal(t, []int64{1}, rids)

	rids, err = idx.Search(index.NewIntKey(99))
	require.NoError(t, err)
	require.Empty(t, rids)
}

// TestSplitPropagatesAndRangeWalksLeafChain inserts enough keys with a small
// order to force repeated leaf and internal-node splits, then verifies Range
// still returns every key in order by walking the leaf chain.
func TestSplitPropagatesAndRangeWalksLeafChain(t *testing.T) {
	idx, err := Open(t.TempDir(), 4)
	require.NoError(t, err)

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, idx.Insert(index.NewIntKey(int64(i)), int64(i)))
	}

	out, err := idx.Range(index.NewIntKey(0), index.NewIntKey(int64(n-1)))
	require.NoError(t, err)
	require.Len(t, out, n)
	for i, e := range out {
		require.Equal(t, int64(i), int64(e.Key.Num))
		require.Equal(t, int64(i), e.Rid)
	}

	out, err = idx.Range(index.NewIntKey(10), index.NewIntKey(20))
	require.NoError(t, err)
	require.Len(t, out, 11)
	require.Equal(t, int64(10), int64(out[0].Key.Num))
	require.Equal(t, int64(20), int64(out[len(out)-1].Key.Num))
}

// TestDeleteRemovesAllDuplicateEntriesFromLeaf is the round-trip property
// spec.md §8 requires: a leaf holding several entries under the same key
// (duplicates are permitted, spec.md §3) must have every one of them removed
// by a single Delete, not just the first match.
func TestDeleteRemovesAllDuplicateEntriesFromLeaf(t *testing.T) {
	idx, err := Open(t.TempDir(), 8)
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewTextKey("dup"), 1))
	require.NoError(t, idx.Insert(index.NewTextKey("dup"), 2))
	require.NoError(t, idx.Insert(index.NewTextKey("dup"), 3))
	require.NoError(t, idx.Insert(index.NewTextKey("other"), 4))

	rids, err := idx.Search(index.NewTextKey("dup"))
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2, 3}, rids)

	require.NoError(t, idx.Delete(index.NewTextKey("dup")))

	rids, err = idx.Search(index.NewTextKey("dup"))
	require.NoError(t, err)
	require.Empty(t, rids)

	rids, err = idx.Search(index.NewTextKey("other"))
	require.NoError(t, err)
	require.Equal(t, []int64{4}, rids)
}

func TestDeleteTriggersLeafRebalanceAcrossSplitTree(t *testing.T) {
	idx, err := Open(t.TempDir(), 4)
	require.NoError(t, err)

	const n = 30
	for i := 0; i < n; i++ {
		require.NoError(t, idx.Insert(index.NewIntKey(int64(i)), int64(i)))
	}
	for i := 0; i < n-1; i++ {
		require.NoError(t, idx.Delete(index.NewIntKey(int64(i))))
	}

	for i := 0; i < n-1; i++ {
		rids, err := idx.Search(index.NewIntKey(int64(i)))
		require.NoError(t, err)
		require.Empty(t, rids)
	}
	rids, err := idx.Search(index.NewIntKey(int64(n - 1)))
	require.NoError(t, err)
	require.Equal(t, []int64{int64(n - 1)}, rids)
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	idx, err := Open(t.TempDir(), 4)
	require.NoError(t, err)
	require.NoError(t, idx.Insert(index.NewIntKey(1), 1))
	require.NoError(t, idx.Delete(index.NewIntKey(999)))

	rids, err := idx.Search(index.NewIntKey(1))
	require.NoError(t, err)
	require.Equal(t, []int64{1}, rids)
}

func TestReopenPreservesTree(t *testing.T) {
	dir := t.TempDir()
	idx1, err := Open(dir, 4)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.NoError(t, idx1.Insert(index.NewIntKey(int64(i)), int64(i)))
	}

	idx2, err := Open(dir, 4)
	require.NoError(t, err)
	require.Equal(t, idx1.root, idx2.root)

	out, err := idx2.Range(index.NewIntKey(0), index.NewIntKey(19))
	require.NoError(t, err)
	require.Len(t, out, 20)
}
