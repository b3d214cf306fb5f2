package isam

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberdb/emberdb/internal/index"
)

func sortedEntries(keys ...int64) []index.Entry {
	out := make([]index.Entry, len(keys))
	for i, k := range keys {
		out[i] = index.Entry{Key: index.NewIntKey(k), Rid: int64(i)}
	}
	return out
}

func TestBuildAndSearch(t *testing.T) {
	idx, err := Build(t.TempDir(), sortedEntries(10, 20, 30, 40, 50), 2)
	require.NoError(t, err)

	rids, err := idx.Search(index.NewIntKey(30))
	require.NoError(t, err)
	require.Equal(t, []int64{2}, rids)

	rids, err = idx.Search(index.NewIntKey(99))
	require.NoError(t, err)
	require.Empty(t, rids)
}

func TestRangeWalksPagesAndOverflow(t *testing.T) {
	idx, err := Build(t.TempDir(), sortedEntries(10, 20, 30, 40, 50), 2)
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewIntKey(25), 99))

	out, err := idx.Range(index.NewIntKey(15), index.NewIntKey(35))
	require.NoError(t, err)

	var keys []int64
	for _, e := range out {
		keys = append(keys, int64(e.Key.Num))
	}
	require.ElementsMatch(t, []int64{20, 25, 30}, keys)
}

func TestInsertGrowsOverflowChainWithoutTouchingRootOrLeaf(t *testing.T) {
	idx, err := Build(t.TempDir(), sortedEntries(10, 20, 30), 2)
	require.NoError(t, err)
	rootBefore := append([]index.Key{}, idx.root...)
	leafBefore := append([]index.Key{}, idx.leaf...)

	require.NoError(t, idx.Insert(index.NewIntKey(11), 100))
	require.NoError(t, idx.Insert(index.NewIntKey(12), 101))

	require.Equal(t, rootBefore, idx.root)
	require.Equal(t, leafBefore, idx.leaf)

	rids, err := idx.Search(index.NewIntKey(11))
	require.NoError(t, err)
	require.Equal(t, []int64{100}, rids)
	rids, err = idx.Search(index.NewIntKey(12))
	require.NoError(t, err)
	require.Equal(t, []int64{101}, rids)
}

func TestDeleteRemovesAllDuplicatesAcrossOverflowChain(t *testing.T) {
	idx, err := Build(t.TempDir(), sortedEntries(10, 20), 2)
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewIntKey(20), 200))
	require.NoError(t, idx.Insert(index.NewIntKey(20), 201))

	rids, err := idx.Search(index.NewIntKey(20))
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 200, 201}, rids)

	require.NoError(t, idx.Delete(index.NewIntKey(20)))

	rids, err = idx.Search(index.NewIntKey(20))
	require.NoError(t, err)
	require.Empty(t, rids)
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	idx, err := Build(t.TempDir(), sortedEntries(10, 20), 2)
	require.NoError(t, err)
	require.NoError(t, idx.Delete(index.NewIntKey(999)))
}

func TestReopenPreservesFrozenRootAndLeaf(t *testing.T) {
	dir := t.TempDir()
	idx1, err := Build(dir, sortedEntries(10, 20, 30, 40), 2)
	require.NoError(t, err)

	idx2, err := Open(dir, 2)
	require.NoError(t, err)
	require.Equal(t, idx1.root, idx2.root)
	require.Equal(t, idx1.leaf, idx2.leaf)

	rids, err := idx2.Search(index.NewIntKey(40))
	require.NoError(t, err)
	require.Equal(t, []int64{3}, rids)
}
