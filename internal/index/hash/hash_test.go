package hash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberdb/emberdb/internal/index"
)

func openTestIndex(t *testing.T, bucketSize int, unique bool) *Index {
	t.Helper()
	idx, err := Open(Config{
		Dir:                t.TempDir(),
		BucketSize:         bucketSize,
		InitialGlobalDepth: 1,
		Unique:             unique,
	})
	require.NoError(t, err)
	return idx
}

func TestInsertAndSearch(t *testing.T) {
	idx := openTestIndex(t, 4, false)
	require.NoError(t, idx.Insert(index.NewTextKey("a"), 1))

	rids, err := idx.Search(index.NewTextKey("a"))
	require.NoError(t, err)
	require.Equal(t, []int64{1}, rids)

	rids, err = idx.Search(index.NewTextKey("missing"))
	require.NoError(t, err)
	require.Empty(t, rids)
}

// TestSplitGrowsDirectoryOnDistinctKeys inserts enough distinct keys past a
// small bucketSize that at least one bucket must split; with well-distributed
// hashes (xxh3) the directory should grow to accommodate them, and every key
// stays searchable regardless of how the splits played out.
func TestSplitGrowsDirectoryOnDistinctKeys(t *testing.T) {
	idx := openTestIndex(t, 2, false)
	initialDirLen := len(idx.directory)

	const n = 64
	for i := 0; i < n; i++ {
		k := index.NewTextKey("key-" + string(rune('a'+i%26)) + string(rune('A'+i/26)))
		require.NoError(t, idx.Insert(k, int64(i)))
	}

	require.Greater(t, len(idx.directory), initialDirLen)

	for i := 0; i < n; i++ {
		k := index.NewTextKey("key-" + string(rune('a'+i%26)) + string(rune('A'+i/26)))
		rids, err := idx.Search(k)
		require.NoError(t, err)
		require.Equal(t, []int64{int64(i)}, rids)
	}
}

// TestDuplicateKeyInsertsChainOverflowWithoutUnboundedGrowth is the
// pathological case spec.md §4.4 calls out: every insert shares the same key,
// so every hash collides and a split can never separate them. The index must
// chain an overflow bucket instead of doubling the directory forever.
func TestDuplicateKeyInsertsChainOverflowWithoutUnboundedGrowth(t *testing.T) {
	idx := openTestIndex(t, 3, false)
	initialDirLen := len(idx.directory)
	initialBucketCount := len(idx.buckets)

	const n = 20
	k := index.NewTextKey("dup")
	for i := 0; i < n; i++ {
		require.NoError(t, idx.Insert(k, int64(i)))
	}

	require.Equal(t, initialDirLen, len(idx.directory), "directory must not grow from duplicate-key-only inserts")
	require.Equal(t, initialBucketCount, len(idx.buckets), "no new top-level bucket should be allocated; overflow chains instead")

	rids, err := idx.Search(k)
	require.NoError(t, err)
	want := make([]int64, n)
	for i := range want {
		want[i] = int64(i)
	}
	require.ElementsMatch(t, want, rids)
}

func TestDeleteRemovesAllDuplicatesAcrossOverflowChain(t *testing.T) {
	idx := openTestIndex(t, 3, false)

	k := index.NewTextKey("dup")
	for i := 0; i < 10; i++ {
		require.NoError(t, idx.Insert(k, int64(i)))
	}
	require.NoError(t, idx.Insert(index.NewTextKey("other"), 999))

	require.NoError(t, idx.Delete(k))

	rids, err := idx.Search(k)
	require.NoError(t, err)
	require.Empty(t, rids)

	rids, err = idx.Search(index.NewTextKey("other"))
	require.NoError(t, err)
	require.Equal(t, []int64{999}, rids)
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	idx := openTestIndex(t, 4, false)
	require.NoError(t, idx.Insert(index.NewTextKey("x"), 1))
	require.NoError(t, idx.Delete(index.NewTextKey("missing")))

	rids, err := idx.Search(index.NewTextKey("x"))
	require.NoError(t, err)
	require.Equal(t, []int64{1}, rids)
}

func TestUniqueRejectsDuplicateKey(t *testing.T) {
	idx := openTestIndex(t, 4, true)
	require.NoError(t, idx.Insert(index.NewTextKey("k"), 1))
	err := idx.Insert(index.NewTextKey("k"), 2)
	require.Error(t, err)
}

func TestReopenPreservesDirectoryAndBuckets(t *testing.T) {
	dir := t.TempDir()
	idx1, err := Open(Config{Dir: dir, BucketSize: 2, InitialGlobalDepth: 1})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, idx1.Insert(index.NewIntKey(int64(i)), int64(i)))
	}

	idx2, err := Open(Config{Dir: dir, BucketSize: 2, InitialGlobalDepth: 1})
	require.NoError(t, err)
	require.Equal(t, idx1.globalDepth, idx2.globalDepth)
	require.Equal(t, idx1.directory, idx2.directory)

	rids, err := idx2.Search(index.NewIntKey(5))
	require.NoError(t, err)
	require.Equal(t, []int64{5}, rids)
}
