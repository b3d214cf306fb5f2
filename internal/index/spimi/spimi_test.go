package spimi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Dir:              t.TempDir(),
		Profile:          ProfileEnglish,
		Stem:             false,
		MemoryBoundBytes: 64 * 1024,
		BlockDirName:     "spimi",
		BlockPrefix:      "block",
		DeltaThreshold:   2000,
	}
}

func TestBuildAndQueryRanking(t *testing.T) {
	docs := []Doc{
		{Rid: 0, Text: "love and light"},
		{Rid: 1, Text: "light and shadow"},
	}

	idx, err := Build(testConfig(t), func(yield func(Doc) bool) {
		for _, d := range docs {
			if !yield(d) {
				return
			}
		}
	})
	require.NoError(t, err)

	results := idx.Query("light love", 10)
	require.NotEmpty(t, results)
	require.Equal(t, int64(0), results[0].Rid)

	shadowResults := idx.Query("shadow", 10)
	require.Len(t, shadowResults, 1)
	require.Equal(t, int64(1), shadowResults[0].Rid)
}

func TestDeleteTombstonesQuery(t *testing.T) {
	docs := []Doc{{Rid: 0, Text: "apple banana"}, {Rid: 1, Text: "apple cherry"}}
	idx, err := Build(testConfig(t), func(yield func(Doc) bool) {
		for _, d := range docs {
			if !yield(d) {
				return
			}
		}
	})
	require.NoError(t, err)

	require.NoError(t, idx.DeleteDoc(0))
	results := idx.Query("apple", 10)
	require.Len(t, results, 1)
	require.Equal(t, int64(1), results[0].Rid)
}

func TestIncrementalInsertMergesIntoQuery(t *testing.T) {
	idx, err := Build(testConfig(t), func(yield func(Doc) bool) {
		yield(Doc{Rid: 0, Text: "dog cat"})
	})
	require.NoError(t, err)

	require.NoError(t, idx.InsertDoc(1, "dog bird"))

	results := idx.Query("dog", 10)
	require.Len(t, results, 2)
}
