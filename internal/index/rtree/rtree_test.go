package rtree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberdb/emberdb/internal/index"
)

func TestInsertAndRadius(t *testing.T) {
	idx, err := Open(Config{Dir: t.TempDir(), Dimensions: 2})
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewTextKey("0,0"), 0))
	require.NoError(t, idx.Insert(index.NewTextKey("1,0"), 1))
	require.NoError(t, idx.Insert(index.NewTextKey("3,4"), 2))
	require.NoError(t, idx.Insert(index.NewTextKey("10,10"), 3))

	out, err := idx.Radius([]float64{0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, int64(0), out[0].Rid)
	require.Equal(t, int64(1), out[1].Rid)
	require.Equal(t, int64(2), out[2].Rid)
	require.InDelta(t, 0, out[0].Distance, 1e-6)
	require.InDelta(t, 1, out[1].Distance, 1e-6)
	require.InDelta(t, 5, out[2].Distance, 1e-6)
}

// TestKNNWalksTreeNotFlatEntries checks that kNN returns the k closest
// points in ascending distance order. With only the tree traversal wired
// up (idx.tree, not a brute-force scan of idx.entries), this still must
// produce the exact correct top-k.
func TestKNNWalksTreeNotFlatEntries(t *testing.T) {
	idx, err := Open(Config{Dir: t.TempDir(), Dimensions: 2})
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewTextKey("0,0"), 0))
	require.NoError(t, idx.Insert(index.NewTextKey("1,0"), 1))
	require.NoError(t, idx.Insert(index.NewTextKey("3,4"), 2))
	require.NoError(t, idx.Insert(index.NewTextKey("10,10"), 3))

	out, err := idx.KNN([]float64{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, int64(0), out[0].Rid)
	require.Equal(t, int64(1), out[1].Rid)
	require.Less(t, out[0].Distance, out[1].Distance)
}

func TestKNNReturnsEverythingWhenKExceedsEntryCount(t *testing.T) {
	idx, err := Open(Config{Dir: t.TempDir(), Dimensions: 2})
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewTextKey("0,0"), 0))
	require.NoError(t, idx.Insert(index.NewTextKey("1,1"), 1))

	out, err := idx.KNN([]float64{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestDeleteRemovesPointFromTree(t *testing.T) {
	idx, err := Open(Config{Dir: t.TempDir(), Dimensions: 2})
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewTextKey("0,0"), 0))
	require.NoError(t, idx.Insert(index.NewTextKey("1,0"), 1))
	require.NoError(t, idx.Delete(0))

	out, err := idx.Radius([]float64{0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(1), out[0].Rid)
}

// Approximate lat,lon for a handful of cities, used only for their relative
// geography (LA closer to NYC than London, London closer than Paris), not
// for any specific expected distance value.
const (
	nyc    = "40.7128,-74.0060"
	london = "51.5074,-0.1278"
	la     = "34.0522,-118.2437"
	paris  = "48.8566,2.3522"
)

func TestGeoKNNUsesHaversineNotEuclidean(t *testing.T) {
	idx, err := Open(Config{Dir: t.TempDir(), Dimensions: 2, Geo: true})
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewTextKey(nyc), 0))
	require.NoError(t, idx.Insert(index.NewTextKey(london), 1))
	require.NoError(t, idx.Insert(index.NewTextKey(la), 2))
	require.NoError(t, idx.Insert(index.NewTextKey(paris), 3))

	query, err := ParsePoint(nyc)
	require.NoError(t, err)

	out, err := idx.KNN(query, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, int64(0), out[0].Rid) // NYC itself, distance ~0
	require.Equal(t, int64(2), out[1].Rid) // LA is the next-closest of the three
	require.Less(t, out[0].Distance, out[1].Distance)
}

func TestGeoRadiusFiltersByHaversineDistance(t *testing.T) {
	idx, err := Open(Config{Dir: t.TempDir(), Dimensions: 2, Geo: true})
	require.NoError(t, err)

	require.NoError(t, idx.Insert(index.NewTextKey(nyc), 0))
	require.NoError(t, idx.Insert(index.NewTextKey(london), 1))
	require.NoError(t, idx.Insert(index.NewTextKey(la), 2))
	require.NoError(t, idx.Insert(index.NewTextKey(paris), 3))

	query, err := ParsePoint(nyc)
	require.NoError(t, err)

	out, err := idx.Radius(query, 4500)
	require.NoError(t, err)

	var rids []int64
	for _, r := range out {
		rids = append(rids, r.Rid)
	}
	require.Contains(t, rids, int64(0))
	require.Contains(t, rids, int64(2))
	require.NotContains(t, rids, int64(1))
	require.NotContains(t, rids, int64(3))
}

func TestReopenReplaysEntriesIntoFreshTree(t *testing.T) {
	dir := t.TempDir()
	idx1, err := Open(Config{Dir: dir, Dimensions: 2})
	require.NoError(t, err)
	require.NoError(t, idx1.Insert(index.NewTextKey("2,2"), 7))

	idx2, err := Open(Config{Dir: dir, Dimensions: 2})
	require.NoError(t, err)

	out, err := idx2.Radius([]float64{2, 2}, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(7), out[0].Rid)
}
