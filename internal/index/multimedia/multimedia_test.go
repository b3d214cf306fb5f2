package multimedia

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvertedMatchesExhaustiveForIdentityCodebook(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mmtable")

	h1 := []float64{1, 0, 0, 0, 0, 0, 0, 0}
	h2 := []float64{0, 1, 0, 0, 0, 0, 0, 0}
	h3 := []float64{1, 1, 0, 0, 0, 0, 0, 0}

	descriptors := map[int64][][]float64{
		1: {h1},
		2: {h2},
		3: {h3},
	}

	idx, err := Build(dir, descriptors, 8, 10, 1000, true)
	require.NoError(t, err)

	query := Histogram(nil, [][]float64{h1})

	exhaustive := idx.ExhaustiveKNN(query, 3)
	inverted := idx.InvertedKNN(query, 3)

	require.Len(t, exhaustive, 3)
	require.Len(t, inverted, 3)
	require.Equal(t, exhaustive[0].AssetID, inverted[0].AssetID)
	require.Equal(t, int64(1), exhaustive[0].AssetID)
}

func TestDeleteDoesNotRetrainCodebook(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mmtable2")
	descriptors := map[int64][][]float64{
		1: {{1, 0}},
		2: {{0, 1}},
	}
	idx, err := Build(dir, descriptors, 2, 5, 100, true)
	require.NoError(t, err)

	cbBefore := idx.codebook
	require.NoError(t, idx.Delete(1))
	require.Equal(t, cbBefore, idx.codebook)
}
