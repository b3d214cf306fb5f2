// Package multimedia implements C8: codebook training over clustered
// descriptors, bag-of-visual/acoustic-word histograms, and both
// exhaustive and inverted-file cosine kNN (spec.md §4.8).
//
// The core is extractor-agnostic: it only ever sees []float64 descriptor
// vectors handed to it by an external feature extractor (spec.md §9
// "External native extractors"); table metadata records the extractor
// identity fingerprint (internal/table/extractor.go), but queries do not
// check it, so descriptors from a different extractor are not rejected.
package multimedia

import (
	"math"
	"math/rand"

	"github.com/mash/gokmeans"

	"github.com/emberdb/emberdb/pkg/errors"
)

// Codebook is the set of cluster centroids ("visual/acoustic words")
// trained by k-means over a bounded sample of descriptors. A nil
// Codebook models spec.md's "identity" codebook for global-vector
// extractors: the asset's histogram is its own descriptor vector.
type Codebook struct {
	Centroids [][]float64 `json:"centroids"`
}

// Sample draws up to sampleSize descriptors uniformly at random from the
// full descriptor pool (spec.md §4.8 "bounded random sample").
func Sample(all [][]float64, sampleSize int) [][]float64 {
	if sampleSize <= 0 || len(all) <= sampleSize {
		return all
	}
	idxs := rand.Perm(len(all))[:sampleSize]
	out := make([][]float64, sampleSize)
	for i, j := range idxs {
		out[i] = all[j]
	}
	return out
}

// Train runs Lloyd's-algorithm k-means (via github.com/mash/gokmeans) over
// descriptors to produce k centroids.
func Train(descriptors [][]float64, k, iterations int) (*Codebook, error) {
	if len(descriptors) == 0 {
		return nil, errors.NewBuildError(nil, "").WithDetail("reason", "no descriptors supplied for codebook training")
	}
	if k > len(descriptors) {
		k = len(descriptors)
	}

	nodes := make([]gokmeans.Node, len(descriptors))
	for i, d := range descriptors {
		nodes[i] = gokmeans.Node(d)
	}

	centroids, err := gokmeans.Train(nodes, k, iterations)
	if err != nil {
		return nil, errors.NewBuildError(err, "").WithDetail("reason", "k-means training failed")
	}

	out := make([][]float64, len(centroids))
	for i, c := range centroids {
		out[i] = []float64(c)
	}
	return &Codebook{Centroids: out}, nil
}

// Nearest returns the index of the centroid closest to v in Euclidean
// distance, i.e. the visual/acoustic word v is assigned to.
func (cb *Codebook) Nearest(v []float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range cb.Centroids {
		d := euclideanSq(v, c)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func euclideanSq(a, b []float64) float64 {
	var sum float64
	for i := range a {
		if i >= len(b) {
			break
		}
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Histogram builds an ℓ2-normalized bag-of-words histogram over cb's
// centroids for a set of local descriptors. If cb is nil (identity
// codebook, global-vector extractor), the single descriptor is returned
// ℓ2-normalized as-is.
func Histogram(cb *Codebook, descriptors [][]float64) []float64 {
	if cb == nil {
		if len(descriptors) == 0 {
			return nil
		}
		return l2Normalize(descriptors[0])
	}

	hist := make([]float64, len(cb.Centroids))
	for _, d := range descriptors {
		hist[cb.Nearest(d)]++
	}
	return l2Normalize(hist)
}

func l2Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
