package multimedia

import (
	"container/heap"
	"math"
	"os"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/edsrzf/mmap-go"

	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/filesys"
)

// asset is one indexed image/audio file: its ℓ2-normalized bag-of-words
// (or global-vector) histogram and its own norm (kept redundantly, as
// spec.md §4.8 specifies, so inverted-file scoring doesn't recompute it).
type asset struct {
	Histogram []float64 `json:"histogram"`
	Norm      float64   `json:"norm"`
}

// posting names one asset in a word's inverted postings list.
type posting struct {
	AssetID int64 `json:"assetId"`
}

// Index is the C8 multimedia index: a codebook, per-asset histograms, and
// the inverted file built over them.
type Index struct {
	mu       sync.RWMutex
	dir      string
	codebook *Codebook // nil => identity codebook (global-vector extractor)
	assets   map[int64]*asset
	inverted map[int][]posting // word id -> postings, df = len(postings)
}

func codebookPath(dir string) string { return dir + "/mm/codebook" }
func histPath(dir string) string     { return dir + "/mm/hist" }
func invPath(dir string) string      { return dir + "/mm/inv" }

// Build trains (or, for identity codebooks, skips) the codebook, builds
// every asset's histogram, and constructs the inverted file. descriptorsByAsset maps
// an asset id to its local descriptor set (or its single global vector,
// wrapped in a length-1 slice).
func Build(dir string, descriptorsByAsset map[int64][][]float64, clusters, iterations, sampleSize int, identity bool) (*Index, error) {
	idx := &Index{dir: dir, assets: make(map[int64]*asset), inverted: make(map[int][]posting)}

	if !identity {
		var pool [][]float64
		for _, ds := range descriptorsByAsset {
			pool = append(pool, ds...)
		}
		sample := Sample(pool, sampleSize)
		cb, err := Train(sample, clusters, iterations)
		if err != nil {
			return nil, err
		}
		idx.codebook = cb
	}

	for assetID, ds := range descriptorsByAsset {
		hist := Histogram(idx.codebook, ds)
		idx.assets[assetID] = &asset{Histogram: hist, Norm: l2Norm(hist)}
	}

	idx.buildInvertedFile()

	if err := idx.persist(); err != nil {
		return nil, err
	}
	return idx, nil
}

func l2Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// buildInvertedFile constructs word_id -> [asset_ids sharing that
// codeword], per spec.md §4.8. InvertedKNN scores candidates off the
// assets' raw histograms (not a tf*idf weight cached here), since that's
// what keeps its results identical to ExhaustiveKNN's full cosine scan.
func (idx *Index) buildInvertedFile() {
	idx.inverted = make(map[int][]posting)
	for assetID, a := range idx.assets {
		for w, v := range a.Histogram {
			if v <= 0 {
				continue
			}
			idx.inverted[w] = append(idx.inverted[w], posting{AssetID: assetID})
		}
	}
}

type onDiskIndex struct {
	Codebook *Codebook          `json:"codebook,omitempty"`
	Assets   map[int64]*asset   `json:"assets"`
	Inverted map[int][]posting  `json:"inverted"`
}

func (idx *Index) persist() error {
	if err := filesys.CreateDir(idx.dir+"/mm", 0755, true); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create multimedia directory")
	}

	if idx.codebook != nil {
		cbBuf, err := json.Marshal(idx.codebook)
		if err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode codebook")
		}
		if err := filesys.AtomicReplace(codebookPath(idx.dir), func(f *os.File) error {
			_, err := f.Write(cbBuf)
			return err
		}); err != nil {
			return err
		}
	}

	histBuf, err := json.Marshal(idx.assets)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode histograms")
	}
	if err := filesys.AtomicReplace(histPath(idx.dir), func(f *os.File) error {
		_, err := f.Write(histBuf)
		return err
	}); err != nil {
		return err
	}

	invBuf, err := json.Marshal(idx.inverted)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode inverted file")
	}
	return filesys.AtomicReplace(invPath(idx.dir), func(f *os.File) error {
		_, err := f.Write(invBuf)
		return err
	})
}

// Open reloads a persisted multimedia index. The codebook, immutable
// once built (spec.md §3 invariant 7), is read through a read-only memory
// mapping (see mmapReadOnly) and decoded into the heap.
func Open(dir string) (*Index, error) {
	idx := &Index{dir: dir, assets: make(map[int64]*asset), inverted: make(map[int][]posting)}

	cbBytes, err := mmapReadOnly(codebookPath(dir))
	if err == nil {
		var cb Codebook
		if jerr := json.Unmarshal(cbBytes, &cb); jerr == nil {
			idx.codebook = &cb
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	histBuf, err := filesys.ReadFile(histPath(dir))
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read histograms").WithPath(histPath(dir))
	}
	if err := json.Unmarshal(histBuf, &idx.assets); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "histogram store corrupted")
	}

	invBuf, err := filesys.ReadFile(invPath(dir))
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read inverted file").WithPath(invPath(dir))
	}
	if err := json.Unmarshal(invBuf, &idx.inverted); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "inverted file corrupted")
	}
	return idx, nil
}

// mmapReadOnly memory-maps path read-only and returns a heap copy of its
// bytes; the mapping itself is unmapped before returning, since the
// codebook is decoded once at Open time.
func mmapReadOnly(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to mmap codebook").WithPath(path)
	}
	defer m.Unmap()

	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}

// Result is one ranked multimedia match.
type Result struct {
	AssetID    int64
	Similarity float64
}

type resultHeap []Result

func (h resultHeap) Len() int { return len(h) }
func (h resultHeap) Less(i, j int) bool {
	if h[i].Similarity != h[j].Similarity {
		return h[i].Similarity < h[j].Similarity
	}
	return h[i].AssetID > h[j].AssetID
}
func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)   { *h = append(*h, x.(Result)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

func topK(h *resultHeap, k int) []Result {
	out := make([]Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Result)
	}
	return out
}

// ExhaustiveKNN scores every asset by cosine similarity to queryHist and
// returns the top-k, ties broken by smaller asset_id (spec.md §4.8).
func (idx *Index) ExhaustiveKNN(queryHist []float64, k int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	qNorm := l2Norm(queryHist)
	if qNorm == 0 || k <= 0 {
		return nil
	}

	h := &resultHeap{}
	heap.Init(h)
	for assetID, a := range idx.assets {
		if a.Norm == 0 {
			continue
		}
		sim := dot(queryHist, a.Histogram) / (qNorm * a.Norm)
		pushTopK(h, Result{AssetID: assetID, Similarity: sim}, k)
	}
	return topK(h, h.Len())
}

// InvertedKNN scores only assets sharing a non-zero codeword with the
// query, via the inverted file. It is a superset-preserving approximation
// of ExhaustiveKNN: cosine similarity is exactly zero between disjoint
// supports, so nothing in the true top-k is ever missed (spec.md §4.8).
// Slots the sharing assets leave open are filled with the remaining
// assets at similarity zero, ties by smaller asset_id, as ExhaustiveKNN
// ranks them.
func (idx *Index) InvertedKNN(queryHist []float64, k int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	qNorm := l2Norm(queryHist)
	if qNorm == 0 || k <= 0 {
		return nil
	}

	scores := make(map[int64]float64)
	for w, qv := range queryHist {
		if qv == 0 {
			continue
		}
		for _, p := range idx.inverted[w] {
			a := idx.assets[p.AssetID]
			if a == nil || w >= len(a.Histogram) {
				continue
			}
			scores[p.AssetID] += qv * a.Histogram[w]
		}
	}

	h := &resultHeap{}
	heap.Init(h)
	for assetID, raw := range scores {
		a := idx.assets[assetID]
		if a == nil || a.Norm == 0 {
			continue
		}
		sim := raw / (qNorm * a.Norm)
		pushTopK(h, Result{AssetID: assetID, Similarity: sim}, k)
	}
	if h.Len() < k || (*h)[0].Similarity <= 0 {
		for assetID, a := range idx.assets {
			if _, scored := scores[assetID]; scored || a.Norm == 0 {
				continue
			}
			pushTopK(h, Result{AssetID: assetID, Similarity: 0}, k)
		}
	}
	return topK(h, h.Len())
}

func pushTopK(h *resultHeap, r Result, k int) {
	if h.Len() < k {
		heap.Push(h, r)
		return
	}
	if (*h)[0].Similarity < r.Similarity || ((*h)[0].Similarity == r.Similarity && (*h)[0].AssetID > r.AssetID) {
		heap.Pop(h)
		heap.Push(h, r)
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		if i >= len(b) {
			break
		}
		sum += a[i] * b[i]
	}
	return sum
}

// Delete removes an asset. Per spec.md §3 invariant 7, this does not
// retrain the codebook; it drops the asset's histogram and its postings
// at once. The inverted file holds no idf weights, so nothing else is
// recomputed.
func (idx *Index) Delete(assetID int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.assets, assetID)
	for w, postings := range idx.inverted {
		filtered := postings[:0:0]
		for _, p := range postings {
			if p.AssetID != assetID {
				filtered = append(filtered, p)
			}
		}
		idx.inverted[w] = filtered
	}
	return idx.persist()
}

// InsertAsset adds a new asset's descriptors, reusing the existing
// (frozen) codebook, and rebuilds the whole inverted file from every
// asset's histogram.
func (idx *Index) InsertAsset(assetID int64, descriptors [][]float64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	hist := Histogram(idx.codebook, descriptors)
	idx.assets[assetID] = &asset{Histogram: hist, Norm: l2Norm(hist)}
	idx.buildInvertedFile()
	return idx.persist()
}

// QueryHistogram projects a query asset's descriptors through the
// table's frozen codebook, for callers (the engine's similarity dispatch)
// that only see descriptors, never the codebook itself.
func (idx *Index) QueryHistogram(descriptors [][]float64) []float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Histogram(idx.codebook, descriptors)
}
