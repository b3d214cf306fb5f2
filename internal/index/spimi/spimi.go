package spimi

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/filesys"
	"github.com/emberdb/emberdb/pkg/seginfo"
)

// Doc is one document to index: its rid and the concatenation of its
// designated text field(s), already field-qualified as "field:term" by
// the caller when the table scopes matches to a single field (spec.md §4.7
// "Multi-field").
type Doc struct {
	Rid  int64
	Text string
}

// postingBlock is a sorted (term, docID) -> tf run, the unit a SPIMI
// build pass spills to disk once the in-memory buffer crosses the
// configured memory bound.
type postingBlock struct {
	Terms []string           `json:"terms"` // sorted
	TF    map[string][]tfRow `json:"tf"`    // term -> sorted by docID
}

type tfRow struct {
	DocID int64 `json:"docId"`
	TF    int   `json:"tf"`
}

// term is one dictionary entry in the final merged index: document
// frequency plus its full posting list, sorted by docID.
type term struct {
	DF       int     `json:"df"`
	Postings []tfRow `json:"postings"`
}

// Config tunes a SPIMI build (spec.md §4.7, knobs from pkg/options).
type Config struct {
	Dir              string
	Profile          Profile
	Stem             bool
	MemoryBoundBytes uint64
	BlockDirName     string
	BlockPrefix      string
	DeltaThreshold   int
}

// Index is the C7 SPIMI text index: a frozen persistent dictionary plus
// an in-memory delta index for inserts between merges (spec.md §4.7
// "Incremental updates").
type Index struct {
	mu      sync.RWMutex
	cfg     Config
	dict    map[string]*term
	norms   map[int64]float64 // doc length ‖d‖₂
	n       int64             // documents indexed persistently (deletes are not subtracted)
	tomb    map[int64]bool    // deleted doc ids
	delta   map[string]map[int64]int // term -> docID -> tf, not yet merged
	deltaN  int
}

const averageBytesPerPosting = 48 // rough estimate: term string + ints + map overhead

// maxPostingsPerBlock converts the configured memory bound into an
// approximate posting count that triggers a spill.
func (c Config) maxPostingsPerBlock() int {
	if c.MemoryBoundBytes == 0 {
		return 200_000
	}
	n := int(c.MemoryBoundBytes / averageBytesPerPosting)
	if n < 1 {
		n = 1
	}
	return n
}

func dictPath(dir string) string  { return dir + "/spimi/dict" }
func postPath(dir string) string  { return dir + "/spimi/post" }
func normsPath(dir string) string { return dir + "/spimi/norms" }

// Build runs the single-pass SPIMI construction of spec.md §4.7: it
// streams docs, accumulating postings in memory until the configured
// memory bound is crossed, spills a sorted block to disk, and after the
// input is exhausted m-way merges every block into the final dictionary
// and posting list, then computes per-document TF-IDF norms.
func Build(cfg Config, docs func(yield func(Doc) bool)) (*Index, error) {
	if err := filesys.CreateDir(filepath.Join(cfg.Dir, cfg.BlockDirName), 0755, true); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create spimi block directory")
	}

	maxPostings := cfg.maxPostingsPerBlock()
	buffer := make(map[string]map[int64]int)
	bufferedPostings := 0
	var blockPaths []string
	var maxDocID int64 = -1

	spill := func() error {
		if len(buffer) == 0 {
			return nil
		}
		path, err := writeBlock(cfg, buffer)
		if err != nil {
			return err
		}
		blockPaths = append(blockPaths, path)
		buffer = make(map[string]map[int64]int)
		bufferedPostings = 0
		return nil
	}

	var buildErr error
	docs(func(d Doc) bool {
		if d.Rid > maxDocID {
			maxDocID = d.Rid
		}
		for _, tok := range Tokenize(d.Text, cfg.Profile, cfg.Stem) {
			docs, ok := buffer[tok]
			if !ok {
				docs = make(map[int64]int)
				buffer[tok] = docs
			}
			if _, existed := docs[d.Rid]; !existed {
				bufferedPostings++
			}
			docs[d.Rid]++
		}
		if bufferedPostings >= maxPostings {
			if err := spill(); err != nil {
				buildErr = err
				return false
			}
		}
		return true
	})
	if buildErr != nil {
		return nil, buildErr
	}
	if err := spill(); err != nil {
		return nil, err
	}

	dict, err := mergeBlocks(blockPaths)
	if err != nil {
		return nil, err
	}

	idx := &Index{cfg: cfg, dict: dict, tomb: make(map[int64]bool), delta: make(map[string]map[int64]int)}
	idx.n = maxDocID + 1
	idx.computeNorms()

	if err := idx.persist(); err != nil {
		return nil, err
	}
	return idx, nil
}

func writeBlock(cfg Config, buffer map[string]map[int64]int) (string, error) {
	terms := make([]string, 0, len(buffer))
	for t := range buffer {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	block := postingBlock{Terms: terms, TF: make(map[string][]tfRow, len(terms))}
	for _, t := range terms {
		docs := buffer[t]
		docIDs := make([]int64, 0, len(docs))
		for d := range docs {
			docIDs = append(docIDs, d)
		}
		sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })
		rows := make([]tfRow, len(docIDs))
		for i, d := range docIDs {
			rows[i] = tfRow{DocID: d, TF: docs[d]}
		}
		block.TF[t] = rows
	}

	raw, err := json.Marshal(block)
	if err != nil {
		return "", errors.NewBuildError(err, "")
	}

	name := seginfo.GenerateName(uint64(len(block.Terms)), cfg.BlockPrefix, ".spimi")
	path := filepath.Join(cfg.Dir, cfg.BlockDirName, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create spimi block").WithPath(path)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return "", errors.NewStorageError(err, errors.ErrorCodeIO, "failed to start zstd encoder")
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return "", errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write spimi block").WithPath(path)
	}
	if err := enc.Close(); err != nil {
		return "", errors.NewStorageError(err, errors.ErrorCodeIO, "failed to flush spimi block").WithPath(path)
	}
	return path, nil
}

func readBlock(path string) (*postingBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open spimi block").WithPath(path)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to start zstd decoder")
	}
	defer dec.Close()

	var block postingBlock
	decoder := json.NewDecoder(dec)
	if err := decoder.Decode(&block); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "spimi block corrupted").WithPath(path)
	}
	return &block, nil
}

// mergeBlocks performs the m-way merge of spec.md §4.7 step 3: every
// spilled block is read in full (bounded by the memory bound that
// triggered its spill) and merged term-by-term into the final dictionary.
func mergeBlocks(paths []string) (map[string]*term, error) {
	dict := make(map[string]*term)
	for _, p := range paths {
		block, err := readBlock(p)
		if err != nil {
			return nil, err
		}
		for _, t := range block.Terms {
			rows := block.TF[t]
			existing, ok := dict[t]
			if !ok {
				existing = &term{}
				dict[t] = existing
			}
			merged := make(map[int64]int, len(existing.Postings)+len(rows))
			for _, r := range existing.Postings {
				merged[r.DocID] = r.TF
			}
			for _, r := range rows {
				merged[r.DocID] += r.TF
			}
			docIDs := make([]int64, 0, len(merged))
			for d := range merged {
				docIDs = append(docIDs, d)
			}
			sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })
			postings := make([]tfRow, len(docIDs))
			for i, d := range docIDs {
				postings[i] = tfRow{DocID: d, TF: merged[d]}
			}
			existing.Postings = postings
			existing.DF = len(postings)
		}
	}
	return dict, nil
}

// weight implements spec.md's TF-IDF weight: (1+log tf) * log(N/df).
func weight(tf, df int, n int64) float64 {
	if tf <= 0 || df <= 0 || n <= 0 {
		return 0
	}
	return (1 + math.Log(float64(tf))) * math.Log(float64(n)/float64(df))
}

func (idx *Index) computeNorms() {
	sums := make(map[int64]float64)
	for _, t := range idx.dict {
		for _, p := range t.Postings {
			w := weight(p.TF, t.DF, idx.n)
			sums[p.DocID] += w * w
		}
	}
	idx.norms = make(map[int64]float64, len(sums))
	for d, s := range sums {
		idx.norms[d] = math.Sqrt(s)
	}
}

func (idx *Index) persist() error {
	dictBuf, err := json.Marshal(idx.dict)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode spimi dictionary")
	}
	if err := filesys.CreateDir(filepath.Dir(dictPath(idx.cfg.Dir)), 0755, true); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create spimi directory")
	}
	if err := filesys.AtomicReplace(dictPath(idx.cfg.Dir), func(f *os.File) error {
		_, err := f.Write(dictBuf)
		return err
	}); err != nil {
		return err
	}

	normsBuf, err := json.Marshal(struct {
		N     int64             `json:"n"`
		Norms map[int64]float64 `json:"norms"`
	}{N: idx.n, Norms: idx.norms})
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode spimi norms")
	}
	return filesys.AtomicReplace(normsPath(idx.cfg.Dir), func(f *os.File) error {
		_, err := f.Write(normsBuf)
		return err
	})
}

// Open reloads a previously built index. If no artifacts exist, it
// returns an empty index ready to accept its first Build.
func Open(cfg Config) (*Index, error) {
	idx := &Index{cfg: cfg, dict: make(map[string]*term), norms: make(map[int64]float64),
		tomb: make(map[int64]bool), delta: make(map[string]map[int64]int)}

	dictBuf, err := filesys.ReadFile(dictPath(cfg.Dir))
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read spimi dictionary").WithPath(dictPath(cfg.Dir))
	}
	if err := json.Unmarshal(dictBuf, &idx.dict); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "spimi dictionary corrupted")
	}

	normsBuf, err := filesys.ReadFile(normsPath(cfg.Dir))
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read spimi norms").WithPath(normsPath(cfg.Dir))
	}
	var stored struct {
		N     int64             `json:"n"`
		Norms map[int64]float64 `json:"norms"`
	}
	if err := json.Unmarshal(normsBuf, &stored); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "spimi norms corrupted")
	}
	idx.n = stored.N
	idx.norms = stored.Norms
	return idx, nil
}
