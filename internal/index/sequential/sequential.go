// Package sequential implements C2: an ordered main file with a bounded
// unordered auxiliary area, periodically folded back into main. It is the
// cheapest index family to build and the one spec.md §4.2 prescribes for
// tables that mostly append and rarely query by range.
//
// Persistence follows spec.md §5's atomic-rename contract: every merge
// writes a complete new main file to a temp path via
// pkg/filesys.AtomicReplace before renaming over main.seq, so a crash
// mid-merge leaves the previous generation intact. Records are encoded
// with github.com/goccy/go-json, the same fast-path JSON codec the
// engine uses for meta.json (SPEC_FULL.md domain stack).
package sequential

import (
	"os"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/emberdb/emberdb/internal/index"
	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/filesys"
)

// record is the on-disk representation of one index.Entry.
type record struct {
	Type int     `json:"t"`
	Text string  `json:"s"`
	Num  float64 `json:"n"`
	Rid  int64   `json:"r"`
}

func toRecord(e index.Entry) record {
	return record{Type: int(e.Key.Type), Text: e.Key.Text, Num: e.Key.Num, Rid: e.Rid}
}

func (r record) toEntry() index.Entry {
	return index.Entry{Key: index.Key{Type: index.KeyType(r.Type), Text: r.Text, Num: r.Num}, Rid: r.Rid}
}

// Index is the C2 sequential-with-overflow index.
type Index struct {
	mu   sync.RWMutex
	dir  string // table directory holding main.seq / aux.seq
	main []index.Entry
	aux  []index.Entry

	unique    bool
	mergeSize int // |aux| threshold that triggers a merge, |main|*AuxMergeRatio
	ratio     float64
}

var _ index.OrderedIndex = (*Index)(nil)

// Config configures a new or reopened sequential index.
type Config struct {
	Dir           string
	Unique        bool
	AuxMergeRatio float64
}

func mainPath(dir string) string { return dir + "/main.seq" }
func auxPath(dir string) string  { return dir + "/aux.seq" }

// Open loads main.seq/aux.seq if present, or starts an empty index.
func Open(cfg Config) (*Index, error) {
	idx := &Index{dir: cfg.Dir, unique: cfg.Unique}

	main, err := loadFile(mainPath(cfg.Dir))
	if err != nil {
		return nil, err
	}
	aux, err := loadFile(auxPath(cfg.Dir))
	if err != nil {
		return nil, err
	}
	idx.main = main
	idx.aux = aux
	idx.recomputeThreshold(cfg.AuxMergeRatio)
	return idx, nil
}

func (idx *Index) recomputeThreshold(ratio float64) {
	if ratio <= 0 {
		ratio = 0.1
	}
	idx.ratio = ratio
	idx.mergeSize = int(float64(len(idx.main)) * ratio)
	if idx.mergeSize < 1 {
		idx.mergeSize = 1
	}
}

func loadFile(path string) ([]index.Entry, error) {
	data, err := filesys.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read sequential index file").WithPath(path)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "sequential index file is corrupted").WithPath(path)
	}
	entries := make([]index.Entry, len(recs))
	for i, r := range recs {
		entries[i] = r.toEntry()
	}
	return entries, nil
}

func writeFile(path string, entries []index.Entry) error {
	recs := make([]record, len(entries))
	for i, e := range entries {
		recs[i] = toRecord(e)
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode sequential index entries").WithPath(path)
	}
	return filesys.AtomicReplace(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// Search performs binary search over main, falling back to a linear scan
// of aux for recently-inserted keys (spec.md §4.2).
func (idx *Index) Search(k index.Key) ([]int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var rids []int64
	i := sort.Search(len(idx.main), func(i int) bool { return !index.Less(idx.main[i].Key, k) })
	for ; i < len(idx.main) && index.Equal(idx.main[i].Key, k); i++ {
		rids = append(rids, idx.main[i].Rid)
	}
	for _, e := range idx.aux {
		if index.Equal(e.Key, k) {
			rids = append(rids, e.Rid)
		}
	}
	return rids, nil
}

// Range returns every entry with key in [lo, hi], merging main and aux.
func (idx *Index) Range(lo, hi index.Key) ([]index.Entry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []index.Entry
	i := sort.Search(len(idx.main), func(i int) bool { return !index.Less(idx.main[i].Key, lo) })
	for ; i < len(idx.main) && !index.Less(hi, idx.main[i].Key); i++ {
		out = append(out, idx.main[i])
	}
	for _, e := range idx.aux {
		if !index.Less(e.Key, lo) && !index.Less(hi, e.Key) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return index.Less(out[i].Key, out[j].Key) })
	return out, nil
}

// Insert appends to aux, merging into main once aux crosses the configured
// threshold.
func (idx *Index) Insert(k index.Key, rid int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.unique {
		if dup := idx.searchLocked(k); len(dup) > 0 {
			return errors.NewIndexDuplicateKeyError(k.Text)
		}
	}

	idx.aux = append(idx.aux, index.Entry{Key: k, Rid: rid})
	if err := writeFile(auxPath(idx.dir), idx.aux); err != nil {
		return err
	}

	if len(idx.aux) >= idx.mergeSize {
		return idx.mergeLocked()
	}
	return nil
}

func (idx *Index) searchLocked(k index.Key) []int64 {
	var rids []int64
	i := sort.Search(len(idx.main), func(i int) bool { return !index.Less(idx.main[i].Key, k) })
	for ; i < len(idx.main) && index.Equal(idx.main[i].Key, k); i++ {
		rids = append(rids, idx.main[i].Rid)
	}
	for _, e := range idx.aux {
		if index.Equal(e.Key, k) {
			rids = append(rids, e.Rid)
		}
	}
	return rids
}

// mergeLocked stable-sorts main ∪ aux by key, rewrites main, clears aux.
// Callers must hold idx.mu.
func (idx *Index) mergeLocked() error {
	merged := make([]index.Entry, 0, len(idx.main)+len(idx.aux))
	merged = append(merged, idx.main...)
	merged = append(merged, idx.aux...)
	sort.SliceStable(merged, func(i, j int) bool { return index.Less(merged[i].Key, merged[j].Key) })

	if err := writeFile(mainPath(idx.dir), merged); err != nil {
		return err
	}
	if err := writeFile(auxPath(idx.dir), nil); err != nil {
		return err
	}

	idx.main = merged
	idx.aux = nil
	idx.recomputeThreshold(idx.ratio)
	return nil
}

// Delete removes every entry with key k from both main and aux at once
// and rewrites both files; no tombstone is left behind for a later merge.
func (idx *Index) Delete(k index.Key) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	filtered := idx.main[:0:0]
	for _, e := range idx.main {
		if index.Equal(e.Key, k) {
			continue
		}
		filtered = append(filtered, e)
	}
	idx.main = filtered

	auxFiltered := idx.aux[:0:0]
	for _, e := range idx.aux {
		if index.Equal(e.Key, k) {
			continue
		}
		auxFiltered = append(auxFiltered, e)
	}
	idx.aux = auxFiltered

	if err := writeFile(mainPath(idx.dir), idx.main); err != nil {
		return err
	}
	return writeFile(auxPath(idx.dir), idx.aux)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
