// Package isam implements C3: a static two-level ISAM index. Root and
// leaf-index pages are built once from sorted input and frozen; inserts
// never restructure them, they only grow a data page's overflow chain
// (spec.md §4.3). Long chains are an intentional, diagnosable cost rather
// than a defect — exactly as spec.md describes.
package isam

import (
	"os"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/emberdb/emberdb/internal/index"
	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/filesys"
)

// page is one data page: a blocking-factor's worth of entries plus a
// singly linked overflow chain of further pages of the same size.
type page struct {
	Entries  []index.Entry `json:"entries"`
	Overflow []page        `json:"overflow,omitempty"`
}

type onDisk struct {
	DataPages  []page        `json:"dataPages"`
	LeafIndex  []index.Key   `json:"leafIndex"`  // first key of each data page
	RootIndex  []index.Key   `json:"rootIndex"`  // first key of each leaf-index page
	LeafPageSz int           `json:"leafPageSz"` // how many leaf-index entries per root-index page
}

// Index is the C3 ISAM index.
type Index struct {
	mu             sync.RWMutex
	dir            string
	blockingFactor int
	root           []index.Key
	leaf           []index.Key // first key of each data page, flattened
	leafPageSz     int
	data           []page
}

var _ index.OrderedIndex = (*Index)(nil)

func dataPath(dir string) string { return dir + "/isam.data" }
func lfPath(dir string) string   { return dir + "/isam.lf" }
func rtPath(dir string) string   { return dir + "/isam.rt" }

// Build constructs a fresh ISAM index from entries already sorted by key.
// It is the only way to populate root and leaf-index pages; once written
// they are frozen (spec.md §4.3 "written once and frozen").
func Build(dir string, sortedEntries []index.Entry, blockingFactor int) (*Index, error) {
	if blockingFactor < 1 {
		blockingFactor = 32
	}

	idx := &Index{dir: dir, blockingFactor: blockingFactor}

	for i := 0; i < len(sortedEntries); i += blockingFactor {
		end := i + blockingFactor
		if end > len(sortedEntries) {
			end = len(sortedEntries)
		}
		chunk := make([]index.Entry, end-i)
		copy(chunk, sortedEntries[i:end])
		idx.data = append(idx.data, page{Entries: chunk})
		idx.leaf = append(idx.leaf, chunk[0].Key)
	}

	idx.leafPageSz = blockingFactor
	for i := 0; i < len(idx.leaf); i += idx.leafPageSz {
		idx.root = append(idx.root, idx.leaf[i])
	}

	if err := idx.persist(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Open reloads a previously built ISAM index from disk.
func Open(dir string, blockingFactor int) (*Index, error) {
	data, err := filesys.ReadFile(dataPath(dir))
	if os.IsNotExist(err) {
		return Build(dir, nil, blockingFactor)
	}
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read isam.data").WithPath(dataPath(dir))
	}

	var od onDisk
	if err := json.Unmarshal(data, &od); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "isam index corrupted").WithPath(dataPath(dir))
	}

	return &Index{
		dir: dir, blockingFactor: blockingFactor,
		data: od.DataPages, leaf: od.LeafIndex, root: od.RootIndex, leafPageSz: od.LeafPageSz,
	}, nil
}

func (idx *Index) persist() error {
	od := onDisk{DataPages: idx.data, LeafIndex: idx.leaf, RootIndex: idx.root, LeafPageSz: idx.leafPageSz}
	buf, err := json.Marshal(od)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode isam index")
	}
	return filesys.AtomicReplace(dataPath(idx.dir), func(f *os.File) error {
		_, err := f.Write(buf)
		return err
	})
}

// dataPageFor descends root -> leaf-index to find which data page should
// hold k, returning -1 if the index is empty.
func (idx *Index) dataPageFor(k index.Key) int {
	if len(idx.leaf) == 0 {
		return -1
	}
	// root tells us which leaf-index page to search.
	rootPos := sort.Search(len(idx.root), func(i int) bool { return index.Less(k, idx.root[i]) }) - 1
	if rootPos < 0 {
		rootPos = 0
	}
	lo := rootPos * idx.leafPageSz
	hi := lo + idx.leafPageSz
	if hi > len(idx.leaf) {
		hi = len(idx.leaf)
	}
	pos := sort.Search(hi-lo, func(i int) bool { return index.Less(k, idx.leaf[lo+i]) }) - 1
	if pos < 0 {
		pos = 0
	}
	return lo + pos
}

func scanPage(p page, fn func(index.Entry) bool) bool {
	for _, e := range p.Entries {
		if !fn(e) {
			return false
		}
	}
	for _, ov := range p.Overflow {
		if !scanPage(ov, fn) {
			return false
		}
	}
	return true
}

// Search scans the target data page plus its overflow chain.
func (idx *Index) Search(k index.Key) ([]int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pi := idx.dataPageFor(k)
	if pi < 0 {
		return nil, nil
	}

	var rids []int64
	scanPage(idx.data[pi], func(e index.Entry) bool {
		if index.Equal(e.Key, k) {
			rids = append(rids, e.Rid)
		}
		return true
	})
	return rids, nil
}

// Range descends to the left endpoint's page and walks pages sequentially,
// each followed by its own overflow chain, stopping past the right endpoint.
func (idx *Index) Range(lo, hi index.Key) ([]index.Entry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	start := idx.dataPageFor(lo)
	if start < 0 {
		return nil, nil
	}

	var out []index.Entry
	for pi := start; pi < len(idx.data); pi++ {
		stop := false
		scanPage(idx.data[pi], func(e index.Entry) bool {
			if index.Less(hi, e.Key) {
				stop = true
				return false
			}
			if !index.Less(e.Key, lo) {
				out = append(out, e)
			}
			return true
		})
		if stop {
			break
		}
	}
	return out, nil
}

// Insert appends to the target data page's overflow chain. Root and
// leaf-index are never rebuilt on insert (spec.md §4.3).
func (idx *Index) Insert(k index.Key, rid int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.data) == 0 {
		idx.data = []page{{Entries: []index.Entry{{Key: k, Rid: rid}}}}
		idx.leaf = []index.Key{k}
		idx.root = []index.Key{k}
		idx.leafPageSz = idx.blockingFactor
		return idx.persist()
	}

	pi := idx.dataPageFor(k)
	appendToChain(&idx.data[pi], k, rid, idx.blockingFactor)
	return idx.persist()
}

func appendToChain(p *page, k index.Key, rid int64, bf int) {
	if len(p.Entries) < bf {
		p.Entries = append(p.Entries, index.Entry{Key: k, Rid: rid})
		return
	}
	for i := range p.Overflow {
		if len(p.Overflow[i].Entries) < bf {
			p.Overflow[i].Entries = append(p.Overflow[i].Entries, index.Entry{Key: k, Rid: rid})
			return
		}
	}
	p.Overflow = append(p.Overflow, page{Entries: []index.Entry{{Key: k, Rid: rid}}})
}

// Delete tombstones the entry within its page or overflow chain. The
// physical record tombstoning happens in C1; this only removes the
// (key, rid) pointer so future scans don't return it.
func (idx *Index) Delete(k index.Key) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pi := idx.dataPageFor(k)
	if pi < 0 {
		return nil
	}
	removeFromChain(&idx.data[pi], k)
	return idx.persist()
}

func removeFromChain(p *page, k index.Key) {
	filtered := p.Entries[:0:0]
	for _, e := range p.Entries {
		if !index.Equal(e.Key, k) {
			filtered = append(filtered, e)
		}
	}
	p.Entries = filtered
	for i := range p.Overflow {
		removeFromChain(&p.Overflow[i], k)
	}
}
