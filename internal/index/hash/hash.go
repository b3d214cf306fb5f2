// Package hash implements C4: extendible hashing. The directory always
// has exactly 2^globalDepth slots; each bucket tracks its own local depth
// and, in the pathological case where a split doesn't relieve pressure
// (e.g. every key hashing into the same low bits), chains an overflow
// bucket rather than splitting forever (spec.md §4.4).
//
// h(key) is github.com/zeebo/xxh3, a fast, well-distributed non-cryptographic
// hash — the same library the wider example corpus reaches for when it
// needs a hash function rather than a key comparator.
package hash

import (
	"os"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/zeebo/xxh3"

	"github.com/emberdb/emberdb/internal/index"
	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/filesys"
)

// bucket holds up to bucketSize entries at a given local depth, plus an
// optional overflow chain for the pathological case.
type bucket struct {
	LocalDepth uint8         `json:"localDepth"`
	Entries    []index.Entry `json:"entries"`
	Overflow   *bucket       `json:"overflow,omitempty"`
}

// Index is the C4 extendible hash index.
type Index struct {
	mu          sync.RWMutex
	dir         string
	bucketSize  int
	globalDepth uint8
	directory   []int // slot -> bucket index
	buckets     []*bucket
	unique      bool
}

var _ index.PointIndex = (*Index)(nil)

// Config configures a new or reopened hash index.
type Config struct {
	Dir                string
	BucketSize         int
	InitialGlobalDepth uint8
	Unique             bool
}

type onDisk struct {
	GlobalDepth uint8     `json:"globalDepth"`
	Directory   []int     `json:"directory"`
	Buckets     []*bucket `json:"buckets"`
}

func dirPath(dir string) string     { return dir + "/hash.dir" }
func bucketsPath(dir string) string { return dir + "/hash.buckets" }

// Open loads a persisted hash index, or bootstraps a fresh one sized to
// InitialGlobalDepth.
func Open(cfg Config) (*Index, error) {
	if cfg.BucketSize < 1 {
		cfg.BucketSize = 64
	}

	idx := &Index{dir: cfg.Dir, bucketSize: cfg.BucketSize, unique: cfg.Unique}

	data, err := filesys.ReadFile(dirPath(cfg.Dir))
	if os.IsNotExist(err) {
		g := cfg.InitialGlobalDepth
		if g == 0 {
			g = 1
		}
		idx.globalDepth = g
		size := 1 << g
		idx.directory = make([]int, size)
		idx.buckets = []*bucket{{LocalDepth: 0}}
		return idx, idx.persist()
	}
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read hash.dir").WithPath(dirPath(cfg.Dir))
	}

	var od onDisk
	if err := json.Unmarshal(data, &od); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "hash index corrupted").WithPath(dirPath(cfg.Dir))
	}
	idx.globalDepth = od.GlobalDepth
	idx.directory = od.Directory
	idx.buckets = od.Buckets
	return idx, nil
}

func (idx *Index) persist() error {
	od := onDisk{GlobalDepth: idx.globalDepth, Directory: idx.directory, Buckets: idx.buckets}
	buf, err := json.Marshal(od)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode hash index")
	}
	return filesys.AtomicReplace(dirPath(idx.dir), func(f *os.File) error {
		_, err := f.Write(buf)
		return err
	})
}

// hashKey returns a uniformly distributed 64-bit hash of k's canonical
// text representation.
func hashKey(k index.Key) uint64 {
	return xxh3.HashString(k.Text)
}

// slot returns the low g bits of h.
func slot(h uint64, g uint8) int {
	if g == 0 {
		return 0
	}
	return int(h & ((1 << g) - 1))
}

func (idx *Index) bucketFor(k index.Key) *bucket {
	h := hashKey(k)
	s := slot(h, idx.globalDepth)
	return idx.buckets[idx.directory[s]]
}

func scanBucket(b *bucket, fn func(index.Entry) bool) bool {
	for _, e := range b.Entries {
		if !fn(e) {
			return false
		}
	}
	if b.Overflow != nil {
		return scanBucket(b.Overflow, fn)
	}
	return true
}

// Search scans the target bucket and any overflow chain.
func (idx *Index) Search(k index.Key) ([]int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	b := idx.bucketFor(k)
	var rids []int64
	scanBucket(b, func(e index.Entry) bool {
		if index.Equal(e.Key, k) {
			rids = append(rids, e.Rid)
		}
		return true
	})
	return rids, nil
}

// Insert adds (k, rid), splitting or growing the directory as needed.
func (idx *Index) Insert(k index.Key, rid int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.unique {
		var dup bool
		scanBucket(idx.bucketFor(k), func(e index.Entry) bool {
			if index.Equal(e.Key, k) {
				dup = true
				return false
			}
			return true
		})
		if dup {
			return errors.NewIndexDuplicateKeyError(k.Text)
		}
	}

	if err := idx.insertEntry(k, rid); err != nil {
		return err
	}
	return idx.persist()
}

func (idx *Index) insertEntry(k index.Key, rid int64) error {
	h := hashKey(k)
	s := slot(h, idx.globalDepth)
	bi := idx.directory[s]
	b := idx.buckets[bi]

	if len(b.Entries) < idx.bucketSize {
		b.Entries = append(b.Entries, index.Entry{Key: k, Rid: rid})
		return nil
	}

	// A split only helps if it would actually separate the bucket's
	// existing entries on the next hash bit; if every entry collides on
	// that bit too (e.g. duplicate keys beyond bucketSize), splitting
	// forever just grows the directory without bound. Chain an overflow
	// bucket instead, per spec.md §4.4.
	if !idx.wouldSeparate(b) {
		idx.appendOverflow(b, index.Entry{Key: k, Rid: rid})
		return nil
	}

	if b.LocalDepth == idx.globalDepth {
		idx.growDirectory()
	}

	idx.splitBucket(bi)
	return idx.insertEntry(k, rid)
}

// wouldSeparate reports whether splitting b on its next hash bit
// (1 << b.LocalDepth) would place its entries into two distinct buckets.
// When every entry shares that bit, a split is pointless.
func (idx *Index) wouldSeparate(b *bucket) bool {
	if len(b.Entries) == 0 {
		return true
	}
	splitBit := uint64(1) << b.LocalDepth
	first := hashKey(b.Entries[0].Key) & splitBit
	for _, e := range b.Entries[1:] {
		if hashKey(e.Key)&splitBit != first {
			return true
		}
	}
	return false
}

// appendOverflow walks b's overflow chain to its tail and either appends
// e there if room remains, or chains a fresh overflow bucket.
func (idx *Index) appendOverflow(b *bucket, e index.Entry) {
	cur := b
	for cur.Overflow != nil {
		cur = cur.Overflow
	}
	if len(cur.Entries) < idx.bucketSize {
		cur.Entries = append(cur.Entries, e)
		return
	}
	cur.Overflow = &bucket{LocalDepth: cur.LocalDepth, Entries: []index.Entry{e}}
}

// growDirectory doubles the directory, duplicating each pointer, per
// spec.md §4.4.
func (idx *Index) growDirectory() {
	idx.globalDepth++
	newDir := make([]int, len(idx.directory)*2)
	for i, bi := range idx.directory {
		newDir[i] = bi
		newDir[i+len(idx.directory)] = bi
	}
	idx.directory = newDir
}

// splitBucket splits the bucket idx.buckets[bi] into two buckets at
// local depth l+1, redistributing entries by the new bit, and redirects
// exactly half the directory pointers that targeted it. Callers only
// reach here once wouldSeparate has confirmed the split bit actually
// divides the bucket's entries.
func (idx *Index) splitBucket(bi int) {
	old := idx.buckets[bi]
	newLocalDepth := old.LocalDepth + 1

	sibling := &bucket{LocalDepth: newLocalDepth}
	old.LocalDepth = newLocalDepth

	entries := old.Entries
	old.Entries = nil
	splitBit := uint64(1) << (newLocalDepth - 1)

	for _, e := range entries {
		h := hashKey(e.Key)
		if h&splitBit != 0 {
			sibling.Entries = append(sibling.Entries, e)
		} else {
			old.Entries = append(old.Entries, e)
		}
	}

	siblingIdx := len(idx.buckets)
	idx.buckets = append(idx.buckets, sibling)

	for s := range idx.directory {
		if idx.buckets[idx.directory[s]] == old && uint64(s)&splitBit != 0 {
			idx.directory[s] = siblingIdx
		}
	}
}

// Delete removes the entry from its bucket (or overflow chain). Buckets
// are not compacted back together; spec.md §4.4 lists compaction as
// optional.
func (idx *Index) Delete(k index.Key) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	b := idx.bucketFor(k)
	for cur := b; cur != nil; cur = cur.Overflow {
		filtered := cur.Entries[:0:0]
		for _, e := range cur.Entries {
			if !index.Equal(e.Key, k) {
				filtered = append(filtered, e)
			}
		}
		cur.Entries = filtered
	}
	return idx.persist()
}
