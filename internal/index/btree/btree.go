// Package btree implements C5: a balanced order-m B+ tree with linked
// leaves for range iteration. Nodes live in a flat arena indexed by int
// rather than an ambient pointer graph — per spec.md §9's design note,
// this keeps split/merge bookkeeping and JSON serialization
// straightforward, and the leaf chain is just a "next" index field.
package btree

import (
	"os"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/emberdb/emberdb/internal/index"
	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/filesys"
)

const noNode = -1

type node struct {
	Leaf     bool          `json:"leaf"`
	Keys     []index.Key   `json:"keys"`     // internal: separators; leaf: unused (Entries carry keys)
	Children []int         `json:"children"` // internal only, len(Children) == len(Keys)+1
	Entries  []index.Entry `json:"entries"`  // leaf only
	Next     int           `json:"next"`     // leaf only, noNode if rightmost
}

// Index is the C5 B+ tree.
type Index struct {
	mu    sync.RWMutex
	dir   string
	order int
	nodes []*node
	root  int
}

var _ index.OrderedIndex = (*Index)(nil)

func idxPath(dir string) string { return dir + "/btree.idx" }

type onDisk struct {
	Order int     `json:"order"`
	Nodes []*node `json:"nodes"`
	Root  int     `json:"root"`
}

// Open reloads a persisted B+ tree, or bootstraps an empty one with the
// given order (m).
func Open(dir string, order int) (*Index, error) {
	if order < 4 {
		order = 128
	}

	data, err := filesys.ReadFile(idxPath(dir))
	if os.IsNotExist(err) {
		idx := &Index{dir: dir, order: order}
		idx.nodes = []*node{{Leaf: true, Next: noNode}}
		idx.root = 0
		return idx, idx.persist()
	}
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read btree.idx").WithPath(idxPath(dir))
	}

	var od onDisk
	if err := json.Unmarshal(data, &od); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "btree index corrupted").WithPath(idxPath(dir))
	}
	return &Index{dir: dir, order: od.Order, nodes: od.Nodes, root: od.Root}, nil
}

func (idx *Index) persist() error {
	od := onDisk{Order: idx.order, Nodes: idx.nodes, Root: idx.root}
	buf, err := json.Marshal(od)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to encode btree index")
	}
	return filesys.AtomicReplace(idxPath(idx.dir), func(f *os.File) error {
		_, err := f.Write(buf)
		return err
	})
}

// findLeaf descends via separators, left-biased for equality, to the leaf
// that should hold k.
func (idx *Index) findLeaf(k index.Key) int {
	cur := idx.root
	for !idx.nodes[cur].Leaf {
		n := idx.nodes[cur]
		i := 0
		for i < len(n.Keys) && index.Less(n.Keys[i], k) {
			i++
		}
		cur = n.Children[i]
	}
	return cur
}

// Search scans the target leaf for all entries matching k, then keeps
// walking the leaf chain the same way Range does: a run of duplicate
// keys can straddle a split and land split across two leaves, so
// stopping at the first leaf would silently drop the rids that landed
// on the right-hand side of the split.
func (idx *Index) Search(k index.Key) ([]int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var rids []int64
	li := idx.findLeaf(k)
	for li != noNode {
		leaf := idx.nodes[li]
		stop := false
		for _, e := range leaf.Entries {
			if index.Less(k, e.Key) {
				stop = true
				break
			}
			if index.Equal(e.Key, k) {
				rids = append(rids, e.Rid)
			}
		}
		if stop {
			break
		}
		li = leaf.Next
	}
	return rids, nil
}

// Range descends to the leaf for lo, then walks the leaf chain emitting
// entries until key > hi.
func (idx *Index) Range(lo, hi index.Key) ([]index.Entry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []index.Entry
	li := idx.findLeaf(lo)
	for li != noNode {
		leaf := idx.nodes[li]
		stop := false
		for _, e := range leaf.Entries {
			if index.Less(hi, e.Key) {
				stop = true
				break
			}
			if !index.Less(e.Key, lo) {
				out = append(out, e)
			}
		}
		if stop {
			break
		}
		li = leaf.Next
	}
	return out, nil
}

// Insert inserts (k, rid) into its leaf, splitting and propagating
// upward as needed.
func (idx *Index) Insert(k index.Key, rid int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.insertEntry(k, rid)
	return idx.persist()
}

func (idx *Index) insertEntry(k index.Key, rid int64) {
	path := idx.pathTo(k)
	leafIdx := path[len(path)-1]
	leaf := idx.nodes[leafIdx]

	pos := 0
	for pos < len(leaf.Entries) && index.Less(leaf.Entries[pos].Key, k) {
		pos++
	}
	leaf.Entries = append(leaf.Entries, index.Entry{})
	copy(leaf.Entries[pos+1:], leaf.Entries[pos:])
	leaf.Entries[pos] = index.Entry{Key: k, Rid: rid}

	if len(leaf.Entries) <= idx.order-1 {
		return
	}
	idx.splitLeaf(path)
}

// pathTo returns the chain of node indices from root to the leaf holding k.
func (idx *Index) pathTo(k index.Key) []int {
	path := []int{idx.root}
	cur := idx.root
	for !idx.nodes[cur].Leaf {
		n := idx.nodes[cur]
		i := 0
		for i < len(n.Keys) && !index.Less(k, n.Keys[i]) {
			i++
		}
		cur = n.Children[i]
		path = append(path, cur)
	}
	return path
}

func (idx *Index) splitLeaf(path []int) {
	leafIdx := path[len(path)-1]
	leaf := idx.nodes[leafIdx]

	mid := (len(leaf.Entries) + 1) / 2
	rightEntries := append([]index.Entry{}, leaf.Entries[mid:]...)
	leaf.Entries = leaf.Entries[:mid]

	rightIdx := len(idx.nodes)
	idx.nodes = append(idx.nodes, &node{Leaf: true, Entries: rightEntries, Next: leaf.Next})
	leaf.Next = rightIdx

	promoted := rightEntries[0].Key
	idx.insertIntoParent(path[:len(path)-1], leafIdx, promoted, rightIdx)
}

// insertIntoParent inserts a separator key and right-child pointer into
// the parent named by the end of ancestorPath, splitting internal nodes
// upward as needed; an empty ancestorPath means leftChild was the root,
// so a new root is created.
func (idx *Index) insertIntoParent(ancestorPath []int, leftChild int, sepKey index.Key, rightChild int) {
	if len(ancestorPath) == 0 {
		newRoot := &node{Children: []int{leftChild, rightChild}, Keys: []index.Key{sepKey}}
		idx.nodes = append(idx.nodes, newRoot)
		idx.root = len(idx.nodes) - 1
		return
	}

	parentIdx := ancestorPath[len(ancestorPath)-1]
	parent := idx.nodes[parentIdx]

	pos := 0
	for pos < len(parent.Children) && parent.Children[pos] != leftChild {
		pos++
	}

	parent.Keys = append(parent.Keys, index.Key{})
	copy(parent.Keys[pos+1:], parent.Keys[pos:])
	parent.Keys[pos] = sepKey

	parent.Children = append(parent.Children, 0)
	copy(parent.Children[pos+2:], parent.Children[pos+1:])
	parent.Children[pos+1] = rightChild

	if len(parent.Children) <= idx.order {
		return
	}

	// Split the internal node: promote the middle separator.
	midKey := len(parent.Keys) / 2
	promoted := parent.Keys[midKey]

	rightIdx := len(idx.nodes)
	right := &node{
		Keys:     append([]index.Key{}, parent.Keys[midKey+1:]...),
		Children: append([]int{}, parent.Children[midKey+1:]...),
	}
	idx.nodes = append(idx.nodes, right)

	parent.Keys = parent.Keys[:midKey]
	parent.Children = parent.Children[:midKey+1]

	idx.insertIntoParent(ancestorPath[:len(ancestorPath)-1], parentIdx, promoted, rightIdx)
}

// Delete removes every entry with key k from its leaf. An underflowing
// non-root leaf is merged with a sibling (see rebalanceLeaf); entries are
// never borrowed from a sibling instead.
func (idx *Index) Delete(k index.Key) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	path := idx.pathTo(k)
	leafIdx := path[len(path)-1]
	leaf := idx.nodes[leafIdx]

	filtered := leaf.Entries[:0:0]
	for _, e := range leaf.Entries {
		if !index.Equal(e.Key, k) {
			filtered = append(filtered, e)
		}
	}
	leaf.Entries = filtered

	minOccupancy := (idx.order + 1) / 2 // ceil(m/2)
	if leafIdx != idx.root && len(leaf.Entries) < minOccupancy-1 {
		idx.rebalanceLeaf(path)
	}

	return idx.persist()
}

// rebalanceLeaf merges an underflowing leaf with a sibling under the same
// parent: it absorbs its right sibling's entries, or, when it is the
// parent's last child, its entries are appended to its left sibling. The
// parent drops the emptied child and one separator; internal nodes are
// not rebalanced, and the merged leaf is not split even if it ends up
// holding more than m-1 entries.
func (idx *Index) rebalanceLeaf(path []int) {
	if len(path) < 2 {
		return
	}
	leafIdx := path[len(path)-1]
	parentIdx := path[len(path)-2]
	parent := idx.nodes[parentIdx]

	pos := 0
	for pos < len(parent.Children) && parent.Children[pos] != leafIdx {
		pos++
	}

	leaf := idx.nodes[leafIdx]
	if pos+1 < len(parent.Children) {
		rightSibling := idx.nodes[parent.Children[pos+1]]
		leaf.Entries = append(leaf.Entries, rightSibling.Entries...)
		leaf.Next = rightSibling.Next
		parent.Children = append(parent.Children[:pos+1], parent.Children[pos+2:]...)
		parent.Keys = append(parent.Keys[:pos], parent.Keys[pos+1:]...)
	} else if pos > 0 {
		leftSibling := idx.nodes[parent.Children[pos-1]]
		leftSibling.Entries = append(leftSibling.Entries, leaf.Entries...)
		leftSibling.Next = leaf.Next
		parent.Children = append(parent.Children[:pos], parent.Children[pos+1:]...)
		parent.Keys = append(parent.Keys[:pos-1], parent.Keys[pos:]...)
	}
}
