package engine

import (
	"sync"

	"github.com/emberdb/emberdb/internal/index/btree"
	"github.com/emberdb/emberdb/internal/index/hash"
	"github.com/emberdb/emberdb/internal/index/isam"
	"github.com/emberdb/emberdb/internal/index/multimedia"
	"github.com/emberdb/emberdb/internal/index/rtree"
	"github.com/emberdb/emberdb/internal/index/sequential"
	"github.com/emberdb/emberdb/internal/index/spimi"
	"github.com/emberdb/emberdb/internal/record"
	"github.com/emberdb/emberdb/internal/table"
)

// boundTable is one table's live, open handle: its metadata, its record
// store, and whichever single index family it is bound to. Exactly one of
// the index fields is non-nil, selected by Meta.IndexKind / Meta.Multimedia
// (spec.md §3 "exactly one primary index").
//
// mu is the table-level shared/exclusive lock spec.md §5 requires: SELECT
// takes RLock, CREATE/INSERT/DELETE take Lock.
type boundTable struct {
	mu sync.RWMutex

	dir     string
	meta    table.Meta
	records *record.Store

	sequential *sequential.Index
	isam       *isam.Index
	hash       *hash.Index
	btree      *btree.Index
	rtree      *rtree.Index
	spimi      *spimi.Index
	media      *multimedia.Index

	generate       func(n int) ([][]string, error)            // optional GENERATE_DATA hook
	mediaExtractor func(query string) ([][]float64, error)    // optional query-time feature extractor, multimedia tables only
}

// registry is the process-wide guarded map of open tables spec.md §9
// "Global engine state" calls for: a single mutex-protected map, created,
// used, and dropped through its lifecycle — no ambient singleton.
type registry struct {
	mu     sync.RWMutex
	tables map[string]*boundTable
}

func newRegistry() *registry {
	return &registry{tables: make(map[string]*boundTable)}
}

func (r *registry) get(name string) (*boundTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

func (r *registry) put(name string, t *boundTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[name] = t
}

func (r *registry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, name)
}

func (r *registry) all() []*boundTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*boundTable, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	return out
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tables))
	for name := range r.tables {
		out = append(out, name)
	}
	return out
}
