package engine

import (
	"github.com/emberdb/emberdb/internal/index"
	"github.com/emberdb/emberdb/internal/record"
	"github.com/emberdb/emberdb/internal/sql"
	"github.com/emberdb/emberdb/internal/table"
	"github.com/emberdb/emberdb/pkg/errors"
)

// execDelete tombstones every record matching the WHERE predicate in C1
// and unlinks it from the table's bound index (spec.md §3 "Lifecycle").
// Only `f = v` is grammar-supported for DELETE (spec.md §4.9).
func (e *Engine) execDelete(s *sql.DeleteStmt) (*Result, error) {
	bt, ok := e.reg.get(s.Table)
	if !ok {
		return nil, errors.NewUnknownTableError(s.Table)
	}
	if s.Predicate == nil || s.Predicate.Kind != sql.PredicateEq {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeParse, "DELETE requires a f = v predicate").WithTable(s.Table)
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()

	p := s.Predicate
	if bt.meta.Multimedia || p.Field != bt.meta.IndexField {
		return nil, bt.unsupported(p)
	}

	rids, err := bt.deleteMatching(p)
	if err != nil {
		return nil, err
	}
	return &Result{Count: len(rids)}, nil
}

func (bt *boundTable) deleteMatching(p *sql.Predicate) ([]int64, error) {
	key, err := index.ParseKey(p.EqValue, bt.fieldType(p.Field))
	if err != nil {
		return nil, errors.NewQueryError(err, errors.ErrorCodeParse, "invalid literal for field").WithField(p.Field)
	}

	var rids []int64
	switch bt.meta.IndexKind {
	case table.IndexRTree:
		return nil, bt.unsupported(p)
	case table.IndexSpimi:
		rids = bt.scanMatchingField(p.Field, p.EqValue)
	default:
		searcher, ok := bt.searcher()
		if !ok {
			return nil, bt.unsupported(p)
		}
		rids, err = searcher.Search(key)
		if err != nil {
			return nil, err
		}
	}

	for _, rid := range rids {
		if err := bt.records.Tombstone(rid); err != nil {
			return nil, errors.NewQueryError(err, errors.ErrorCodeIO, "failed to tombstone record").WithTable(bt.meta.Name)
		}
	}

	if bt.meta.IndexKind == table.IndexSpimi {
		for _, rid := range rids {
			if err := bt.spimi.DeleteDoc(rid); err != nil {
				return nil, err
			}
		}
		return rids, nil
	}

	if deleter, ok := bt.deleter(); ok {
		if err := deleter.Delete(key); err != nil {
			return nil, err
		}
	}
	return rids, nil
}

// scanMatchingField full-scans the record store for live rows whose
// field named name exactly equals value; SPIMI has no point index to
// route "f = v" through, so equality delete falls back to a scan over
// C1 (spec.md §4.7's tombstone-at-query-time model applies once the
// matching rids are known).
func (bt *boundTable) scanMatchingField(name, value string) []int64 {
	fieldIdx := bt.meta.Schema.FieldIndex(name)
	if fieldIdx < 0 {
		return nil
	}
	var rids []int64
	_ = bt.records.Scan(func(r record.Row) bool {
		if r.Fields[fieldIdx] == value {
			rids = append(rids, r.Rid)
		}
		return true
	})
	return rids
}
