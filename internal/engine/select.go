package engine

import (
	"github.com/emberdb/emberdb/internal/index"
	"github.com/emberdb/emberdb/internal/index/rtree"
	"github.com/emberdb/emberdb/internal/record"
	"github.com/emberdb/emberdb/internal/sql"
	"github.com/emberdb/emberdb/internal/table"
	"github.com/emberdb/emberdb/pkg/errors"
)

func predicateName(k sql.PredicateKind) string {
	switch k {
	case sql.PredicateEq:
		return "eq"
	case sql.PredicateBetween:
		return "between"
	case sql.PredicateIn:
		return "in"
	case sql.PredicateTextMatch:
		return "textMatch"
	case sql.PredicateSimilarity:
		return "similarity"
	default:
		return "unknown"
	}
}

// execSelect dispatches a SELECT to the table's bound index (spec.md
// §4.9 "Dispatch rule") and rehydrates the matched rids through the
// record store, projecting to the requested field list.
func (e *Engine) execSelect(s *sql.SelectStmt) (*Result, error) {
	bt, ok := e.reg.get(s.Table)
	if !ok {
		return nil, errors.NewUnknownTableError(s.Table)
	}

	bt.mu.RLock()
	defer bt.mu.RUnlock()

	limit := s.Limit
	if limit <= 0 {
		limit = 10
	}

	var rids []int64
	var err error

	switch {
	case s.Predicate == nil:
		rids = bt.scanLiveRids(limit)
	default:
		rids, err = bt.resolvePredicate(s.Predicate, limit)
	}
	if err != nil {
		if _, isNotFound := err.(notFoundErr); isNotFound {
			return bt.project(nil, s.Fields), nil
		}
		return nil, err
	}

	if limit > 0 && len(rids) > limit {
		rids = rids[:limit]
	}
	return bt.project(rids, s.Fields), nil
}

// notFoundErr marks the soft "search succeeded but empty" outcome
// (spec.md §7): it is never surfaced as a caller-visible error.
type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

func (bt *boundTable) scanLiveRids(limit int) []int64 {
	var out []int64
	_ = bt.records.Scan(func(r record.Row) bool {
		out = append(out, r.Rid)
		return len(out) < limit
	})
	return out
}

func (bt *boundTable) fieldType(name string) index.KeyType {
	if i := bt.meta.Schema.FieldIndex(name); i >= 0 {
		return bt.meta.Schema.Fields[i].Type
	}
	return index.KeyTypeText
}

// searcher returns the point-lookup capability of whichever index family
// this table is bound to, if it has one.
func (bt *boundTable) searcher() (index.Searcher, bool) {
	switch {
	case bt.sequential != nil:
		return bt.sequential, true
	case bt.isam != nil:
		return bt.isam, true
	case bt.hash != nil:
		return bt.hash, true
	case bt.btree != nil:
		return bt.btree, true
	default:
		return nil, false
	}
}

// ranger returns the range-scan capability of whichever index family this
// table is bound to, if it has one (C4 extendible hash never does).
func (bt *boundTable) ranger() (index.Ranger, bool) {
	switch {
	case bt.sequential != nil:
		return bt.sequential, true
	case bt.isam != nil:
		return bt.isam, true
	case bt.btree != nil:
		return bt.btree, true
	default:
		return nil, false
	}
}

// inserter returns the mutation capability of whichever ordinary index
// family this table is bound to (used by INSERT/DELETE; rtree, spimi and
// multimedia have their own shapes and are handled separately).
func (bt *boundTable) inserter() (index.Inserter, bool) {
	switch {
	case bt.sequential != nil:
		return bt.sequential, true
	case bt.isam != nil:
		return bt.isam, true
	case bt.hash != nil:
		return bt.hash, true
	case bt.btree != nil:
		return bt.btree, true
	default:
		return nil, false
	}
}

func (bt *boundTable) deleter() (index.Deleter, bool) {
	switch {
	case bt.sequential != nil:
		return bt.sequential, true
	case bt.isam != nil:
		return bt.isam, true
	case bt.hash != nil:
		return bt.hash, true
	case bt.btree != nil:
		return bt.btree, true
	default:
		return nil, false
	}
}

// resolvePredicate binds one WHERE predicate to the capability the
// table's single primary index offers, failing fast with
// UnsupportedPredicate on any mismatch (spec.md §4.9).
func (bt *boundTable) resolvePredicate(p *sql.Predicate, limit int) ([]int64, error) {
	switch p.Kind {
	case sql.PredicateEq:
		return bt.resolveEq(p)
	case sql.PredicateBetween:
		return bt.resolveBetween(p)
	case sql.PredicateIn:
		return bt.resolveIn(p, limit)
	case sql.PredicateTextMatch:
		return bt.resolveText(p, limit)
	case sql.PredicateSimilarity:
		return bt.resolveSimilarity(p, limit)
	default:
		return nil, errors.NewQueryError(nil, errors.ErrorCodeParse, "unrecognized predicate kind")
	}
}

func (bt *boundTable) unsupported(p *sql.Predicate) error {
	return errors.NewUnsupportedPredicateError(bt.meta.Name, p.Field, string(bt.meta.IndexKind), predicateName(p.Kind))
}

// checkDispatch validates the same field/capability rule resolvePredicate
// enforces, without running the search (used by EXPLAIN to preview a plan
// with no side effects).
func (bt *boundTable) checkDispatch(p *sql.Predicate) error {
	switch p.Kind {
	case sql.PredicateEq:
		if bt.meta.Multimedia || p.Field != bt.meta.IndexField {
			return bt.unsupported(p)
		}
		if _, ok := bt.searcher(); !ok {
			return bt.unsupported(p)
		}
	case sql.PredicateBetween:
		if bt.meta.Multimedia || p.Field != bt.meta.IndexField {
			return bt.unsupported(p)
		}
		if _, ok := bt.ranger(); !ok {
			return bt.unsupported(p)
		}
	case sql.PredicateIn:
		if bt.meta.IndexKind != table.IndexRTree || p.Field != bt.meta.IndexField {
			return bt.unsupported(p)
		}
	case sql.PredicateTextMatch:
		if bt.meta.IndexKind != table.IndexSpimi {
			return bt.unsupported(p)
		}
		if p.Field != bt.meta.IndexField && !containsField(bt.meta.TextFields, p.Field) {
			return bt.unsupported(p)
		}
	case sql.PredicateSimilarity:
		if !bt.meta.Multimedia || p.Field != bt.meta.MediaField {
			return bt.unsupported(p)
		}
	default:
		return errors.NewQueryError(nil, errors.ErrorCodeParse, "unrecognized predicate kind")
	}
	return nil
}

func (bt *boundTable) resolveEq(p *sql.Predicate) ([]int64, error) {
	if bt.meta.Multimedia || p.Field != bt.meta.IndexField {
		return nil, bt.unsupported(p)
	}
	searcher, ok := bt.searcher()
	if !ok {
		return nil, bt.unsupported(p)
	}
	key, err := index.ParseKey(p.EqValue, bt.fieldType(p.Field))
	if err != nil {
		return nil, errors.NewQueryError(err, errors.ErrorCodeParse, "invalid literal for field").WithField(p.Field)
	}
	rids, err := searcher.Search(key)
	if err != nil {
		return nil, err
	}
	if len(rids) == 0 {
		return nil, notFoundErr{}
	}
	return rids, nil
}

func (bt *boundTable) resolveBetween(p *sql.Predicate) ([]int64, error) {
	if bt.meta.Multimedia || p.Field != bt.meta.IndexField {
		return nil, bt.unsupported(p)
	}
	ranger, ok := bt.ranger()
	if !ok {
		return nil, bt.unsupported(p)
	}
	t := bt.fieldType(p.Field)
	lo, err := index.ParseKey(p.Low, t)
	if err != nil {
		return nil, errors.NewQueryError(err, errors.ErrorCodeParse, "invalid literal for field").WithField(p.Field)
	}
	hi, err := index.ParseKey(p.High, t)
	if err != nil {
		return nil, errors.NewQueryError(err, errors.ErrorCodeParse, "invalid literal for field").WithField(p.Field)
	}
	entries, err := ranger.Range(lo, hi)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, notFoundErr{}
	}
	rids := make([]int64, len(entries))
	for i, en := range entries {
		rids[i] = en.Rid
	}
	return rids, nil
}

func (bt *boundTable) resolveIn(p *sql.Predicate, limit int) ([]int64, error) {
	if bt.meta.IndexKind != table.IndexRTree || p.Field != bt.meta.IndexField {
		return nil, bt.unsupported(p)
	}
	pt, err := rtree.ParsePoint(p.Point)
	if err != nil {
		return nil, errors.NewQueryError(err, errors.ErrorCodeParse, "invalid point literal").WithField(p.Field)
	}

	var results []rtree.Result
	if p.RadiusInt {
		k := int(p.Radius)
		if limit > 0 && k > limit {
			k = limit
		}
		results, err = bt.rtree.KNN(pt, k)
	} else {
		results, err = bt.rtree.Radius(pt, p.Radius)
	}
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, notFoundErr{}
	}
	rids := make([]int64, len(results))
	for i, r := range results {
		rids[i] = r.Rid
	}
	return rids, nil
}

func (bt *boundTable) resolveText(p *sql.Predicate, limit int) ([]int64, error) {
	if bt.meta.IndexKind != table.IndexSpimi {
		return nil, bt.unsupported(p)
	}
	if p.Field != bt.meta.IndexField && !containsField(bt.meta.TextFields, p.Field) {
		return nil, bt.unsupported(p)
	}
	k := p.K
	if k <= 0 || k > limit {
		k = limit
	}
	scored := bt.spimi.Query(p.Query, k)
	if len(scored) == 0 {
		return nil, notFoundErr{}
	}
	rids := make([]int64, len(scored))
	for i, sc := range scored {
		rids[i] = sc.Rid
	}
	return rids, nil
}

func (bt *boundTable) resolveSimilarity(p *sql.Predicate, limit int) ([]int64, error) {
	if !bt.meta.Multimedia || p.Field != bt.meta.MediaField {
		return nil, bt.unsupported(p)
	}
	if bt.mediaExtractor == nil {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeBuild, "no query-time feature extractor registered for table").
			WithTable(bt.meta.Name).WithField(p.Field)
	}
	descriptors, err := bt.mediaExtractor(p.Query)
	if err != nil {
		return nil, errors.NewBuildError(err, bt.meta.Name)
	}
	hist := bt.media.QueryHistogram(descriptors)

	k := p.K
	if k <= 0 || k > limit {
		k = limit
	}

	var assetIDs []int64
	if p.Method == "sequential" {
		for _, r := range bt.media.ExhaustiveKNN(hist, k) {
			assetIDs = append(assetIDs, r.AssetID)
		}
	} else {
		for _, r := range bt.media.InvertedKNN(hist, k) {
			assetIDs = append(assetIDs, r.AssetID)
		}
	}
	if len(assetIDs) == 0 {
		return nil, notFoundErr{}
	}
	return assetIDs, nil
}

// project rehydrates rids through the record store and narrows to the
// requested field list (nil/empty fields means every schema field).
func (bt *boundTable) project(rids []int64, fields []string) *Result {
	columns := fields
	if len(columns) == 0 {
		columns = make([]string, len(bt.meta.Schema.Fields))
		for i, f := range bt.meta.Schema.Fields {
			columns[i] = f.Name
		}
	}

	idxs := make([]int, len(columns))
	for i, name := range columns {
		idxs[i] = bt.meta.Schema.FieldIndex(name)
	}

	rows := make([][]string, 0, len(rids))
	for _, rid := range rids {
		fields, live, err := bt.records.Read(rid)
		if err != nil || !live {
			continue
		}
		row := make([]string, len(idxs))
		for i, fi := range idxs {
			if fi >= 0 && fi < len(fields) {
				row[i] = fields[fi]
			}
		}
		rows = append(rows, row)
	}

	return &Result{Columns: columns, Rows: rows, Count: len(rows)}
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
