package engine

import (
	"github.com/emberdb/emberdb/internal/index"
	"github.com/emberdb/emberdb/internal/index/rtree"
	"github.com/emberdb/emberdb/internal/sql"
	"github.com/emberdb/emberdb/internal/table"
	"github.com/emberdb/emberdb/pkg/errors"
)

// execInsert appends a record and keeps the table's bound index in sync
// (spec.md §4.9). The table-level lock is exclusive: CREATE, INSERT,
// DELETE, and SPIMI merges all take it per §5.
func (e *Engine) execInsert(s *sql.InsertStmt) (*Result, error) {
	bt, ok := e.reg.get(s.Table)
	if !ok {
		return nil, errors.NewUnknownTableError(s.Table)
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()

	if s.GenerateData > 0 {
		return bt.insertGenerated(s.GenerateData)
	}
	return bt.insertOne(s.Values)
}

func (bt *boundTable) insertGenerated(n int) (*Result, error) {
	if bt.generate == nil {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeBuild, "no GENERATE_DATA source registered for table").WithTable(bt.meta.Name)
	}
	rowsToInsert, err := bt.generate(n)
	if err != nil {
		return nil, errors.NewBuildError(err, bt.meta.Name)
	}
	inserted := 0
	for _, row := range rowsToInsert {
		if _, err := bt.insertOne(row); err != nil {
			return nil, err
		}
		inserted++
	}
	return &Result{Columns: nil, Rows: nil, Count: inserted}, nil
}

func (bt *boundTable) insertOne(values []string) (*Result, error) {
	if len(values) != len(bt.meta.Schema.Fields) {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeParse, "value count does not match schema").WithTable(bt.meta.Name)
	}

	if bt.meta.Multimedia {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeBuild, "INSERT on a multimedia table requires InsertAsset via the extractor collaborator").WithTable(bt.meta.Name)
	}

	fieldIdx := bt.meta.Schema.FieldIndex(bt.meta.IndexField)

	if bt.meta.IndexKind != table.IndexSpimi {
		keyType := bt.meta.Schema.Fields[fieldIdx].Type
		if bt.meta.IndexKind != table.IndexRTree {
			if _, err := index.ParseKey(values[fieldIdx], keyType); err != nil {
				return nil, errors.NewQueryError(err, errors.ErrorCodeParse, "invalid literal for index field").WithField(bt.meta.IndexField)
			}
		} else if _, err := rtree.ParsePoint(values[fieldIdx]); err != nil {
			return nil, errors.NewQueryError(err, errors.ErrorCodeParse, "invalid point literal").WithField(bt.meta.IndexField)
		}
	}

	rid, err := bt.records.Append(values)
	if err != nil {
		return nil, errors.NewQueryError(err, errors.ErrorCodeIO, "failed to append record").WithTable(bt.meta.Name)
	}

	if err := bt.insertIntoIndex(rid, values); err != nil {
		return nil, err
	}
	return &Result{Count: 1}, nil
}

func (bt *boundTable) insertIntoIndex(rid int64, values []string) error {
	fieldIdx := bt.meta.Schema.FieldIndex(bt.meta.IndexField)

	switch bt.meta.IndexKind {
	case table.IndexRTree:
		return bt.rtree.Insert(index.NewTextKey(values[fieldIdx]), rid)
	case table.IndexSpimi:
		return bt.spimi.InsertDoc(rid, values[fieldIdx])
	default:
		inserter, ok := bt.inserter()
		if !ok {
			return errors.NewQueryError(nil, errors.ErrorCodeBuild, "table's index does not support insert").WithTable(bt.meta.Name)
		}
		key, err := index.ParseKey(values[fieldIdx], bt.meta.Schema.Fields[fieldIdx].Type)
		if err != nil {
			return errors.NewQueryError(err, errors.ErrorCodeParse, "invalid literal for index field").WithField(bt.meta.IndexField)
		}
		if err := inserter.Insert(key, rid); err != nil {
			if ie, ok := errors.AsIndexError(err); ok && ie.Code() == errors.ErrorCodeIndexDuplicateKey {
				return errors.NewDuplicateKeyError(bt.meta.Name, bt.meta.IndexField, values[fieldIdx])
			}
			return err
		}
		return nil
	}
}

// InsertAsset adds a new asset row to a multimedia table, reusing its
// frozen codebook (spec.md §3 invariant 7). The descriptors are supplied
// by the caller since feature extraction is an external collaborator.
func (e *Engine) InsertAsset(tableName string, values []string, descriptors [][]float64) (*Result, error) {
	bt, ok := e.reg.get(tableName)
	if !ok {
		return nil, errors.NewUnknownTableError(tableName)
	}
	if !bt.meta.Multimedia {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeBuild, "table is not a multimedia table").WithTable(tableName)
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()

	rid, err := bt.records.Append(values)
	if err != nil {
		return nil, errors.NewQueryError(err, errors.ErrorCodeIO, "failed to append asset record").WithTable(tableName)
	}
	if err := bt.media.InsertAsset(rid, descriptors); err != nil {
		return nil, errors.NewBuildError(err, tableName)
	}
	return &Result{Count: 1}, nil
}
