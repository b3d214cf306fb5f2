package engine

import (
	"fmt"

	"github.com/emberdb/emberdb/internal/sql"
	"github.com/emberdb/emberdb/pkg/errors"
)

// execExplain previews the dispatch decision a statement would make
// without executing it: which table, which bound index, and whether the
// predicate is servable (SPEC_FULL.md supplemented feature — spec.md's
// own dispatch rule is otherwise silent on a preview mode).
func (e *Engine) execExplain(s *sql.ExplainStmt) (*Result, error) {
	var plan string

	switch inner := s.Inner.(type) {
	case *sql.CreateTableStmt:
		plan = fmt.Sprintf("create table %q from %q using %s index on %q",
			inner.Table, inner.SourceFile, inner.IndexKind, inner.IndexField)

	case *sql.CreateMultimediaTableStmt:
		plan = fmt.Sprintf("create multimedia table %q from %q (%s, method=%s, clusters=%d)",
			inner.Table, inner.SourceFile, inner.MediaKind, inner.Method, inner.Clusters)

	case *sql.SelectStmt:
		bt, ok := e.reg.get(inner.Table)
		if !ok {
			return nil, errors.NewUnknownTableError(inner.Table)
		}
		bt.mu.RLock()
		defer bt.mu.RUnlock()

		if inner.Predicate == nil {
			plan = fmt.Sprintf("full scan of %q (no predicate), limit=%d", inner.Table, effectiveLimit(inner.Limit))
			break
		}
		if err := bt.checkDispatch(inner.Predicate); err != nil {
			return nil, err
		}
		plan = fmt.Sprintf("dispatch %s(%s) on table %q's %s index", predicateName(inner.Predicate.Kind), inner.Predicate.Field, inner.Table, bt.meta.IndexKind)

	case *sql.InsertStmt:
		if inner.GenerateData > 0 {
			plan = fmt.Sprintf("insert %d generated rows into %q", inner.GenerateData, inner.Table)
		} else {
			plan = fmt.Sprintf("insert 1 row into %q and its bound index", inner.Table)
		}

	case *sql.DeleteStmt:
		plan = fmt.Sprintf("tombstone rows in %q matching %s = %s and unlink them from the bound index",
			inner.Table, inner.Predicate.Field, inner.Predicate.EqValue)

	case *sql.DropTableStmt:
		plan = fmt.Sprintf("drop table %q and delete its directory", inner.Table)

	case *sql.ShowTablesStmt:
		plan = "list every registered table"

	default:
		return nil, errors.NewQueryError(nil, errors.ErrorCodeParse, "cannot explain this statement")
	}

	return &Result{Columns: []string{"plan"}, Rows: [][]string{{plan}}, Count: 1}, nil
}

func effectiveLimit(l int) int {
	if l <= 0 {
		return 10
	}
	return l
}
