package engine

import (
	"sort"

	"github.com/emberdb/emberdb/internal/sql"
	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/filesys"
)

// execDropTable removes a table's directory and registry entry
// (SPEC_FULL.md supplemented feature; spec.md §3 "Lifecycle: ...tables
// are destroyed by deleting their artifacts").
func (e *Engine) execDropTable(s *sql.DropTableStmt) (*Result, error) {
	bt, ok := e.reg.get(s.Table)
	if !ok {
		return nil, errors.NewUnknownTableError(s.Table)
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()

	if err := bt.records.Close(); err != nil {
		return nil, errors.NewQueryError(err, errors.ErrorCodeIO, "failed to close record store").WithTable(s.Table)
	}
	if err := filesys.DeleteDir(bt.dir); err != nil {
		return nil, errors.NewQueryError(err, errors.ErrorCodeIO, "failed to remove table directory").WithTable(s.Table)
	}

	e.reg.remove(s.Table)
	e.log.Infow("dropped table", "table", s.Table)
	return &Result{Count: 1}, nil
}

// execShowTables lists every table currently in the registry
// (SPEC_FULL.md supplemented feature).
func (e *Engine) execShowTables(_ *sql.ShowTablesStmt) (*Result, error) {
	names := e.reg.names()
	sort.Strings(names)

	rows := make([][]string, len(names))
	for i, n := range names {
		rows[i] = []string{n}
	}
	return &Result{Columns: []string{"table"}, Rows: rows, Count: len(rows)}, nil
}
