// Package engine implements C9: it parses the SQL dialect internal/sql
// defines, binds each statement to the table's single primary index
// family (C2-C8), and rehydrates the matched rids through the record
// store (C1) into a projected result set (spec.md §4.9).
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/emberdb/emberdb/internal/sql"
	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/options"
)

// Result is the uniform shape every statement returns (spec.md §6):
// either a populated Result or a non-nil error carrying one of §7's kinds.
type Result struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Count   int        `json:"count"`
	Elapsed time.Duration `json:"elapsed"`
}

// Engine owns the table registry and the options every table inherits
// its index tuning knobs from.
type Engine struct {
	opts options.Options
	log  *zap.SugaredLogger
	reg  *registry

	ingestor       Ingestor       // CSV/schema-inference collaborator (spec.md §1)
	assetExtractor AssetExtractor // multimedia feature-extractor collaborator (spec.md §1)
}

// New constructs an Engine. log is the structured logger every subsystem
// is handed (SPEC_FULL.md ambient stack); opts supplies per-family
// defaults (pkg/options) new tables adopt unless a statement overrides
// them.
func New(opts options.Options, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{opts: opts, log: log, reg: newRegistry()}
}

// Execute parses sqlText and dispatches it, timing the whole statement
// for Result.Elapsed (spec.md §6).
func (e *Engine) Execute(sqlText string) (*Result, error) {
	start := time.Now()

	stmt, err := sql.Parse(sqlText)
	if err != nil {
		return nil, errors.NewParseError(err, sqlText)
	}

	res, err := e.dispatch(stmt)
	if err != nil {
		fields := []any{"code", errors.GetErrorCode(err), "details", errors.GetErrorDetails(err), "err", err}
		if errors.IsValidationError(err) || errors.IsQueryError(err) {
			// Bad input from the caller, not a storage or index fault: log at
			// warn so dashboards don't page an operator for a typo'd SQL statement.
			e.log.Warnw("statement rejected", fields...)
		} else {
			e.log.Errorw("statement failed", fields...)
		}
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func (e *Engine) dispatch(stmt sql.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *sql.CreateTableStmt:
		return e.execCreateTable(s)
	case *sql.CreateMultimediaTableStmt:
		return e.execCreateMultimediaTable(s)
	case *sql.SelectStmt:
		return e.execSelect(s)
	case *sql.InsertStmt:
		return e.execInsert(s)
	case *sql.DeleteStmt:
		return e.execDelete(s)
	case *sql.DropTableStmt:
		return e.execDropTable(s)
	case *sql.ShowTablesStmt:
		return e.execShowTables(s)
	case *sql.ExplainStmt:
		return e.execExplain(s)
	default:
		return nil, errors.NewQueryError(nil, errors.ErrorCodeParse, "unrecognized statement")
	}
}
