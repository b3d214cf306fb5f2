package engine

import (
	"fmt"

	"github.com/emberdb/emberdb/internal/sql"
	"github.com/emberdb/emberdb/internal/table"
	"github.com/emberdb/emberdb/pkg/errors"
)

// mediaPathField is the conventional schema column name the ingestion
// collaborator is expected to use for a multimedia asset's file path.
const mediaPathField = "path"

// Ingestor resolves a "FROM FILE path" clause into a schema and a row
// iterator. CSV parsing and schema inference are an external collaborator
// (spec.md §1); the engine never opens a file itself.
type Ingestor func(path string) (table.Schema, RowIterator, error)

// AssetExtractor resolves a "FROM FILE path" clause for a multimedia
// table into one descriptor set per ingested row (spec.md §1: feature
// extraction is an external collaborator). rid is the record id the row
// was just assigned in C1.
type AssetExtractor func(mediaKind string, rid int64, row []string) ([][]float64, error)

// SetIngestor registers the collaborator CREATE TABLE / CREATE MULTIMEDIA
// TABLE statements use to turn their source file path into rows.
func (e *Engine) SetIngestor(fn Ingestor) { e.ingestor = fn }

// SetAssetExtractor registers the collaborator CREATE MULTIMEDIA TABLE
// uses to turn an ingested row into descriptors at build time.
func (e *Engine) SetAssetExtractor(fn AssetExtractor) { e.assetExtractor = fn }

// execCreateTable resolves the statement's source file through the
// registered Ingestor and builds the table (spec.md §4.9).
func (e *Engine) execCreateTable(s *sql.CreateTableStmt) (*Result, error) {
	if e.ingestor == nil {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeBuild, "no ingestion collaborator registered").WithTable(s.Table)
	}

	schema, rows, err := e.ingestor(s.SourceFile)
	if err != nil {
		return nil, errors.NewBuildError(err, s.Table)
	}

	if err := e.CreateTable(CreateTableRequest{
		Name:       s.Table,
		SourceFile: s.SourceFile,
		Schema:     schema,
		IndexKind:  table.IndexKind(s.IndexKind),
		IndexField: s.IndexField,
		Unique:     s.Unique,
		Rows:       rows,
	}); err != nil {
		return nil, err
	}

	bt, _ := e.reg.get(s.Table)
	bt.mu.RLock()
	count := bt.records.Count()
	bt.mu.RUnlock()
	return &Result{Count: int(count)}, nil
}

// execCreateMultimediaTable resolves the statement's source file through
// the registered Ingestor and AssetExtractor and trains the table's
// codebook (spec.md §4.8).
func (e *Engine) execCreateMultimediaTable(s *sql.CreateMultimediaTableStmt) (*Result, error) {
	if e.ingestor == nil {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeBuild, "no ingestion collaborator registered").WithTable(s.Table)
	}
	if e.assetExtractor == nil {
		return nil, errors.NewQueryError(nil, errors.ErrorCodeBuild, "no asset feature extractor registered").WithTable(s.Table)
	}

	schema, rows, err := e.ingestor(s.SourceFile)
	if err != nil {
		return nil, errors.NewBuildError(err, s.Table)
	}
	// The grammar names no field for CREATE MULTIMEDIA TABLE, so the
	// ingestion collaborator is expected to label the asset-path column
	// "path" by convention (spec.md §4.6 "path field").
	if schema.FieldIndex(mediaPathField) < 0 {
		return nil, errors.NewBuildError(fmt.Errorf("schema has no %q column", mediaPathField), s.Table)
	}

	if err := e.CreateMultimediaTable(CreateMultimediaTableRequest{
		Name:       s.Table,
		SourceFile: s.SourceFile,
		Schema:     schema,
		MediaKind:  s.MediaKind,
		MediaField: mediaPathField,
		Method:     s.Method,
		Clusters:   s.Clusters,
		Identity:   table.NewExtractorIdentity(s.Method, "", s.MediaKind),
		Rows:       rows,
		DescriptorsForRow: func(rid int64, row []string) ([][]float64, error) {
			return e.assetExtractor(s.MediaKind, rid, row)
		},
	}); err != nil {
		return nil, err
	}

	bt, _ := e.reg.get(s.Table)
	bt.mu.RLock()
	count := bt.records.Count()
	bt.mu.RUnlock()
	return &Result{Count: int(count)}, nil
}
