// Package emberdb is the entry point for embedding the database engine:
// a self-contained multimodal store over tabular, textual, and
// multimedia data, queried through a small SQL dialect. It wires
// together the index families (C2-C6), the SPIMI text index (C7), the
// multimedia vector index (C8), and the SQL dispatch layer (C9) behind
// a single Instance.
package emberdb

import (
	"context"

	"github.com/emberdb/emberdb/internal/engine"
	"github.com/emberdb/emberdb/pkg/logger"
	"github.com/emberdb/emberdb/pkg/options"
)

// Instance is the primary entry point for interacting with EmberDB. It
// owns the table registry and every index the engine opens on a
// caller's behalf, and is safe for concurrent use across tables (each
// table enforces its own single-writer/multi-reader discipline, §5).
type Instance struct {
	engine  *engine.Engine
	options *options.Options
}

// NewInstance creates and initializes a new EmberDB instance.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	return &Instance{engine: engine.New(defaultOpts, log), options: &defaultOpts}, nil
}

// SetIngestor registers the CSV-parsing and schema-inference collaborator
// CREATE TABLE / CREATE MULTIMEDIA TABLE statements resolve their "FROM
// FILE path" clause through. The core never parses a delimited file
// itself (§1 "out of scope").
func (i *Instance) SetIngestor(fn engine.Ingestor) {
	i.engine.SetIngestor(fn)
}

// SetAssetExtractor registers the feature-extraction collaborator CREATE
// MULTIMEDIA TABLE uses to turn an ingested asset path into descriptors.
func (i *Instance) SetAssetExtractor(fn engine.AssetExtractor) {
	i.engine.SetAssetExtractor(fn)
}

// SetGenerator registers the synthetic-data collaborator a table's
// INSERT ... GENERATE_DATA(n) form draws rows from.
func (i *Instance) SetGenerator(table string, fn func(n int) ([][]string, error)) error {
	return i.engine.SetGenerator(table, fn)
}

// SetQueryExtractor registers the query-time feature extractor a
// multimedia table's `<->` predicate projects a query asset through.
func (i *Instance) SetQueryExtractor(table string, fn func(query string) ([][]float64, error)) error {
	return i.engine.SetQueryExtractor(table, fn)
}

// InsertAsset adds one row to a multimedia table given its
// already-extracted descriptors, bypassing the query-time extractor
// collaborator (used for bulk loads where descriptors are precomputed).
func (i *Instance) InsertAsset(table string, values []string, descriptors [][]float64) (*engine.Result, error) {
	return i.engine.InsertAsset(table, values, descriptors)
}

// Execute parses and dispatches one SQL statement (§4.9), returning the
// uniform Result shape (§6) or one of the typed errors in §7.
func (i *Instance) Execute(_ context.Context, statement string) (*engine.Result, error) {
	return i.engine.Execute(statement)
}

// Close releases every open table's resources.
func (i *Instance) Close(_ context.Context) error {
	return i.engine.Close()
}
