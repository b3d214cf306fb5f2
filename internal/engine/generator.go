package engine

import "github.com/emberdb/emberdb/pkg/errors"

// SetGenerator registers the GENERATE_DATA(n) row source for a table
// (spec.md §4.9 "GENERATE_DATA"). Synthetic-data generation is an
// out-of-scope collaborator; without a registered generator, INSERT ...
// GENERATE_DATA(n) fails with a BuildError.
func (e *Engine) SetGenerator(tableName string, fn func(n int) ([][]string, error)) error {
	bt, ok := e.reg.get(tableName)
	if !ok {
		return errors.NewUnknownTableError(tableName)
	}
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.generate = fn
	return nil
}

// SetQueryExtractor registers the query-time feature extractor a
// multimedia table's similarity predicate projects through the frozen
// codebook (spec.md §1: feature extraction is an external collaborator).
func (e *Engine) SetQueryExtractor(tableName string, fn func(query string) ([][]float64, error)) error {
	bt, ok := e.reg.get(tableName)
	if !ok {
		return errors.NewUnknownTableError(tableName)
	}
	if !bt.meta.Multimedia {
		return errors.NewQueryError(nil, errors.ErrorCodeBuild, "table is not a multimedia table").WithTable(tableName)
	}
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.mediaExtractor = fn
	return nil
}
