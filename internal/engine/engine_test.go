package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberdb/emberdb/internal/table"
	"github.com/emberdb/emberdb/pkg/errors"
	"github.com/emberdb/emberdb/pkg/options"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	return New(opts, nil)
}

// emptyIngestor resolves every "FROM FILE ..." clause to schema with no
// pre-existing rows, letting the test populate the table via INSERT.
func emptyIngestor(schema table.Schema) Ingestor {
	return func(path string) (table.Schema, RowIterator, error) {
		return schema, func(yield func(row []string) bool) error { return nil }, nil
	}
}

func idValSchema() table.Schema {
	return table.Schema{Fields: []table.Field{
		{Name: "id", Type: 0, Width: 32},
		{Name: "val", Type: 0, Width: 32},
	}}
}

// TestDeleteRemovesAllDuplicateKeyEntriesThroughEngineDispatch is the
// round-trip property spec.md §8 requires, exercised through the full SQL
// dispatch path rather than directly against one index package: a table
// bound to a B+ tree (spec.md §3 permits duplicate keys unless uniqueness
// is declared) must have every row under a duplicate key's value tombstoned
// and unlinked from the index by a single DELETE.
func TestDeleteRemovesAllDuplicateKeyEntriesThroughEngineDispatch(t *testing.T) {
	e := newTestEngine(t)
	e.SetIngestor(emptyIngestor(idValSchema()))

	_, err := e.Execute(`CREATE TABLE items FROM FILE "items.csv" USING INDEX btree(id)`)
	require.NoError(t, err)

	_, err = e.Execute(`INSERT INTO items VALUES ("dup", "1")`)
	require.NoError(t, err)
	_, err = e.Execute(`INSERT INTO items VALUES ("dup", "2")`)
	require.NoError(t, err)
	_, err = e.Execute(`INSERT INTO items VALUES ("other", "3")`)
	require.NoError(t, err)

	res, err := e.Execute(`SELECT * FROM items WHERE id = "dup"`)
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)

	res, err = e.Execute(`DELETE FROM items WHERE id = "dup"`)
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)

	res, err = e.Execute(`SELECT * FROM items WHERE id = "dup"`)
	require.NoError(t, err)
	require.Equal(t, 0, res.Count)

	res, err = e.Execute(`SELECT * FROM items WHERE id = "other"`)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Equal(t, "3", res.Rows[0][1])
}

// TestSelectUnsupportedPredicateOnMismatchedIndex confirms the dispatch
// rule fails loudly (spec.md §4.9) when a predicate kind the bound index
// cannot serve is issued: a hash index (C4) supports point lookups only,
// so a BETWEEN range predicate must be rejected, not silently downgraded
// to a scan.
func TestSelectUnsupportedPredicateOnMismatchedIndex(t *testing.T) {
	e := newTestEngine(t)
	e.SetIngestor(emptyIngestor(idValSchema()))

	_, err := e.Execute(`CREATE TABLE lookups FROM FILE "lookups.csv" USING INDEX hash(id)`)
	require.NoError(t, err)
	_, err = e.Execute(`INSERT INTO lookups VALUES ("a", "1")`)
	require.NoError(t, err)

	_, err = e.Execute(`SELECT * FROM lookups WHERE id BETWEEN "a" AND "z"`)
	require.Error(t, err)
	require.Equal(t, errors.ErrorCodeUnsupportedPredicate, errors.GetErrorCode(err))
}

// TestHashIndexRejectsDuplicateKeyByDefault documents the engine's forced
// uniqueness for hash-bound tables: CreateTable always sets Unique when
// IndexKind is hash, so a duplicate INSERT surfaces as a DuplicateKey
// query error rather than silently succeeding.
func TestHashIndexRejectsDuplicateKeyByDefault(t *testing.T) {
	e := newTestEngine(t)
	e.SetIngestor(emptyIngestor(idValSchema()))

	_, err := e.Execute(`CREATE TABLE uniq FROM FILE "uniq.csv" USING INDEX hash(id)`)
	require.NoError(t, err)
	_, err = e.Execute(`INSERT INTO uniq VALUES ("a", "1")`)
	require.NoError(t, err)

	_, err = e.Execute(`INSERT INTO uniq VALUES ("a", "2")`)
	require.Error(t, err)
	require.Equal(t, errors.ErrorCodeDuplicateKey, errors.GetErrorCode(err))
}

func TestSelectUnknownTable(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Execute(`SELECT * FROM ghost WHERE id = "a"`)
	require.Error(t, err)
	require.Equal(t, errors.ErrorCodeUnknownTable, errors.GetErrorCode(err))
}

func TestSequentialRangeSelectAfterInserts(t *testing.T) {
	e := newTestEngine(t)
	e.SetIngestor(emptyIngestor(table.Schema{Fields: []table.Field{
		{Name: "id", Type: 1, Width: 32},
		{Name: "val", Type: 0, Width: 32},
	}}))

	_, err := e.Execute(`CREATE TABLE nums FROM FILE "nums.csv" USING INDEX sequential(id)`)
	require.NoError(t, err)
	for _, v := range []string{"10", "20", "30", "40"} {
		_, err := e.Execute(`INSERT INTO nums VALUES ("` + v + `", "x")`)
		require.NoError(t, err)
	}

	res, err := e.Execute(`SELECT * FROM nums WHERE id BETWEEN 15 AND 35`)
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
}
