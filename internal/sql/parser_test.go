package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE products FROM FILE "products.csv" USING INDEX btree(sku)`)
	require.NoError(t, err)

	ct, ok := stmt.(*CreateTableStmt)
	require.True(t, ok)
	require.Equal(t, "products", ct.Table)
	require.Equal(t, "products.csv", ct.SourceFile)
	require.Equal(t, "btree", ct.IndexKind)
	require.Equal(t, "sku", ct.IndexField)
}

func TestParseCreateMultimediaTable(t *testing.T) {
	stmt, err := Parse(`CREATE MULTIMEDIA TABLE photos FROM FILE "photos.csv" USING image WITH METHOD sift CLUSTERS 64`)
	require.NoError(t, err)

	mt, ok := stmt.(*CreateMultimediaTableStmt)
	require.True(t, ok)
	require.Equal(t, "photos", mt.Table)
	require.Equal(t, "image", mt.MediaKind)
	require.Equal(t, "sift", mt.Method)
	require.Equal(t, 64, mt.Clusters)
}

func TestParseSelectEqPredicate(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM products WHERE sku = "ABC123"`)
	require.NoError(t, err)

	sel, ok := stmt.(*SelectStmt)
	require.True(t, ok)
	require.Nil(t, sel.Fields)
	require.NotNil(t, sel.Predicate)
	require.Equal(t, PredicateEq, sel.Predicate.Kind)
	require.Equal(t, "ABC123", sel.Predicate.EqValue)
}

func TestParseSelectBetween(t *testing.T) {
	stmt, err := Parse(`SELECT id, price FROM products WHERE price BETWEEN 10 AND 20 LIMIT 5`)
	require.NoError(t, err)

	sel := stmt.(*SelectStmt)
	require.Equal(t, []string{"id", "price"}, sel.Fields)
	require.Equal(t, PredicateBetween, sel.Predicate.Kind)
	require.Equal(t, "10", sel.Predicate.Low)
	require.Equal(t, "20", sel.Predicate.High)
	require.Equal(t, 5, sel.Limit)
}

func TestParseSelectRadius(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM stores WHERE location IN ("40.7,-74.0", 5.0)`)
	require.NoError(t, err)

	sel := stmt.(*SelectStmt)
	require.Equal(t, PredicateIn, sel.Predicate.Kind)
	require.Equal(t, "40.7,-74.0", sel.Predicate.Point)
	require.Equal(t, 5.0, sel.Predicate.Radius)
	require.False(t, sel.Predicate.RadiusInt)
}

func TestParseSelectKNN(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM stores WHERE location IN ("40.7,-74.0", 5)`)
	require.NoError(t, err)

	sel := stmt.(*SelectStmt)
	require.Equal(t, PredicateIn, sel.Predicate.Kind)
	require.True(t, sel.Predicate.RadiusInt)
	require.Equal(t, 5.0, sel.Predicate.Radius)
}

func TestParseSelectTextMatch(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM reviews WHERE body @@ "light and shadow" TOP 3`)
	require.NoError(t, err)

	sel := stmt.(*SelectStmt)
	require.Equal(t, PredicateTextMatch, sel.Predicate.Kind)
	require.Equal(t, "light and shadow", sel.Predicate.Query)
	require.Equal(t, 3, sel.Predicate.K)
}

func TestParseSelectSimilarity(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM photos WHERE image <-> "query.jpg" METHOD sequential TOP 20`)
	require.NoError(t, err)

	sel := stmt.(*SelectStmt)
	require.Equal(t, PredicateSimilarity, sel.Predicate.Kind)
	require.Equal(t, "sequential", sel.Predicate.Method)
	require.Equal(t, 20, sel.Predicate.K)
}

func TestParseInsertValues(t *testing.T) {
	stmt, err := Parse(`INSERT INTO products VALUES ("ABC123", 19.99)`)
	require.NoError(t, err)

	ins := stmt.(*InsertStmt)
	require.Equal(t, []string{"ABC123", "19.99"}, ins.Values)
}

func TestParseInsertGenerateData(t *testing.T) {
	stmt, err := Parse(`INSERT INTO products GENERATE_DATA(1000)`)
	require.NoError(t, err)

	ins := stmt.(*InsertStmt)
	require.Equal(t, 1000, ins.GenerateData)
}

func TestParseDelete(t *testing.T) {
	stmt, err := Parse(`DELETE FROM products WHERE sku = "ABC123"`)
	require.NoError(t, err)

	del := stmt.(*DeleteStmt)
	require.Equal(t, "products", del.Table)
	require.Equal(t, PredicateEq, del.Predicate.Kind)
}

func TestParseExplainWrapsInner(t *testing.T) {
	stmt, err := Parse(`EXPLAIN SELECT * FROM products WHERE sku = "ABC123"`)
	require.NoError(t, err)

	ex := stmt.(*ExplainStmt)
	_, ok := ex.Inner.(*SelectStmt)
	require.True(t, ok)
}

func TestParseDropTableAndShowTables(t *testing.T) {
	stmt, err := Parse(`DROP TABLE products`)
	require.NoError(t, err)
	require.Equal(t, "products", stmt.(*DropTableStmt).Table)

	stmt, err = Parse(`SHOW TABLES`)
	require.NoError(t, err)
	require.IsType(t, &ShowTablesStmt{}, stmt)
}

func TestParseRejectsGarbageTrailingInput(t *testing.T) {
	_, err := Parse(`SHOW TABLES extra`)
	require.Error(t, err)
}
