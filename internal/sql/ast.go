package sql

// Statement is the root type every parsed statement implements. It's a
// marker interface; the engine type-switches on the concrete type.
type Statement interface {
	statementNode()
}

// CreateTableStmt parses:
//
//	CREATE TABLE name FROM FILE "path" USING INDEX kind(field[, field...])
type CreateTableStmt struct {
	Table      string
	SourceFile string
	IndexKind  string
	IndexField string
	Unique     bool
}

func (*CreateTableStmt) statementNode() {}

// CreateMultimediaTableStmt parses:
//
//	CREATE MULTIMEDIA TABLE name FROM FILE "path" USING {image|audio}
//	  WITH METHOD m CLUSTERS k
type CreateMultimediaTableStmt struct {
	Table      string
	SourceFile string
	MediaKind  string // "image" | "audio"
	Method     string
	Clusters   int
}

func (*CreateMultimediaTableStmt) statementNode() {}

// PredicateKind distinguishes the five WHERE-predicate shapes spec.md
// §4.9 defines.
type PredicateKind int

const (
	PredicateEq PredicateKind = iota
	PredicateBetween
	PredicateIn       // radius search: field IN (point, radius)
	PredicateTextMatch // field @@ "query"
	PredicateSimilarity // field <-> "path/literal" [METHOD inverted|sequential]
)

// Predicate is the single WHERE clause a statement carries. The grammar
// (spec.md §4.9) allows exactly one predicate per statement — no AND/OR
// chaining — so a flat struct with kind-specific fields is simpler than a
// boolean expression tree.
type Predicate struct {
	Kind  PredicateKind
	Field string

	// PredicateEq
	EqValue string

	// PredicateBetween
	Low  string
	High string

	// PredicateIn: a float second argument means a radius search (km), an
	// integer one means a kNN search for that many neighbors (spec.md §4.9).
	Point     string // "lat,lon" literal
	Radius    float64
	RadiusInt bool

	// PredicateTextMatch / PredicateSimilarity
	Query  string
	Method string // "inverted" | "sequential", only meaningful for PredicateSimilarity
	K      int    // top-k for similarity/text ranking
}

// SelectStmt parses:
//
//	SELECT fieldlist FROM table [WHERE predicate] [LIMIT n]
type SelectStmt struct {
	Table     string
	Fields    []string // nil/empty means "*"
	Predicate *Predicate
	Limit     int // 0 means unset
}

func (*SelectStmt) statementNode() {}

// InsertStmt parses either:
//
//	INSERT INTO table VALUES (v1, v2, ...)
//	INSERT INTO table GENERATE_DATA(n)
type InsertStmt struct {
	Table        string
	Values       []string
	GenerateData int // >0 when GENERATE_DATA(n) form was used
}

func (*InsertStmt) statementNode() {}

// DeleteStmt parses:
//
//	DELETE FROM table WHERE field = value
type DeleteStmt struct {
	Table     string
	Predicate *Predicate
}

func (*DeleteStmt) statementNode() {}

// ExplainStmt wraps another statement, requesting a dispatch-plan preview
// instead of execution (SPEC_FULL.md supplemented feature).
type ExplainStmt struct {
	Inner Statement
}

func (*ExplainStmt) statementNode() {}

// DropTableStmt parses: DROP TABLE name
type DropTableStmt struct {
	Table string
}

func (*DropTableStmt) statementNode() {}

// ShowTablesStmt parses: SHOW TABLES
type ShowTablesStmt struct{}

func (*ShowTablesStmt) statementNode() {}
