// Package table owns a table's schema, its binding to a primary index
// family, and its on-disk metadata (spec.md §3, §6 "meta.json").
package table

import (
	"github.com/emberdb/emberdb/internal/index"
	"github.com/emberdb/emberdb/pkg/errors"
)

// IndexKind names one of the five index families (C2-C6) a table's
// primary index can be bound to, or the SPIMI text index (C7), reachable
// only through its own predicate form (spec.md §4.9). Multimedia tables
// (C8) carry no IndexKind; Meta.Multimedia marks them instead.
type IndexKind string

const (
	IndexSequential IndexKind = "sequential"
	IndexISAM       IndexKind = "isam"
	IndexHash       IndexKind = "hash"
	IndexBTree      IndexKind = "btree"
	IndexRTree      IndexKind = "rtree"
	IndexSpimi      IndexKind = "spimi"
)

// Field describes one column of a table's schema: its declared width
// (for the fixed-width record store, C1) and its declared type (spec.md
// §9 "typed fields"). Geo marks a float pair field as geographic
// lat/lon, routing R-tree distance computations to Haversine.
type Field struct {
	Name string        `json:"name"`
	Type index.KeyType  `json:"type"`
	Width int           `json:"width"`
	Geo   bool          `json:"geo,omitempty"`
}

// Schema is a table's ordered field list.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldIndex returns the position of name in the schema, or -1.
func (s Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Widths returns every field's declared width, in schema order, for the
// record store's fixed-width slot layout.
func (s Schema) Widths() []int {
	w := make([]int, len(s.Fields))
	for i, f := range s.Fields {
		w[i] = f.Width
	}
	return w
}

// Meta is the full persisted description of a table (spec.md §6
// meta.json): schema, field widths, index kind, index field, language
// profile, cluster count, and extractor identity.
type Meta struct {
	Name            string            `json:"name"`
	SourceFile      string            `json:"sourceFile"`
	Schema          Schema            `json:"schema"`
	IndexKind       IndexKind         `json:"indexKind"`
	IndexField      string            `json:"indexField"`
	Unique          bool              `json:"unique"`
	LanguageProfile string            `json:"languageProfile,omitempty"`
	TextFields      []string          `json:"textFields,omitempty"`
	Stem            bool              `json:"stem,omitempty"`
	Multimedia      bool              `json:"multimedia,omitempty"`
	MediaKind       string            `json:"mediaKind,omitempty"` // "image" | "audio"
	MediaField      string            `json:"mediaField,omitempty"`
	Clusters        int               `json:"clusters,omitempty"`
	Extractor       *ExtractorIdentity `json:"extractor,omitempty"`
}

// Table is an in-memory handle on one bound table: its metadata plus the
// concrete index and record store instances the engine dispatches to.
// The concrete index value is held by the engine (it's one of seven
// mutually exclusive concrete types per table), Table itself only
// carries what every table has in common.
type Table struct {
	Dir  string
	Meta Meta
}

// maxFieldWidth caps a declared fixed-width slot width at a sane ceiling;
// the record store (C1) allocates this many bytes per field, per record.
const maxFieldWidth = 1 << 16

// Validate checks that IndexField (and, for multimedia tables,
// MediaField) name real schema fields, the index kind is something C9
// knows how to dispatch to, and every field's declared width fits the
// fixed-width record store (C1).
func (m Meta) Validate() error {
	switch m.IndexKind {
	case IndexSequential, IndexISAM, IndexHash, IndexBTree, IndexRTree, IndexSpimi:
	case "":
		if !m.Multimedia {
			return errors.NewConfigurationValidationError("indexKind",
				"table declares no index kind and is not a multimedia table").WithDetail("table", m.Name)
		}
	default:
		return errors.NewFieldFormatError("indexKind", m.IndexKind,
			"one of sequential, isam, hash, btree, rtree, spimi").WithDetail("table", m.Name)
	}

	if m.IndexKind != "" && m.IndexKind != IndexSpimi {
		if m.IndexField == "" {
			return errors.NewRequiredFieldError("indexField").WithDetail("table", m.Name)
		}
		if m.Schema.FieldIndex(m.IndexField) < 0 {
			return errors.NewFieldFormatError("indexField", m.IndexField,
				"name of a column in the table's schema").WithDetail("table", m.Name)
		}
	}
	if m.Multimedia && m.Schema.FieldIndex(m.MediaField) < 0 {
		return errors.NewFieldFormatError("mediaField", m.MediaField,
			"name of a column in the table's schema").WithDetail("table", m.Name)
	}

	for _, f := range m.Schema.Fields {
		if f.Width < 1 || f.Width > maxFieldWidth {
			return errors.NewFieldRangeError(f.Name, f.Width, 1, maxFieldWidth).WithDetail("table", m.Name)
		}
	}
	return nil
}
