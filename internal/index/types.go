// Package index defines the vocabulary shared by every index family (C2-C6):
// the key type, the (key, rid) entry an index stores, and the total order
// keys are compared under. Each family (sequential, isam, hash, btree,
// rtree) lives in its own subpackage and implements whichever of the
// capability interfaces declared here its structure supports; C7 and C8
// live in their own packages entirely since postings and histograms don't
// fit the (key, rid) shape.
package index

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyType tags how a Key's Raw value compares. It mirrors the typed-field
// design note in spec.md §9: widths plus a declared type recovered from
// ingestion, so SQL literals parse and compare the way the table's schema
// says they should rather than falling back to raw byte comparison.
type KeyType uint8

const (
	KeyTypeText KeyType = iota
	KeyTypeInt
	KeyTypeFloat
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeInt:
		return "int"
	case KeyTypeFloat:
		return "float"
	default:
		return "text"
	}
}

// Key is an immutable, totally-ordered value drawn from one table field.
type Key struct {
	Type KeyType
	Text string
	Num  float64
}

// NewTextKey builds a lexicographically ordered key.
func NewTextKey(s string) Key { return Key{Type: KeyTypeText, Text: s} }

// NewIntKey builds a numerically ordered integer key.
func NewIntKey(n int64) Key { return Key{Type: KeyTypeInt, Num: float64(n), Text: strconv.FormatInt(n, 10)} }

// NewFloatKey builds a numerically ordered floating point key.
func NewFloatKey(f float64) Key { return Key{Type: KeyTypeFloat, Num: f, Text: strconv.FormatFloat(f, 'g', -1, 64)} }

// ParseKey converts a raw field value to a Key of the declared type.
func ParseKey(raw string, t KeyType) (Key, error) {
	raw = strings.TrimSpace(raw)
	switch t {
	case KeyTypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Key{}, fmt.Errorf("parse int key %q: %w", raw, err)
		}
		return NewIntKey(n), nil
	case KeyTypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Key{}, fmt.Errorf("parse float key %q: %w", raw, err)
		}
		return NewFloatKey(f), nil
	default:
		return NewTextKey(raw), nil
	}
}

// Compare returns -1, 0 or 1 per the total order described in spec.md §3:
// numeric fields compare numerically, everything else lexicographically.
func Compare(a, b Key) int {
	if a.Type == KeyTypeInt || a.Type == KeyTypeFloat {
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.Text, b.Text)
}

// Less reports whether a sorts strictly before b.
func Less(a, b Key) bool { return Compare(a, b) < 0 }

// Equal reports whether a and b compare equal.
func Equal(a, b Key) bool { return Compare(a, b) == 0 }

// Entry is the (key, rid) pair every ordered/hash index stores; indexes
// never hold records themselves, only entries that resolve through the
// record store (C1).
type Entry struct {
	Key Key
	Rid int64
}

// Searcher is implemented by index families that answer point lookups.
type Searcher interface {
	Search(k Key) ([]int64, error)
}

// Ranger is implemented by index families that answer ordered range scans
// (C2, C3, C5). Inclusive on both ends, per spec.md §4.
type Ranger interface {
	Range(lo, hi Key) ([]Entry, error)
}

// Inserter is implemented by every mutable index family.
type Inserter interface {
	Insert(k Key, rid int64) error
}

// Deleter is implemented by every mutable index family. Deleting a key
// that isn't present is a no-op, never an error (spec.md §8).
type Deleter interface {
	Delete(k Key) error
}

// OrderedIndex is the capability set spec.md requires of C2, C3 and C5.
type OrderedIndex interface {
	Searcher
	Ranger
	Inserter
	Deleter
}

// PointIndex is the capability set of C4 (extendible hash): point lookups
// only, no ordering guarantee and therefore no Range.
type PointIndex interface {
	Searcher
	Inserter
	Deleter
}
