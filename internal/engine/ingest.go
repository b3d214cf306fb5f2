package engine

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/emberdb/emberdb/internal/index"
	"github.com/emberdb/emberdb/internal/index/btree"
	"github.com/emberdb/emberdb/internal/index/hash"
	"github.com/emberdb/emberdb/internal/index/isam"
	"github.com/emberdb/emberdb/internal/index/multimedia"
	"github.com/emberdb/emberdb/internal/index/rtree"
	"github.com/emberdb/emberdb/internal/index/sequential"
	"github.com/emberdb/emberdb/internal/index/spimi"
	"github.com/emberdb/emberdb/internal/record"
	"github.com/emberdb/emberdb/internal/table"
	"github.com/emberdb/emberdb/pkg/errors"
)

// RowIterator streams one ingested row (in schema field order) at a time.
// It is the "(headers, row_iterator)" contract spec.md §1 names as the
// ingestion collaborator's output; CSV parsing and schema inference live
// outside the core and are not this package's concern.
type RowIterator func(yield func(row []string) bool) error

// CreateTableRequest carries everything CREATE TABLE needs once the
// out-of-scope ingestion collaborator has supplied a schema and iterator.
type CreateTableRequest struct {
	Name       string
	SourceFile string
	Schema     table.Schema
	IndexKind  table.IndexKind
	IndexField string
	Unique     bool
	Rows       RowIterator
}

func (e *Engine) tableDir(name string) string {
	return filepath.Join(e.opts.DataDir, name)
}

// CreateTable builds a table's record store and its single bound index
// from req, persists meta.json, and registers the table (spec.md §3, §4.9).
func (e *Engine) CreateTable(req CreateTableRequest) error {
	if _, exists := e.reg.get(req.Name); exists {
		return errors.NewQueryError(nil, errors.ErrorCodeBuild, "table already exists").WithTable(req.Name)
	}

	meta := table.Meta{
		Name:       req.Name,
		SourceFile: req.SourceFile,
		Schema:     req.Schema,
		IndexKind:  req.IndexKind,
		IndexField: req.IndexField,
		Unique:     req.Unique || req.IndexKind == table.IndexHash,
	}
	if req.IndexKind == table.IndexSpimi {
		meta.TextFields = []string{req.IndexField}
		meta.LanguageProfile = e.opts.LanguageProfile
	}
	if err := meta.Validate(); err != nil {
		return errors.NewBuildError(err, req.Name)
	}

	dir := e.tableDir(req.Name)
	fieldIdx := req.Schema.FieldIndex(req.IndexField)

	store, err := record.Open(filepath.Join(dir, "records.dat"), req.Schema.Widths())
	if err != nil {
		if errors.IsStorageError(err) {
			e.log.Errorw("record store corrupted on create", "table", req.Name, "err", err)
		}
		return errors.NewBuildError(err, req.Name)
	}

	bt := &boundTable{dir: dir, meta: meta, records: store}

	var entries []index.Entry
	var docs []spimi.Doc
	keyType := req.Schema.Fields[fieldIdx].Type

	err = req.Rows(func(row []string) bool {
		rid, appendErr := store.Append(row)
		if appendErr != nil {
			err = appendErr
			return false
		}
		switch req.IndexKind {
		case table.IndexSpimi:
			docs = append(docs, spimi.Doc{Rid: rid, Text: row[fieldIdx]})
		case table.IndexRTree:
			entries = append(entries, index.Entry{Key: index.NewTextKey(row[fieldIdx]), Rid: rid})
		default:
			k, perr := index.ParseKey(row[fieldIdx], keyType)
			if perr != nil {
				err = perr
				return false
			}
			entries = append(entries, index.Entry{Key: k, Rid: rid})
		}
		return true
	})
	if err != nil {
		return errors.NewBuildError(err, req.Name)
	}

	if err := e.buildIndex(bt, req.IndexKind, entries, docs); err != nil {
		return errors.NewBuildError(err, req.Name)
	}

	if err := table.SaveMeta(dir, meta); err != nil {
		return err
	}

	e.reg.put(req.Name, bt)
	e.log.Infow("created table", "table", req.Name, "indexKind", req.IndexKind, "rows", store.Count())
	return nil
}

func (e *Engine) buildIndex(bt *boundTable, kind table.IndexKind, entries []index.Entry, docs []spimi.Doc) error {
	switch kind {
	case table.IndexSequential:
		idx, err := sequential.Open(sequential.Config{Dir: bt.dir, Unique: bt.meta.Unique, AuxMergeRatio: e.opts.Sequential.AuxMergeRatio})
		if err != nil {
			return err
		}
		for _, en := range entries {
			if err := idx.Insert(en.Key, en.Rid); err != nil {
				return err
			}
		}
		bt.sequential = idx

	case table.IndexISAM:
		sort.Slice(entries, func(i, j int) bool { return index.Less(entries[i].Key, entries[j].Key) })
		idx, err := isam.Build(bt.dir, entries, e.opts.Isam.BlockingFactor)
		if err != nil {
			return err
		}
		bt.isam = idx

	case table.IndexHash:
		idx, err := hash.Open(hash.Config{
			Dir: bt.dir, BucketSize: e.opts.Hash.BucketSize,
			InitialGlobalDepth: e.opts.Hash.InitialGlobalDepth, Unique: bt.meta.Unique,
		})
		if err != nil {
			return err
		}
		for _, en := range entries {
			if err := idx.Insert(en.Key, en.Rid); err != nil {
				if errors.IsIndexError(err) {
					ie, _ := errors.AsIndexError(err)
					if ie.Code() == errors.ErrorCodeIndexDuplicateKey {
						return errors.NewDuplicateKeyError(bt.meta.Name, bt.meta.IndexField, ie.Key())
					}
				}
				return err
			}
		}
		bt.hash = idx

	case table.IndexBTree:
		idx, err := btree.Open(bt.dir, e.opts.BTree.Order)
		if err != nil {
			return err
		}
		for _, en := range entries {
			if err := idx.Insert(en.Key, en.Rid); err != nil {
				return err
			}
		}
		bt.btree = idx

	case table.IndexRTree:
		field := bt.meta.Schema.Fields[bt.meta.Schema.FieldIndex(bt.meta.IndexField)]
		idx, err := rtree.Open(rtree.Config{
			Dir: bt.dir, Dimensions: 2, Geo: field.Geo,
			MinChildren: e.opts.RTree.MinChildren, MaxChildren: e.opts.RTree.MaxChildren,
		})
		if err != nil {
			return err
		}
		for _, en := range entries {
			if err := idx.Insert(en.Key, en.Rid); err != nil {
				return err
			}
		}
		bt.rtree = idx

	case table.IndexSpimi:
		profile := spimi.ProfileEnglish
		if strings.EqualFold(bt.meta.LanguageProfile, "spanish") {
			profile = spimi.ProfileSpanish
		}
		cfg := spimi.Config{
			Dir: bt.dir, Profile: profile, Stem: bt.meta.Stem,
			MemoryBoundBytes: e.opts.Spimi.MemoryBoundBytes,
			BlockDirName:     e.opts.Spimi.Directory, BlockPrefix: e.opts.Spimi.Prefix,
			DeltaThreshold: e.opts.Spimi.DeltaThreshold,
		}
		i := 0
		idx, err := spimi.Build(cfg, func(yield func(spimi.Doc) bool) {
			for i < len(docs) {
				if !yield(docs[i]) {
					return
				}
				i++
			}
		})
		if err != nil {
			return err
		}
		bt.spimi = idx

	default:
		return errors.NewQueryError(nil, errors.ErrorCodeBuild, "unknown index kind").WithDetail("indexKind", kind)
	}
	return nil
}

// CreateMultimediaTableRequest carries what CREATE MULTIMEDIA TABLE needs.
// DescriptorsForRow is called for each row during Rows ingestion, with
// the rid that row was just assigned, and returns the descriptor set the
// external extractor produced for it; Identity records the extractor's fingerprint in meta.json
// (queries do not check descriptors against it).
type CreateMultimediaTableRequest struct {
	Name               string
	SourceFile         string
	Schema             table.Schema
	MediaKind          string
	MediaField         string
	Method             string
	Clusters           int
	Identity           table.ExtractorIdentity
	Rows               RowIterator
	DescriptorsForRow  func(rid int64, row []string) ([][]float64, error)
}

// CreateMultimediaTable builds the codebook, histograms, and inverted
// file for a multimedia table (C8) per spec.md §4.8.
func (e *Engine) CreateMultimediaTable(req CreateMultimediaTableRequest) error {
	if _, exists := e.reg.get(req.Name); exists {
		return errors.NewQueryError(nil, errors.ErrorCodeBuild, "table already exists").WithTable(req.Name)
	}

	meta := table.Meta{
		Name: req.Name, SourceFile: req.SourceFile, Schema: req.Schema,
		Multimedia: true, MediaKind: req.MediaKind, MediaField: req.MediaField,
		Clusters: req.Clusters, Extractor: &req.Identity,
	}
	if meta.Clusters <= 0 {
		meta.Clusters = e.opts.Multimedia.Clusters
	}
	if err := meta.Validate(); err != nil {
		return errors.NewBuildError(err, req.Name)
	}

	dir := e.tableDir(req.Name)
	store, err := record.Open(filepath.Join(dir, "records.dat"), req.Schema.Widths())
	if err != nil {
		if errors.IsStorageError(err) {
			e.log.Errorw("record store corrupted on create", "table", req.Name, "err", err)
		}
		return errors.NewBuildError(err, req.Name)
	}

	descriptors := make(map[int64][][]float64)
	err = req.Rows(func(row []string) bool {
		rid, appendErr := store.Append(row)
		if appendErr != nil {
			err = appendErr
			return false
		}
		d, derr := req.DescriptorsForRow(rid, row)
		if derr != nil {
			err = derr
			return false
		}
		descriptors[rid] = d
		return true
	})
	if err != nil {
		return errors.NewBuildError(err, req.Name)
	}

	identityCodebook := strings.EqualFold(req.Method, "identity") || strings.EqualFold(req.Method, "global")
	idx, err := multimedia.Build(dir, descriptors, meta.Clusters, e.opts.Multimedia.KMeansIterations, e.opts.Multimedia.SampleSize, identityCodebook)
	if err != nil {
		return errors.NewBuildError(err, req.Name)
	}

	if err := table.SaveMeta(dir, meta); err != nil {
		return err
	}

	bt := &boundTable{dir: dir, meta: meta, records: store, media: idx}
	e.reg.put(req.Name, bt)
	e.log.Infow("created multimedia table", "table", req.Name, "mediaKind", req.MediaKind, "assets", store.Count())
	return nil
}
