// Package options provides data structures and functions for configuring
// the EmberDB engine. It defines the parameters that control table storage
// layout, the index families' tuning knobs, and the SPIMI text index's
// memory and spill behavior, following the teacher's functional-options
// pattern: a fresh NewDefaultOptions value, overridden by OptionFunc values
// applied in order.
package options

import "strings"

// spimiOptions configures the SPIMI text index's block-spill behavior (§4.7).
// It reuses the teacher's segment-naming idea (directory + prefix) for the
// numbered block files a SPIMI build spills to disk.
type spimiOptions struct {
	// MemoryBoundBytes is the in-memory posting buffer size that triggers a
	// sorted block spill to disk during a build pass.
	//
	// Default: 64MiB
	MemoryBoundBytes uint64 `json:"memoryBoundBytes"`

	// Directory names the subdirectory (within a table's directory) where
	// spill blocks and the merged dictionary/posting files live.
	//
	// Default: "spimi"
	Directory string `json:"directory"`

	// Prefix is the filename prefix for spill block files.
	// Final filename: "prefix_NNNNN_timestamp.spimi"
	//
	// Default: "block"
	Prefix string `json:"prefix"`

	// DeltaThreshold is the number of incrementally inserted documents
	// buffered in the in-memory delta index that triggers a merge into the
	// persistent one (§4.7 "Incremental updates").
	//
	// Default: 2000
	DeltaThreshold int `json:"deltaThreshold"`
}

// multimediaOptions configures codebook training and the bag-of-words
// inverted file (§4.8).
type multimediaOptions struct {
	// Clusters is the default codebook size (k in k-means) when a
	// multimedia table is created with a cluster count of zero or less.
	//
	// Default: 256
	Clusters int `json:"clusters"`

	// SampleSize bounds how many descriptors are drawn (uniformly, across
	// all assets) to train the codebook, per §4.8 "bounded random sample".
	//
	// Default: 200000
	SampleSize int `json:"sampleSize"`

	// KMeansIterations bounds the number of Lloyd's-algorithm iterations.
	//
	// Default: 25
	KMeansIterations int `json:"kmeansIterations"`
}

// sequentialOptions configures the sequential-with-overflow index (§4.2).
type sequentialOptions struct {
	// AuxMergeRatio is |auxiliary| / |main| at which an insert triggers a
	// merge-and-rewrite of the main file.
	//
	// Default: 0.1
	AuxMergeRatio float64 `json:"auxMergeRatio"`
}

// isamOptions configures the static two-level ISAM index (§4.3).
type isamOptions struct {
	// BlockingFactor is the number of records packed per data page.
	//
	// Default: 32
	BlockingFactor int `json:"blockingFactor"`
}

// hashOptions configures extendible hashing (§4.4).
type hashOptions struct {
	// BucketSize is the maximum number of entries a bucket holds before a
	// split (or overflow chain) is required.
	//
	// Default: 64
	BucketSize int `json:"bucketSize"`

	// InitialGlobalDepth seeds the directory's starting global depth.
	//
	// Default: 1
	InitialGlobalDepth uint8 `json:"initialGlobalDepth"`
}

// btreeOptions configures the B+ tree (§4.5).
type btreeOptions struct {
	// Order is the maximum child fanout per internal node (m in the spec).
	//
	// Default: 128
	Order int `json:"order"`
}

// rtreeOptions configures the R-tree (§4.6).
type rtreeOptions struct {
	// MinChildren and MaxChildren bound node occupancy, handed directly to
	// the underlying rtreego.Rtree constructor.
	//
	// Defaults: 2, 8
	MinChildren int `json:"minChildren"`
	MaxChildren int `json:"maxChildren"`
}

// Options defines the configuration parameters for an EmberDB engine instance.
// It provides control over storage layout and the tuning knobs of every index
// family the engine can bind a table to.
type Options struct {
	// DataDir is the base path under which every table's directory is created.
	//
	// Default: "/var/lib/emberdb"
	DataDir string `json:"dataDir"`

	// LanguageProfile selects the SPIMI normalization profile: "english" or
	// "spanish" (§4.7).
	//
	// Default: "english"
	LanguageProfile string `json:"languageProfile"`

	Sequential *sequentialOptions `json:"sequential"`
	Isam       *isamOptions       `json:"isam"`
	Hash       *hashOptions       `json:"hash"`
	BTree      *btreeOptions      `json:"btree"`
	RTree      *rtreeOptions      `json:"rtree"`
	Spimi      *spimiOptions      `json:"spimi"`
	Multimedia *multimediaOptions `json:"multimedia"`
}

// OptionFunc is a function type that modifies the engine's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies a predefined set of default configuration values
// to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithDataDir sets the base data directory for EmberDB.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithLanguageProfile sets the SPIMI normalization language profile.
func WithLanguageProfile(profile string) OptionFunc {
	return func(o *Options) {
		profile = strings.ToLower(strings.TrimSpace(profile))
		if profile == "english" || profile == "spanish" {
			o.LanguageProfile = profile
		}
	}
}

// WithSpimiMemoryBound sets the in-memory posting buffer size that triggers
// a block spill during a SPIMI build.
func WithSpimiMemoryBound(bytes uint64) OptionFunc {
	return func(o *Options) {
		if bytes > 0 {
			o.Spimi.MemoryBoundBytes = bytes
		}
	}
}

// WithMultimediaClusters sets the default codebook size.
func WithMultimediaClusters(k int) OptionFunc {
	return func(o *Options) {
		if k > 0 {
			o.Multimedia.Clusters = k
		}
	}
}

// WithBTreeOrder sets the B+ tree fanout.
func WithBTreeOrder(order int) OptionFunc {
	return func(o *Options) {
		if order >= 4 {
			o.BTree.Order = order
		}
	}
}

// WithHashBucketSize sets the extendible hash bucket capacity.
func WithHashBucketSize(size int) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.Hash.BucketSize = size
		}
	}
}

// WithISAMBlockingFactor sets the number of records per ISAM data page.
func WithISAMBlockingFactor(factor int) OptionFunc {
	return func(o *Options) {
		if factor > 0 {
			o.Isam.BlockingFactor = factor
		}
	}
}

// WithAuxMergeRatio sets the sequential index's aux-to-main merge trigger ratio.
func WithAuxMergeRatio(ratio float64) OptionFunc {
	return func(o *Options) {
		if ratio > 0 {
			o.Sequential.AuxMergeRatio = ratio
		}
	}
}
