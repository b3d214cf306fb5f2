package options

const (
	// DefaultDataDir specifies the default base directory where EmberDB will
	// store its table directories and artifacts.
	DefaultDataDir = "/var/lib/emberdb"

	// DefaultLanguageProfile is the SPIMI normalization profile used when a
	// table doesn't declare one.
	DefaultLanguageProfile = "english"

	// DefaultSpimiMemoryBound is the in-memory posting buffer size that
	// triggers a sorted block spill during a SPIMI build (64MiB).
	DefaultSpimiMemoryBound uint64 = 64 * 1024 * 1024

	// DefaultSpimiDirectory is the subdirectory (within a table's directory)
	// spill blocks and merged SPIMI artifacts are written to.
	DefaultSpimiDirectory = "spimi"

	// DefaultSpimiPrefix is the filename prefix for SPIMI spill blocks.
	DefaultSpimiPrefix = "block"

	// DefaultSpimiDeltaThreshold is the number of documents inserted into the
	// in-memory delta that triggers a merge into the persistent SPIMI index.
	DefaultSpimiDeltaThreshold = 2000

	// DefaultMultimediaClusters is the codebook size (k) used when a
	// multimedia table is created with a cluster count of zero or less.
	DefaultMultimediaClusters = 256

	// DefaultMultimediaSampleSize bounds the descriptor sample drawn for
	// k-means training.
	DefaultMultimediaSampleSize = 200_000

	// DefaultKMeansIterations bounds Lloyd's-algorithm iterations.
	DefaultKMeansIterations = 25

	// DefaultAuxMergeRatio is |auxiliary| / |main| that triggers a C2 merge.
	DefaultAuxMergeRatio = 0.1

	// DefaultISAMBlockingFactor is the number of records packed per ISAM data page.
	DefaultISAMBlockingFactor = 32

	// DefaultHashBucketSize is the extendible hash bucket capacity.
	DefaultHashBucketSize = 64

	// DefaultHashInitialGlobalDepth seeds the hash directory's starting global depth.
	DefaultHashInitialGlobalDepth uint8 = 1

	// DefaultBTreeOrder is the B+ tree fanout (m).
	DefaultBTreeOrder = 128

	// DefaultRTreeMinChildren and DefaultRTreeMaxChildren bound R-tree node occupancy.
	DefaultRTreeMinChildren = 2
	DefaultRTreeMaxChildren = 8
)

// NewDefaultOptions returns a fresh Options value with every sub-options
// pointer independently allocated, so callers can mutate one instance's
// knobs without perturbing another's.
func NewDefaultOptions() Options {
	return Options{
		DataDir:         DefaultDataDir,
		LanguageProfile: DefaultLanguageProfile,
		Sequential: &sequentialOptions{
			AuxMergeRatio: DefaultAuxMergeRatio,
		},
		Isam: &isamOptions{
			BlockingFactor: DefaultISAMBlockingFactor,
		},
		Hash: &hashOptions{
			BucketSize:         DefaultHashBucketSize,
			InitialGlobalDepth: DefaultHashInitialGlobalDepth,
		},
		BTree: &btreeOptions{
			Order: DefaultBTreeOrder,
		},
		RTree: &rtreeOptions{
			MinChildren: DefaultRTreeMinChildren,
			MaxChildren: DefaultRTreeMaxChildren,
		},
		Spimi: &spimiOptions{
			MemoryBoundBytes: DefaultSpimiMemoryBound,
			Directory:        DefaultSpimiDirectory,
			Prefix:           DefaultSpimiPrefix,
			DeltaThreshold:   DefaultSpimiDeltaThreshold,
		},
		Multimedia: &multimediaOptions{
			Clusters:         DefaultMultimediaClusters,
			SampleSize:       DefaultMultimediaSampleSize,
			KMeansIterations: DefaultKMeansIterations,
		},
	}
}
