package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary. This includes file system operations like reading or
	// writing index and record files, and device I/O when accessing storage
	// hardware.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents client-side errors where the provided
	// data doesn't meet the system's requirements or constraints. This maps
	// to HTTP 400-series errors and indicates problems with the request itself
	// rather than system failures.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories. These are the equivalent of HTTP 500 errors and
	// indicate bugs, assertion failures, or other programming errors that
	// shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific error codes extend the base error taxonomy to handle the
// unique failure modes that occur in persistent storage systems: the fixed-
// width record file (C1) and the on-disk artifacts of every index family.
const (
	// ErrorCodeSegmentCorrupted indicates that a persisted artifact's data has
	// been damaged or is in an inconsistent state (e.g. a record file whose
	// size is not a multiple of the slot size, or an index file that no
	// longer decodes).
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodeHeaderReadFailure occurs when the system cannot read the header
	// portion of a persisted artifact. Headers contain critical metadata about
	// structure, so header read failures prevent access to everything the
	// artifact holds.
	ErrorCodeHeaderReadFailure ErrorCode = "HEADER_READ_FAILURE"

	// ErrorCodePayloadReadFailure indicates problems reading the actual data
	// content after successfully reading the header. This represents a more
	// localized failure than a header problem.
	ErrorCodePayloadReadFailure ErrorCode = "PAYLOAD_READ_FAILURE"

	// ErrorCodeRecoveryFailed indicates that an atomic-rename rebuild (§5)
	// left no valid artifact behind and the prior generation could not be
	// restored either.
	ErrorCodeRecoveryFailed ErrorCode = "STORAGE_RECOVERY_FAILED"

	// ErrorCodePermissionDenied indicates insufficient permissions to access a resource.
	// This is distinct from generic IO errors because it has a specific resolution path:
	// the user needs to adjust file/directory permissions or run with elevated privileges.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the storage device has run out of space.
	// This requires specific handling like cleanup operations or alerting administrators.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates that the filesystem is mounted read-only.
	// This requires administrative intervention to remount the filesystem with write permissions.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)

// Index-specific error codes address the specialized needs of index
// operations across all five index families (C2–C6) plus the retrieval
// structures (C7, C8).
const (
	// ErrorCodeIndexKeyNotFound indicates a point search found no live entry.
	ErrorCodeIndexKeyNotFound ErrorCode = "INDEX_KEY_NOT_FOUND"

	// ErrorCodeIndexInvalidSegmentID indicates a reference to a page, bucket,
	// or overflow chain that the on-disk structure does not recognize.
	ErrorCodeIndexInvalidSegmentID ErrorCode = "INDEX_INVALID_SEGMENT_ID"

	// ErrorCodeIndexTimestampExtraction indicates a generation or block file
	// name did not match the expected naming convention.
	ErrorCodeIndexTimestampExtraction ErrorCode = "INDEX_TIMESTAMP_EXTRACTION_FAILED"

	// ErrorCodeIndexCorrupted indicates a structural invariant of the index
	// (§3 invariants 2–7) was violated and detected at runtime.
	ErrorCodeIndexCorrupted ErrorCode = "INDEX_CORRUPTED"

	// ErrorCodeIndexDuplicateKey indicates a uniqueness-enforcing index (only
	// extendible hash, per spec §3) rejected a duplicate key.
	ErrorCodeIndexDuplicateKey ErrorCode = "INDEX_DUPLICATE_KEY"
)

// Query-specific error codes implement the §7 error surface returned to
// callers of the SQL dispatch layer (C9).
const (
	// ErrorCodeParse indicates malformed SQL text that the lexer or parser
	// rejected before any table was touched.
	ErrorCodeParse ErrorCode = "PARSE_ERROR"

	// ErrorCodeUnknownTable indicates a statement referenced a table the
	// engine's registry has no entry for.
	ErrorCodeUnknownTable ErrorCode = "UNKNOWN_TABLE"

	// ErrorCodeUnknownField indicates a statement referenced a field absent
	// from the table's schema.
	ErrorCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrorCodeUnsupportedPredicate indicates the predicate kind cannot be
	// served by the table's bound index (e.g. a range predicate against a
	// hash index, or a text predicate against a B+ tree).
	ErrorCodeUnsupportedPredicate ErrorCode = "UNSUPPORTED_PREDICATE"

	// ErrorCodeDuplicateKey mirrors ErrorCodeIndexDuplicateKey at the query
	// surface, returned only when the table's index declares uniqueness.
	ErrorCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrorCodeNotFound is the "soft" error: a search that completed without
	// finding a live record. It is translated to an empty result set, never
	// surfaced to a caller as a failure.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodeBuild indicates an ingestion or codebook-training failure
	// (CREATE TABLE / CREATE MULTIMEDIA TABLE).
	ErrorCodeBuild ErrorCode = "BUILD_ERROR"
)
