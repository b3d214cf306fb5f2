package errors

// QueryError is a specialized error type for the SQL dispatch layer (C9).
// It embeds baseError so it participates in the same chaining, code, and
// detail-map machinery as ValidationError, StorageError, and IndexError,
// while adding the context a caller needs to react to §7's error surface:
// which statement, table, and field were involved.
type QueryError struct {
	*baseError

	statement string // The raw SQL text that produced the error, truncated by the caller if long.
	table     string // Table name the statement targeted, if any.
	field     string // Field name the statement targeted, if any.
}

// NewQueryError creates a new query-specific error with the provided context.
func NewQueryError(err error, code ErrorCode, msg string) *QueryError {
	return &QueryError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the QueryError type.
func (qe *QueryError) WithMessage(msg string) *QueryError {
	qe.baseError.WithMessage(msg)
	return qe
}

// WithCode sets the error code while preserving the QueryError type.
func (qe *QueryError) WithCode(code ErrorCode) *QueryError {
	qe.baseError.WithCode(code)
	return qe
}

// WithDetail adds contextual information while maintaining the QueryError type.
func (qe *QueryError) WithDetail(key string, value any) *QueryError {
	qe.baseError.WithDetail(key, value)
	return qe
}

// WithStatement records the SQL text that was being executed.
func (qe *QueryError) WithStatement(statement string) *QueryError {
	qe.statement = statement
	return qe
}

// WithTable records the table name the statement targeted.
func (qe *QueryError) WithTable(table string) *QueryError {
	qe.table = table
	return qe
}

// WithField records the field name the statement targeted.
func (qe *QueryError) WithField(field string) *QueryError {
	qe.field = field
	return qe
}

// Statement returns the SQL text that produced the error.
func (qe *QueryError) Statement() string { return qe.statement }

// Table returns the table name the statement targeted.
func (qe *QueryError) Table() string { return qe.table }

// Field returns the field name the statement targeted.
func (qe *QueryError) Field() string { return qe.field }

// NewParseError wraps a lexer/parser failure.
func NewParseError(cause error, statement string) *QueryError {
	return NewQueryError(cause, ErrorCodeParse, "malformed SQL statement").
		WithStatement(statement)
}

// NewUnknownTableError reports a reference to a table the registry doesn't hold.
func NewUnknownTableError(table string) *QueryError {
	return NewQueryError(nil, ErrorCodeUnknownTable, "unknown table").
		WithTable(table)
}

// NewUnknownFieldError reports a reference to a field absent from the schema.
func NewUnknownFieldError(table, field string) *QueryError {
	return NewQueryError(nil, ErrorCodeUnknownField, "unknown field").
		WithTable(table).
		WithField(field)
}

// NewUnsupportedPredicateError reports a predicate the table's bound index cannot serve.
func NewUnsupportedPredicateError(table, field, indexKind, predicateKind string) *QueryError {
	return NewQueryError(nil, ErrorCodeUnsupportedPredicate, "predicate not supported by table's index").
		WithTable(table).
		WithField(field).
		WithDetail("indexKind", indexKind).
		WithDetail("predicateKind", predicateKind)
}

// NewDuplicateKeyError reports a uniqueness violation on an index that declares one.
func NewDuplicateKeyError(table, field string, key any) *QueryError {
	return NewQueryError(nil, ErrorCodeDuplicateKey, "duplicate key rejected by unique index").
		WithTable(table).
		WithField(field).
		WithDetail("key", key)
}

// NewNotFoundError reports the soft "search succeeded but empty" outcome.
func NewNotFoundError(table string, key any) *QueryError {
	return NewQueryError(nil, ErrorCodeNotFound, "no live record matched").
		WithTable(table).
		WithDetail("key", key)
}

// NewBuildError wraps an ingestion or codebook-training failure.
func NewBuildError(cause error, table string) *QueryError {
	return NewQueryError(cause, ErrorCodeBuild, "failed to build table").
		WithTable(table)
}
