package dbapi

// Client is the narrow relational-store surface the backup subsystem
// consumes. Implementations must return complete result sets from SelectAll
// (paginating internally if the store requires it) and must not retry on
// their own; retry/skip policy belongs to the callers.
type Client interface {
	// SelectAll reads every row of the named table, in the store's natural
	// order, with column order preserved per row.
	SelectAll(table string) ([]Row, error)
	// DeleteAll removes every row of the named table.
	DeleteAll(table string) error
	// Upsert writes rows into the named table. Rows whose conflictKey value
	// matches an existing row overwrite it; all others are inserted.
	Upsert(table string, rows []Row, conflictKey string) error
}

// UnknownTableError reports an operation against a table the store does not
// have.
type UnknownTableError struct{ Table string }

func (e *UnknownTableError) Error() string { return "unknown table: " + e.Table }

// MissingKeyError reports an upsert row that lacks the declared conflict key.
type MissingKeyError struct{ Table, Key string }

func (e *MissingKeyError) Error() string {
	return "table " + e.Table + ": row missing conflict key " + e.Key
}
