package dbapi

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteClient implements Client over a database/sql handle with the
// modernc.org/sqlite driver.
type SQLiteClient struct {
	DB *sql.DB
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenSQLite opens (or creates) the SQLite database at path with the
// production pragmas applied: foreign_keys ON, WAL journal, 10s busy
// timeout, synchronous NORMAL. Parent directories are created as needed.
// For ":memory:" the pool is pinned to a single connection before anything
// touches the handle; each pooled connection would otherwise get its own
// empty in-memory database.
func OpenSQLite(path string) (*SQLiteClient, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbapi: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dbapi: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbapi: %s: %w", p, err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbapi: ping: %w", err)
	}
	return &SQLiteClient{DB: db}, nil
}

// Close closes the underlying handle.
func (c *SQLiteClient) Close() error { return c.DB.Close() }

func quoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

func (c *SQLiteClient) SelectAll(table string) ([]Row, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}
	rows, err := c.DB.Query("SELECT * FROM " + qt)
	if err != nil {
		return nil, fmt.Errorf("select all %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		fields := make([]Field, len(cols))
		for i, col := range cols {
			fields[i] = Field{Name: col, Value: normalizeValue(vals[i])}
		}
		out = append(out, NewRow(fields...))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

func (c *SQLiteClient) DeleteAll(table string) error {
	qt, err := quoteIdent(table)
	if err != nil {
		return err
	}
	if _, err := c.DB.Exec("DELETE FROM " + qt); err != nil {
		return fmt.Errorf("delete all %s: %w", table, err)
	}
	return nil
}

// Upsert writes rows inside a single transaction so a table import either
// fully applies or leaves the table untouched.
func (c *SQLiteClient) Upsert(table string, rows []Row, conflictKey string) error {
	if len(rows) == 0 {
		return nil
	}
	qt, err := quoteIdent(table)
	if err != nil {
		return err
	}
	qk, err := quoteIdent(conflictKey)
	if err != nil {
		return err
	}

	tx, err := c.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin %s: %w", table, err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if _, ok := row.Get(conflictKey); !ok {
			return &MissingKeyError{Table: table, Key: conflictKey}
		}
		stmt, args, err := upsertStatement(qt, qk, conflictKey, row)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", table, err)
		}
		if _, err := tx.Exec(stmt, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

func upsertStatement(qTable, qKey, conflictKey string, row Row) (string, []any, error) {
	fields := row.Fields()
	cols := make([]string, 0, len(fields))
	holders := make([]string, 0, len(fields))
	updates := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		qc, err := quoteIdent(f.Name)
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, qc)
		holders = append(holders, "?")
		if f.Name != conflictKey {
			updates = append(updates, qc+" = excluded."+qc)
		}
		v, err := bindValue(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		args = append(args, v)
	}
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(qTable)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(holders, ", "))
	b.WriteString(") ON CONFLICT(")
	b.WriteString(qKey)
	b.WriteString(")")
	if len(updates) == 0 {
		b.WriteString(" DO NOTHING")
	} else {
		b.WriteString(" DO UPDATE SET ")
		b.WriteString(strings.Join(updates, ", "))
	}
	return b.String(), args, nil
}

// bindValue converts a Row value into a driver-storable one. Nested rows and
// arrays are stored as JSON text.
func bindValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int, int64, float64, []byte:
		return t, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("bad number literal %q", string(t))
		}
		return f, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

// normalizeValue copies driver-owned byte slices and leaves scalars as-is.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp
	}
	return v
}
