// Package backup builds, verifies, and prunes snapshots of the relational
// store.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"relaybot/src/backend"
	"relaybot/src/dbapi"
	"relaybot/src/snapshot"
)

// Builder exports configured tables into snapshot files.
type Builder struct {
	client dbapi.Client
	store  backend.Store
	log    *slog.Logger
	now    func() time.Time
}

// NewBuilder wires a Builder. log may be nil; now overrides the clock and is
// meant for tests.
func NewBuilder(client dbapi.Client, store backend.Store, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{client: client, store: store, log: log, now: time.Now}
}

// SetClock overrides the builder's clock. Tests use it to control snapshot
// filenames.
func (b *Builder) SetClock(now func() time.Time) { b.now = now }

// Build exports each table in tableSet, in order, into one snapshot file.
// A table whose export fails is skipped (not retried) and excluded from the
// metadata; the snapshot is still produced with the remaining tables. When
// every export fails the snapshot file is still written with an empty table
// set, so callers must inspect RowCounts to detect an effectively-empty
// backup. Critical snapshots get a distinguishing filename marker.
func (b *Builder) Build(tableSet []string, critical bool, description string) (string, *snapshot.Snapshot, error) {
	now := b.now().UTC()
	snap := &snapshot.Snapshot{
		Metadata: snapshot.Metadata{
			Timestamp:     now.Format(time.RFC3339),
			FormatVersion: snapshot.FormatVersion,
			Tables:        []string{},
			RowCounts:     map[string]int{},
			Checksums:     map[string]string{},
			Description:   description,
		},
		Tables: map[string][]dbapi.Row{},
	}

	for _, table := range tableSet {
		rows, err := b.client.SelectAll(table)
		if err != nil {
			b.log.Warn("table export failed, skipping",
				"category", "database", "table", table, "error", err)
			continue
		}
		sum, err := snapshot.Digest(rows)
		if err != nil {
			b.log.Warn("table digest failed, skipping",
				"category", "database", "table", table, "error", err)
			continue
		}
		snap.Metadata.Tables = append(snap.Metadata.Tables, table)
		snap.Metadata.RowCounts[table] = len(rows)
		snap.Metadata.Checksums[table] = sum
		if rows == nil {
			rows = []dbapi.Row{}
		}
		snap.Tables[table] = rows
		b.log.Info("table exported",
			"category", "database", "table", table, "rows", len(rows))
	}

	// Snapshot files are immutable, so a name collision (another snapshot of
	// the same kind in the same second) bumps the timestamp instead of
	// overwriting. The document is re-encoded per attempt so the metadata
	// timestamp always matches the one embedded in the filename.
	var path string
	for attempt := 0; ; attempt++ {
		snap.Metadata.Timestamp = now.Format(time.RFC3339)
		data, err := snap.Marshal()
		if err != nil {
			return "", nil, fmt.Errorf("encode snapshot: %w", err)
		}
		path, err = b.store.Write(backend.FileName(now, critical), data)
		if err == nil {
			break
		}
		if attempt < 3 && errors.Is(err, fs.ErrExist) {
			now = now.Add(time.Second)
			continue
		}
		return "", nil, fmt.Errorf("write snapshot: %w", err)
	}
	b.log.Info("snapshot written",
		"category", "database", "path", path,
		"tables", len(snap.Metadata.Tables), "critical", critical)
	return path, snap, nil
}
