// Package restore loads a snapshot back into the relational store with
// per-table error isolation and a mandatory pre-restore safety net.
package restore

import (
	"fmt"
	"log/slog"
	"time"

	"relaybot/src/backend"
	"relaybot/src/backup"
	"relaybot/src/dbapi"
	"relaybot/src/snapshot"
)

// Options control one restore invocation.
type Options struct {
	// Clear deletes all existing rows of each table before importing.
	Clear bool
	// Only restricts the worklist to these tables (intersection with the
	// snapshot's table list).
	Only []string
	// Skip excludes these tables from the worklist.
	Skip []string
}

// Report is the aggregated outcome of one restore. It is created fresh per
// invocation and only handed back to the caller, never persisted.
type Report struct {
	Timestamp              string            `json:"timestamp"`
	TablesRestored         int               `json:"tablesRestored"`
	RecordsRestored        int               `json:"recordsRestored"`
	PerTableErrors         map[string]string `json:"perTableErrors"`
	PreRestoreSnapshotPath string            `json:"preRestoreSnapshotPath,omitempty"`
	Warnings               []string          `json:"warnings,omitempty"`
}

// Success reports full success: at least one table restored and no per-table
// errors. A report with errors but TablesRestored > 0 is a partial success.
func (r *Report) Success() bool {
	return r.TablesRestored > 0 && len(r.PerTableErrors) == 0
}

// Orchestrator drives restores. Keys maps each table to its declared
// conflict key; tables without one cannot be imported. FullTables is the
// complete configured table set used for the safety-net snapshot.
type Orchestrator struct {
	Client     dbapi.Client
	Store      backend.Store
	Builder    *backup.Builder
	Keys       map[string]string
	FullTables []string
	Log        *slog.Logger

	now func() time.Time
}

// NewOrchestrator wires an Orchestrator. log may be nil.
func NewOrchestrator(client dbapi.Client, store backend.Store, builder *backup.Builder, keys map[string]string, fullTables []string, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		Client:     client,
		Store:      store,
		Builder:    builder,
		Keys:       keys,
		FullTables: fullTables,
		Log:        log,
		now:        time.Now,
	}
}

// Restore loads the snapshot at path and imports its tables sequentially.
// Per-table failures are recorded in the report and never abort the rest.
// It returns an error only for unrecoverable problems: unreadable or
// unparseable snapshot, or failure of the safety-net snapshot (the only
// rollback mechanism, so it is a precondition and cannot be disabled).
func (o *Orchestrator) Restore(path string, opts Options) (*Report, error) {
	report := &Report{
		Timestamp:      o.now().UTC().Format(time.RFC3339),
		PerTableErrors: map[string]string{},
	}

	data, err := o.Store.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := snapshot.Parse(data)
	if err != nil {
		return nil, err
	}
	if snap.Metadata.FormatVersion != snapshot.FormatVersion {
		w := fmt.Sprintf("snapshot format version %q differs from current %q; proceeding best-effort",
			snap.Metadata.FormatVersion, snapshot.FormatVersion)
		report.Warnings = append(report.Warnings, w)
		o.Log.Warn("format version mismatch",
			"category", "database", "snapshot", snap.Metadata.FormatVersion, "current", snapshot.FormatVersion)
	}

	safetyPath, _, err := o.Builder.Build(o.FullTables, false, "pre-restore safety net")
	if err != nil {
		return nil, fmt.Errorf("safety-net snapshot failed, refusing to restore: %w", err)
	}
	report.PreRestoreSnapshotPath = safetyPath
	o.Log.Info("safety-net snapshot taken", "category", "database", "path", safetyPath)

	worklist := filterTables(snap.Metadata.Tables, opts.Only, opts.Skip)
	for _, table := range worklist {
		rows, ok := snap.Tables[table]
		if !ok || len(rows) == 0 {
			report.PerTableErrors[table] = "no data for table in snapshot"
			o.Log.Warn("table skipped: no data",
				"category", "database", "table", table)
			continue
		}
		key, ok := o.Keys[table]
		if !ok || key == "" {
			report.PerTableErrors[table] = "no conflict key configured for table"
			o.Log.Warn("table skipped: no conflict key",
				"category", "database", "table", table)
			continue
		}
		if opts.Clear {
			if err := o.Client.DeleteAll(table); err != nil {
				report.PerTableErrors[table] = fmt.Sprintf("clear failed: %v", err)
				o.Log.Warn("table clear failed, skipping import",
					"category", "database", "table", table, "error", err)
				continue
			}
		}
		if err := o.Client.Upsert(table, rows, key); err != nil {
			report.PerTableErrors[table] = fmt.Sprintf("import failed: %v", err)
			o.Log.Warn("table import failed",
				"category", "database", "table", table, "error", err)
			continue
		}
		report.TablesRestored++
		report.RecordsRestored += len(rows)
		o.Log.Info("table restored",
			"category", "database", "table", table, "rows", len(rows))
	}

	o.Log.Info("restore finished",
		"category", "database",
		"tablesRestored", report.TablesRestored,
		"recordsRestored", report.RecordsRestored,
		"errors", len(report.PerTableErrors))
	return report, nil
}

// filterTables intersects the snapshot's table order with only (when given)
// and removes skip entries, preserving snapshot order.
func filterTables(tables, only, skip []string) []string {
	onlySet := toSet(only)
	skipSet := toSet(skip)
	var out []string
	for _, t := range tables {
		if len(onlySet) > 0 {
			if _, ok := onlySet[t]; !ok {
				continue
			}
		}
		if _, ok := skipSet[t]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
