package backup

import (
	"encoding/json"
	"fmt"

	"relaybot/src/backend"
	"relaybot/src/snapshot"
)

// Result is the outcome of verifying one snapshot file. Valid is true iff
// Issues is empty.
type Result struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// Verify re-parses a snapshot document and checks structural completeness,
// row counts, and checksums. All defects are collected in one pass rather
// than stopping at the first.
func Verify(data []byte) Result {
	var issues []string

	var doc snapshot.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Result{Issues: []string{fmt.Sprintf("snapshot is not well-formed JSON: %v", err)}}
	}
	if doc.Metadata == nil {
		issues = append(issues, "missing metadata section")
	}
	if doc.Tables == nil {
		issues = append(issues, "missing tables section")
	}
	if doc.Metadata != nil && len(doc.Metadata.Tables) == 0 {
		issues = append(issues, "metadata lists no tables")
	}
	if doc.Metadata == nil || doc.Tables == nil {
		return Result{Valid: len(issues) == 0, Issues: issues}
	}

	for _, table := range doc.Metadata.Tables {
		rows, ok := doc.Tables[table]
		if !ok {
			issues = append(issues, fmt.Sprintf("table %s: listed in metadata but missing from tables section", table))
			continue
		}
		want, ok := doc.Metadata.RowCounts[table]
		if !ok {
			issues = append(issues, fmt.Sprintf("table %s: no row count in metadata", table))
		} else if want != len(rows) {
			issues = append(issues, fmt.Sprintf("table %s: row count mismatch: metadata says %d, found %d", table, want, len(rows)))
		}
		wantSum, ok := doc.Metadata.Checksums[table]
		if !ok {
			issues = append(issues, fmt.Sprintf("table %s: no checksum in metadata", table))
			continue
		}
		sum, err := snapshot.Digest(rows)
		if err != nil {
			issues = append(issues, fmt.Sprintf("table %s: checksum could not be recomputed: %v", table, err))
			continue
		}
		if sum != wantSum {
			issues = append(issues, fmt.Sprintf("table %s: checksum mismatch", table))
		}
	}
	return Result{Valid: len(issues) == 0, Issues: issues}
}

// VerifyPath reads and verifies the snapshot at path through the store. Read
// failures are reported as an issue, not an error, so one verification pass
// always yields a Result.
func VerifyPath(store backend.Store, path string) Result {
	data, err := store.Read(path)
	if err != nil {
		return Result{Issues: []string{fmt.Sprintf("read snapshot: %v", err)}}
	}
	return Verify(data)
}
