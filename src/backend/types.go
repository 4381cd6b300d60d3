package backend

import (
	"fmt"
	"strings"
	"time"
)

// Entry represents a single snapshot file discovered in a store.
type Entry struct {
	Kind      string // full|critical
	Timestamp string // YYYYMMDDThhmmssZ
	Path      string // absolute path to the snapshot file
	Size      int64  // file size in bytes
}

// Kind constants used for filtering.
const (
	KindFull     = "full"
	KindCritical = "critical"
)

// TimestampLayout is the compact UTC form embedded in snapshot filenames.
const TimestampLayout = "20060102T150405Z"

// Store is the durable-file surface the backup subsystem uses. Snapshot
// files are immutable once written.
type Store interface {
	// List enumerates snapshots sorted by embedded timestamp ascending.
	List() ([]Entry, error)
	// Write persists a snapshot atomically under the given filename and
	// returns its absolute path.
	Write(name string, data []byte) (string, error)
	// Read loads a snapshot by absolute path or by bare filename.
	Read(path string) ([]byte, error)
	// Delete removes a snapshot file.
	Delete(path string) error
}

// FileName builds the snapshot filename for a capture time. Critical
// snapshots carry a marker so they never collide with a full snapshot taken
// in the same second.
func FileName(ts time.Time, critical bool) string {
	stamp := ts.UTC().Format(TimestampLayout)
	if critical {
		return fmt.Sprintf("backup_%s_critical.json", stamp)
	}
	return fmt.Sprintf("backup_%s.json", stamp)
}

// ParseName extracts kind and timestamp from a snapshot filename. The third
// return is false for files that are not snapshots.
func ParseName(name string) (kind, timestamp string, ok bool) {
	if !strings.HasPrefix(name, "backup_") || !strings.HasSuffix(name, ".json") {
		return "", "", false
	}
	core := strings.TrimSuffix(strings.TrimPrefix(name, "backup_"), ".json")
	kind = KindFull
	if strings.HasSuffix(core, "_critical") {
		kind = KindCritical
		core = strings.TrimSuffix(core, "_critical")
	}
	if _, err := time.Parse(TimestampLayout, core); err != nil {
		return "", "", false
	}
	return kind, core, true
}
