package backup

import (
	"errors"
	"log/slog"
	"sort"

	"relaybot/src/backend"
)

// Prune deletes full snapshots beyond the maxCount most recent, by embedded
// timestamp. Critical snapshots are never pruned here. Per-file deletion
// failures are logged and skipped so one stubborn file cannot block the
// rest. Returns the paths actually deleted.
func Prune(store backend.Store, log *slog.Logger, maxCount int) ([]string, error) {
	if log == nil {
		log = slog.Default()
	}
	if maxCount <= 0 {
		return nil, errors.New("prune: maxCount must be > 0")
	}
	entries, err := store.List()
	if err != nil {
		return nil, err
	}
	var full []backend.Entry
	for _, e := range entries {
		if e.Kind == backend.KindFull {
			full = append(full, e)
		}
	}
	sort.Slice(full, func(i, j int) bool { return full[i].Timestamp > full[j].Timestamp })
	if len(full) <= maxCount {
		return nil, nil
	}

	var deleted []string
	for _, e := range full[maxCount:] {
		if err := store.Delete(e.Path); err != nil {
			log.Warn("prune: could not delete snapshot",
				"category", "database", "path", e.Path, "error", err)
			continue
		}
		log.Info("pruned snapshot",
			"category", "database", "path", e.Path, "timestamp", e.Timestamp)
		deleted = append(deleted, e.Path)
	}
	return deleted, nil
}
