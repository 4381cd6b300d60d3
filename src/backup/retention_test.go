package backup

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"relaybot/src/backend"
	"relaybot/src/backend/directory"
)

func seedSnapshots(t *testing.T, store *directory.Backend, n int, critical bool) []string {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		name := backend.FileName(base.Add(time.Duration(i)*time.Hour), critical)
		p, err := store.Write(name, []byte(fmt.Sprintf("snap %d", i)))
		if err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		paths[i] = p
	}
	return paths
}

func TestPruneBoundary(t *testing.T) {
	store, err := directory.New(t.TempDir())
	if err != nil {
		t.Fatalf("directory.New: %v", err)
	}
	paths := seedSnapshots(t, store, 5, false)

	deleted, err := Prune(store, discardLog(), 3)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("deleted: got %d, want 2", len(deleted))
	}
	// the two oldest go, the three newest stay
	if deleted[0] != paths[1] && deleted[0] != paths[0] {
		t.Fatalf("unexpected deletion: %v", deleted)
	}
	entries, _ := store.List()
	if len(entries) != 3 {
		t.Fatalf("remaining: got %d, want 3", len(entries))
	}
	if entries[0].Path != paths[2] {
		t.Fatalf("oldest survivor: got %s, want %s", entries[0].Path, paths[2])
	}
}

func TestPruneSparesCriticalSnapshots(t *testing.T) {
	store, err := directory.New(t.TempDir())
	if err != nil {
		t.Fatalf("directory.New: %v", err)
	}
	seedSnapshots(t, store, 2, false)
	seedSnapshots(t, store, 4, true)

	deleted, err := Prune(store, discardLog(), 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(deleted) != 1 {
		t.Fatalf("deleted: got %d, want 1 (full only)", len(deleted))
	}
	entries, _ := store.List()
	criticals := 0
	for _, e := range entries {
		if e.Kind == backend.KindCritical {
			criticals++
		}
	}
	if criticals != 4 {
		t.Fatalf("critical snapshots pruned: %d remain, want 4", criticals)
	}
}

func TestPruneNoopWithinWindow(t *testing.T) {
	store, err := directory.New(t.TempDir())
	if err != nil {
		t.Fatalf("directory.New: %v", err)
	}
	seedSnapshots(t, store, 3, false)
	deleted, err := Prune(store, discardLog(), 3)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(deleted) != 0 {
		t.Fatalf("deleted within window: %v", deleted)
	}
}

func TestPruneRejectsNonPositiveWindow(t *testing.T) {
	store, err := directory.New(t.TempDir())
	if err != nil {
		t.Fatalf("directory.New: %v", err)
	}
	if _, err := Prune(store, discardLog(), 0); err == nil {
		t.Fatal("expected error for maxCount 0")
	}
}

// flakyStore fails deletion for one path to show pruning continues.
type flakyStore struct {
	backend.Store
	failPath string
}

func (f *flakyStore) Delete(path string) error {
	if path == f.failPath {
		return errors.New("permission denied")
	}
	return f.Store.Delete(path)
}

func TestPruneContinuesPastDeleteFailure(t *testing.T) {
	store, err := directory.New(t.TempDir())
	if err != nil {
		t.Fatalf("directory.New: %v", err)
	}
	paths := seedSnapshots(t, store, 4, false)

	flaky := &flakyStore{Store: store, failPath: paths[1]}
	deleted, err := Prune(flaky, discardLog(), 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	// paths[0] and paths[2] deleted, paths[1] failed and was skipped
	if len(deleted) != 2 {
		t.Fatalf("deleted: got %v, want 2 paths", deleted)
	}
	for _, p := range deleted {
		if p == paths[1] {
			t.Fatal("failed path reported as deleted")
		}
	}
}
