package directory

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"relaybot/src/backend"
)

func TestWriteReadListDelete(t *testing.T) {
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p1, err := b.Write("backup_20260101T000000Z.json", []byte("one"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	p2, err := b.Write("backup_20250101T000000Z_critical.json", []byte("two"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := b.Read(p1)
	if err != nil || string(got) != "one" {
		t.Fatalf("Read by path: %q, %v", got, err)
	}
	got, err = b.Read("backup_20250101T000000Z_critical.json")
	if err != nil || string(got) != "two" {
		t.Fatalf("Read by name: %q, %v", got, err)
	}

	entries, err := b.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List: got %d entries, want 2", len(entries))
	}
	// sorted by timestamp ascending
	if entries[0].Timestamp != "20250101T000000Z" || entries[0].Kind != backend.KindCritical {
		t.Fatalf("first entry: %#v", entries[0])
	}
	if entries[1].Path != p1 || entries[1].Size != 3 {
		t.Fatalf("second entry: %#v", entries[1])
	}

	if err := b.Delete(p2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	entries, _ = b.List()
	if len(entries) != 1 {
		t.Fatalf("List after delete: got %d entries, want 1", len(entries))
	}
}

func TestWriteRefusesOverwrite(t *testing.T) {
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := b.Write("backup_20260101T000000Z.json", []byte("one")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, err = b.Write("backup_20260101T000000Z.json", []byte("two"))
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist, got %v", err)
	}
}

func TestListSkipsForeignFiles(t *testing.T) {
	root := t.TempDir()
	b, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, name := range []string{"notes.txt", ".lock", "backup_bad.json"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	entries, err := b.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("foreign files listed: %#v", entries)
	}
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "backups")
	if _, err := New(root); err != nil {
		t.Fatalf("New: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestLockSingleFlight(t *testing.T) {
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	release, err := b.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := b.Lock(); err == nil {
		t.Fatal("second Lock succeeded while held")
	}
	release()
	release2, err := b.Lock()
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	release2()
}
