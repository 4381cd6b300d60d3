package backup

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"relaybot/src/backend"
	"relaybot/src/backend/directory"
	"relaybot/src/dbapi"
	"relaybot/src/snapshot"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedFake() *dbapi.FakeClient {
	fake := dbapi.NewFake()
	fake.Seed("users", []dbapi.Row{
		dbapi.NewRow(dbapi.Field{Name: "id", Value: int64(1)}, dbapi.Field{Name: "name", Value: "ada"}),
		dbapi.NewRow(dbapi.Field{Name: "id", Value: int64(2)}, dbapi.Field{Name: "name", Value: "bob"}),
	})
	fake.Seed("settings", []dbapi.Row{
		dbapi.NewRow(dbapi.Field{Name: "id", Value: int64(1)}, dbapi.Field{Name: "theme", Value: "dark"}),
	})
	fake.Seed("messages", []dbapi.Row{
		dbapi.NewRow(dbapi.Field{Name: "id", Value: int64(10)}, dbapi.Field{Name: "text", Value: "hi"}),
	})
	return fake
}

func newTestBuilder(t *testing.T, fake *dbapi.FakeClient) (*Builder, *directory.Backend) {
	t.Helper()
	store, err := directory.New(t.TempDir())
	if err != nil {
		t.Fatalf("directory.New: %v", err)
	}
	return NewBuilder(fake, store, discardLog()), store
}

func TestBuildRoundTripValidates(t *testing.T) {
	b, store := newTestBuilder(t, seedFake())
	path, snap, err := b.Build([]string{"users", "settings"}, false, "nightly")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if snap.Metadata.RowCounts["users"] != 2 || snap.Metadata.RowCounts["settings"] != 1 {
		t.Fatalf("row counts: %#v", snap.Metadata.RowCounts)
	}
	if snap.Metadata.Description != "nightly" {
		t.Fatalf("description: %q", snap.Metadata.Description)
	}
	result := VerifyPath(store, path)
	if !result.Valid {
		t.Fatalf("fresh snapshot invalid: %v", result.Issues)
	}
}

func TestBuildPartialFailureIsolation(t *testing.T) {
	fake := seedFake()
	fake.SelectErr = map[string]error{"settings": errors.New("connection reset")}
	b, store := newTestBuilder(t, fake)

	path, snap, err := b.Build([]string{"users", "settings", "messages"}, false, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(snap.Metadata.Tables) != 2 || snap.Metadata.Tables[0] != "users" || snap.Metadata.Tables[1] != "messages" {
		t.Fatalf("tables: %v", snap.Metadata.Tables)
	}
	if _, ok := snap.Tables["settings"]; ok {
		t.Fatal("failed table present in snapshot data")
	}
	if _, ok := snap.Metadata.Checksums["settings"]; ok {
		t.Fatal("failed table present in checksums")
	}
	result := VerifyPath(store, path)
	if !result.Valid {
		t.Fatalf("partial snapshot invalid: %v", result.Issues)
	}
}

func TestBuildAllExportsFailed(t *testing.T) {
	fake := seedFake()
	fake.SelectErr = map[string]error{
		"users":    errors.New("down"),
		"settings": errors.New("down"),
	}
	b, store := newTestBuilder(t, fake)

	path, snap, err := b.Build([]string{"users", "settings"}, false, "")
	if err != nil {
		t.Fatalf("Build should not fail when all exports fail: %v", err)
	}
	if len(snap.Metadata.Tables) != 0 || len(snap.Metadata.RowCounts) != 0 {
		t.Fatalf("expected empty table set: %#v", snap.Metadata)
	}
	if _, err := store.Read(path); err != nil {
		t.Fatalf("snapshot file not written: %v", err)
	}
}

func TestBuildCriticalFilenameMarker(t *testing.T) {
	b, _ := newTestBuilder(t, seedFake())
	path, _, err := b.Build([]string{"users"}, true, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(path, "_critical.json") {
		t.Fatalf("critical marker missing from %s", path)
	}
}

func TestBuildCollisionBumpsTimestamp(t *testing.T) {
	b, store := newTestBuilder(t, seedFake())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b.SetClock(func() time.Time { return fixed })

	p1, _, err := b.Build([]string{"users"}, false, "")
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	p2, snap2, err := b.Build([]string{"users"}, false, "")
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if p1 == p2 {
		t.Fatal("same-second snapshots collided")
	}
	entries, _ := store.List()
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}

	// the bumped snapshot's metadata must carry the bumped time, and the
	// file's metadata timestamp must match the one in its filename
	wantTS := fixed.Add(time.Second).Format(time.RFC3339)
	if snap2.Metadata.Timestamp != wantTS {
		t.Fatalf("metadata timestamp not restamped: got %s, want %s", snap2.Metadata.Timestamp, wantTS)
	}
	data, err := store.Read(p2)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	onDisk, err := snapshot.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, nameTS, ok := backend.ParseName(filepath.Base(p2))
	if !ok {
		t.Fatalf("bad snapshot name: %s", p2)
	}
	named, err := time.Parse(backend.TimestampLayout, nameTS)
	if err != nil {
		t.Fatalf("parse name timestamp: %v", err)
	}
	if onDisk.Metadata.Timestamp != named.UTC().Format(time.RFC3339) {
		t.Fatalf("file timestamp %s does not match filename %s", onDisk.Metadata.Timestamp, nameTS)
	}
}
