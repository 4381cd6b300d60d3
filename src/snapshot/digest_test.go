package snapshot

import (
	"encoding/json"
	"testing"

	"relaybot/src/dbapi"
)

func sampleRows() []dbapi.Row {
	return []dbapi.Row{
		dbapi.NewRow(dbapi.Field{Name: "id", Value: int64(1)}, dbapi.Field{Name: "name", Value: "ada"}),
		dbapi.NewRow(dbapi.Field{Name: "id", Value: int64(2)}, dbapi.Field{Name: "name", Value: "bob"}),
	}
}

func TestDigestDeterministic(t *testing.T) {
	a, err := Digest(sampleRows())
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	b, err := Digest(sampleRows())
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if a != b {
		t.Fatalf("digests differ for identical rows: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("digest is not hex sha256: %q", a)
	}
}

func TestDigestRowOrderSignificant(t *testing.T) {
	rows := sampleRows()
	a, _ := Digest(rows)
	swapped := []dbapi.Row{rows[1], rows[0]}
	b, _ := Digest(swapped)
	if a == b {
		t.Fatal("digest ignored row order")
	}
}

func TestDigestFieldMutationChangesDigest(t *testing.T) {
	rows := sampleRows()
	a, _ := Digest(rows)
	rows[1].Set("name", "eve")
	b, _ := Digest(rows)
	if a == b {
		t.Fatal("digest unchanged after field mutation")
	}
}

func TestDigestStableAcrossJSONRoundTrip(t *testing.T) {
	rows := sampleRows()
	before, err := Digest(rows)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back []dbapi.Row
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	after, err := Digest(back)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if before != after {
		t.Fatalf("digest changed across round trip: %s vs %s", before, after)
	}
}

func TestParseRequiresBothSections(t *testing.T) {
	if _, err := Parse([]byte(`{"tables":{}}`)); err == nil {
		t.Fatal("expected error for missing metadata")
	}
	if _, err := Parse([]byte(`{"metadata":{"timestamp":"t","formatVersion":"1.0"}}`)); err == nil {
		t.Fatal("expected error for missing tables")
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed document")
	}
	snap, err := Parse([]byte(`{"metadata":{"timestamp":"t","formatVersion":"1.0","tables":[]},"tables":{}}`))
	if err != nil {
		t.Fatalf("parse minimal snapshot: %v", err)
	}
	if snap.Metadata.FormatVersion != "1.0" {
		t.Fatalf("unexpected version: %s", snap.Metadata.FormatVersion)
	}
}
