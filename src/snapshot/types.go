// Package snapshot defines the on-disk backup document: per-table row sets
// plus integrity metadata. A snapshot is written once and never mutated;
// corrections produce a new snapshot.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"relaybot/src/dbapi"
)

// FormatVersion is written into every snapshot; readers warn (but proceed)
// on mismatch.
const FormatVersion = "1.0"

// Metadata describes the tables captured in a snapshot.
type Metadata struct {
	// Timestamp is the capture time in RFC 3339 (UTC).
	Timestamp     string `json:"timestamp"`
	FormatVersion string `json:"formatVersion"`
	// Tables lists captured tables in capture order; it drives restore
	// ordering.
	Tables      []string          `json:"tables"`
	RowCounts   map[string]int    `json:"rowCounts"`
	Checksums   map[string]string `json:"checksums"`
	Description string            `json:"description,omitempty"`
}

// Snapshot is the full backup document.
//
// Invariant: for every name in Metadata.Tables, Tables[name] exists,
// RowCounts[name] equals its length, and Checksums[name] equals
// Digest(Tables[name]).
type Snapshot struct {
	Metadata Metadata               `json:"metadata"`
	Tables   map[string][]dbapi.Row `json:"tables"`
}

// Document is the lenient decode target used by the verifier: section
// presence is observable through the pointer fields.
type Document struct {
	Metadata *Metadata              `json:"metadata"`
	Tables   map[string][]dbapi.Row `json:"tables"`
}

// Marshal encodes the snapshot as indented UTF-8 JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Parse decodes data strictly: both sections must be present. Restore treats
// a Parse failure as fatal for the operation.
func Parse(data []byte) (*Snapshot, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if doc.Metadata == nil {
		return nil, errors.New("parse snapshot: missing metadata section")
	}
	if doc.Tables == nil {
		return nil, errors.New("parse snapshot: missing tables section")
	}
	return &Snapshot{Metadata: *doc.Metadata, Tables: doc.Tables}, nil
}
