package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"relaybot/src/dbapi"
)

// Digest returns the lowercase hex SHA-256 of the canonical serialization of
// rows: a JSON array in the given order, each row with its fields in their
// original order. Identical row sequences always hash identically; row order
// is significant and is never re-sorted here.
func Digest(rows []dbapi.Row) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := json.Marshal(row)
		if err != nil {
			return "", fmt.Errorf("digest row %d: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}
