// Package checksum computes the content digests served as question ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"time"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Question returns the ETag of a question's editable state. Any edit to the
// title, body or tag selection changes it, and so does any update that bumps
// updatedAt.
func Question(title, body string, tagIDs []int64, updatedAt time.Time) string {
	h := sha256.New()
	writeField(h, []byte(title))
	writeField(h, []byte(body))
	var buf [8]byte
	for _, id := range tagIDs {
		binary.BigEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
	}
	binary.BigEndian.PutUint64(buf[:], uint64(updatedAt.UnixNano()))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

// writeField length-prefixes b so adjacent fields cannot run together.
func writeField(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}
