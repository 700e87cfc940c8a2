package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// CohortHash fingerprints a generated participant table
type CohortHash Hash

// NewCohortHash creates a cohort hash from canonical bytes
func NewCohortHash(data []byte) CohortHash { return CohortHash(NewHash(data)) }

// String conversion
func (h CohortHash) String() string { return Hash(h).String() }

// ComputeCohortHash fingerprints a table from its entity ids and column
// values in schema order. Two byte-identical tables hash identically, which
// is how run manifests record which dataset an analysis saw.
func ComputeCohortHash(entityIDs []string, keys []string, columns [][]float64) CohortHash {
	var data strings.Builder
	for _, id := range entityIDs {
		data.WriteString(id)
		data.WriteByte(0)
	}
	buf := make([]byte, 8)
	for i, key := range keys {
		data.WriteString(key)
		data.WriteByte(0)
		if i < len(columns) {
			for _, v := range columns[i] {
				binary.BigEndian.PutUint64(buf, math.Float64bits(v))
				data.Write(buf)
			}
		}
	}
	return NewCohortHash([]byte(data.String()))
}
