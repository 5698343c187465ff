// Package audit describes the per-search audit record. The raw query text is
// never part of an entry, only its digest and length.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 16

// Entry is one audit record.
type Entry struct {
	QueryID     string
	QueryHash   string
	QueryLength int
	Timestamp   time.Time
}

// NewEntry builds an entry for query.
func NewEntry(queryID, query string, now time.Time) Entry {
	return Entry{
		QueryID:     queryID,
		QueryHash:   HashQuery(query),
		QueryLength: utf8.RuneCountInString(query),
		Timestamp:   now.UTC(),
	}
}

// HashQuery returns the first HashLength hex characters of SHA-256(query).
func HashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])[:HashLength]
}
