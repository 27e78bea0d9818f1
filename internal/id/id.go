package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefixes are the bill-id prefixes minted by known callers.
var DefaultPrefixes = []string{"split", "bill", "receipt", "payment", "ocr"}

const (
	minTimestampLen = 10 // unix seconds
	maxTimestampLen = 13 // unix milliseconds
	suffixLen       = 6
)

// FormatBillID returns a bill ID like "split_1700000000_3fa2b1".
func FormatBillID(prefix string, t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return fmt.Sprintf("%s_%d_%s", prefix, t.Unix(), suffix)
}

// TimestampToken extracts the timestamp token from a bill ID that starts
// with one of prefixes, e.g. "split_1700000000_abc" -> "1700000000".
// Prefixes match case-insensitively; "_" and "-" both separate.
func TimestampToken(billID string, prefixes []string) (string, bool) {
	parts := strings.FieldsFunc(billID, func(r rune) bool { return r == '_' || r == '-' })
	if len(parts) < 2 {
		return "", false
	}
	if !hasPrefix(parts[0], prefixes) {
		return "", false
	}
	if !IsTimestampToken(parts[1]) {
		return "", false
	}
	return parts[1], true
}

// IsTimestampToken reports whether s looks like a unix timestamp in seconds
// or milliseconds.
func IsTimestampToken(s string) bool {
	if len(s) < minTimestampLen || len(s) > maxTimestampLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasPrefix(p string, prefixes []string) bool {
	for _, want := range prefixes {
		if strings.EqualFold(p, want) {
			return true
		}
	}
	return false
}

// NewParticipantID returns a fresh participant ID.
func NewParticipantID() string {
	return uuid.NewString()
}

// NewItemID returns a fresh item ID.
func NewItemID() string {
	return uuid.NewString()
}
