package store

import (
	"fmt"
	"sync"
	"time"
)

// Key prefixes for the three collections and their secondary indexes.
const (
	storyPrefix    = "story:"
	draftPrefix    = "draft:"
	favoritePrefix = "fav:"

	schemaVersionKey = "meta:schema_version"
	collectionPrefix = "meta:collection:"

	storyCreatedIdxPrefix  = "idx:stories:created_at:"
	storyLocationIdxPrefix = "idx:stories:has_location:"
	draftSyncedIdxPrefix   = "idx:drafts:synced:"
	favoriteAddedIdxPrefix = "idx:favorites:added_at:"
)

// keyPool provides reusable byte slices for building database keys.
// This reduces allocations on the hot path of database operations.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 256)
	},
}

// buildKey constructs a database key from prefix and suffix using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// draftKey formats a draft id as a zero-padded, lexicographically sortable key.
func draftKey(id int64) []byte {
	return fmt.Appendf(nil, "%s%020d", draftPrefix, id)
}

// boolIdxSegment maps a flag to the "0"/"1" segment used in index keys.
func boolIdxSegment(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// formatTimestampIndexKey creates a timestamp index key with sortable timestamp.
// Zero-padded nanoseconds keep lexicographic order equal to chronological order.
// Format: {prefix}{YYYY-MM-DDTHH:MM:SS.NNNNNNNNNZ}:{id}.
func formatTimestampIndexKey(prefix string, timestamp time.Time, id string) []byte {
	timestampStr := timestamp.UTC().Format("2006-01-02T15:04:05") + fmt.Sprintf(".%09d", timestamp.Nanosecond()) + "Z"
	return fmt.Appendf(nil, "%s%s:%s", prefix, timestampStr, id)
}

// timestampIndexLen is the fixed width of the timestamp segment in index keys.
const timestampIndexLen = 30

// parseTimestampIndexKey extracts the record id from a timestamp index key.
func parseTimestampIndexKey(key []byte, expectedPrefix string) (string, error) {
	keyStr := string(key)
	if len(keyStr) < len(expectedPrefix)+timestampIndexLen+2 {
		return "", fmt.Errorf("invalid timestamp index key: %s", keyStr)
	}
	if keyStr[:len(expectedPrefix)] != expectedPrefix {
		return "", fmt.Errorf("invalid timestamp index key: missing prefix %s", expectedPrefix)
	}
	// Skip the fixed-width timestamp and the separating colon.
	return keyStr[len(expectedPrefix)+timestampIndexLen+1:], nil
}
