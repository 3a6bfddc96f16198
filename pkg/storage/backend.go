package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotFound is returned by Get when the key holds nothing. Callers treat
// it as "no prior data", not as a failure.
var ErrNotFound = errors.New("storage: not found")

// BlobStore defines the interface for abstract storage backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ReviewPrefix is the key prefix under which review payloads live.
const ReviewPrefix = "review/"

// ReviewKey is the key of a job's review payload. Canonical and local
// stores use the same key.
func ReviewKey(jobID string) string {
	return ReviewPrefix + jobID + ".json"
}

// JobIDFromReviewKey is the inverse of ReviewKey.
func JobIDFromReviewKey(key string) (string, bool) {
	if !strings.HasPrefix(key, ReviewPrefix) || path.Ext(key) != ".json" {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, ReviewPrefix), ".json")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// validKey rejects keys that would escape a store's root.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
