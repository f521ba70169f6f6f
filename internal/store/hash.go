package store

import (
	"encoding/hex"
	"fmt"

	"github.com/minio/highwayhash"
)

// hashKey is the fixed 256-bit HighwayHash key. Hashes only need to be
// stable across runs, not secret.
var hashKey = []byte("hush-content-hash-key-0123456789")

// ContentHash returns the hex-encoded HighwayHash-64 of a file's content.
// Unchanged content yields the same hash, which lets indexing skip files.
func ContentHash(content []byte) (string, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	if _, err := h.Write(content); err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
