// Package jobid derives stable job identifiers from source documents.
//
// Both forms return the lowercase hex encoding of a SHA-256 digest, so an ID is
// always 64 characters and safe to use as a storage path segment.
package jobid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// Length is the length of every job ID.
const Length = sha256.Size * 2

// FromObject derives a job ID from an object's address and size. The parts are
// concatenated without a separator; IDs already issued depend on that.
func FromObject(bucket, key string, size int64) string {
	sum := sha256.Sum256([]byte(bucket + key + strconv.FormatInt(size, 10)))
	return hex.EncodeToString(sum[:])
}

// FromContent derives a job ID from the full content of r, read in chunks.
func FromContent(r io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.CopyBuffer(hash, r, make([]byte, 32*1024)); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Valid reports whether id has the shape of a derived job ID.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
