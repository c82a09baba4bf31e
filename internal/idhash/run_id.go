// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// runIDBytes is the hash prefix length encoded into a run ID.
const runIDBytes = 16

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(started_at_unix_nanos|trigger), first 16 bytes, base58 encoded.
// The same start instant and trigger always yield the same ID.
func ComputeRunID(startedAt time.Time, trigger string) string {
	data := fmt.Sprintf("%d|%s", startedAt.UnixNano(), trigger)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:runIDBytes])
}
