// Package util provides shared logging, statistics and formatting helpers.
package util

import (
	"hash/fnv"
)

// PeerTag computes a 4-byte hash of a peer identifier. Log lines about a
// peer are prefixed with it as "[%08x]" so that long UUIDs stay readable.
// The hash is used solely for display and does not need to be reversible.
func PeerTag(id string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return h.Sum32()
}
