package primitives

import (
	"crypto/sha256"

	"lukechampine.com/blake3"
)

// Blake3Size and SHA256Size are the fixed digest sizes this package produces.
const (
	Blake3Size = 32
	SHA256Size = 32
)

// Blake3Sum256 returns the 32-byte BLAKE3 digest of data. Used for DeviceID,
// GroupID, CRDT msg_id, and group state_hash throughout the core.
func Blake3Sum256(data ...[]byte) [Blake3Size]byte {
	h := blake3.New(Blake3Size, nil)
	for _, d := range data {
		h.Write(d)
	}
	var out [Blake3Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SHA256Sum returns the 32-byte SHA-256 digest of the concatenation of data.
func SHA256Sum(data ...[]byte) [SHA256Size]byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out [SHA256Size]byte
	copy(out[:], h.Sum(nil))
	return out
}
