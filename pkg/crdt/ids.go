// Package crdt implements the group messaging operation-log engine: a
// CBOR-encoded, Ed25519-signed op stream that every member applies in a
// deterministic total order to rebuild identical group state.
package crdt

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

const groupIDLabel = "SL-GROUP"

// GroupIDSize is the length of a GroupID.
const GroupIDSize = 32

// GroupID identifies one group: BLAKE3("SL-GROUP" || creator DeviceID || 32 random bytes).
type GroupID [GroupIDSize]byte

func (g GroupID) String() string { return hexString(g[:]) }

// NewGroupID derives a fresh GroupID for a group created by creator.
func NewGroupID(creator hybrid.DeviceID) (GroupID, error) {
	var salt [32]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return GroupID{}, fmt.Errorf("crdt: group id salt generation: %w", err)
	}
	digest := primitives.Blake3Sum256([]byte(groupIDLabel), creator[:], salt[:])
	return GroupID(digest), nil
}

// OpID totally orders operations within a group: first by lamport, then by
// author bytes, then by nonce.
type OpID struct {
	Author  hybrid.DeviceID
	Lamport uint64
	Nonce   uint64
}

// Less reports whether id sorts strictly before other in OpID total order.
func (id OpID) Less(other OpID) bool {
	if id.Lamport != other.Lamport {
		return id.Lamport < other.Lamport
	}
	if cmp := bytes.Compare(id.Author[:], other.Author[:]); cmp != 0 {
		return cmp < 0
	}
	return id.Nonce < other.Nonce
}

// Equal reports whether id and other identify the same operation.
func (id OpID) Equal(other OpID) bool {
	return id.Author == other.Author && id.Lamport == other.Lamport && id.Nonce == other.Nonce
}

// String renders the hex form author_hex:lamport_hex:nonce_hex.
func (id OpID) String() string {
	return fmt.Sprintf("%s:%x:%x", id.Author.String(), id.Lamport, id.Nonce)
}

// NewNonce draws a random 64-bit nonce for a new OpID.
func NewNonce() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("crdt: opid nonce generation: %w", err)
	}
	var n uint64
	for _, b := range buf {
		n = n<<8 | uint64(b)
	}
	return n, nil
}

func hexString(b []byte) string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, len(b)*2)
	for i, v := range b {
		buf[i*2] = hextable[v>>4]
		buf[i*2+1] = hextable[v&0x0f]
	}
	return string(buf)
}
