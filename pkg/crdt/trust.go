package crdt

import "github.com/securelegion/shield-core/pkg/crypto/hybrid"

// TrustRecord is one contact's verification state, as established by an
// out-of-band safety-number comparison.
type TrustRecord struct {
	Contact      hybrid.DeviceID
	SafetyNumber string
	Verified     bool
}

// ContactTrustStore is the storage contract for per-contact verification
// records. It is consumed, not implemented, by this core; a host wires a
// concrete backend (see internal/hostadapters).
type ContactTrustStore interface {
	Get(contact hybrid.DeviceID) (TrustRecord, bool, error)
	Put(record TrustRecord) error
	Delete(contact hybrid.DeviceID) error
}
