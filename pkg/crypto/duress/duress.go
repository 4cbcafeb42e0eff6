// Package duress implements the duress-PIN entry point: a single call that
// clears in-memory ratchet and identity key material, plus the storage
// contracts a host uses to complete the wipe.
package duress

import (
	"errors"
)

var ErrDeniableOpenFailed = errors.New("duress: deniable storage open failed")

// RatchetState is satisfied by pkg/crypto/ratchet.State. Kept as a narrow
// interface here so this package never imports ratchet directly.
type RatchetState interface {
	Close()
}

// KeyMaterial is satisfied by pkg/crypto/hybrid.Identity and anything else
// that owns secret key bytes.
type KeyMaterial interface {
	Zeroize()
}

// DeniableStorage is the storage contract duress entry relies on. It is
// consumed, not implemented, by this core: a host wires a concrete backend
// (e.g. an encrypted SQLite file) that is indistinguishable from random
// bytes on disk without the key.
type DeniableStorage interface {
	// OpenWithKey opens the store using key. Returns an error if the key is
	// wrong or the store is corrupt; the two cases are not distinguishable.
	OpenWithKey(key []byte) error

	// WipeAndZeroize destroys the store's contents and zeroizes any key
	// material the implementation itself retained.
	WipeAndZeroize() error
}

// StealthRequest describes the optional host-side actions a duress entry can
// ask for beyond the in-core key wipe.
type StealthRequest struct {
	PopulateDecoy bool
	HideLauncherAlias bool
}

// EnterDuress is the single entry point for duress-PIN handling. It closes
// every ratchet session, zeroizes every identity passed to it, and, when
// storage is non-nil, calls storage.WipeAndZeroize and returns its error.
// The host is responsible for honoring req, since UI surfaces are outside
// this core's scope.
func EnterDuress(ratchets []RatchetState, identities []KeyMaterial, storage DeniableStorage, req StealthRequest) error {
	for _, r := range ratchets {
		if r != nil {
			r.Close()
		}
	}
	for _, id := range identities {
		if id != nil {
			id.Zeroize()
		}
	}
	if storage != nil {
		if err := storage.WipeAndZeroize(); err != nil {
			return err
		}
	}
	return nil
}
