package primitives

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrDerivationFailed indicates an HKDF expand step failed to fill its output.
var ErrDerivationFailed = fmt.Errorf("primitives: key derivation failed")

// HKDFExpand derives outLen bytes from ikm, domain-separated by info, using
// HKDF-SHA-256 Expand only: ikm is used directly as the pseudorandom key,
// with no Extract step and no salt. Every ratchet and hybrid-KEM key schedule
// in this core goes through this single function so the domain-separation
// labels are the only thing that ever differs.
func HKDFExpand(ikm []byte, info string, outLen int) ([]byte, error) {
	r := hkdf.Expand(sha256.New, ikm, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return out, nil
}

// HKDFExpand32 is a convenience wrapper for the common 32-byte output case.
func HKDFExpand32(ikm []byte, info string) ([32]byte, error) {
	var out [32]byte
	buf, err := HKDFExpand(ikm, info, 32)
	if err != nil {
		return out, err
	}
	copy(out[:], buf)
	return out, nil
}
