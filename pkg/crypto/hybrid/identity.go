// Package hybrid implements the hybrid X25519 + ML-KEM-1024 key agreement
// and the device identity that carries it alongside an Ed25519 signing key.
package hybrid

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/securelegion/shield-core/pkg/crypto/classical"
	"github.com/securelegion/shield-core/pkg/crypto/mlkem"
	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

const DeviceIDSize = 16

// DeviceID is the first 16 bytes of BLAKE3 over a device's Ed25519 public key.
type DeviceID [DeviceIDSize]byte

func (id DeviceID) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, DeviceIDSize*2)
	for i, b := range id {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}

// DeviceIDFromPublicKey computes the DeviceID for an Ed25519 public key.
func DeviceIDFromPublicKey(ed25519Pub []byte) DeviceID {
	digest := primitives.Blake3Sum256(ed25519Pub)
	var id DeviceID
	copy(id[:], digest[:DeviceIDSize])
	return id
}

var (
	// ErrKeyGenerationFailed indicates identity keypair generation failed.
	ErrKeyGenerationFailed = errors.New("hybrid: identity key generation failed")
	// ErrInvalidSeed indicates a seed of the wrong length was supplied.
	ErrInvalidSeed = errors.New("hybrid: invalid identity seed")
)

// SeedSize is the length of the root seed accepted by GenerateIdentityFromSeed.
const SeedSize = 32

// Identity holds one device's full keypair set: Ed25519 for signing,
// X25519 and ML-KEM-1024 for hybrid key agreement. Every secret field is
// erased on Zeroize.
type Identity struct {
	DeviceID DeviceID

	Ed25519PublicKey  []byte // 32 bytes
	Ed25519PrivateKey []byte // 64 bytes

	X25519PublicKey  []byte // 32 bytes
	X25519PrivateKey []byte // 32 bytes

	MLKEMPublicKey  []byte // 1568 bytes
	MLKEMPrivateKey []byte // 3168 bytes
}

// GenerateIdentity creates a fresh identity using the OS CSPRNG.
func GenerateIdentity() (*Identity, error) {
	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: ed25519: %v", ErrKeyGenerationFailed, err)
	}

	xKP, err := classical.GenerateX25519Keypair()
	if err != nil {
		return nil, fmt.Errorf("%w: x25519: %v", ErrKeyGenerationFailed, err)
	}

	kemKP, err := mlkem.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("%w: ml-kem: %v", ErrKeyGenerationFailed, err)
	}

	return &Identity{
		DeviceID:          DeviceIDFromPublicKey(edPub),
		Ed25519PublicKey:  edPub,
		Ed25519PrivateKey: edPriv,
		X25519PublicKey:   xKP.PublicKey,
		X25519PrivateKey:  xKP.PrivateKey,
		MLKEMPublicKey:    kemKP.PublicKey,
		MLKEMPrivateKey:   kemKP.PrivateKey,
	}, nil
}

// GenerateIdentityFromSeed derives an identity deterministically from a
// 32-byte root seed: the Ed25519 keypair is expanded directly from the seed,
// the X25519 secret is the seed itself (crypto/ecdh clamps it per RFC 7748),
// and the ML-KEM seed is HKDF-expanded from the root seed under the
// "kyber1024" label to the scheme's required seed length. Recovering the
// same 32-byte root seed always reproduces the same device identity.
func GenerateIdentityFromSeed(seed [SeedSize]byte) (*Identity, error) {
	edPriv := ed25519.NewKeyFromSeed(seed[:])
	edPub := edPriv.Public().(ed25519.PublicKey)

	xPriv, err := ecdh.X25519().NewPrivateKey(seed[:])
	if err != nil {
		return nil, fmt.Errorf("%w: x25519: %v", ErrKeyGenerationFailed, err)
	}

	kemSeed, err := primitives.HKDFExpand(seed[:], "kyber1024", mlkem.SeedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: kyber seed derivation: %v", ErrKeyGenerationFailed, err)
	}
	kemKP, err := mlkem.GenerateKeypairFromSeed(kemSeed)
	primitives.ZeroSlice(kemSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: ml-kem: %v", ErrKeyGenerationFailed, err)
	}

	return &Identity{
		DeviceID:          DeviceIDFromPublicKey(edPub),
		Ed25519PublicKey:  []byte(edPub),
		Ed25519PrivateKey: []byte(edPriv),
		X25519PublicKey:   xPriv.PublicKey().Bytes(),
		X25519PrivateKey:  xPriv.Bytes(),
		MLKEMPublicKey:    kemKP.PublicKey,
		MLKEMPrivateKey:   kemKP.PrivateKey,
	}, nil
}

// Zeroize erases every secret key component. Public keys and the DeviceID
// are left intact since they carry no confidentiality requirement.
func (id *Identity) Zeroize() {
	if id == nil {
		return
	}
	primitives.ZeroSlice(id.Ed25519PrivateKey)
	primitives.ZeroSlice(id.X25519PrivateKey)
	primitives.ZeroSlice(id.MLKEMPrivateKey)
}
