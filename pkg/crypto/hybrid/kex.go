package hybrid

import (
	"errors"
	"fmt"

	"github.com/securelegion/shield-core/pkg/crypto/classical"
	"github.com/securelegion/shield-core/pkg/crypto/mlkem"
	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

// HybridKDFInfo domain-separates the combined-secret expansion from every
// other HKDF use in the core.
const HybridKDFInfo = "SecureLegion-Hybrid-KEM-v2"

// CombinedSecretSize is the output size of the combined X25519+ML-KEM secret;
// large enough to seed both a root key and a confirmation tag if one is
// ever needed downstream.
const CombinedSecretSize = 64

var (
	ErrInvalidCiphertext   = errors.New("hybrid: invalid ciphertext format")
	ErrEncapsulationFailed = errors.New("hybrid: encapsulation failed")
	ErrDecapsulationFailed = errors.New("hybrid: decapsulation failed")
)

// Encapsulate performs hybrid encapsulation against a peer's X25519 and
// ML-KEM-1024 public keys. It returns a combined ciphertext (ML-KEM
// ciphertext ‖ ephemeral X25519 public key) and the 64-byte combined secret.
func Encapsulate(peerX25519Pub, peerMLKEMPub []byte) (ciphertext []byte, sharedSecret []byte, err error) {
	kemCT, kemSS, err := mlkem.Encapsulate(peerMLKEMPub)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ml-kem: %v", ErrEncapsulationFailed, err)
	}

	ephemeral, err := classical.GenerateX25519Keypair()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ephemeral x25519: %v", ErrEncapsulationFailed, err)
	}

	ecdhSS, err := classical.X25519Exchange(ephemeral.PrivateKey, peerX25519Pub)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: x25519 exchange: %v", ErrEncapsulationFailed, err)
	}

	combined, err := deriveCombinedSecret(ecdhSS, kemSS)
	primitives.ZeroSlice(ephemeral.PrivateKey)
	primitives.ZeroSlice(ecdhSS)
	primitives.ZeroSlice(kemSS)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncapsulationFailed, err)
	}

	out := make([]byte, len(kemCT)+len(ephemeral.PublicKey))
	copy(out, kemCT)
	copy(out[len(kemCT):], ephemeral.PublicKey)

	return out, combined, nil
}

// Decapsulate reverses Encapsulate given the local X25519 and ML-KEM-1024
// private keys and the combined ciphertext, reproducing the same 64-byte
// combined secret.
func Decapsulate(ciphertext, localX25519Priv, localMLKEMPriv []byte) (sharedSecret []byte, err error) {
	expectedSize := mlkem.Scheme().CiphertextSize() + 32
	if len(ciphertext) != expectedSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidCiphertext, expectedSize, len(ciphertext))
	}

	kemCTSize := mlkem.Scheme().CiphertextSize()
	kemCT := ciphertext[:kemCTSize]
	ephemeralPub := ciphertext[kemCTSize:]

	kemSS, err := mlkem.Decapsulate(kemCT, localMLKEMPriv)
	if err != nil {
		return nil, fmt.Errorf("%w: ml-kem: %v", ErrDecapsulationFailed, err)
	}

	ecdhSS, err := classical.X25519Exchange(localX25519Priv, ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("%w: x25519 exchange: %v", ErrDecapsulationFailed, err)
	}

	combined, err := deriveCombinedSecret(ecdhSS, kemSS)
	primitives.ZeroSlice(ecdhSS)
	primitives.ZeroSlice(kemSS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecapsulationFailed, err)
	}

	return combined, nil
}

func deriveCombinedSecret(ecdhSS, kemSS []byte) ([]byte, error) {
	ikm := make([]byte, 0, len(ecdhSS)+len(kemSS))
	ikm = append(ikm, ecdhSS...)
	ikm = append(ikm, kemSS...)
	defer primitives.ZeroSlice(ikm)

	secret, err := primitives.HKDFExpand(ikm, HybridKDFInfo, CombinedSecretSize)
	if err != nil {
		return nil, err
	}
	return secret, nil
}
