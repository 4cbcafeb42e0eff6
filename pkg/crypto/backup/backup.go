// Package backup implements the password-derived encrypted identity backup
// blob: version byte, salt, and an AEAD ciphertext keyed by Argon2id.
package backup

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

const (
	// Version is the only backup wire format this core produces or accepts.
	Version = 0x01

	saltSize = 16

	// minLength = version(1) + salt(16) + nonce(24) + tag(16), the smallest
	// possible blob (zero-length plaintext).
	minLength = 1 + saltSize + primitives.NonceSize + primitives.TagSize
)

var (
	ErrInvalidVersion  = errors.New("backup: unsupported blob version")
	ErrFormatTruncated = errors.New("backup: blob shorter than minimum valid length")
	ErrDerivationFailed = errors.New("backup: key derivation failed")
	ErrDecryptFailed   = errors.New("backup: decryption failed")
)

// Create encrypts secret under a key derived from password via Argon2id and
// returns the wire blob: version(1) || salt(16) || nonce(24) || ciphertext || tag(16).
func Create(secret, password []byte, params primitives.Argon2Params) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("backup: salt generation: %w", err)
	}

	key, err := primitives.Argon2idKey(password, salt, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	defer primitives.ZeroBytes32(&key)

	var nonce [primitives.NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("backup: nonce generation: %w", err)
	}

	ciphertext, err := primitives.Seal(key, nonce, secret, nil)
	if err != nil {
		return nil, fmt.Errorf("backup: encryption: %w", err)
	}

	blob := make([]byte, 0, 1+saltSize+primitives.NonceSize+len(ciphertext))
	blob = append(blob, Version)
	blob = append(blob, salt...)
	blob = append(blob, nonce[:]...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Restore decrypts a blob produced by Create. Wrong password and corrupted
// blobs both surface as ErrDecryptFailed; they are not distinguishable by
// design.
func Restore(blob, password []byte, params primitives.Argon2Params) ([]byte, error) {
	if len(blob) < minLength {
		return nil, ErrFormatTruncated
	}
	if blob[0] != Version {
		return nil, fmt.Errorf("%w: got 0x%02x", ErrInvalidVersion, blob[0])
	}

	salt := blob[1 : 1+saltSize]
	rest := blob[1+saltSize:]
	var nonce [primitives.NonceSize]byte
	copy(nonce[:], rest[:primitives.NonceSize])
	ciphertext := rest[primitives.NonceSize:]

	key, err := primitives.Argon2idKey(password, salt, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	defer primitives.ZeroBytes32(&key)

	plaintext, err := primitives.Open(key, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}
