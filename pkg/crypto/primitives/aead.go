// Package primitives provides the cryptographic building blocks shared by
// every other component of the SecureLegion core: AEAD, hashing, HKDF,
// Argon2id, constant-time comparison, and secure erasure.
package primitives

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize and NonceSize are the XChaCha20-Poly1305 parameters used throughout
// the core: a 32-byte key and a 24-byte extended nonce.
const (
	KeySize   = chacha20poly1305.KeySize    // 32 bytes
	NonceSize = chacha20poly1305.NonceSizeX // 24 bytes
	TagSize   = 16                          // Poly1305 tag size
)

// Error sentinels. None of these ever carry plaintext or key material.
var (
	ErrInvalidKeySize   = errors.New("primitives: invalid key size")
	ErrInvalidNonceSize = errors.New("primitives: invalid nonce size")
	ErrEncryptFailed    = errors.New("primitives: encryption failed")
	ErrDecryptFailed    = errors.New("primitives: decryption failed: authentication tag mismatch or corrupted ciphertext")
)

// Seal encrypts and authenticates plaintext with XChaCha20-Poly1305, binding
// additionalData if non-nil. The returned slice is ciphertext‖tag.
func Seal(key [KeySize]byte, nonce [NonceSize]byte, plaintext, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	return aead.Seal(nil, nonce[:], plaintext, additionalData), nil
}

// Open decrypts and authenticates ciphertext (= plaintext‖tag) with
// XChaCha20-Poly1305. Returns ErrDecryptFailed on any tag mismatch or
// malformed input, never partial plaintext.
func Open(key [KeySize]byte, nonce [NonceSize]byte, ciphertext, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	if len(ciphertext) < TagSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than tag", ErrDecryptFailed)
	}
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// SealWithKeyBytes and OpenWithKeyBytes accept slice keys, validating length
// before converting to the fixed-size array the rest of the package expects.
func SealWithKeyBytes(key []byte, nonce [NonceSize]byte, plaintext, additionalData []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	var k [KeySize]byte
	copy(k[:], key)
	return Seal(k, nonce, plaintext, additionalData)
}

func OpenWithKeyBytes(key []byte, nonce [NonceSize]byte, ciphertext, additionalData []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	var k [KeySize]byte
	copy(k[:], key)
	return Open(k, nonce, ciphertext, additionalData)
}
