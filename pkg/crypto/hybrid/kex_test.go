package hybrid

import (
	"bytes"
	"testing"
)

func TestEncapsulateCiphertextFormat(t *testing.T) {
	alice, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() failed: %v", err)
	}

	ct, _, err := Encapsulate(alice.X25519PublicKey, alice.MLKEMPublicKey)
	if err != nil {
		t.Fatalf("Encapsulate() failed: %v", err)
	}

	expectedSize := 1568 + 32
	if len(ct) != expectedSize {
		t.Errorf("ciphertext size: got %d, want %d", len(ct), expectedSize)
	}

	kemCT := ct[:1568]
	allZero := true
	for _, b := range kemCT {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("ML-KEM ciphertext component is all zeros")
	}
}

func TestEncapsulateUniqueness(t *testing.T) {
	alice, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() failed: %v", err)
	}

	ct1, ss1, err := Encapsulate(alice.X25519PublicKey, alice.MLKEMPublicKey)
	if err != nil {
		t.Fatalf("Encapsulate() #1 failed: %v", err)
	}
	ct2, ss2, err := Encapsulate(alice.X25519PublicKey, alice.MLKEMPublicKey)
	if err != nil {
		t.Fatalf("Encapsulate() #2 failed: %v", err)
	}

	if bytes.Equal(ct1, ct2) {
		t.Error("two encapsulations against the same key produced identical ciphertexts")
	}
	if bytes.Equal(ss1, ss2) {
		t.Error("two encapsulations against the same key produced identical shared secrets")
	}
}

func TestDecapsulateRejectsTruncatedCiphertext(t *testing.T) {
	alice, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() failed: %v", err)
	}
	cases := [][]byte{nil, {}, make([]byte, 100), make([]byte, 1568)}
	for _, ct := range cases {
		if _, err := Decapsulate(ct, alice.X25519PrivateKey, alice.MLKEMPrivateKey); err == nil {
			t.Errorf("expected error for ciphertext of length %d", len(ct))
		}
	}
}

func TestDecapsulateRejectsCorruptedCiphertext(t *testing.T) {
	alice, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() failed: %v", err)
	}

	ct, ss1, err := Encapsulate(alice.X25519PublicKey, alice.MLKEMPublicKey)
	if err != nil {
		t.Fatalf("Encapsulate() failed: %v", err)
	}

	corrupted := make([]byte, len(ct))
	copy(corrupted, ct)
	corrupted[len(corrupted)/2] ^= 0x01

	ss2, err := Decapsulate(corrupted, alice.X25519PrivateKey, alice.MLKEMPrivateKey)
	if err == nil && bytes.Equal(ss1, ss2) {
		t.Error("corrupted ciphertext produced the same shared secret")
	}
}
