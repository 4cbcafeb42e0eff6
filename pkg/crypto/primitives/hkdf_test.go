package primitives

import "bytes"

import "testing"

func TestHKDFExpandDeterministic(t *testing.T) {
	ikm := []byte("shared-secret-material")
	a, err := HKDFExpand(ikm, "ratchet-chain-key", 32)
	if err != nil {
		t.Fatalf("HKDFExpand() failed: %v", err)
	}
	b, err := HKDFExpand(ikm, "ratchet-chain-key", 32)
	if err != nil {
		t.Fatalf("HKDFExpand() failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("HKDFExpand not deterministic for identical ikm/info")
	}
}

func TestHKDFExpandInfoIsDomainSeparator(t *testing.T) {
	ikm := []byte("shared-secret-material")
	a, err := HKDFExpand(ikm, "chain-key", 32)
	if err != nil {
		t.Fatalf("HKDFExpand() failed: %v", err)
	}
	b, err := HKDFExpand(ikm, "message-key", 32)
	if err != nil {
		t.Fatalf("HKDFExpand() failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("different info labels must not derive the same output")
	}
}

func TestHKDFExpandLength(t *testing.T) {
	out, err := HKDFExpand([]byte("ikm"), "label", 64)
	if err != nil {
		t.Fatalf("HKDFExpand() failed: %v", err)
	}
	if len(out) != 64 {
		t.Errorf("expected 64 bytes, got %d", len(out))
	}
}

func TestHKDFExpand32(t *testing.T) {
	out, err := HKDFExpand32([]byte("ikm"), "label")
	if err != nil {
		t.Fatalf("HKDFExpand32() failed: %v", err)
	}
	if len(out) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(out))
	}
}
