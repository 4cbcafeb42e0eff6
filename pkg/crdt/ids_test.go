package crdt

import (
	"testing"

	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
)

func TestNewGroupIDDeterministicLength(t *testing.T) {
	id, err := hybrid.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() failed: %v", err)
	}
	gid, err := NewGroupID(id.DeviceID)
	if err != nil {
		t.Fatalf("NewGroupID() failed: %v", err)
	}
	if len(gid) != GroupIDSize {
		t.Errorf("expected %d bytes, got %d", GroupIDSize, len(gid))
	}
}

func TestNewGroupIDUniqueness(t *testing.T) {
	id, err := hybrid.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() failed: %v", err)
	}
	g1, err := NewGroupID(id.DeviceID)
	if err != nil {
		t.Fatalf("NewGroupID() failed: %v", err)
	}
	g2, err := NewGroupID(id.DeviceID)
	if err != nil {
		t.Fatalf("NewGroupID() failed: %v", err)
	}
	if g1 == g2 {
		t.Error("expected distinct group IDs from two calls")
	}
}

func TestOpIDTotalOrder(t *testing.T) {
	var a, b hybrid.DeviceID
	a[0] = 0x01
	b[0] = 0x02

	lower := OpID{Author: a, Lamport: 1, Nonce: 5}
	higherLamport := OpID{Author: a, Lamport: 2, Nonce: 0}
	sameLamportHigherAuthor := OpID{Author: b, Lamport: 1, Nonce: 5}
	sameEverythingHigherNonce := OpID{Author: a, Lamport: 1, Nonce: 6}

	if !lower.Less(higherLamport) {
		t.Error("expected lower lamport to sort first")
	}
	if !lower.Less(sameLamportHigherAuthor) {
		t.Error("expected lower author bytes to sort first when lamport ties")
	}
	if !lower.Less(sameEverythingHigherNonce) {
		t.Error("expected lower nonce to sort first when lamport and author tie")
	}
	if lower.Less(lower) {
		t.Error("an OpID must not be Less than itself")
	}
}

func TestOpIDEqual(t *testing.T) {
	var a hybrid.DeviceID
	a[0] = 0x01
	id1 := OpID{Author: a, Lamport: 3, Nonce: 9}
	id2 := OpID{Author: a, Lamport: 3, Nonce: 9}
	id3 := OpID{Author: a, Lamport: 3, Nonce: 10}
	if !id1.Equal(id2) {
		t.Error("expected identical OpIDs to be Equal")
	}
	if id1.Equal(id3) {
		t.Error("expected differing nonce to break Equal")
	}
}

func TestNewNonceVaries(t *testing.T) {
	n1, err := NewNonce()
	if err != nil {
		t.Fatalf("NewNonce() failed: %v", err)
	}
	n2, err := NewNonce()
	if err != nil {
		t.Fatalf("NewNonce() failed: %v", err)
	}
	if n1 == n2 {
		t.Error("expected two calls to NewNonce to differ (probabilistically)")
	}
}
