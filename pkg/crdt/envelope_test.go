package crdt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
)

func mustIdentity(t *testing.T) *hybrid.Identity {
	t.Helper()
	id, err := hybrid.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() failed: %v", err)
	}
	return id
}

func TestSignVerifyRoundTrip(t *testing.T) {
	author := mustIdentity(t)
	group, err := NewGroupID(author.DeviceID)
	if err != nil {
		t.Fatalf("NewGroupID() failed: %v", err)
	}
	payload, err := EncodePayload(GroupCreatePayload{Name: "test group"})
	if err != nil {
		t.Fatalf("EncodePayload() failed: %v", err)
	}
	id := OpID{Author: author.DeviceID, Lamport: 1, Nonce: 42}

	env, err := Sign(author, group, OpGroupCreate, id, 1, payload)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	if err := Verify(env); err != nil {
		t.Fatalf("Verify() failed on freshly signed envelope: %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	author := mustIdentity(t)
	group, _ := NewGroupID(author.DeviceID)
	payload, _ := EncodePayload(MsgAddPayload{Text: "hello"})
	id := OpID{Author: author.DeviceID, Lamport: 2, Nonce: 1}

	env, err := Sign(author, group, OpMsgAdd, id, 2, payload)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	env.Payload = append(env.Payload, 0xFF)
	if err := Verify(env); err != ErrSignatureInvalid {
		t.Errorf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyRejectsAuthorPubkeyMismatch(t *testing.T) {
	author := mustIdentity(t)
	other := mustIdentity(t)
	group, _ := NewGroupID(author.DeviceID)
	payload, _ := EncodePayload(MsgAddPayload{Text: "hello"})
	id := OpID{Author: author.DeviceID, Lamport: 2, Nonce: 1}

	env, err := Sign(author, group, OpMsgAdd, id, 2, payload)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	env.AuthorPubKey = append([]byte(nil), other.Ed25519PublicKey...)
	if err := Verify(env); err != ErrAuthorMismatch {
		t.Errorf("expected ErrAuthorMismatch, got %v", err)
	}
}

func TestEncodeDecodeEnvelopeRoundTrip(t *testing.T) {
	author := mustIdentity(t)
	group, _ := NewGroupID(author.DeviceID)
	payload, _ := EncodePayload(MsgAddPayload{Text: "round trip"})
	id := OpID{Author: author.DeviceID, Lamport: 5, Nonce: 7}

	env, err := Sign(author, group, OpMsgAdd, id, 5, payload)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}

	wire, err := Encode(env)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	decoded, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if decoded.GroupID != env.GroupID || decoded.Type != env.Type || !decoded.ID.Equal(env.ID) {
		t.Error("decoded envelope header mismatch")
	}
	if !bytes.Equal(decoded.Payload, env.Payload) || !bytes.Equal(decoded.Signature, env.Signature) {
		t.Error("decoded envelope payload/signature mismatch")
	}
	if err := Verify(decoded); err != nil {
		t.Errorf("Verify() failed on decoded envelope: %v", err)
	}
}

func TestSignRejectsOversizedPayload(t *testing.T) {
	author := mustIdentity(t)
	group, _ := NewGroupID(author.DeviceID)
	id := OpID{Author: author.DeviceID, Lamport: 1, Nonce: 1}
	oversized := make([]byte, MaxPayloadSize+1)
	if _, err := Sign(author, group, OpMsgAdd, id, 1, oversized); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestDecodeRejectsMalformedCBOR(t *testing.T) {
	if _, err := Decode([]byte{0xFF, 0xFF, 0xFF}); err == nil {
		t.Error("expected Decode to reject malformed CBOR")
	}
}
