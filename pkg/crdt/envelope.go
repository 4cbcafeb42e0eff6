package crdt

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/securelegion/shield-core/pkg/crypto/classical"
	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
)

// MaxPayloadSize is the per-op payload cap: 64 KiB.
const MaxPayloadSize = 64 * 1024

var (
	ErrPayloadTooLarge    = errors.New("crdt: op payload exceeds MaxPayloadSize")
	ErrSignatureInvalid   = errors.New("crdt: envelope signature verification failed")
	ErrAuthorMismatch     = errors.New("crdt: author_pubkey does not hash to op_id.author")
	ErrMalformedEnvelope  = errors.New("crdt: malformed op envelope")
	ErrMalformedPayload   = errors.New("crdt: malformed op payload")
)

// Envelope is the signed, CBOR-serialized wire form of one CRDT operation.
type Envelope struct {
	GroupID      GroupID `cbor:"g"`
	Type         OpType  `cbor:"t"`
	ID           OpID    `cbor:"i"`
	Lamport      uint64  `cbor:"l"`
	AuthorPubKey []byte  `cbor:"p"`
	Payload      []byte  `cbor:"d"`
	Signature    []byte  `cbor:"s"`
}

// cborOpID is the wire shape of OpID inside an envelope (cbor/v2 cannot
// tag an array-typed struct with field names the way a map can, so OpID's
// three components are encoded as a plain array).
type cborOpID struct {
	_       struct{} `cbor:",toarray"`
	Author  [16]byte
	Lamport uint64
	Nonce   uint64
}

type wireEnvelope struct {
	GroupID      [32]byte `cbor:"g"`
	Type         byte     `cbor:"t"`
	ID           cborOpID `cbor:"i"`
	Lamport      uint64   `cbor:"l"`
	AuthorPubKey []byte   `cbor:"p"`
	Payload      []byte   `cbor:"d"`
	Signature    []byte   `cbor:"s"`
}

func (e Envelope) toWire() wireEnvelope {
	return wireEnvelope{
		GroupID: e.GroupID,
		Type:    byte(e.Type),
		ID: cborOpID{
			Author:  e.ID.Author,
			Lamport: e.ID.Lamport,
			Nonce:   e.ID.Nonce,
		},
		Lamport:      e.Lamport,
		AuthorPubKey: e.AuthorPubKey,
		Payload:      e.Payload,
		Signature:    e.Signature,
	}
}

func fromWire(w wireEnvelope) Envelope {
	return Envelope{
		GroupID: w.GroupID,
		Type:    OpType(w.Type),
		ID: OpID{
			Author:  w.ID.Author,
			Lamport: w.ID.Lamport,
			Nonce:   w.ID.Nonce,
		},
		Lamport:      w.Lamport,
		AuthorPubKey: w.AuthorPubKey,
		Payload:      w.Payload,
		Signature:    w.Signature,
	}
}

// signingBytes builds the canonical byte string the envelope signature
// covers: {group_id, op_type, op_id, lamport, author_pubkey, payload_bytes}.
func signingBytes(e Envelope) []byte {
	buf := make([]byte, 0, GroupIDSize+1+16+8+8+8+len(e.AuthorPubKey)+len(e.Payload))
	buf = append(buf, e.GroupID[:]...)
	buf = append(buf, byte(e.Type))
	buf = append(buf, e.ID.Author[:]...)
	buf = appendUint64BE(buf, e.ID.Lamport)
	buf = appendUint64BE(buf, e.ID.Nonce)
	buf = appendUint64BE(buf, e.Lamport)
	buf = append(buf, e.AuthorPubKey...)
	buf = append(buf, e.Payload...)
	return buf
}

func appendUint64BE(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Sign builds and signs a new envelope for an operation authored by identity.
func Sign(identity *hybrid.Identity, group GroupID, opType OpType, id OpID, lamport uint64, payload []byte) (Envelope, error) {
	if len(payload) > MaxPayloadSize {
		return Envelope{}, fmt.Errorf("%w: got %d bytes", ErrPayloadTooLarge, len(payload))
	}

	e := Envelope{
		GroupID:      group,
		Type:         opType,
		ID:           id,
		Lamport:      lamport,
		AuthorPubKey: append([]byte(nil), identity.Ed25519PublicKey...),
		Payload:      append([]byte(nil), payload...),
	}

	sig, err := classical.Ed25519Sign(signingBytes(e), identity.Ed25519PrivateKey)
	if err != nil {
		return Envelope{}, fmt.Errorf("crdt: envelope signing: %w", err)
	}
	e.Signature = sig
	return e, nil
}

// Verify checks the envelope signature and that the author_pubkey hashes to
// op_id.author.
func Verify(e Envelope) error {
	if len(e.Payload) > MaxPayloadSize {
		return fmt.Errorf("%w: got %d bytes", ErrPayloadTooLarge, len(e.Payload))
	}
	if hybrid.DeviceIDFromPublicKey(e.AuthorPubKey) != e.ID.Author {
		return ErrAuthorMismatch
	}
	if !classical.Ed25519Verify(signingBytes(e), e.Signature, e.AuthorPubKey) {
		return ErrSignatureInvalid
	}
	return nil
}

// Encode serializes the envelope to CBOR.
func Encode(e Envelope) ([]byte, error) {
	out, err := cbor.Marshal(e.toWire())
	if err != nil {
		return nil, fmt.Errorf("crdt: envelope cbor encode: %w", err)
	}
	return out, nil
}

// Decode parses a CBOR-encoded envelope. It does not verify the signature;
// call Verify separately.
func Decode(raw []byte) (Envelope, error) {
	var w wireEnvelope
	if err := cbor.Unmarshal(raw, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(w.AuthorPubKey) != classical.Ed25519PublicKeySize {
		return Envelope{}, fmt.Errorf("%w: bad author_pubkey length %d", ErrMalformedEnvelope, len(w.AuthorPubKey))
	}
	if len(w.Signature) != classical.Ed25519SignatureSize {
		return Envelope{}, fmt.Errorf("%w: bad signature length %d", ErrMalformedEnvelope, len(w.Signature))
	}
	if len(w.Payload) > MaxPayloadSize {
		return Envelope{}, fmt.Errorf("%w: payload %d bytes", ErrPayloadTooLarge, len(w.Payload))
	}
	return fromWire(w), nil
}

// DecodePayload unmarshals e.Payload (itself CBOR) into out.
func DecodePayload(e Envelope, out interface{}) error {
	if err := cbor.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// EncodePayload CBOR-serializes a typed op payload for embedding in an
// envelope.
func EncodePayload(payload interface{}) ([]byte, error) {
	out, err := cbor.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("crdt: payload cbor encode: %w", err)
	}
	return out, nil
}
