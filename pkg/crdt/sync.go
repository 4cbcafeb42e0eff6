package crdt

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
)

var (
	ErrChunkMalformed  = errors.New("crdt: malformed sync chunk framing")
	ErrChunkOpTooLarge = fmt.Errorf("crdt: single op in chunk exceeds %d bytes", MaxPayloadSize)
)

// AuthorLamport pairs a device with the highest lamport a peer has observed
// from it; used in the hello handshake.
type AuthorLamport struct {
	Author  [16]byte `cbor:"a"`
	Lamport uint64   `cbor:"l"`
}

// Hello advertises per-author max lamports so a peer can compute which ops
// this side is missing.
type Hello struct {
	GroupID     [32]byte        `cbor:"g"`
	MaxLamports []AuthorLamport `cbor:"m"`
}

// NewHello builds a Hello from a state's per-author max-lamport map.
func NewHello(groupID GroupID, maxLamport map[hybrid.DeviceID]uint64) Hello {
	pairs := make([]AuthorLamport, 0, len(maxLamport))
	for author, lm := range maxLamport {
		pairs = append(pairs, AuthorLamport{Author: author, Lamport: lm})
	}
	return Hello{GroupID: groupID, MaxLamports: pairs}
}

// EncodeHello serializes a Hello to CBOR.
func EncodeHello(h Hello) ([]byte, error) {
	out, err := cbor.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("crdt: hello cbor encode: %w", err)
	}
	return out, nil
}

// DecodeHello parses a CBOR-encoded Hello.
func DecodeHello(raw []byte) (Hello, error) {
	var h Hello
	if err := cbor.Unmarshal(raw, &h); err != nil {
		return Hello{}, fmt.Errorf("%w: %v", ErrChunkMalformed, err)
	}
	return h, nil
}

// MissingAuthors reports which authors, from a local max-lamport view, the
// peer described by hello has not yet seen every op from.
func MissingAuthors(local map[hybrid.DeviceID]uint64, hello Hello) []hybrid.DeviceID {
	peerSeen := make(map[hybrid.DeviceID]uint64, len(hello.MaxLamports))
	for _, p := range hello.MaxLamports {
		peerSeen[hybrid.DeviceID(p.Author)] = p.Lamport
	}

	var missing []hybrid.DeviceID
	for author, lm := range local {
		if peerSeen[author] < lm {
			missing = append(missing, author)
		}
	}
	return missing
}

// EncodeChunk frames a set of envelopes as length-prefixed CBOR records:
// [len_u32_be || envelope_bytes], enforcing MaxOpsPerChunk.
func EncodeChunk(envelopes []Envelope) ([]byte, error) {
	if len(envelopes) > MaxOpsPerChunk {
		return nil, fmt.Errorf("%w: %d ops", ErrSyncChunkTooLarge, len(envelopes))
	}

	var out []byte
	for _, e := range envelopes {
		encoded, err := Encode(e)
		if err != nil {
			return nil, err
		}
		if len(encoded) > MaxPayloadSize+256 { // envelope overhead beyond raw payload
			return nil, ErrChunkOpTooLarge
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(encoded)))
		out = append(out, lenBuf[:]...)
		out = append(out, encoded...)
	}
	return out, nil
}

// DecodeChunk parses a length-prefixed chunk into envelopes, validating
// framing and op-count guardrails before returning anything. On any framing
// error the chunk is rejected wholesale: no partial envelope slice is ever
// returned.
func DecodeChunk(raw []byte) ([]Envelope, error) {
	var envelopes []Envelope
	offset := 0
	for offset < len(raw) {
		if offset+4 > len(raw) {
			return nil, fmt.Errorf("%w: truncated length prefix", ErrChunkMalformed)
		}
		length := binary.BigEndian.Uint32(raw[offset : offset+4])
		offset += 4
		if int(length) > len(raw)-offset {
			return nil, fmt.Errorf("%w: record length exceeds remaining bytes", ErrChunkMalformed)
		}
		env, err := Decode(raw[offset : offset+int(length)])
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
		offset += int(length)

		if len(envelopes) > MaxOpsPerChunk {
			return nil, fmt.Errorf("%w: %d ops", ErrSyncChunkTooLarge, len(envelopes))
		}
	}
	return envelopes, nil
}

// SyncSession tracks guardrail state for one active sync session: per-peer
// rate limiting and round size accounting. A host constructs one per
// concurrent peer session, bounded by MaxConcurrentSyncs.
type SyncSession struct {
	opsThisMinute int
	roundOps      int
	roundBytes    int
}

// NewSyncSession constructs a fresh guardrail tracker.
func NewSyncSession() *SyncSession { return &SyncSession{} }

// AdmitChunk checks whether accepting a chunk of chunkOps ops and
// chunkBytes bytes would violate any sync guardrail, without mutating
// session state on rejection.
func (s *SyncSession) AdmitChunk(chunkOps, chunkBytes int) error {
	if s.roundOps+chunkOps > MaxOpsPerSyncRound {
		return ErrSyncRoundTooLarge
	}
	if s.roundBytes+chunkBytes > MaxBytesPerSyncRound {
		return ErrSyncRoundTooLarge
	}
	if s.opsThisMinute+chunkOps > MaxOpsPerPeerPerMin {
		return ErrPeerRateLimited
	}
	return nil
}

// RecordChunk commits a chunk's ops/bytes against this session's guardrail
// counters. Call only after AdmitChunk has approved the chunk.
func (s *SyncSession) RecordChunk(chunkOps, chunkBytes int) {
	s.roundOps += chunkOps
	s.roundBytes += chunkBytes
	s.opsThisMinute += chunkOps
}

// ResetMinute clears the per-minute rate-limit counter; callers invoke this
// once per wall-clock minute.
func (s *SyncSession) ResetMinute() { s.opsThisMinute = 0 }

// ResetRound clears the per-round op/byte counters at the start of a new
// sync round.
func (s *SyncSession) ResetRound() {
	s.roundOps = 0
	s.roundBytes = 0
}

// SessionPool bounds the number of concurrent sync sessions a host may run.
type SessionPool struct {
	active int
}

// Acquire reserves one of MaxConcurrentSyncs session slots.
func (p *SessionPool) Acquire() error {
	if p.active >= MaxConcurrentSyncs {
		return ErrTooManyConcurrentSyncs
	}
	p.active++
	return nil
}

// Release frees a previously acquired session slot.
func (p *SessionPool) Release() {
	if p.active > 0 {
		p.active--
	}
}
