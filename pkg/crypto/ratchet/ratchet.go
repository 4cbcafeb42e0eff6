// Package ratchet implements the post-quantum double ratchet: chain and
// root key evolution, out-of-order message handling via a skipped-key
// cache, and a KEM ratchet step for post-compromise security.
package ratchet

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

func fillRandom(b []byte) error {
	_, err := rand.Read(b)
	return err
}

// Wire format constants for a single ratchet frame:
// version(1) || seq(8 BE) || nonce(24) || AEAD ciphertext+tag.
const (
	FrameVersion  = 0x01
	headerSize    = 1 + 8
	frameOverhead = headerSize + primitives.NonceSize
)

// MaxSkip bounds how many intermediate message keys a single Decrypt call
// will derive and cache when catching up to an out-of-order sequence.
const MaxSkip = 256

var (
	ErrInvalidVersion   = errors.New("ratchet: unsupported frame version")
	ErrFrameTooShort    = errors.New("ratchet: frame shorter than header")
	ErrReplay           = errors.New("ratchet: duplicate or stale sequence")
	ErrTooFarAhead      = errors.New("ratchet: sequence too far ahead of expected")
	ErrDecryptFailed    = errors.New("ratchet: decryption failed")
	ErrRekeyInProgress  = errors.New("ratchet: KEM ratchet already in progress")
	ErrInvalidHybridSS  = errors.New("ratchet: invalid hybrid shared secret length")
	ErrInvalidPeerInfo  = errors.New("ratchet: invalid peer identity for direction comparison")
)

const (
	rootKeyInfo    = "SecureLegion-RootKey-v1"
	chainAInfo     = "SecureLegion-ChainA-v1"
	chainBInfo     = "SecureLegion-ChainB-v1"
	msgKeyInfo     = "msg"
	evolveInfo     = "evolve"
	kemRekeyInfo   = "SecureLegion-KEM-Rekey-v1"
	hybridSecretSz = 64
)

// Phase describes where a State sits in the Init -> Established <-> Rekeying
// state machine.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseEstablished
	PhaseRekeying
)

// State is one peer pair's ratchet state. All key material is zeroized on
// chain evolution, on KEM ratchet, and on Close.
type State struct {
	mu sync.Mutex

	phase Phase

	rootKey           [32]byte
	sendingChainKey   [32]byte
	receivingChainKey [32]byte
	sendingSeq        uint64
	receivingSeq      uint64

	// direction is true when this side's stable identifier sorts before
	// the peer's, matching the spec's "our_id < their_id" rule.
	direction bool

	skipped map[uint64][32]byte

	kemRatchetCounter uint64

	maxSkip uint64
}

// New builds ratchet state from a 64-byte hybrid shared secret and the two
// peers' stable identifiers. Direction is determined once, at construction,
// by a lexicographic compare of localID and remoteID.
func New(hybridSecret []byte, localID, remoteID []byte) (*State, error) {
	if len(hybridSecret) != hybridSecretSz {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHybridSS, hybridSecretSz, len(hybridSecret))
	}
	if len(localID) == 0 || len(remoteID) == 0 {
		return nil, ErrInvalidPeerInfo
	}

	root, err := primitives.HKDFExpand32(hybridSecret, rootKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("ratchet: root key derivation: %w", err)
	}

	s := &State{
		phase:     PhaseEstablished,
		rootKey:   root,
		direction: bytes.Compare(localID, remoteID) < 0,
		skipped:   make(map[uint64][32]byte),
		maxSkip:   MaxSkip,
	}

	if err := s.deriveChains(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromConfig builds ratchet state the same way New does, then applies
// maxSkipAhead (spec.md's configurable `max_skip_ahead` option) via
// SetMaxSkip. A host's configuration layer calls this instead of New so the
// configured bound actually governs the ratchet it constructs.
func NewFromConfig(hybridSecret []byte, localID, remoteID []byte, maxSkipAhead uint64) (*State, error) {
	s, err := New(hybridSecret, localID, remoteID)
	if err != nil {
		return nil, err
	}
	s.SetMaxSkip(maxSkipAhead)
	return s, nil
}

// SetMaxSkip overrides the default MaxSkip bound for this state, letting a
// host tune how far out-of-order delivery is tolerated per spec.md's
// configurable `max_skip_ahead` option. n <= 0 is ignored.
func (s *State) SetMaxSkip(n uint64) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxSkip = n
}

// deriveChains (re)derives sendingChainKey/receivingChainKey from the
// current rootKey, honoring direction so that this side's sending chain
// matches the peer's receiving chain and vice versa.
func (s *State) deriveChains() error {
	chainA, err := primitives.HKDFExpand32(s.rootKey[:], chainAInfo)
	if err != nil {
		return fmt.Errorf("ratchet: chain A derivation: %w", err)
	}
	chainB, err := primitives.HKDFExpand32(s.rootKey[:], chainBInfo)
	if err != nil {
		return fmt.Errorf("ratchet: chain B derivation: %w", err)
	}

	if s.direction {
		s.sendingChainKey, s.receivingChainKey = chainA, chainB
	} else {
		s.sendingChainKey, s.receivingChainKey = chainB, chainA
	}
	return nil
}

// Phase reports the current ratchet phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// KEMRatchetCount reports how many KEM ratchet steps have been installed.
func (s *State) KEMRatchetCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kemRatchetCounter
}

// evolveChain derives (message key, new chain key) from chainKey and
// zeroizes chainKey in place.
func evolveChain(chainKey *[32]byte) (msgKey [32]byte, err error) {
	msgKey, err = primitives.HKDFExpand32(chainKey[:], msgKeyInfo)
	if err != nil {
		return msgKey, fmt.Errorf("ratchet: message key derivation: %w", err)
	}
	newChain, err := primitives.HKDFExpand32(chainKey[:], evolveInfo)
	if err != nil {
		return msgKey, fmt.Errorf("ratchet: chain evolution: %w", err)
	}
	primitives.ZeroBytes32(chainKey)
	*chainKey = newChain
	return msgKey, nil
}

// Encrypt derives the next sending message key, encrypts plaintext, and
// advances the sending chain and sequence on success. Wire layout:
// version(1) || seq(8 BE) || nonce(24) || AEAD ciphertext+tag.
func (s *State) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgKey, err := evolveChain(&s.sendingChainKey)
	if err != nil {
		return nil, err
	}
	defer primitives.ZeroBytes32(&msgKey)

	var nonce [primitives.NonceSize]byte
	binary.BigEndian.PutUint64(nonce[:8], s.sendingSeq)
	if err := fillRandom(nonce[8:]); err != nil {
		return nil, fmt.Errorf("ratchet: nonce generation: %w", err)
	}

	ct, err := primitives.Seal(msgKey, nonce, plaintext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	frame := make([]byte, 0, frameOverhead+len(ct))
	frame = append(frame, FrameVersion)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], s.sendingSeq)
	frame = append(frame, seqBuf[:]...)
	frame = append(frame, nonce[:]...)
	frame = append(frame, ct...)

	s.sendingSeq++
	return frame, nil
}

// Decrypt parses a ratchet frame and decrypts it, handling out-of-order
// delivery via the skipped-key cache per the spec's decrypt algorithm.
func (s *State) Decrypt(frame, additionalData []byte) ([]byte, error) {
	if len(frame) < frameOverhead {
		return nil, ErrFrameTooShort
	}
	if frame[0] != FrameVersion {
		return nil, fmt.Errorf("%w: got 0x%02x", ErrInvalidVersion, frame[0])
	}
	seq := binary.BigEndian.Uint64(frame[1:9])
	var nonce [primitives.NonceSize]byte
	copy(nonce[:], frame[9:9+primitives.NonceSize])
	ciphertext := frame[9+primitives.NonceSize:]

	s.mu.Lock()
	defer s.mu.Unlock()

	if msgKey, ok := s.skipped[seq]; ok {
		plaintext, err := primitives.Open(msgKey, nonce, ciphertext, additionalData)
		zeroed := msgKey
		primitives.ZeroBytes32(&zeroed)
		delete(s.skipped, seq)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
		}
		return plaintext, nil
	}

	if seq < s.receivingSeq {
		return nil, ErrReplay
	}

	skip := seq - s.receivingSeq
	if skip > s.maxSkip {
		return nil, ErrTooFarAhead
	}

	// Derive and cache keys for every intermediate sequence before the
	// target, evolving the chain each time, without mutating state
	// if the final decryption fails.
	chainCopy := s.receivingChainKey
	skippedAdds := make(map[uint64][32]byte, skip)
	for i := uint64(0); i < skip; i++ {
		mk, err := evolveChain(&chainCopy)
		if err != nil {
			return nil, err
		}
		skippedAdds[s.receivingSeq+i] = mk
	}

	msgKey, err := evolveChain(&chainCopy)
	if err != nil {
		return nil, err
	}

	plaintext, err := primitives.Open(msgKey, nonce, ciphertext, additionalData)
	if err != nil {
		primitives.ZeroBytes32(&msgKey)
		for k := range skippedAdds {
			v := skippedAdds[k]
			primitives.ZeroBytes32(&v)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	primitives.ZeroBytes32(&msgKey)

	for k, v := range skippedAdds {
		s.skipped[k] = v
	}
	s.receivingChainKey = chainCopy
	s.receivingSeq = seq + 1

	return plaintext, nil
}

// PurgeSkippedBelow drops every cached skipped key for sequences strictly
// less than floor, zeroizing them first.
func (s *State) PurgeSkippedBelow(floor uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for seq, key := range s.skipped {
		if seq < floor {
			zeroed := key
			primitives.ZeroBytes32(&zeroed)
			delete(s.skipped, seq)
		}
	}
}

// Close zeroizes all secret state. The State must not be used afterward.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	primitives.ZeroBytes32(&s.rootKey)
	primitives.ZeroBytes32(&s.sendingChainKey)
	primitives.ZeroBytes32(&s.receivingChainKey)
	for seq, key := range s.skipped {
		zeroed := key
		primitives.ZeroBytes32(&zeroed)
		delete(s.skipped, seq)
	}
}
