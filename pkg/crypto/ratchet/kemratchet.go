package ratchet

import (
	"fmt"

	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

// InitiateKEMRatchet performs the sending side of a KEM ratchet step: it
// encapsulates against the peer's current hybrid public keys, derives a new
// root key, re-derives fresh chains, resets sequences, drains the skipped
// key cache, and installs the result atomically. On any failure the prior
// state is left untouched and the error is surfaced.
func (s *State) InitiateKEMRatchet(peerX25519Pub, peerMLKEMPub []byte) (ciphertext []byte, err error) {
	ct, combinedSS, err := hybrid.Encapsulate(peerX25519Pub, peerMLKEMPub)
	if err != nil {
		return nil, fmt.Errorf("ratchet: kem ratchet encapsulation: %w", err)
	}
	defer primitives.ZeroSlice(combinedSS)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseRekeying {
		return nil, ErrRekeyInProgress
	}
	s.phase = PhaseRekeying

	if err := s.installKEMRekey(combinedSS); err != nil {
		s.phase = PhaseEstablished
		return nil, err
	}

	s.phase = PhaseEstablished
	return ct, nil
}

// CompleteKEMRatchet performs the receiving side: it decapsulates ciphertext
// with the local hybrid private keys and applies the same state transition
// as InitiateKEMRatchet.
func (s *State) CompleteKEMRatchet(ciphertext, localX25519Priv, localMLKEMPriv []byte) error {
	combinedSS, err := hybrid.Decapsulate(ciphertext, localX25519Priv, localMLKEMPriv)
	if err != nil {
		return fmt.Errorf("ratchet: kem ratchet decapsulation: %w", err)
	}
	defer primitives.ZeroSlice(combinedSS)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseRekeying {
		return ErrRekeyInProgress
	}
	s.phase = PhaseRekeying

	if err := s.installKEMRekey(combinedSS); err != nil {
		s.phase = PhaseEstablished
		return err
	}

	s.phase = PhaseEstablished
	return nil
}

// installKEMRekey derives the new root and chains into local variables
// first, so that a derivation failure never mutates s. Only on full success
// are the old keys zeroized and the new ones installed, the sequences
// reset, the skipped cache drained, and the ratchet counter incremented.
func (s *State) installKEMRekey(combinedSS []byte) error {
	if len(combinedSS) != hybridSecretSz {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidHybridSS, hybridSecretSz, len(combinedSS))
	}

	newRoot, err := primitives.HKDFExpand32(combinedSS, kemRekeyInfo)
	if err != nil {
		return fmt.Errorf("ratchet: new root derivation: %w", err)
	}

	chainA, err := primitives.HKDFExpand32(newRoot[:], chainAInfo)
	if err != nil {
		return fmt.Errorf("ratchet: new chain A derivation: %w", err)
	}
	chainB, err := primitives.HKDFExpand32(newRoot[:], chainBInfo)
	if err != nil {
		return fmt.Errorf("ratchet: new chain B derivation: %w", err)
	}

	var newSending, newReceiving [32]byte
	if s.direction {
		newSending, newReceiving = chainA, chainB
	} else {
		newSending, newReceiving = chainB, chainA
	}

	primitives.ZeroBytes32(&s.rootKey)
	primitives.ZeroBytes32(&s.sendingChainKey)
	primitives.ZeroBytes32(&s.receivingChainKey)
	for seq, key := range s.skipped {
		zeroed := key
		primitives.ZeroBytes32(&zeroed)
		delete(s.skipped, seq)
	}

	s.rootKey = newRoot
	s.sendingChainKey = newSending
	s.receivingChainKey = newReceiving
	s.sendingSeq = 0
	s.receivingSeq = 0
	s.kemRatchetCounter++

	return nil
}
