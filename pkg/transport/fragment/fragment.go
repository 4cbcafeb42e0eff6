// Package fragment layers ordered fragmentation/reassembly and traffic-shape
// padding on top of pkg/transport/packet, for payloads too large to fit in a
// single fixed-size packet.
package fragment

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/securelegion/shield-core/pkg/transport/packet"
)

const (
	idSize = 16

	// headerSize is msg_id(16) + index(2 BE) + total(2 BE).
	headerSize = idSize + 2 + 2

	// MaxFragmentPayload is the largest data slice a single fragment can carry.
	MaxFragmentPayload = packet.MaxPayload - headerSize
)

var (
	ErrEmptyPayload    = errors.New("fragment: payload is empty")
	ErrTooManyFragments = errors.New("fragment: payload requires more than 65535 fragments")
	ErrFragmentTooShort = errors.New("fragment: fragment shorter than header")
	ErrTotalMismatch   = errors.New("fragment: fragment total does not match first-seen total for this message")
	ErrIndexOutOfRange = errors.New("fragment: fragment index out of range")
	ErrDuplicateIndex  = errors.New("fragment: duplicate fragment index")
)

// MessageID identifies all fragments belonging to one logical message.
type MessageID [idSize]byte

// Fragment is one ordered piece of a fragmented payload.
type Fragment struct {
	MsgID MessageID
	Index uint16
	Total uint16
	Data  []byte
}

// Encode serializes a Fragment to the bytes a packet payload carries.
func (f Fragment) Encode() []byte {
	buf := make([]byte, headerSize+len(f.Data))
	copy(buf[:idSize], f.MsgID[:])
	binary.BigEndian.PutUint16(buf[idSize:idSize+2], f.Index)
	binary.BigEndian.PutUint16(buf[idSize+2:idSize+4], f.Total)
	copy(buf[headerSize:], f.Data)
	return buf
}

// Decode parses a Fragment from a packet payload.
func Decode(raw []byte) (Fragment, error) {
	if len(raw) < headerSize {
		return Fragment{}, ErrFragmentTooShort
	}
	var f Fragment
	copy(f.MsgID[:], raw[:idSize])
	f.Index = binary.BigEndian.Uint16(raw[idSize : idSize+2])
	f.Total = binary.BigEndian.Uint16(raw[idSize+2 : idSize+4])
	f.Data = append([]byte(nil), raw[headerSize:]...)
	if f.Total == 0 || f.Index >= f.Total {
		return Fragment{}, ErrIndexOutOfRange
	}
	return f, nil
}

// Split chunks payload into ordered fragments, each carrying at most
// MaxFragmentPayload bytes of data.
func Split(payload []byte) ([]Fragment, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	total := (len(payload) + MaxFragmentPayload - 1) / MaxFragmentPayload
	if total > 65535 {
		return nil, ErrTooManyFragments
	}

	var msgID MessageID
	if _, err := rand.Read(msgID[:]); err != nil {
		return nil, fmt.Errorf("fragment: message id generation: %w", err)
	}

	fragments := make([]Fragment, total)
	for i := 0; i < total; i++ {
		start := i * MaxFragmentPayload
		end := start + MaxFragmentPayload
		if end > len(payload) {
			end = len(payload)
		}
		fragments[i] = Fragment{
			MsgID: msgID,
			Index: uint16(i),
			Total: uint16(total),
			Data:  append([]byte(nil), payload[start:end]...),
		}
	}
	return fragments, nil
}

// Reassemble concatenates payloads from a complete, ordered set of fragments
// belonging to the same message.
func Reassemble(fragments []Fragment) ([]byte, error) {
	if len(fragments) == 0 {
		return nil, ErrEmptyPayload
	}
	total := fragments[0].Total
	msgID := fragments[0].MsgID
	if int(total) != len(fragments) {
		return nil, ErrTotalMismatch
	}

	ordered := make([][]byte, total)
	seen := make(map[uint16]bool, total)
	for _, f := range fragments {
		if f.MsgID != msgID || f.Total != total {
			return nil, ErrTotalMismatch
		}
		if f.Index >= total {
			return nil, ErrIndexOutOfRange
		}
		if seen[f.Index] {
			return nil, ErrDuplicateIndex
		}
		seen[f.Index] = true
		ordered[f.Index] = f.Data
	}

	out := make([]byte, 0, len(fragments)*MaxFragmentPayload)
	for _, d := range ordered {
		out = append(out, d...)
	}
	return out, nil
}

// Reassembler accumulates fragments for possibly many concurrent messages
// and reports completion once every fragment for a message has arrived.
type Reassembler struct {
	mu      sync.Mutex
	pending map[MessageID]map[uint16]Fragment
}

// NewReassembler constructs an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{pending: make(map[MessageID]map[uint16]Fragment)}
}

// Add records one fragment. It returns the reassembled payload and true once
// the message carrying this fragment is complete; otherwise it returns
// (nil, false, nil) while the message is still in flight.
func (r *Reassembler) Add(f Fragment) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slots, ok := r.pending[f.MsgID]
	if !ok {
		slots = make(map[uint16]Fragment, f.Total)
		r.pending[f.MsgID] = slots
	}
	if existing, ok := slots[f.Index]; ok && existing.Total != f.Total {
		return nil, false, ErrTotalMismatch
	}
	slots[f.Index] = f

	if uint16(len(slots)) < f.Total {
		return nil, false, nil
	}

	ordered := make([]Fragment, f.Total)
	for idx, frag := range slots {
		ordered[idx] = frag
	}
	delete(r.pending, f.MsgID)

	payload, err := Reassemble(ordered)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// Discard drops any partial state held for msgID, e.g. after a timeout.
func (r *Reassembler) Discard(msgID MessageID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, msgID)
}

// Pending reports how many messages currently have incomplete fragment sets.
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
