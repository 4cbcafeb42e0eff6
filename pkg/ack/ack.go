// Package ack implements the per-contact ACK state map enforcing strict
// handshake ordering: PING_ACK must precede PONG_ACK, which must precede
// MESSAGE_ACK.
package ack

import (
	"errors"
	"sync"
)

// Stage is one step in a contact's ACK handshake.
type Stage byte

const (
	StagePing Stage = iota + 1
	StagePong
	StageMessage
)

func (s Stage) String() string {
	switch s {
	case StagePing:
		return "ping_ack"
	case StagePong:
		return "pong_ack"
	case StageMessage:
		return "message_ack"
	default:
		return "unknown_ack"
	}
}

// ErrOutOfOrder is returned when a stage is recorded before its prerequisite.
var ErrOutOfOrder = errors.New("ack: stage recorded out of order")

type contactState struct {
	ping    bool
	pong    bool
	message bool
}

// Map is a mutex-guarded, per-contact ACK state map. It is an owned
// struct, not a package-level singleton; a host constructs one and shares
// it across its connection handlers under its own lifetime.
type Map struct {
	mu    sync.Mutex
	state map[string]*contactState
}

// New constructs an empty ACK state map.
func New() *Map {
	return &Map{state: make(map[string]*contactState)}
}

// Record attempts to transition contact into stage. It fails with
// ErrOutOfOrder if the stage's prerequisite has not yet been observed.
func (m *Map) Record(contact string, stage Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.state[contact]
	if !ok {
		s = &contactState{}
		m.state[contact] = s
	}

	switch stage {
	case StagePing:
		s.ping = true
	case StagePong:
		if !s.ping {
			return ErrOutOfOrder
		}
		s.pong = true
	case StageMessage:
		if !s.pong {
			return ErrOutOfOrder
		}
		s.message = true
	default:
		return ErrOutOfOrder
	}
	return nil
}

// Observed reports whether contact has reached at least stage.
func (m *Map) Observed(contact string, stage Stage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.state[contact]
	if !ok {
		return false
	}
	switch stage {
	case StagePing:
		return s.ping
	case StagePong:
		return s.pong
	case StageMessage:
		return s.message
	default:
		return false
	}
}

// Reset clears a contact's ACK state, e.g. on reconnect.
func (m *Map) Reset(contact string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, contact)
}
