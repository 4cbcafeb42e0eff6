package crdt

import (
	"errors"
	"fmt"
	"sort"

	"github.com/securelegion/shield-core/pkg/crypto/hybrid"
	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

// MemberStatus is a membership record's lifecycle stage.
type MemberStatus byte

const (
	StatusInvited MemberStatus = iota + 1
	StatusMember
	StatusRemoved
)

// Member is one device's membership record.
type Member struct {
	Role       Role
	JoinedAtOp OpID
	Status     MemberStatus
}

// lwwText is a last-writer-wins text register resolved by (lamport, op_id).
type lwwText struct {
	Text    string
	Lamport uint64
	OpID    OpID
}

func (w *lwwText) wins(lamport uint64, id OpID) bool {
	if w == nil {
		return true
	}
	if lamport != w.Lamport {
		return lamport > w.Lamport
	}
	return w.OpID.Less(id)
}

type reactionKey struct {
	Author      hybrid.DeviceID
	Emoji       string
	TargetMsgID [32]byte
}

// Message is one group message's derived state.
type Message struct {
	Author     hybrid.DeviceID
	Text       string
	CreatedOp  OpID
	Edit       *lwwText
	Reactions  map[reactionKey]bool // OR-Set: true means currently present
	Tombstoned bool
}

type metadataRegister struct {
	Value   string
	Lamport uint64
	OpID    OpID
}

func (m *metadataRegister) wins(lamport uint64, id OpID) bool {
	if m == nil {
		return true
	}
	if lamport != m.Lamport {
		return lamport > m.Lamport
	}
	return m.OpID.Less(id)
}

var (
	ErrGroupNotCreated = errors.New("crdt: group has no GroupCreate op applied yet")
)

// State is a group's derived, rebuildable state: the fold of every applied
// operation in OpID total order.
type State struct {
	GroupID  GroupID
	Created  bool
	Members  map[hybrid.DeviceID]*Member
	Messages map[[32]byte]*Message
	Metadata map[MetadataKey]*metadataRegister

	// MaxLamport tracks, per author, the highest lamport seen; NextLamport and
	// NewHello read it without rescanning history. Apply does not consult it
	// to reject ops.
	MaxLamport map[hybrid.DeviceID]uint64

	opCount        uint64
	messageOpCount uint64
}

// NewState constructs an empty group state awaiting its GroupCreate op.
func NewState(groupID GroupID) *State {
	return &State{
		GroupID:    groupID,
		Members:    make(map[hybrid.DeviceID]*Member),
		Messages:   make(map[[32]byte]*Message),
		Metadata:   make(map[MetadataKey]*metadataRegister),
		MaxLamport: make(map[hybrid.DeviceID]uint64),
	}
}

// OpCount returns the number of ops folded into this state so far.
func (s *State) OpCount() uint64 { return s.opCount }

// NextLamport computes the next lamport value a device should use when
// authoring a new op, given its own last-used lamport.
func (s *State) NextLamport(myLastLamport uint64) uint64 {
	max := myLastLamport
	for _, lm := range s.MaxLamport {
		if lm > max {
			max = lm
		}
	}
	return max + 1
}

// Apply parses, verifies, sorts, and folds a batch of envelopes into s in
// deterministic total order. It never aborts on a single bad op: malformed
// or unsigned envelopes are dropped, and authorization failures are recorded
// as ApplyErrors and skipped. The returned errs are the union of both.
func (s *State) Apply(envelopes []Envelope) []error {
	type decoded struct {
		env Envelope
	}
	valid := make([]decoded, 0, len(envelopes))
	var errs []error

	for _, e := range envelopes {
		if err := Verify(e); err != nil {
			errs = append(errs, fmt.Errorf("crdt: dropping op %s: %w", e.ID.String(), err))
			continue
		}
		valid = append(valid, decoded{env: e})
	}

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].env.ID.Less(valid[j].env.ID)
	})

	for _, d := range valid {
		if err := s.applyOne(d.env); err != nil {
			errs = append(errs, &ApplyError{OpID: d.env.ID, Reason: err})
			continue
		}
		s.opCount++
		if isMessageOp(d.env.Type) {
			s.messageOpCount++
		}
		if lm := s.MaxLamport[d.env.ID.Author]; d.env.Lamport > lm {
			s.MaxLamport[d.env.ID.Author] = d.env.Lamport
		}
	}

	return errs
}

func (s *State) applyOne(e Envelope) error {
	if e.Type != OpGroupCreate && !s.Created {
		return ErrGroupNotCreated
	}

	if isMessageOp(e.Type) && s.opCount >= HardOpCap {
		return ErrHardCapExceeded
	}

	switch e.Type {
	case OpGroupCreate:
		return s.applyGroupCreate(e)
	case OpMemberInvite:
		return s.applyMemberInvite(e)
	case OpMemberAccept:
		return s.applyMemberAccept(e)
	case OpMemberRemove:
		return s.applyMemberRemove(e)
	case OpRoleSet:
		return s.applyRoleSet(e)
	case OpMsgAdd:
		return s.applyMsgAdd(e)
	case OpMsgEdit:
		return s.applyMsgEdit(e)
	case OpMsgDelete:
		return s.applyMsgDelete(e)
	case OpReactionSet:
		return s.applyReactionSet(e)
	case OpMetadataSet:
		return s.applyMetadataSet(e)
	default:
		return fmt.Errorf("crdt: unknown op type 0x%02x", byte(e.Type))
	}
}

func (s *State) roleOf(author hybrid.DeviceID) Role {
	m, ok := s.Members[author]
	if !ok || m.Status != StatusMember {
		return RoleReadOnly
	}
	return m.Role
}

func (s *State) applyGroupCreate(e Envelope) error {
	if s.Created {
		return ErrDuplicateGroupCreate
	}
	var payload GroupCreatePayload
	if err := DecodePayload(e, &payload); err != nil {
		return err
	}
	s.Created = true
	s.Members[e.ID.Author] = &Member{Role: RoleOwner, JoinedAtOp: e.ID, Status: StatusMember}
	if payload.Name != "" {
		s.Metadata[MetadataName] = &metadataRegister{Value: payload.Name, Lamport: e.Lamport, OpID: e.ID}
	}
	return nil
}

func (s *State) applyMemberInvite(e Envelope) error {
	role := s.roleOf(e.ID.Author)
	if !authorized(role, OpMemberInvite, false) {
		return ErrUnauthorized
	}
	var payload MemberInvitePayload
	if err := DecodePayload(e, &payload); err != nil {
		return err
	}
	invitee := hybrid.DeviceID(payload.Invitee)
	if existing, ok := s.Members[invitee]; ok && existing.Status == StatusMember {
		return nil // already a member, no-op
	}
	s.Members[invitee] = &Member{Role: RoleMember, JoinedAtOp: e.ID, Status: StatusInvited}
	return nil
}

func (s *State) applyMemberAccept(e Envelope) error {
	m, ok := s.Members[e.ID.Author]
	if !ok || m.Status != StatusInvited {
		return ErrInviteeMismatch
	}
	m.Status = StatusMember
	m.JoinedAtOp = e.ID
	return nil
}

func (s *State) applyMemberRemove(e Envelope) error {
	var payload MemberRemovePayload
	if err := DecodePayload(e, &payload); err != nil {
		return err
	}
	target := hybrid.DeviceID(payload.Target)
	actingOnSelf := target == e.ID.Author

	role := s.roleOf(e.ID.Author)
	if !authorized(role, OpMemberRemove, actingOnSelf) {
		return ErrUnauthorized
	}

	targetMember, ok := s.Members[target]
	if !ok || targetMember.Status != StatusMember {
		return ErrTargetNotMember
	}
	if payload.Kind == RemoveKick && targetMember.Role == RoleOwner {
		return ErrDemoteOwnerDenied
	}
	targetMember.Status = StatusRemoved
	return nil
}

func (s *State) applyRoleSet(e Envelope) error {
	var payload RoleSetPayload
	if err := DecodePayload(e, &payload); err != nil {
		return err
	}
	target := hybrid.DeviceID(payload.Target)

	role := s.roleOf(e.ID.Author)
	if !authorized(role, OpRoleSet, target == e.ID.Author) {
		return ErrUnauthorized
	}

	targetMember, ok := s.Members[target]
	if !ok || targetMember.Status != StatusMember {
		return ErrTargetNotMember
	}
	if role != RoleOwner && (targetMember.Role == RoleOwner || payload.Role == RoleOwner) {
		return ErrDemoteOwnerDenied
	}
	targetMember.Role = payload.Role
	return nil
}

func (s *State) applyMsgAdd(e Envelope) error {
	role := s.roleOf(e.ID.Author)
	if !authorized(role, OpMsgAdd, false) {
		return ErrUnauthorized
	}
	var payload MsgAddPayload
	if err := DecodePayload(e, &payload); err != nil {
		return err
	}
	msgID := msgIDFor(e.ID)
	s.Messages[msgID] = &Message{
		Author:    e.ID.Author,
		Text:      payload.Text,
		CreatedOp: e.ID,
		Reactions: make(map[reactionKey]bool),
	}
	return nil
}

func (s *State) applyMsgEdit(e Envelope) error {
	var payload MsgEditPayload
	if err := DecodePayload(e, &payload); err != nil {
		return err
	}
	msg, ok := s.Messages[payload.TargetMsgID]
	if !ok {
		return fmt.Errorf("crdt: MsgEdit target %x not found", payload.TargetMsgID)
	}

	role := s.roleOf(e.ID.Author)
	ownMessage := msg.Author == e.ID.Author
	if role == RoleMember && !ownMessage {
		return ErrUnauthorized
	}
	if !authorized(role, OpMsgEdit, ownMessage) {
		return ErrUnauthorized
	}

	if msg.Tombstoned {
		return nil // silently ignored per metadata/LWW-stale semantics
	}
	if msg.Edit.wins(e.Lamport, e.ID) {
		msg.Edit = &lwwText{Text: payload.Text, Lamport: e.Lamport, OpID: e.ID}
	}
	return nil
}

func (s *State) applyMsgDelete(e Envelope) error {
	var payload MsgDeletePayload
	if err := DecodePayload(e, &payload); err != nil {
		return err
	}
	msg, ok := s.Messages[payload.TargetMsgID]
	if !ok {
		return fmt.Errorf("crdt: MsgDelete target %x not found", payload.TargetMsgID)
	}

	role := s.roleOf(e.ID.Author)
	ownMessage := msg.Author == e.ID.Author
	if role == RoleMember && !ownMessage {
		return ErrUnauthorized
	}
	if !authorized(role, OpMsgDelete, ownMessage) {
		return ErrUnauthorized
	}

	msg.Tombstoned = true
	return nil
}

func (s *State) applyReactionSet(e Envelope) error {
	role := s.roleOf(e.ID.Author)
	if !authorized(role, OpReactionSet, false) {
		return ErrUnauthorized
	}
	var payload ReactionSetPayload
	if err := DecodePayload(e, &payload); err != nil {
		return err
	}
	msg, ok := s.Messages[payload.TargetMsgID]
	if !ok {
		return fmt.Errorf("crdt: ReactionSet target %x not found", payload.TargetMsgID)
	}
	key := reactionKey{Author: e.ID.Author, Emoji: payload.Emoji, TargetMsgID: payload.TargetMsgID}
	if msg.Reactions == nil {
		msg.Reactions = make(map[reactionKey]bool)
	}
	msg.Reactions[key] = !payload.Remove
	return nil
}

func (s *State) applyMetadataSet(e Envelope) error {
	role := s.roleOf(e.ID.Author)
	if !authorized(role, OpMetadataSet, false) {
		return ErrUnauthorized
	}
	var payload MetadataSetPayload
	if err := DecodePayload(e, &payload); err != nil {
		return err
	}
	reg := s.Metadata[payload.Key]
	if reg.wins(e.Lamport, e.ID) {
		s.Metadata[payload.Key] = &metadataRegister{Value: payload.Value, Lamport: e.Lamport, OpID: e.ID}
	}
	return nil
}

// msgIDFor computes the deterministic message ID for a MsgAdd op:
// BLAKE3(op_id_bytes).
func msgIDFor(id OpID) [32]byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, id.Author[:]...)
	buf = appendUint64BE(buf, id.Lamport)
	buf = appendUint64BE(buf, id.Nonce)
	return primitives.Blake3Sum256(buf)
}

// StateHash computes BLAKE3 over a canonical serialization of the derived
// state: sorted membership, sorted messages, sorted metadata.
func (s *State) StateHash() [32]byte {
	var buf []byte

	deviceIDs := make([]hybrid.DeviceID, 0, len(s.Members))
	for id := range s.Members {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Slice(deviceIDs, func(i, j int) bool {
		return lessBytes(deviceIDs[i][:], deviceIDs[j][:])
	})
	for _, id := range deviceIDs {
		m := s.Members[id]
		buf = append(buf, id[:]...)
		buf = append(buf, byte(m.Role), byte(m.Status))
	}

	msgIDs := make([][32]byte, 0, len(s.Messages))
	for id := range s.Messages {
		msgIDs = append(msgIDs, id)
	}
	sort.Slice(msgIDs, func(i, j int) bool {
		return lessBytes(msgIDs[i][:], msgIDs[j][:])
	})
	for _, id := range msgIDs {
		m := s.Messages[id]
		buf = append(buf, id[:]...)
		buf = append(buf, []byte(m.Text)...)
		if m.Edit != nil {
			buf = append(buf, []byte(m.Edit.Text)...)
		}
		if m.Tombstoned {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		reactions := make([]reactionKey, 0, len(m.Reactions))
		for k, present := range m.Reactions {
			if present {
				reactions = append(reactions, k)
			}
		}
		sort.Slice(reactions, func(i, j int) bool {
			if reactions[i].Emoji != reactions[j].Emoji {
				return reactions[i].Emoji < reactions[j].Emoji
			}
			return lessBytes(reactions[i].Author[:], reactions[j].Author[:])
		})
		for _, r := range reactions {
			buf = append(buf, r.Author[:]...)
			buf = append(buf, []byte(r.Emoji)...)
		}
	}

	keys := make([]MetadataKey, 0, len(s.Metadata))
	for k := range s.Metadata {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		reg := s.Metadata[k]
		buf = append(buf, byte(k))
		buf = append(buf, []byte(reg.Value)...)
	}

	return primitives.Blake3Sum256(buf)
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
