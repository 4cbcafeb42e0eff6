package crdt

import "errors"

// Per-group operation guardrails. Exceeding the soft cap is a warning only;
// writes are still accepted. Exceeding the hard cap rejects further message
// ops while membership and metadata ops remain always-accepted, so a group
// can recover by shedding members or compacting.
const (
	SoftOpCap = 250_000
	HardOpCap = 500_000
)

// Sync guardrails, enforced per round/chunk/peer.
const (
	MaxOpsPerSyncRound   = 1000
	MaxBytesPerSyncRound = 10 * 1024 * 1024
	MaxOpsPerChunk       = 256
	MaxOpsPerPeerPerMin  = 100
	MaxConcurrentSyncs   = 2
)

var (
	ErrHardCapExceeded = errors.New("crdt: hard op cap exceeded, message ops rejected until compaction")
	ErrSyncRoundTooLarge = errors.New("crdt: sync round exceeds op or byte limit")
	ErrSyncChunkTooLarge = errors.New("crdt: sync chunk exceeds op limit")
	ErrPeerRateLimited   = errors.New("crdt: per-peer sync rate limit exceeded")
	ErrTooManyConcurrentSyncs = errors.New("crdt: too many concurrent sync sessions")
)

// isMessageOp reports whether opType is subject to the hard-cap message-op
// rejection (membership and metadata ops are always accepted).
func isMessageOp(t OpType) bool {
	switch t {
	case OpMsgAdd, OpMsgEdit, OpMsgDelete, OpReactionSet:
		return true
	default:
		return false
	}
}

// CapWarning reports whether opCount has crossed the soft cap, for hosts
// that want to surface a warning signal without rejecting writes.
func CapWarning(opCount uint64) bool {
	return opCount >= SoftOpCap
}
