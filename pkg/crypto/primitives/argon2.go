package primitives

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2Params are the tunable Argon2id cost parameters. Output is always
// forced to 32 bytes, matching the key size every AEAD caller expects.
type Argon2Params struct {
	MemoryCostKiB uint32 // memory cost in KiB
	TimeCost      uint32 // number of passes
	Parallelism   uint8  // degree of parallelism
}

// DefaultArgon2Params matches the floors recommended for interactive
// passphrase-derived keys: 64 MiB memory, 4 passes, 2 lanes.
var DefaultArgon2Params = Argon2Params{
	MemoryCostKiB: 64 * 1024,
	TimeCost:      4,
	Parallelism:   2,
}

// Safety floors below which a caller-supplied parameter set is rejected
// outright, regardless of what was requested.
const (
	MinMemoryCostKiB = 8 * 1024
	MinTimeCost      = 1
	MinParallelism   = 1
)

var ErrInvalidArgon2Params = errors.New("primitives: invalid argon2id parameters")

// Validate rejects parameter sets below the safety floors.
func (p Argon2Params) Validate() error {
	if p.MemoryCostKiB < MinMemoryCostKiB {
		return fmt.Errorf("%w: memory cost %d KiB below floor %d", ErrInvalidArgon2Params, p.MemoryCostKiB, MinMemoryCostKiB)
	}
	if p.TimeCost < MinTimeCost {
		return fmt.Errorf("%w: time cost %d below floor %d", ErrInvalidArgon2Params, p.TimeCost, MinTimeCost)
	}
	if p.Parallelism < MinParallelism {
		return fmt.Errorf("%w: parallelism %d below floor %d", ErrInvalidArgon2Params, p.Parallelism, MinParallelism)
	}
	return nil
}

// Argon2idKey derives a 32-byte key from password and salt using Argon2id.
func Argon2idKey(password, salt []byte, params Argon2Params) ([32]byte, error) {
	var out [32]byte
	if err := params.Validate(); err != nil {
		return out, err
	}
	key := argon2.IDKey(password, salt, params.TimeCost, params.MemoryCostKiB, params.Parallelism, 32)
	copy(out[:], key)
	ZeroSlice(key)
	return out, nil
}
