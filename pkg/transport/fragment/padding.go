package fragment

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"
)

const lengthPrefixSize = 4

var (
	ErrNoSizeFits      = errors.New("fragment: no quantized size in profile fits this plaintext")
	ErrPaddedTooShort  = errors.New("fragment: padded message shorter than length prefix")
	ErrLengthExceedsPad = errors.New("fragment: encoded length exceeds padded size")
)

// PaddingProfile quantizes plaintext sizes to a fixed set of buckets before
// fragmentation, so payload length alone does not leak message size.
type PaddingProfile struct {
	// Sizes are the allowed padded sizes, in ascending order. Pad chooses
	// the smallest one that fits the plaintext plus its length prefix.
	Sizes []int
}

// Pad wraps plaintext with a 4-byte big-endian length prefix, selects the
// smallest profile size that fits, and fills the remainder with random
// bytes.
func (p PaddingProfile) Pad(plaintext []byte) ([]byte, error) {
	need := len(plaintext) + lengthPrefixSize
	sizes := append([]int(nil), p.Sizes...)
	sort.Ints(sizes)

	for _, size := range sizes {
		if size >= need {
			out := make([]byte, size)
			binary.BigEndian.PutUint32(out[:lengthPrefixSize], uint32(len(plaintext)))
			copy(out[lengthPrefixSize:], plaintext)
			if _, err := rand.Read(out[lengthPrefixSize+len(plaintext):]); err != nil {
				return nil, fmt.Errorf("fragment: padding fill: %w", err)
			}
			return out, nil
		}
	}
	return nil, ErrNoSizeFits
}

// Unpad recovers the original plaintext from a Pad-produced buffer.
func Unpad(padded []byte) ([]byte, error) {
	if len(padded) < lengthPrefixSize {
		return nil, ErrPaddedTooShort
	}
	length := binary.BigEndian.Uint32(padded[:lengthPrefixSize])
	if int(length) > len(padded)-lengthPrefixSize {
		return nil, ErrLengthExceedsPad
	}
	return append([]byte(nil), padded[lengthPrefixSize:lengthPrefixSize+int(length)]...), nil
}

// BurstProfile configures randomized cover-traffic bursts sent immediately
// before and after a real message, so an observer cannot isolate the real
// send by its position in a burst.
type BurstProfile struct {
	MinLeading, MaxLeading   int
	MinTrailing, MaxTrailing int
}

// Plan draws a leading and trailing cover-packet count for one send event.
func (b BurstProfile) Plan() (leading, trailing int, err error) {
	leading, err = randIntInRange(b.MinLeading, b.MaxLeading)
	if err != nil {
		return 0, 0, err
	}
	trailing, err = randIntInRange(b.MinTrailing, b.MaxTrailing)
	if err != nil {
		return 0, 0, err
	}
	return leading, trailing, nil
}

func randIntInRange(min, max int) (int, error) {
	if max < min {
		return 0, fmt.Errorf("fragment: burst range min=%d > max=%d", min, max)
	}
	if min == max {
		return min, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, fmt.Errorf("fragment: burst size generation: %w", err)
	}
	return min + int(n.Int64()), nil
}
