package backup

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

// gf256ReductionByte is the reduction byte for the irreducible polynomial
// x^8 + x^4 + x^3 + x + 1 used for all GF(256) arithmetic in this package.
const gf256ReductionByte = 0x1B

func gf256Mul(a, b byte) byte {
	var result byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			result ^= a
		}
		hiBitSet := a&0x80 != 0
		a <<= 1
		if hiBitSet {
			a ^= gf256ReductionByte
		}
		b >>= 1
	}
	return result
}

// gf256Pow computes a^n in GF(256) by repeated squaring.
func gf256Pow(a byte, n int) byte {
	result := byte(1)
	base := a
	for n > 0 {
		if n&1 != 0 {
			result = gf256Mul(result, base)
		}
		base = gf256Mul(base, base)
		n >>= 1
	}
	return result
}

// gf256Inv computes the multiplicative inverse of a nonzero element via
// a^254 (since a^255 = 1 for all nonzero a in GF(256)).
func gf256Inv(a byte) byte {
	if a == 0 {
		return 0
	}
	return gf256Pow(a, 254)
}

func gf256Add(a, b byte) byte { return a ^ b }

var (
	ErrInvalidThreshold  = errors.New("backup: invalid shamir threshold (k, n)")
	ErrNotEnoughShares   = errors.New("backup: not enough shares to reconstruct")
	ErrMismatchedShares  = errors.New("backup: shares have inconsistent data length")
	ErrDuplicateShareIdx = errors.New("backup: duplicate share index")
)

// Share is one participant's piece of a Shamir-split secret.
type Share struct {
	Index byte // 1-based
	Data  []byte
}

// Split divides secret into n shares such that any k of them reconstruct it
// exactly, while fewer than k reveal no information. Constraints: 2 ≤ k ≤ n ≤ 255.
func Split(secret []byte, k, n int) ([]Share, error) {
	if k < 2 || n < k || n > 255 {
		return nil, fmt.Errorf("%w: k=%d n=%d", ErrInvalidThreshold, k, n)
	}

	shares := make([]Share, n)
	for i := 0; i < n; i++ {
		shares[i] = Share{Index: byte(i + 1), Data: make([]byte, len(secret))}
	}

	coeffs := make([]byte, k)
	defer primitives.ZeroSlice(coeffs)

	for byteIdx, secretByte := range secret {
		coeffs[0] = secretByte
		if _, err := rand.Read(coeffs[1:]); err != nil {
			return nil, fmt.Errorf("backup: coefficient generation: %w", err)
		}

		for s := 0; s < n; s++ {
			x := byte(s + 1)
			shares[s].Data[byteIdx] = evalPolynomial(coeffs, x)
		}
	}

	return shares, nil
}

// evalPolynomial evaluates c[0] + c[1]*x + c[2]*x^2 + ... at x using Horner's
// method over GF(256).
func evalPolynomial(coeffs []byte, x byte) byte {
	var result byte
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = gf256Add(gf256Mul(result, x), coeffs[i])
	}
	return result
}

// Reconstruct recovers the original secret from any k (or more) shares via
// Lagrange interpolation at x=0.
func Reconstruct(shares []Share, k int) ([]byte, error) {
	if len(shares) < k {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughShares, len(shares), k)
	}

	use := shares[:k]
	shareLen := len(use[0].Data)
	seen := make(map[byte]bool, k)
	for _, s := range use {
		if len(s.Data) != shareLen {
			return nil, ErrMismatchedShares
		}
		if seen[s.Index] {
			return nil, ErrDuplicateShareIdx
		}
		seen[s.Index] = true
	}

	secret := make([]byte, shareLen)
	for byteIdx := 0; byteIdx < shareLen; byteIdx++ {
		var acc byte
		for i, si := range use {
			xi := si.Index
			num := byte(1)
			den := byte(1)
			for j, sj := range use {
				if i == j {
					continue
				}
				xj := sj.Index
				num = gf256Mul(num, xj) // (0 - xj) == xj in GF(2^n)
				den = gf256Mul(den, gf256Add(xi, xj))
			}
			term := gf256Mul(si.Data[byteIdx], gf256Mul(num, gf256Inv(den)))
			acc = gf256Add(acc, term)
		}
		secret[byteIdx] = acc
	}

	return secret, nil
}
