package primitives

import "runtime"

// Zeroizer is implemented by every structure in this core that owns secret
// key material. Zeroize must be safe to call more than once and safe to call
// on a partially-initialized value.
type Zeroizer interface {
	Zeroize()
}

// ZeroBytes32 wipes a 32-byte key array in place. The loop form plus
// runtime.KeepAlive prevents the compiler from eliding the writes as dead
// stores once the array is otherwise unused.
func ZeroBytes32(b *[32]byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ZeroSlice wipes a variable-length byte slice in place.
func ZeroSlice(b []byte) {
	if len(b) == 0 {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// IsZeroed32 reports whether every byte of b is zero. Exposed for tests only;
// checking this in production logic can leak timing information about secret
// state.
func IsZeroed32(b *[32]byte) bool {
	if b == nil {
		return false
	}
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// ZeroizeAll calls Zeroize on every non-nil argument, in order.
func ZeroizeAll(zs ...Zeroizer) {
	for _, z := range zs {
		if z != nil {
			z.Zeroize()
		}
	}
}
