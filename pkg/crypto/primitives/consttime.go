package primitives

import "crypto/subtle"

// ConstantTimeCompare reports whether a and b are equal using a constant-time
// comparison. Length mismatch is checked first and is not treated as secret
// (it leaks no more than the fact that two public-length buffers differ in
// size, which every caller already knows).
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ConstantTimeCompareStrings compares two strings in constant time, used for
// safety-number verification where the inputs are decimal digit groups.
func ConstantTimeCompareStrings(a, b string) bool {
	return ConstantTimeCompare([]byte(a), []byte(b))
}
