package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

// RandBytes reads n bytes from the system CSPRNG.
func RandBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("rand: invalid length %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("rand: %w", err)
	}
	return b, nil
}

// EqualSecret compares derived keys without leaking timing. Length
// mismatches compare unequal.
func EqualSecret(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
