package invite

import (
	"crypto/rand"
	"fmt"
)

// Codes avoid 0/O and 1/I since they get read aloud and retyped.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const CodeLength = 8

// NewCode returns a random invite code. The space is 32^8 (~1.1e12), so
// collisions are handled by a retry against the unique index rather than
// by coordination.
func NewCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed reading random bytes: %w", err)
	}

	code := make([]byte, CodeLength)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}
