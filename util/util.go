package util

import (
	"crypto/rand"
)

// RandomBytes returns n bytes from the system CSPRNG. Used for session
// tokens (extranonce1) handed out at subscription.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
