// Package slug generates short-link path segments.
package slug

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// Length of generated slugs.
	Length = 6
	// attempts bounds the collision retries in Unique.
	attempts = 10
)

var maxIdx = big.NewInt(int64(len(charset)))

// ErrExhausted means every candidate Unique tried was taken.
var ErrExhausted = errors.New("failed to generate unique slug")

// Generate returns a random Base62 string of Length characters.
func Generate() (string, error) {
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(rand.Reader, maxIdx)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}

// Unique generates slugs until exists reports one as free.
func Unique(exists func(string) (bool, error)) (string, error) {
	for range attempts {
		candidate, err := Generate()
		if err != nil {
			return "", err
		}
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}
