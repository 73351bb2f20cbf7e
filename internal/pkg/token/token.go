package token

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	// Alphabet omits characters that are easy to confuse when read aloud or retyped (I, L, O, 0, 1).
	Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	// ShortCodeLength is the number of symbols in a short verification code.
	ShortCodeLength = 6
)

// NewShortCode draws ShortCodeLength symbols uniformly from Alphabet using crypto/rand.
func NewShortCode() (string, error) {
	return newShortCode(rand.Reader)
}

func newShortCode(r io.Reader) (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	b := make([]byte, ShortCodeLength)
	for i := range b {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}
