package issuer

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	LinkIDLength   = 10
	linkIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// NewLinkID draws LinkIDLength characters uniformly from lowercase letters and digits.
func NewLinkID() (string, error) {
	n := big.NewInt(int64(len(linkIDAlphabet)))
	b := make([]byte, LinkIDLength)
	for i := range b {
		k, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("generate link id: %w", err)
		}
		b[i] = linkIDAlphabet[k.Int64()]
	}
	return string(b), nil
}
