package helpers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

var ten = big.NewInt(10)

// GenNumericCode generates a secure random code of n decimal digits.
// Leading zeros are kept, so every code has exactly n characters.
func GenNumericCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", n)
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
