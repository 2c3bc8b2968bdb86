package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// RandomString returns n runes drawn uniformly from alphabet using crypto/rand.
func RandomString(alphabet []rune, n int) (string, error) {
	if len(alphabet) == 0 {
		return "", fmt.Errorf("random string alphabet must not be empty")
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		idx, err := RandomIntn(len(alphabet))
		if err != nil {
			return "", fmt.Errorf("generating random char index: %w", err)
		}
		sb.WriteRune(alphabet[idx])
	}
	return sb.String(), nil
}

// ShuffleRunes performs an in-place Fisher-Yates shuffle using crypto/rand.
func ShuffleRunes(r []rune) error {
	for i := len(r) - 1; i > 0; i-- {
		j, err := RandomIntn(i + 1)
		if err != nil {
			return fmt.Errorf("shuffling: %w", err)
		}
		r[i], r[j] = r[j], r[i]
	}
	return nil
}

func RandomIntn(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("generating random number: %w", err)
	}
	return int(n.Int64()), nil
}

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}
