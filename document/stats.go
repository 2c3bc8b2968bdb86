package document

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"unicode/utf8"
)

// EncryptionOverhead approximates the hex salt, IV and HMAC carried by an
// envelope on top of its ciphertext.
const EncryptionOverhead = 128

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CharacterCount returns the number of Unicode code points in text.
func CharacterCount(text string) int {
	return utf8.RuneCountInString(text)
}

// ContentHash returns the hex SHA-256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EstimateEncryptedSize estimates the stored size of n bytes of content once
// encrypted and base64 encoded.
func EstimateEncryptedSize(n int) int {
	if n < 0 {
		n = 0
	}
	return int(math.Ceil(float64(n)*1.33)) + EncryptionOverhead
}
