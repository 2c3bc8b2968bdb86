package util

import (
	"crypto/hmac"
	"crypto/sha256"
)

// MACSize is the length of an HMAC-SHA256 tag.
const MACSize = sha256.Size

// HMACSHA256 returns the HMAC-SHA256 of the concatenated parts under key.
func HMACSHA256(key []byte, parts ...[]byte) []byte {
	h := hmac.New(sha256.New, key)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// VerifyHMACSHA256 recomputes the tag over parts and compares it with
// expected in constant time.
func VerifyHMACSHA256(key, expected []byte, parts ...[]byte) bool {
	return hmac.Equal(HMACSHA256(key, parts...), expected)
}
