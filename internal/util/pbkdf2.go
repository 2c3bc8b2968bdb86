package util

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2KeyLength is the output length of DerivePBKDF2Key.
const PBKDF2KeyLength = 32

// DerivePBKDF2Key derives a 256-bit key with PBKDF2-HMAC-SHA256.
func DerivePBKDF2Key(password []byte, salt []byte, iterations int) ([]byte, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("pbkdf2 iterations must be positive, got %d", iterations)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("pbkdf2 salt must not be empty")
	}
	return pbkdf2.Key(password, salt, iterations, PBKDF2KeyLength, sha256.New), nil
}
