// Package crypto exposes the password-based key derivation settings used by
// sealed document envelopes.
package crypto

import (
	"errors"
	"fmt"

	"github.com/jmcleod/inkseal/internal/util"
)

// Iteration bounds for PBKDF2-HMAC-SHA256. The lower bound matches the
// count written by the NoteSV web app; the upper bound caps the work
// an untrusted envelope can demand from a decryptor.
const (
	MinIterations     = 10_000
	MaxIterations     = 10_000_000
	DefaultIterations = MinIterations
)

// ErrInvalidIterations is returned for iteration counts outside
// [MinIterations, MaxIterations].
var ErrInvalidIterations = errors.New("invalid kdf iteration count")

// Named KDF profiles for different deployment scenarios.
const (
	KDFProfileNoteSV    = "notesv"    // 10k, readable by the NoteSV web app
	KDFProfileModerate  = "moderate"  // OWASP 2023 PBKDF2-HMAC-SHA256 guidance
	KDFProfileSensitive = "sensitive" // high-value documents, slow on mobile
)

// Iteration counts of the moderate and sensitive profiles.
const (
	ModerateIterations  = 600_000
	SensitiveIterations = 1_200_000
)

var kdfProfiles = map[string]int{
	KDFProfileNoteSV:    DefaultIterations,
	KDFProfileModerate:  ModerateIterations,
	KDFProfileSensitive: SensitiveIterations,
}

// IterationsForProfile returns the PBKDF2 iteration count for a named profile.
func IterationsForProfile(name string) (int, error) {
	n, ok := kdfProfiles[name]
	if !ok {
		return 0, fmt.Errorf("unknown kdf profile %q", name)
	}
	return n, nil
}

// ValidateIterations checks that n lies within the accepted bounds.
func ValidateIterations(n int) error {
	if n < MinIterations {
		return fmt.Errorf("%w: %d is below the minimum of %d", ErrInvalidIterations, n, MinIterations)
	}
	if n > MaxIterations {
		return fmt.Errorf("%w: %d exceeds the maximum of %d", ErrInvalidIterations, n, MaxIterations)
	}
	return nil
}

// DeriveKey derives a 256-bit master key from password and salt using
// PBKDF2-HMAC-SHA256. The password bytes are used as given; callers that
// want Unicode normalization apply it first.
func DeriveKey(password string, salt []byte, iterations int) ([]byte, error) {
	if err := ValidateIterations(iterations); err != nil {
		return nil, err
	}
	pw := []byte(password)
	defer util.WipeBytes(pw)
	return util.DerivePBKDF2Key(pw, salt, iterations)
}

// NormalizePassword applies the NFKD normalization used by 2.0 envelopes so
// that visually identical passwords typed on different platforms derive the
// same key.
func NormalizePassword(password string) string {
	return util.Normalize(password)
}
