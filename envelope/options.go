package envelope

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/jmcleod/inkseal/crypto"
)

// Option configures a Cipher.
type Option func(*Cipher) error

// WithIterations sets the PBKDF2 iteration count written into new envelopes.
func WithIterations(n int) Option {
	return func(c *Cipher) error {
		if err := crypto.ValidateIterations(n); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		c.iterations = n
		return nil
	}
}

// WithKDFProfile selects the iteration count from a named profile
// (crypto.KDFProfileNoteSV, crypto.KDFProfileModerate, crypto.KDFProfileSensitive).
func WithKDFProfile(name string) Option {
	return func(c *Cipher) error {
		n, err := crypto.IterationsForProfile(name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		c.iterations = n
		return nil
	}
}

// WithFormatVersion selects the envelope layout written by Encrypt.
// Version1 produces envelopes the NoteSV web app can open.
func WithFormatVersion(v string) Option {
	return func(c *Cipher) error {
		l, ok := layouts[v]
		if !ok {
			return fmt.Errorf("%w: unsupported envelope version %q", ErrInvalidInput, v)
		}
		c.layout = l
		return nil
	}
}

// WithRandom replaces the source of salts and IVs. Intended for tests that
// need reproducible output.
func WithRandom(r io.Reader) Option {
	return func(c *Cipher) error {
		if r == nil {
			r = rand.Reader
		}
		c.rand = r
		return nil
	}
}
