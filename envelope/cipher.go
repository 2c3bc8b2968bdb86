package envelope

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/jmcleod/inkseal/crypto"
	"github.com/jmcleod/inkseal/internal/util"
)

// Cipher encrypts and decrypts envelopes. A Cipher is immutable after New and
// safe for concurrent use.
type Cipher struct {
	iterations int
	layout     *layout
	rand       io.Reader
}

var defaultCipher = &Cipher{
	iterations: crypto.DefaultIterations,
	layout:     layouts[Version2],
	rand:       rand.Reader,
}

// New returns a Cipher configured by opts.
func New(opts ...Option) (*Cipher, error) {
	c := *defaultCipher
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// Iterations returns the PBKDF2 iteration count used for new envelopes.
func (c *Cipher) Iterations() int { return c.iterations }

// Version returns the envelope version written by Encrypt.
func (c *Cipher) Version() string { return c.layout.version }

// Encrypt seals content under password using the default settings.
func Encrypt(content, password string) (*Envelope, error) {
	return defaultCipher.Encrypt(content, password)
}

// Decrypt opens env with password. It accepts every supported version.
func Decrypt(env *Envelope, password string) (string, error) {
	return defaultCipher.Decrypt(env, password)
}

// Encrypt seals content under password. Each call draws a fresh salt and IV,
// so encrypting the same input twice yields different envelopes.
func (c *Cipher) Encrypt(content, password string) (*Envelope, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", ErrInvalidInput)
	}
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidInput)
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(c.rand, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return nil, fmt.Errorf("generating iv: %w", err)
	}

	keys, err := c.layout.deriveKeys(password, salt, c.iterations)
	if err != nil {
		return nil, fmt.Errorf("deriving keys: %w", err)
	}
	defer keys.Destroy()

	plainText := []byte(content)
	defer util.WipeBytes(plainText)
	cipherText, err := util.EncryptAESCBC(plainText, keys.enc.Bytes(), iv)
	if err != nil {
		return nil, fmt.Errorf("encrypting content: %w", err)
	}

	env := &Envelope{
		Version:          c.layout.version,
		EncryptedContent: util.Base64Encode(cipherText),
		EncryptionMethod: MethodNoteSV,
		Salt:             util.HexEncode(salt),
		IV:               util.HexEncode(iv),
		Iterations:       c.iterations,
	}
	env.HMAC = util.HexEncode(util.HMACSHA256(keys.mac.Bytes(), c.layout.macInput(env, salt, iv, cipherText)))
	return env, nil
}

// Decrypt verifies and opens env. Structural problems are reported as
// ErrMalformedEnvelope before any key is derived; every cryptographic
// failure is reported as ErrDecryption.
func (c *Cipher) Decrypt(env *Envelope, password string) (string, error) {
	d, err := env.decode()
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", fmt.Errorf("%w: password must not be empty", ErrInvalidInput)
	}

	keys, err := d.layout.deriveKeys(password, d.salt, env.Iterations)
	if err != nil {
		return "", fmt.Errorf("deriving keys: %w", err)
	}
	defer keys.Destroy()

	if !util.VerifyHMACSHA256(keys.mac.Bytes(), d.mac, d.layout.macInput(env, d.salt, d.iv, d.cipherText)) {
		return "", ErrDecryption
	}

	plainText, err := util.DecryptAESCBC(d.cipherText, keys.enc.Bytes(), d.iv)
	if err != nil {
		return "", ErrDecryption
	}
	defer util.WipeBytes(plainText)
	if !utf8.Valid(plainText) {
		return "", ErrDecryption
	}
	return string(plainText), nil
}

// IsDecryptionError reports whether err is an authentication or padding
// failure as opposed to a caller or format error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryption)
}

func deriveMaster(password string, salt []byte, iterations int) ([]byte, error) {
	return crypto.DeriveKey(password, salt, iterations)
}
