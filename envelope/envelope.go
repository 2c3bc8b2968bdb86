// Package envelope seals text documents under a password into a
// self-describing JSON envelope and opens them again.
//
// Key derivation is PBKDF2-HMAC-SHA256 with the iteration count stored in the
// envelope. Content is encrypted with AES-256-CBC and PKCS#7 padding, and an
// HMAC-SHA256 tag over salt, IV and ciphertext is verified in constant time
// before any ciphertext is decrypted.
//
// Two layouts share the "NoteSV-AES256" method name:
//
//	1.0  one PBKDF2 key for both AES and HMAC; the tag covers the hex salt,
//	     hex IV and base64 ciphertext as text. Readable by the NoteSV web app.
//	2.0  NFKD-normalized password; HKDF splits the PBKDF2 output into an
//	     encryption key and a MAC key; the tag covers a length-prefixed
//	     encoding of method, version, iterations, salt, IV and ciphertext.
//
// Encrypt writes 2.0 unless WithFormatVersion selects 1.0. Decrypt reads both.
package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/jmcleod/inkseal/crypto"
	"github.com/jmcleod/inkseal/internal/util"
)

const (
	// MethodNoteSV identifies PBKDF2-SHA256 + AES-256-CBC + HMAC-SHA256.
	MethodNoteSV = "NoteSV-AES256"

	Version1 = "1.0"
	Version2 = "2.0"

	SaltSize = 16
	IVSize   = util.AESBlockSize
	MACSize  = util.MACSize
)

// Envelope is the sealed form of a document. Field names are part of the
// wire format.
type Envelope struct {
	Version          string `json:"version"`
	EncryptedContent string `json:"encryptedContent"`
	EncryptionMethod string `json:"encryptionMethod"`
	Salt             string `json:"salt"`
	IV               string `json:"iv"`
	Iterations       int    `json:"iterations"`
	HMAC             string `json:"hmac"`
}

// Parse decodes a JSON envelope and checks its structure.
func Parse(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Marshal returns the compact JSON encoding of e.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Validate checks that every field is present and correctly sized. It does
// no cryptographic work.
func (e *Envelope) Validate() error {
	_, err := e.decode()
	return err
}

// Clone returns a copy of e.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

// decoded holds the binary form of a validated envelope.
type decoded struct {
	layout     *layout
	salt       []byte
	iv         []byte
	cipherText []byte
	mac        []byte
}

func (e *Envelope) decode() (*decoded, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: envelope is nil", ErrMalformedEnvelope)
	}
	if e.EncryptionMethod == "" {
		return nil, fmt.Errorf("%w: missing encryptionMethod", ErrMalformedEnvelope)
	}
	if e.EncryptionMethod != MethodNoteSV {
		return nil, fmt.Errorf("%w: unsupported encryptionMethod %q", ErrMalformedEnvelope, e.EncryptionMethod)
	}
	if e.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrMalformedEnvelope)
	}
	l, ok := layouts[e.Version]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedEnvelope, e.Version)
	}

	salt, err := decodeHexField("salt", e.Salt, SaltSize)
	if err != nil {
		return nil, err
	}
	iv, err := decodeHexField("iv", e.IV, IVSize)
	if err != nil {
		return nil, err
	}
	mac, err := decodeHexField("hmac", e.HMAC, MACSize)
	if err != nil {
		return nil, err
	}

	if e.EncryptedContent == "" {
		return nil, fmt.Errorf("%w: missing encryptedContent", ErrMalformedEnvelope)
	}
	cipherText, err := util.Base64Decode(e.EncryptedContent)
	if err != nil {
		return nil, fmt.Errorf("%w: encryptedContent is not valid base64", ErrMalformedEnvelope)
	}
	if len(cipherText) == 0 || len(cipherText)%util.AESBlockSize != 0 {
		return nil, fmt.Errorf("%w: encryptedContent length %d is not a positive multiple of %d",
			ErrMalformedEnvelope, len(cipherText), util.AESBlockSize)
	}

	if e.Iterations == 0 {
		return nil, fmt.Errorf("%w: missing iterations", ErrMalformedEnvelope)
	}
	if err := crypto.ValidateIterations(e.Iterations); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	return &decoded{layout: l, salt: salt, iv: iv, cipherText: cipherText, mac: mac}, nil
}

func decodeHexField(name, value string, size int) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedEnvelope, name)
	}
	if len(value) != size*2 {
		return nil, fmt.Errorf("%w: %s must be %d hex characters, got %d", ErrMalformedEnvelope, name, size*2, len(value))
	}
	b, err := util.HexDecode(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid hex", ErrMalformedEnvelope, name)
	}
	return b, nil
}
