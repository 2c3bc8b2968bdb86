// Package document wraps sealed envelopes in publishable document packages,
// prices their storage and publishes them to a ledger.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmcleod/inkseal/envelope"
)

// PackageVersion is written into every new package.
const PackageVersion = "2.0"

// legacyPackageVersion is the compact package produced by the NoteSV web
// app: an envelope plus free-form metadata.
const legacyPackageVersion = "1.0"

var (
	// ErrInvalidPackage is returned for packages that cannot be decoded or
	// are missing required fields.
	ErrInvalidPackage = errors.New("invalid document package")

	// ErrNotEncrypted is returned when a package claims to be encrypted but
	// carries no envelope.
	ErrNotEncrypted = errors.New("package is not encrypted")
)

// Metadata describes a document. Title and Author are stored at the top
// level of the package; the rest under "metadata".
type Metadata struct {
	Title       string
	Author      string
	Description string
	Tags        []string
	Category    string
}

// Details is the free-form descriptive part of a package.
type Details struct {
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// Package is the unit stored on a ledger. When Encrypted is set, Content is
// empty and Encryption carries the sealed text.
type Package struct {
	Version        string             `json:"version"`
	Timestamp      int64              `json:"timestamp"`
	Author         string             `json:"author,omitempty"`
	Title          string             `json:"title,omitempty"`
	Content        string             `json:"content,omitempty"`
	ContentHash    string             `json:"contentHash,omitempty"`
	Encrypted      bool               `json:"encrypted"`
	Encryption     *envelope.Envelope `json:"encryption,omitempty"`
	WordCount      int                `json:"wordCount"`
	CharacterCount int                `json:"characterCount"`
	Details        *Details           `json:"metadata,omitempty"`
}

// now is replaced in tests.
var now = time.Now

// Seal encrypts content under password with a cipher configured by opts and
// wraps it in a package.
func Seal(content, password string, meta Metadata, opts ...envelope.Option) (*Package, error) {
	c, err := envelope.New(opts...)
	if err != nil {
		return nil, err
	}
	return SealWith(c, content, password, meta)
}

// SealWith is Seal with an existing cipher.
func SealWith(c *envelope.Cipher, content, password string, meta Metadata) (*Package, error) {
	env, err := c.Encrypt(content, password)
	if err != nil {
		return nil, err
	}
	pkg := newPackage(content, meta)
	pkg.Encrypted = true
	pkg.Encryption = env
	return pkg, nil
}

// NewPlain wraps content in an unencrypted package.
func NewPlain(content string, meta Metadata) *Package {
	pkg := newPackage(content, meta)
	pkg.Content = content
	return pkg
}

func newPackage(content string, meta Metadata) *Package {
	pkg := &Package{
		Version:        PackageVersion,
		Timestamp:      now().UnixMilli(),
		Author:         meta.Author,
		Title:          meta.Title,
		ContentHash:    ContentHash(content),
		WordCount:      WordCount(content),
		CharacterCount: CharacterCount(content),
	}
	if meta.Description != "" || len(meta.Tags) > 0 || meta.Category != "" {
		pkg.Details = &Details{
			Description: meta.Description,
			Tags:        append([]string(nil), meta.Tags...),
			Category:    meta.Category,
		}
	}
	return pkg
}

// Open returns the plaintext of pkg. Encrypted packages are decrypted with
// password and the result is checked against ContentHash; a mismatch is
// reported as envelope.ErrDecryption.
func Open(pkg *Package, password string) (string, error) {
	return OpenWith(nil, pkg, password)
}

// OpenWith is Open with an existing cipher. A nil cipher uses the defaults.
func OpenWith(c *envelope.Cipher, pkg *Package, password string) (string, error) {
	if pkg == nil {
		return "", fmt.Errorf("%w: package is nil", ErrInvalidPackage)
	}
	if !pkg.Encrypted {
		if pkg.ContentHash != "" && ContentHash(pkg.Content) != pkg.ContentHash {
			return "", fmt.Errorf("%w: content hash mismatch", ErrInvalidPackage)
		}
		return pkg.Content, nil
	}
	if pkg.Encryption == nil {
		return "", ErrNotEncrypted
	}

	var (
		content string
		err     error
	)
	if c != nil {
		content, err = c.Decrypt(pkg.Encryption, password)
	} else {
		content, err = envelope.Decrypt(pkg.Encryption, password)
	}
	if err != nil {
		return "", err
	}
	if pkg.ContentHash != "" && ContentHash(content) != pkg.ContentHash {
		return "", envelope.ErrDecryption
	}
	return content, nil
}

// Marshal returns the compact JSON encoding of pkg.
func (p *Package) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Summary is the public view of a package: everything except the sealed or
// plain content.
type Summary struct {
	Version        string   `json:"version"`
	Timestamp      int64    `json:"timestamp"`
	Author         string   `json:"author,omitempty"`
	Title          string   `json:"title,omitempty"`
	ContentHash    string   `json:"contentHash,omitempty"`
	Encrypted      bool     `json:"encrypted"`
	WordCount      int      `json:"wordCount"`
	CharacterCount int      `json:"characterCount"`
	Details        *Details `json:"metadata,omitempty"`
}

// Summary returns the descriptive fields of p.
func (p *Package) Summary() Summary {
	return Summary{
		Version:        p.Version,
		Timestamp:      p.Timestamp,
		Author:         p.Author,
		Title:          p.Title,
		ContentHash:    p.ContentHash,
		Encrypted:      p.Encrypted,
		WordCount:      p.WordCount,
		CharacterCount: p.CharacterCount,
		Details:        p.Details,
	}
}

// legacyMetadata is the metadata block of a 1.0 package.
type legacyMetadata struct {
	Details
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Unmarshal decodes a package. It also accepts the compact 1.0 layout
// {"version":"1.0","encryption":{...},"metadata":{...}}.
func Unmarshal(data []byte) (*Package, error) {
	var raw struct {
		Package
		Encrypted *bool           `json:"encrypted"`
		Metadata  json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	pkg := raw.Package
	if pkg.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidPackage)
	}

	if len(raw.Metadata) > 0 && string(raw.Metadata) != "null" {
		var meta legacyMetadata
		if err := json.Unmarshal(raw.Metadata, &meta); err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidPackage, err)
		}
		d := meta.Details
		if d.Description != "" || len(d.Tags) > 0 || d.Category != "" {
			pkg.Details = &d
		}
		if pkg.Version == legacyPackageVersion {
			if pkg.Title == "" {
				pkg.Title = meta.Title
			}
			if pkg.Author == "" {
				pkg.Author = meta.Author
			}
			if pkg.Timestamp == 0 {
				pkg.Timestamp = meta.Timestamp
			}
		}
	}

	switch {
	case raw.Encrypted != nil:
		pkg.Encrypted = *raw.Encrypted
	case pkg.Encryption != nil:
		pkg.Encrypted = true
	}

	if pkg.Encrypted && pkg.Encryption == nil {
		return nil, ErrNotEncrypted
	}
	if pkg.Encryption != nil {
		// The web app never wrote a version inside the encryption block.
		if pkg.Version == legacyPackageVersion && pkg.Encryption.Version == "" {
			pkg.Encryption.Version = envelope.Version1
		}
		if err := pkg.Encryption.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPackage, err)
		}
	}
	return &pkg, nil
}
