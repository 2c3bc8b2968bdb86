package icrypto

import (
	"fmt"

	"github.com/jmcleod/inkseal/internal/util"
)

const (
	encKeyInfo = "notesv:enc-key:v2"
	macKeyInfo = "notesv:mac-key:v2"
)

// DeriveSubkeys expands one password-derived master key into independent
// encryption and authentication keys.
func DeriveSubkeys(master, salt []byte) (encKey, macKey []byte, err error) {
	encKey, err = util.HKDF(master, salt, []byte(encKeyInfo))
	if err != nil {
		return nil, nil, fmt.Errorf("deriving encryption key: %w", err)
	}
	macKey, err = util.HKDF(master, salt, []byte(macKeyInfo))
	if err != nil {
		util.WipeBytes(encKey)
		return nil, nil, fmt.Errorf("deriving mac key: %w", err)
	}
	return encKey, macKey, nil
}
