package icrypto

import (
	"encoding/binary"

	"github.com/jmcleod/inkseal/internal/util"
)

const macDomain = "NOTESV-MAC"

// MACInputLegacy reproduces the 1.0 layout: the hex salt, hex IV and base64
// ciphertext exactly as they appear in the envelope, concatenated as text.
func MACInputLegacy(saltHex, ivHex, cipherTextB64 string) []byte {
	return util.Concat([]byte(saltHex), []byte(ivHex), []byte(cipherTextB64))
}

// MACInput binds the envelope header and the raw salt, IV and ciphertext
// into an unambiguous, length-prefixed byte string.
func MACInput(method, version string, iterations int, salt, iv, cipherText []byte) []byte {
	return buildMACInput(macDomain, method, version, uint64(iterations), salt, iv, cipherText)
}

func buildMACInput(parts ...any) []byte {
	var res []byte
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			res = appendLenPrefix(res, []byte(v))
		case []byte:
			res = appendLenPrefix(res, v)
		case uint64:
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, v)
			res = append(res, b...)
		}
	}
	return res
}

func appendLenPrefix(b, data []byte) []byte {
	l := make([]byte, 4)
	binary.BigEndian.PutUint32(l, uint32(len(data)))
	b = append(b, l...)
	b = append(b, data...)
	return b
}
