package util

import (
	"bytes"
	"errors"
)

// ErrInvalidPadding is returned when PKCS#7 padding cannot be removed.
var ErrInvalidPadding = errors.New("invalid PKCS#7 padding")

// PadPKCS7 appends PKCS#7 padding to src. A full block is appended when src
// is already block aligned, so empty input yields one block.
func PadPKCS7(src []byte, blockSize int) []byte {
	padding := blockSize - (len(src) % blockSize)
	return append(src, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

// UnpadPKCS7 removes PKCS#7 padding from src. The returned slice aliases src.
func UnpadPKCS7(src []byte, blockSize int) ([]byte, error) {
	n := len(src)
	if n == 0 || n%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	padding := int(src[n-1])
	if padding == 0 || padding > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range src[n-padding:] {
		if int(b) != padding {
			return nil, ErrInvalidPadding
		}
	}
	return src[:n-padding], nil
}
