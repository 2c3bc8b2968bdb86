package util

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

const (
	AESKeySize   = 32
	AESBlockSize = aes.BlockSize
)

// ErrCiphertextLength is returned when a CBC ciphertext is empty or not a
// whole number of blocks.
var ErrCiphertextLength = errors.New("ciphertext is not a positive multiple of the block size")

// EncryptAESCBC pads plainText with PKCS#7 and encrypts it with AES-256-CBC.
// The IV is supplied by the caller and is not included in the output.
func EncryptAESCBC(plainText, rawKey, iv []byte) ([]byte, error) {
	block, err := newBlock(rawKey, iv)
	if err != nil {
		return nil, err
	}

	padded := PadPKCS7(CopyBytes(plainText), AESBlockSize)
	defer WipeBytes(padded)

	cipherText := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, padded)
	return cipherText, nil
}

// DecryptAESCBC decrypts an AES-256-CBC ciphertext and strips PKCS#7 padding.
// Callers must authenticate the ciphertext before calling this.
func DecryptAESCBC(cipherText, rawKey, iv []byte) ([]byte, error) {
	block, err := newBlock(rawKey, iv)
	if err != nil {
		return nil, err
	}
	if len(cipherText) == 0 || len(cipherText)%AESBlockSize != 0 {
		return nil, ErrCiphertextLength
	}

	plainText := make([]byte, len(cipherText))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plainText, cipherText)

	unpadded, err := UnpadPKCS7(plainText, AESBlockSize)
	if err != nil {
		WipeBytes(plainText)
		return nil, err
	}
	return unpadded, nil
}

func newBlock(rawKey, iv []byte) (cipher.Block, error) {
	if len(rawKey) != AESKeySize {
		return nil, fmt.Errorf("invalid AES key size: got %d, want %d", len(rawKey), AESKeySize)
	}
	if len(iv) != AESBlockSize {
		return nil, fmt.Errorf("invalid IV size: got %d, want %d", len(iv), AESBlockSize)
	}
	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return block, nil
}
