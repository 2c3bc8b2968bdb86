package envelope

import "errors"

// Sentinel errors returned by envelope operations. Compare with errors.Is.
var (
	// ErrInvalidInput indicates an unusable argument, such as an empty
	// password or content that is not valid UTF-8.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedEnvelope indicates a structurally invalid envelope. It is
	// returned before any key derivation or decryption is attempted.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrDecryption is returned for a wrong password, tampered data, or bad
	// padding. The message is deliberately identical in every case.
	ErrDecryption = errors.New("invalid password or corrupted data")
)
