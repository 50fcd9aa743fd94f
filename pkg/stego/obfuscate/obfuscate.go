// Package obfuscate applies the optional confidentiality transform to
// payloads before embedding and after extraction.
package obfuscate

import "errors"

// DefaultKey is used when obfuscation is requested without an explicit key.
// It is a fixed, public constant: it hides the payload from casual
// inspection only and is not a security mechanism.
var DefaultKey = []byte("pnger/xor/v1")

// ErrEmptyKey indicates an explicit zero-length key.
var ErrEmptyKey = errors.New("obfuscate: empty key")

// XOR transforms data in place, XORing each byte with the key byte at the
// same index modulo the key length. The transform is involutive: applying it
// twice with the same key restores the input.
func XOR(data, key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	for i := range data {
		data[i] ^= key[i%len(key)]
	}
	return nil
}
