package stego

import (
	"errors"
	"fmt"

	"pnger/pkg/stego/obfuscate"
	"pnger/pkg/stego/seed"
)

// Configuration errors. These are rejected before any carrier access.
var (
	// ErrEmptyPayload indicates an embed call with no payload bytes.
	ErrEmptyPayload = errors.New("stego: empty payload")

	// ErrBitIndexRange indicates a bit index outside 0..7.
	ErrBitIndexRange = errors.New("stego: bit index out of range")

	// ErrUnknownStrategy indicates a strategy this version does not implement.
	ErrUnknownStrategy = errors.New("stego: unknown strategy")

	// ErrPasswordRequired indicates extraction of a password-scheduled image
	// without a password in the options.
	ErrPasswordRequired = errors.New("stego: password required")

	// ErrSeedRequired indicates extraction of a manually-seeded image
	// without the seed in the options.
	ErrSeedRequired = errors.New("stego: seed required")

	// ErrEmptyKey re-exports the obfuscation error for an explicit
	// zero-length key.
	ErrEmptyKey = obfuscate.ErrEmptyKey

	// ErrEmptyPassword re-exports the seed error for an empty password.
	ErrEmptyPassword = seed.ErrEmptyPassword

	// ErrSaltTooShort re-exports the seed error for an undersized salt.
	ErrSaltTooShort = seed.ErrSaltTooShort
)

// CapacityError reports that the carrier cannot hold the descriptor plus
// payload. Embedding fails with it before the buffer is touched; during
// extraction it indicates a buffer smaller than the descriptor claims,
// i.e. truncated or corrupted input. Units are carrier bytes (one payload
// bit occupies one carrier byte).
type CapacityError struct {
	Needed    int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("stego: insufficient capacity: need %d carrier bytes, have %d", e.Needed, e.Available)
}

// KeyDerivationError reports a failure inside seed resolution or generator
// setup that is not a plain configuration mistake.
type KeyDerivationError struct {
	Err error
}

func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("stego: key derivation failed: %v", e.Err)
}

func (e *KeyDerivationError) Unwrap() error { return e.Err }

// wrapSeedErr classifies errors from the seed package: configuration
// mistakes pass through unchanged, everything else becomes a
// KeyDerivationError.
func wrapSeedErr(err error) error {
	if errors.Is(err, seed.ErrEmptyPassword) || errors.Is(err, seed.ErrSaltTooShort) {
		return err
	}
	return &KeyDerivationError{Err: err}
}
