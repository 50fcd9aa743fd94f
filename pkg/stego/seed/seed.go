// Package seed turns a password, an explicit seed, or fresh system randomness
// into the 32-byte key that drives the random embedding schedule.
//
// Whatever the source, the resulting seed is the only state the scheduler
// depends on: the same seed always reproduces the same schedule, which is the
// property extraction relies on.
package seed

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// Size is the seed length in bytes.
	Size = 32

	// MinSaltLen is the minimum accepted salt length for password derivation.
	MinSaltLen = 8

	// DefaultSaltLen is the length of freshly generated salts.
	DefaultSaltLen = 16
)

// Argon2id cost parameters. These are part of the wire format contract: the
// header stores the salt but not the costs, so embedding and extraction must
// agree on them.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

var (
	// ErrEmptyPassword indicates a password source with an empty password.
	ErrEmptyPassword = errors.New("seed: empty password")

	// ErrSaltTooShort indicates a caller-supplied salt below MinSaltLen.
	ErrSaltTooShort = errors.New("seed: salt too short")
)

// Kind identifies how the seed is acquired.
type Kind uint8

const (
	// Auto generates seed and salt from system randomness; both are stored
	// in the image header so extraction needs no secret.
	Auto Kind = iota

	// Password derives the seed from a password and salt with Argon2id.
	// Only the salt is ever stored.
	Password

	// Manual uses a caller-supplied raw seed. Nothing is stored.
	Manual
)

// Source describes one seed-acquisition path. Exactly one is active per
// embed or extract call. The zero value is the Auto source.
type Source struct {
	kind     Kind
	password string
	seed     [Size]byte
	salt     []byte
}

// AutoSource returns the auto-generating source.
func AutoSource() Source {
	return Source{kind: Auto}
}

// PasswordSource returns a password-derived source. The salt is generated
// at resolve time.
func PasswordSource(password string) Source {
	return Source{kind: Password, password: password}
}

// PasswordSourceWithSalt returns a password-derived source using the given
// salt. The salt must be at least MinSaltLen bytes.
func PasswordSourceWithSalt(password string, salt []byte) Source {
	return Source{kind: Password, password: password, salt: salt}
}

// ManualSource returns a source that uses the raw seed as-is.
func ManualSource(s [Size]byte) Source {
	return Source{kind: Manual, seed: s}
}

// Kind reports the acquisition path of the source.
func (s Source) Kind() Kind { return s.kind }

// Password returns the configured password, if any.
func (s Source) Password() string { return s.password }

// Seed returns the configured manual seed.
func (s Source) Seed() [Size]byte { return s.seed }

// Salt returns the caller-supplied salt, if any.
func (s Source) Salt() []byte { return s.salt }

// Material is a resolved seed plus whatever must be persisted in the image
// header for extraction to re-derive the schedule.
type Material struct {
	Seed [Size]byte

	// Salt is non-nil for Auto and Password sources and is stored in the
	// header metadata. Salts are not secret.
	Salt []byte

	// StoreSeed reports whether the seed itself goes into the header
	// (true only for Auto).
	StoreSeed bool
}

// Resolve turns a Source into seed material, generating randomness or
// running key derivation as the source requires.
func Resolve(src Source) (*Material, error) {
	switch src.kind {
	case Auto:
		var m Material
		if err := randomBytes(m.Seed[:]); err != nil {
			return nil, err
		}
		m.Salt = make([]byte, DefaultSaltLen)
		if err := randomBytes(m.Salt); err != nil {
			return nil, err
		}
		m.StoreSeed = true
		return &m, nil

	case Password:
		salt := src.salt
		if salt == nil {
			salt = make([]byte, DefaultSaltLen)
			if err := randomBytes(salt); err != nil {
				return nil, err
			}
		}
		s, err := Derive(src.password, salt)
		if err != nil {
			return nil, err
		}
		return &Material{Seed: s, Salt: salt}, nil

	case Manual:
		return &Material{Seed: src.seed}, nil

	default:
		return nil, fmt.Errorf("seed: unknown source kind %d", src.kind)
	}
}

// Derive runs Argon2id over password and salt, producing the 32-byte seed.
// The same password and salt always yield the same seed.
func Derive(password string, salt []byte) ([Size]byte, error) {
	var s [Size]byte
	if password == "" {
		return s, ErrEmptyPassword
	}
	if len(salt) < MinSaltLen {
		return s, fmt.Errorf("%w: %d bytes, need at least %d", ErrSaltTooShort, len(salt), MinSaltLen)
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, Size)
	copy(s[:], key)
	return s, nil
}

func randomBytes(b []byte) error {
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("seed: random generation failed: %w", err)
	}
	return nil
}
