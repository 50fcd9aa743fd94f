package seed

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// streamBlock is the keystream refill granularity.
const streamBlock = 512

// Stream is a deterministic pseudorandom source keyed by a seed. It reads
// the ChaCha20 keystream for the seed under a fixed all-zero nonce, so two
// streams built from the same seed produce identical output bit-for-bit,
// across calls, processes, and machines.
//
// A Stream is owned by a single scheduler for the duration of one embed or
// extract call and is not safe for concurrent use.
type Stream struct {
	cipher *chacha20.Cipher
	buf    [streamBlock]byte
	pos    int
}

// NewStream creates a keyed stream positioned at the start of the keystream.
func NewStream(key [Size]byte) (*Stream, error) {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], make([]byte, chacha20.NonceSize))
	if err != nil {
		return nil, fmt.Errorf("seed: stream init: %w", err)
	}
	s := &Stream{cipher: c}
	s.refill()
	return s, nil
}

func (s *Stream) refill() {
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.cipher.XORKeyStream(s.buf[:], s.buf[:])
	s.pos = 0
}

// Uint32 returns the next 32 bits of the keystream.
func (s *Stream) Uint32() uint32 {
	if s.pos+4 > len(s.buf) {
		s.refill()
	}
	v := binary.BigEndian.Uint32(s.buf[s.pos:])
	s.pos += 4
	return v
}

// Intn returns a uniform value in [0, n). It uses rejection sampling so the
// result is bias-free, which keeps the shuffle a true permutation draw.
// Panics if n is not in [1, 1<<31].
func (s *Stream) Intn(n int) int {
	if n <= 0 || n > 1<<31 {
		panic(fmt.Sprintf("seed: Intn bound %d out of range", n))
	}
	bound := uint32(n)
	// Largest multiple of bound that fits in a uint32.
	limit := (1<<32 - uint64(1<<32)%uint64(bound))
	for {
		v := s.Uint32()
		if uint64(v) < limit {
			return int(v % bound)
		}
	}
}
