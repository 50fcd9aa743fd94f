// Package pattern produces the ordered carrier byte offsets that receive
// payload bits during embedding and yield them back during extraction.
//
// The header region at the front of the carrier is always scheduled linearly,
// so extraction can bootstrap without knowing the configured pattern. Payload
// schedules operate on the universe that starts after the header region and
// therefore can never collide with it.
package pattern

import (
	"errors"
	"fmt"

	"pnger/pkg/stego/seed"
)

// Kind selects the ordering of carrier offsets.
type Kind uint8

const (
	// Linear visits eligible offsets in ascending order.
	Linear Kind = iota

	// Random visits eligible offsets in a keyed pseudorandom permutation.
	Random
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ErrUniverseExhausted indicates a request for more positions than the
// eligible universe holds. Callers are expected to have checked capacity
// before scheduling; this is the scheduler's own guard.
var ErrUniverseExhausted = errors.New("pattern: universe exhausted")

// Offsets returns the first count carrier offsets, in embedding order, of
// the universe [base, base+size). Random ordering consumes the stream; the
// same stream state and universe always produce the same order. Linear
// ordering ignores the stream.
func Offsets(kind Kind, base, size, count int, s *seed.Stream) ([]int, error) {
	if count > size {
		return nil, fmt.Errorf("%w: need %d positions, have %d", ErrUniverseExhausted, count, size)
	}

	switch kind {
	case Linear:
		offs := make([]int, count)
		for i := range offs {
			offs[i] = base + i
		}
		return offs, nil

	case Random:
		if s == nil {
			return nil, errors.New("pattern: random schedule requires a keyed stream")
		}
		// Fisher-Yates over the full universe, then truncate. The full
		// shuffle keeps the order independent of count, so embed and
		// extract agree even when they request different prefixes.
		offs := make([]int, size)
		for i := range offs {
			offs[i] = base + i
		}
		for i := size - 1; i > 0; i-- {
			j := s.Intn(i + 1)
			offs[i], offs[j] = offs[j], offs[i]
		}
		return offs[:count], nil

	default:
		return nil, fmt.Errorf("pattern: unknown kind %d", kind)
	}
}
