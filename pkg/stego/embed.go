package stego

import (
	"errors"

	"pnger/pkg/stego/header"
	"pnger/pkg/stego/obfuscate"
	"pnger/pkg/stego/pattern"
	"pnger/pkg/stego/seed"
)

// DefaultObfuscationKey is the key used when obfuscation is requested
// without an explicit key. It is public and guessable: the default provides
// casual-inspection confidentiality only.
var DefaultObfuscationKey = obfuscate.DefaultKey

// EmbedResult reports what an embed operation did to the carrier.
type EmbedResult struct {
	// BytesUsed is the number of carrier bytes that received a bit,
	// descriptor region included.
	BytesUsed int

	// HeaderSize is the serialized descriptor size in bytes. The
	// descriptor occupies HeaderSize*8 carrier bytes.
	HeaderSize int

	// SeedEmbedded reports whether the schedule seed was stored in the
	// descriptor (auto seed source only).
	SeedEmbedded bool

	// Seed and Salt echo material generated during this call, when any.
	// An auto seed is already stored in the image; the echo is for callers
	// that want to record it independently.
	Seed *[seed.Size]byte
	Salt []byte
}

// Embed hides payload inside buf according to opts, mutating buf in place.
// A nil opts selects DefaultOptions.
//
// Embedding is atomic: every configuration and capacity check runs before
// the first carrier byte is written, so a failed call leaves buf unchanged.
func Embed(buf, payload []byte, opts *Options) (*EmbedResult, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if opts.Strategy.Kind != StrategyLSB {
		return nil, ErrUnknownStrategy
	}
	cfg := opts.Strategy.LSB
	if cfg.BitIndex > 7 {
		return nil, ErrBitIndexRange
	}
	key, err := opts.obfuscationKey()
	if err != nil {
		return nil, err
	}

	// Resolve the seed source. For random patterns this may generate the
	// seed and salt that end up in the descriptor.
	var (
		mat      *seed.Material
		seedKind = header.SeedNone
	)
	if cfg.Pattern.Kind == pattern.Random {
		mat, err = seed.Resolve(cfg.Pattern.Seed)
		if err != nil {
			return nil, wrapSeedErr(err)
		}
		switch cfg.Pattern.Seed.Kind() {
		case seed.Auto:
			seedKind = header.SeedAuto
		case seed.Password:
			seedKind = header.SeedPassword
		case seed.Manual:
			seedKind = header.SeedManual
		}
	}

	h, err := header.Build(cfg.Pattern.Kind, cfg.BitIndex, uint32(len(payload)), seedKind, mat, key != nil)
	if err != nil {
		return nil, err
	}
	headerBytes, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}

	headerBits := len(headerBytes) * 8
	needed := headerBits + len(payload)*8
	if needed > len(buf) {
		return nil, &CapacityError{Needed: needed, Available: len(buf)}
	}

	// Plan the payload schedule before writing anything.
	var stream *seed.Stream
	if cfg.Pattern.Kind == pattern.Random {
		stream, err = seed.NewStream(mat.Seed)
		if err != nil {
			return nil, &KeyDerivationError{Err: err}
		}
	}
	offs, err := pattern.Offsets(cfg.Pattern.Kind, headerBits, len(buf)-headerBits, len(payload)*8, stream)
	if err != nil {
		if errors.Is(err, pattern.ErrUniverseExhausted) {
			return nil, &CapacityError{Needed: needed, Available: len(buf)}
		}
		return nil, err
	}

	// The caller's payload slice is never mutated; obfuscation works on a
	// copy.
	body := append([]byte(nil), payload...)
	if key != nil {
		if err := obfuscate.XOR(body, key); err != nil {
			return nil, err
		}
	}

	// Commit: descriptor first via the fixed linear schedule at bit 0,
	// then the payload via the configured schedule.
	linear, err := pattern.Offsets(pattern.Linear, 0, headerBits, headerBits, nil)
	if err != nil {
		return nil, err
	}
	if err := writeBits(buf, linear, headerBytes, 0); err != nil {
		return nil, err
	}
	if err := writeBits(buf, offs, body, cfg.BitIndex); err != nil {
		return nil, err
	}

	res := &EmbedResult{
		BytesUsed:    needed,
		HeaderSize:   len(headerBytes),
		SeedEmbedded: seedKind == header.SeedAuto,
	}
	if mat != nil {
		if mat.StoreSeed {
			s := mat.Seed
			res.Seed = &s
		}
		res.Salt = mat.Salt
	}
	return res, nil
}
