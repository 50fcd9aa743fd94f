package stego

import (
	"errors"

	"pnger/pkg/stego/header"
	"pnger/pkg/stego/obfuscate"
	"pnger/pkg/stego/pattern"
	"pnger/pkg/stego/seed"
)

// ExtractResult carries a recovered payload and descriptor facts.
type ExtractResult struct {
	Payload []byte

	// HeaderSize is the serialized descriptor size in bytes.
	HeaderSize int

	// SeedWasEmbedded reports whether the image carried its own seed
	// (auto seed source at embed time).
	SeedWasEmbedded bool
}

// Extract recovers the payload embedded in buf. The buffer is read, never
// mutated. opts supply whatever the descriptor cannot: the password for a
// password-derived schedule, the raw seed for a manual one, the key for
// obfuscated payloads. Values the descriptor does declare (pattern kind,
// bit index, embedded seed and salt) take precedence over the options.
//
// A wrong password or seed is not detectable here: the descriptor checksum
// still passes and the call returns pseudorandom bytes. Only the secrets
// used at embed time reproduce the payload.
func Extract(buf []byte, opts *Options) (*ExtractResult, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Bootstrap: the fixed descriptor section always sits at the front,
	// linearly scheduled at bit index 0.
	fixedBits := header.FixedSize * 8
	if len(buf) < fixedBits {
		return nil, &CapacityError{Needed: fixedBits, Available: len(buf)}
	}
	linear, err := pattern.Offsets(pattern.Linear, 0, fixedBits, fixedBits, nil)
	if err != nil {
		return nil, err
	}
	fixedBytes, err := readBits(buf, linear, 0)
	if err != nil {
		return nil, err
	}
	f, err := header.ParseFixed(fixedBytes)
	if err != nil {
		return nil, err
	}

	headerBits := f.TotalSize() * 8
	if len(buf) < headerBits {
		return nil, &CapacityError{Needed: headerBits, Available: len(buf)}
	}
	metaOffs, err := pattern.Offsets(pattern.Linear, fixedBits, headerBits-fixedBits, headerBits-fixedBits, nil)
	if err != nil {
		return nil, err
	}
	metaBytes, err := readBits(buf, metaOffs, 0)
	if err != nil {
		return nil, err
	}
	m, err := header.ParseMetadata(f, metaBytes)
	if err != nil {
		return nil, err
	}

	needed := headerBits + int(f.PayloadLen)*8
	if needed > len(buf) {
		return nil, &CapacityError{Needed: needed, Available: len(buf)}
	}

	// Rebuild the payload schedule exactly as at embed time.
	var stream *seed.Stream
	if m.PatternKind == pattern.Random {
		var sd [seed.Size]byte
		switch f.Flags.SeedKind() {
		case header.SeedAuto:
			sd = *m.Seed
		case header.SeedPassword:
			pw, ok := opts.password()
			if !ok {
				return nil, ErrPasswordRequired
			}
			sd, err = seed.Derive(pw, m.Salt)
			if err != nil {
				return nil, wrapSeedErr(err)
			}
		case header.SeedManual:
			var ok bool
			sd, ok = opts.manualSeed()
			if !ok {
				return nil, ErrSeedRequired
			}
		default:
			return nil, errors.New("stego: descriptor declares random pattern without seed source")
		}
		stream, err = seed.NewStream(sd)
		if err != nil {
			return nil, &KeyDerivationError{Err: err}
		}
	}

	offs, err := pattern.Offsets(m.PatternKind, headerBits, len(buf)-headerBits, int(f.PayloadLen)*8, stream)
	if err != nil {
		if errors.Is(err, pattern.ErrUniverseExhausted) {
			return nil, &CapacityError{Needed: needed, Available: len(buf)}
		}
		return nil, err
	}
	payload, err := readBits(buf, offs, m.BitIndex)
	if err != nil {
		return nil, err
	}

	if f.Flags&header.FlagObfuscated != 0 {
		key, err := opts.obfuscationKey()
		if err != nil {
			return nil, err
		}
		if key == nil {
			key = DefaultObfuscationKey
		}
		if err := obfuscate.XOR(payload, key); err != nil {
			return nil, err
		}
	}

	return &ExtractResult{
		Payload:         payload,
		HeaderSize:      f.TotalSize(),
		SeedWasEmbedded: f.Flags.SeedKind() == header.SeedAuto,
	}, nil
}
