package stego

import (
	"pnger/pkg/stego/header"
	"pnger/pkg/stego/pattern"
	"pnger/pkg/stego/seed"
)

// headerSize predicts the serialized descriptor size in bytes for the given
// options, without resolving the seed source. Freshly generated salts always
// use seed.DefaultSaltLen, so the prediction is exact.
func headerSize(opts *Options) int {
	// Fixed section plus the minimum metadata section.
	size := header.FixedSize + 6
	cfg := opts.Strategy.LSB
	if cfg.Pattern.Kind != pattern.Random {
		return size
	}
	src := cfg.Pattern.Seed
	switch src.Kind() {
	case seed.Auto:
		size += seed.Size + 1 + seed.DefaultSaltLen
	case seed.Password:
		saltLen := len(src.Salt())
		if saltLen == 0 {
			saltLen = seed.DefaultSaltLen
		}
		size += 1 + saltLen
	}
	return size
}

// Capacity returns the maximum payload length in bytes that a carrier of n
// bytes can hold under opts. A nil opts selects DefaultOptions.
func Capacity(n int, opts *Options) int {
	if opts == nil {
		opts = DefaultOptions()
	}
	headerBits := headerSize(opts) * 8
	if n <= headerBits {
		return 0
	}
	return (n - headerBits) / 8
}
