package stego

import (
	"pnger/pkg/stego/pattern"
	"pnger/pkg/stego/seed"
)

// StrategyKind identifies the embedding strategy family.
type StrategyKind uint8

// StrategyLSB is least-significant-bit substitution, currently the only
// strategy. The tag exists so new strategies can be added without changing
// the engine's contract.
const StrategyLSB StrategyKind = iota

// Strategy selects and configures the embedding strategy.
type Strategy struct {
	Kind StrategyKind
	LSB  LSBConfig
}

// LSBConfig configures the LSB strategy.
type LSBConfig struct {
	// BitIndex is the bit position written in each carrier byte, 0 (least
	// significant) through 7. Values outside the range are a configuration
	// error, never clamped.
	BitIndex uint8

	Pattern PatternConfig
}

// PatternConfig selects the payload schedule.
type PatternConfig struct {
	Kind pattern.Kind

	// Seed is consulted only when Kind is pattern.Random.
	Seed seed.Source
}

// Obfuscation requests the XOR payload transform. A nil Key selects the
// fixed default key.
type Obfuscation struct {
	Key []byte
}

// Options configure one embed or extract call. The engine treats them as
// immutable for the duration of the call.
type Options struct {
	Strategy    Strategy
	Obfuscation *Obfuscation
}

// DefaultOptions returns the default configuration: LSB, random pattern,
// auto-generated seed, bit index 0, no obfuscation.
func DefaultOptions() *Options {
	return RandomOptions(seed.AutoSource())
}

// LinearOptions returns LSB options with the linear pattern.
func LinearOptions() *Options {
	return &Options{Strategy: Strategy{Kind: StrategyLSB, LSB: LSBConfig{
		Pattern: PatternConfig{Kind: pattern.Linear},
	}}}
}

// RandomOptions returns LSB options with the keyed random pattern.
func RandomOptions(src seed.Source) *Options {
	return &Options{Strategy: Strategy{Kind: StrategyLSB, LSB: LSBConfig{
		Pattern: PatternConfig{Kind: pattern.Random, Seed: src},
	}}}
}

// WithBitIndex sets the target bit index and returns the options.
func (o *Options) WithBitIndex(i uint8) *Options {
	o.Strategy.LSB.BitIndex = i
	return o
}

// WithObfuscation enables the XOR transform. A nil key selects the default
// key.
func (o *Options) WithObfuscation(key []byte) *Options {
	o.Obfuscation = &Obfuscation{Key: key}
	return o
}

// password returns the password carried by the options, if any.
func (o *Options) password() (string, bool) {
	src := o.Strategy.LSB.Pattern.Seed
	if src.Kind() == seed.Password {
		return src.Password(), true
	}
	return "", false
}

// manualSeed returns the manual seed carried by the options, if any.
func (o *Options) manualSeed() ([seed.Size]byte, bool) {
	src := o.Strategy.LSB.Pattern.Seed
	if src.Kind() == seed.Manual {
		return src.Seed(), true
	}
	return [seed.Size]byte{}, false
}

// obfuscationKey validates and returns the effective obfuscation key, or
// nil when obfuscation is not requested.
func (o *Options) obfuscationKey() ([]byte, error) {
	if o.Obfuscation == nil {
		return nil, nil
	}
	if o.Obfuscation.Key == nil {
		return DefaultObfuscationKey, nil
	}
	if len(o.Obfuscation.Key) == 0 {
		return nil, ErrEmptyKey
	}
	return o.Obfuscation.Key, nil
}
