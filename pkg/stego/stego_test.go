package stego

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnger/pkg/stego/header"
	"pnger/pkg/stego/seed"
)

// Test helpers

func testCarrier(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i*31 + 7)
	}
	return buf
}

func testSeed() [seed.Size]byte {
	var s [seed.Size]byte
	for i := range s {
		s[i] = byte(0xA0 ^ i)
	}
	return s
}

// =============================================================================
// Round-trip tests
// =============================================================================

func TestRoundTripMatrix(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	carrier := testCarrier(8192)

	sources := map[string]seed.Source{
		"auto":     seed.AutoSource(),
		"password": seed.PasswordSource("hunter2"),
		"manual":   seed.ManualSource(testSeed()),
	}

	type testCase struct {
		name string
		opts func() *Options
	}
	var cases []testCase

	for _, bit := range []uint8{0, 1, 4, 7} {
		bit := bit
		cases = append(cases, testCase{
			name: fmt.Sprintf("linear/bit%d", bit),
			opts: func() *Options { return LinearOptions().WithBitIndex(bit) },
		})
		for name, src := range sources {
			name, src := name, src
			cases = append(cases, testCase{
				name: fmt.Sprintf("random/%s/bit%d", name, bit),
				opts: func() *Options { return RandomOptions(src).WithBitIndex(bit) },
			})
		}
	}

	for _, tc := range cases {
		for _, obf := range []bool{false, true} {
			name := tc.name
			if obf {
				name += "/obfuscated"
			}
			t.Run(name, func(t *testing.T) {
				buf := append([]byte(nil), carrier...)

				embedOpts := tc.opts()
				extractOpts := tc.opts()
				if obf {
					embedOpts.WithObfuscation([]byte("xor-key"))
					extractOpts.WithObfuscation([]byte("xor-key"))
				}

				res, err := Embed(buf, payload, embedOpts)
				require.NoError(t, err)
				assert.Greater(t, res.HeaderSize, 0)

				got, err := Extract(buf, extractOpts)
				require.NoError(t, err)
				assert.Equal(t, payload, got.Payload)
				assert.Equal(t, res.HeaderSize, got.HeaderSize)
				assert.Equal(t, res.SeedEmbedded, got.SeedWasEmbedded)
			})
		}
	}
}

func TestLinearHiScenario(t *testing.T) {
	// 64x64 8-bit RGBA carrier, payload "hi", linear, bit 0.
	buf := testCarrier(64 * 64 * 4)
	res, err := Embed(buf, []byte("hi"), LinearOptions())
	require.NoError(t, err)
	assert.False(t, res.SeedEmbedded)

	got, err := Extract(buf, LinearOptions())
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got.Payload)
}

func TestAutoSeedNeedsNoSecret(t *testing.T) {
	buf := testCarrier(4096)
	res, err := Embed(buf, []byte("secret"), DefaultOptions())
	require.NoError(t, err)
	require.True(t, res.SeedEmbedded)
	require.NotNil(t, res.Seed)
	require.Len(t, res.Salt, seed.DefaultSaltLen)

	// Extraction with empty default options must succeed: seed and salt
	// travel inside the image.
	got, err := Extract(buf, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), got.Payload)
}

func TestCallerPayloadNotMutated(t *testing.T) {
	buf := testCarrier(4096)
	payload := []byte("do not touch")
	snapshot := append([]byte(nil), payload...)

	_, err := Embed(buf, payload, DefaultOptions().WithObfuscation(nil))
	require.NoError(t, err)
	assert.Equal(t, snapshot, payload)
}

// =============================================================================
// Configuration errors
// =============================================================================

func TestEmptyPayloadRejected(t *testing.T) {
	buf := testCarrier(1024)
	snapshot := append([]byte(nil), buf...)

	_, err := Embed(buf, nil, LinearOptions())
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.Equal(t, snapshot, buf)
}

func TestBitIndexRejected(t *testing.T) {
	buf := testCarrier(1024)
	_, err := Embed(buf, []byte("x"), LinearOptions().WithBitIndex(8))
	assert.ErrorIs(t, err, ErrBitIndexRange)
}

func TestEmptyObfuscationKeyRejected(t *testing.T) {
	buf := testCarrier(1024)
	_, err := Embed(buf, []byte("x"), LinearOptions().WithObfuscation([]byte{}))
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestEmptyPasswordRejected(t *testing.T) {
	buf := testCarrier(4096)
	snapshot := append([]byte(nil), buf...)

	_, err := Embed(buf, []byte("x"), RandomOptions(seed.PasswordSource("")))
	assert.ErrorIs(t, err, ErrEmptyPassword)
	assert.Equal(t, snapshot, buf)
}

func TestShortSaltRejected(t *testing.T) {
	buf := testCarrier(4096)
	_, err := Embed(buf, []byte("x"), RandomOptions(seed.PasswordSourceWithSalt("pw", []byte("tiny"))))
	assert.ErrorIs(t, err, ErrSaltTooShort)
}

// =============================================================================
// Capacity
// =============================================================================

func TestCapacityBoundary(t *testing.T) {
	opts := func() *Options { return RandomOptions(seed.ManualSource(testSeed())) }

	// Manual seed: descriptor is fixed-size, so capacity is exact.
	hdrBits := headerSize(opts()) * 8
	payload := bytes.Repeat([]byte{0x5A}, 64)
	exact := hdrBits + len(payload)*8

	buf := testCarrier(exact)
	_, err := Embed(buf, payload, opts())
	require.NoError(t, err, "payload filling capacity exactly must embed")

	got, err := Extract(buf, opts())
	require.NoError(t, err)
	assert.Equal(t, payload, got.Payload)

	// One carrier byte short: must fail without touching the buffer.
	short := testCarrier(exact - 1)
	snapshot := append([]byte(nil), short...)
	_, err = Embed(short, payload, opts())

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, exact, capErr.Needed)
	assert.Equal(t, exact-1, capErr.Available)
	assert.Equal(t, snapshot, short, "failed embed must leave the carrier unmodified")
}

func TestCapacityHelper(t *testing.T) {
	opts := RandomOptions(seed.ManualSource(testSeed()))
	n := 10000
	max := Capacity(n, opts)
	require.Greater(t, max, 0)

	buf := testCarrier(n)
	_, err := Embed(buf, bytes.Repeat([]byte{1}, max), RandomOptions(seed.ManualSource(testSeed())))
	assert.NoError(t, err, "payload of Capacity() bytes must fit")

	buf = testCarrier(n)
	_, err = Embed(buf, bytes.Repeat([]byte{1}, max+1), RandomOptions(seed.ManualSource(testSeed())))
	var capErr *CapacityError
	assert.ErrorAs(t, err, &capErr, "payload of Capacity()+1 bytes must not fit")
}

func TestTinyCarrier(t *testing.T) {
	buf := testCarrier(16)
	_, err := Embed(buf, []byte("x"), LinearOptions())
	var capErr *CapacityError
	assert.ErrorAs(t, err, &capErr)

	_, err = Extract(buf, nil)
	assert.ErrorAs(t, err, &capErr)
}

// =============================================================================
// Format errors and tampering
// =============================================================================

func TestHeaderTamperFailsExtraction(t *testing.T) {
	buf := testCarrier(4096)
	res, err := Embed(buf, []byte("payload"), DefaultOptions())
	require.NoError(t, err)

	// Flip one carrier bit inside the descriptor region.
	for _, carrierOff := range []int{0, header.FixedSize*8 - 1, res.HeaderSize*8 - 1} {
		tampered := append([]byte(nil), buf...)
		tampered[carrierOff] ^= 0x01

		_, err := Extract(tampered, nil)
		require.Error(t, err, "tamper at carrier offset %d", carrierOff)
		assert.False(t, errors.As(err, new(*CapacityError)),
			"tamper must surface as a format error, not capacity")
	}
}

func TestForeignImageRejected(t *testing.T) {
	_, err := Extract(testCarrier(4096), nil)
	assert.ErrorIs(t, err, header.ErrBadMagic)
}

func TestTruncatedImageRejected(t *testing.T) {
	buf := testCarrier(8192)
	_, err := Embed(buf, bytes.Repeat([]byte{0xEE}, 512), LinearOptions())
	require.NoError(t, err)

	// Cut the carrier below what the descriptor claims.
	truncated := buf[:1024]
	_, err = Extract(truncated, nil)
	var capErr *CapacityError
	assert.ErrorAs(t, err, &capErr)
}

// =============================================================================
// Secrets
// =============================================================================

func TestWrongPassword(t *testing.T) {
	buf := testCarrier(8192)
	payload := []byte("hi")
	_, err := Embed(buf, payload, RandomOptions(seed.PasswordSource("pw1")))
	require.NoError(t, err)

	got, err := Extract(buf, RandomOptions(seed.PasswordSource("pw2")))
	if err == nil {
		assert.NotEqual(t, payload, got.Payload,
			"wrong password must never reproduce the payload")
	}
}

func TestWrongManualSeed(t *testing.T) {
	buf := testCarrier(8192)
	payload := []byte("manual payload")
	_, err := Embed(buf, payload, RandomOptions(seed.ManualSource(testSeed())))
	require.NoError(t, err)

	other := testSeed()
	other[0] ^= 0xFF
	got, err := Extract(buf, RandomOptions(seed.ManualSource(other)))
	if err == nil {
		assert.NotEqual(t, payload, got.Payload)
	}
}

func TestPasswordRequiredOnExtract(t *testing.T) {
	buf := testCarrier(8192)
	_, err := Embed(buf, []byte("x"), RandomOptions(seed.PasswordSource("pw")))
	require.NoError(t, err)

	_, err = Extract(buf, nil)
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestSeedRequiredOnExtract(t *testing.T) {
	buf := testCarrier(8192)
	_, err := Embed(buf, []byte("x"), RandomOptions(seed.ManualSource(testSeed())))
	require.NoError(t, err)

	_, err = Extract(buf, nil)
	assert.ErrorIs(t, err, ErrSeedRequired)
}

func TestObfuscationDefaultKey(t *testing.T) {
	buf := testCarrier(4096)
	payload := []byte("weakly hidden")
	_, err := Embed(buf, payload, LinearOptions().WithObfuscation(nil))
	require.NoError(t, err)

	// Extraction without any key configuration falls back to the same
	// default key.
	got, err := Extract(buf, LinearOptions())
	require.NoError(t, err)
	assert.Equal(t, payload, got.Payload)
}

func TestDeterministicEmbedding(t *testing.T) {
	// Same manual seed and carrier: byte-identical output across runs.
	payload := []byte("determinism")
	a := testCarrier(4096)
	b := testCarrier(4096)

	_, err := Embed(a, payload, RandomOptions(seed.ManualSource(testSeed())))
	require.NoError(t, err)
	_, err = Embed(b, payload, RandomOptions(seed.ManualSource(testSeed())))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
