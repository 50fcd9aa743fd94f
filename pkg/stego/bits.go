package stego

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// setBit returns carrier with the bit at index set to bit.
func setBit(carrier byte, index uint8, bit bool) byte {
	if bit {
		return carrier | 1<<index
	}
	return carrier &^ (1 << index)
}

// getBit returns the bit at index of carrier.
func getBit(carrier byte, index uint8) bool {
	return carrier&(1<<index) != 0
}

// writeBits embeds data into buf, one bit per scheduled offset, MSB-first
// within each data byte. offs must hold exactly len(data)*8 offsets.
func writeBits(buf []byte, offs []int, data []byte, bitIndex uint8) error {
	if len(offs) != len(data)*8 {
		return fmt.Errorf("stego: schedule holds %d positions for %d bits", len(offs), len(data)*8)
	}
	r := bitio.NewReader(bytes.NewReader(data))
	for _, off := range offs {
		bit, err := r.ReadBool()
		if err != nil {
			return fmt.Errorf("stego: bit stream: %w", err)
		}
		buf[off] = setBit(buf[off], bitIndex, bit)
	}
	return nil
}

// readBits collects one bit per scheduled offset from buf and reassembles
// bytes MSB-first. len(offs) must be a multiple of 8.
func readBits(buf []byte, offs []int, bitIndex uint8) ([]byte, error) {
	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	for _, off := range offs {
		if err := w.WriteBool(getBit(buf[off], bitIndex)); err != nil {
			return nil, fmt.Errorf("stego: bit stream: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("stego: bit stream: %w", err)
	}
	return out.Bytes(), nil
}
