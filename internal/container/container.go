// Package container decodes and encodes the image files that carry hidden
// payloads. PNG and BMP inputs are normalized to a flat 8-bit RGBA pixel
// buffer so the embedding engine can treat every carrier as a plain byte
// slice, and are re-encoded with unchanged geometry afterwards.
package container

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/bmp"
)

// Format identifies the on-disk encoding of a carrier image.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatBMP
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownFormat is returned when the input matches no supported
	// container signature.
	ErrUnknownFormat = errors.New("container: unknown image format")
)

var (
	pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	bmpMagic = []byte{'B', 'M'}
)

// Image is a decoded carrier: a flat 8-bit RGBA pixel buffer plus the
// geometry needed to re-encode it. Pix holds Width*Height*Channels bytes in
// row-major order with non-premultiplied alpha, so single-bit edits survive
// re-encoding byte for byte; the embedding engine mutates it in place.
type Image struct {
	Pix      []byte
	Width    int
	Height   int
	Channels int
	Format   Format
}

// Decode sniffs the container format and decodes the image into a flat RGBA
// buffer. Any source color model is normalized through image/draw so the
// result is always 4 channels of 8 bits.
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(pngMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("container: read signature: %w", err)
	}

	var (
		src    image.Image
		format Format
	)
	switch {
	case bytes.HasPrefix(magic, pngMagic):
		format = FormatPNG
		src, err = png.Decode(br)
	case bytes.HasPrefix(magic, bmpMagic):
		format = FormatBMP
		src, err = bmp.Decode(br)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, fmt.Errorf("container: decode %s: %w", format, err)
	}

	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	return &Image{
		Pix:      dst.Pix,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: 4,
		Format:   format,
	}, nil
}

// Encode serializes the image back into its original container format. The
// pixel buffer is written as-is; geometry must match what Decode produced.
func Encode(w io.Writer, img *Image) error {
	if want := img.Width * img.Height * img.Channels; len(img.Pix) != want {
		return fmt.Errorf("container: pixel buffer is %d bytes, geometry wants %d", len(img.Pix), want)
	}

	nrgba := &image.NRGBA{
		Pix:    img.Pix,
		Stride: img.Width * img.Channels,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}

	switch img.Format {
	case FormatPNG:
		if err := png.Encode(w, nrgba); err != nil {
			return fmt.Errorf("container: encode png: %w", err)
		}
	case FormatBMP:
		if err := bmp.Encode(w, nrgba); err != nil {
			return fmt.Errorf("container: encode bmp: %w", err)
		}
	default:
		return ErrUnknownFormat
	}
	return nil
}

// Load decodes the carrier image at path.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("container: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Save encodes the carrier image to path, creating or truncating the file.
func Save(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("container: create %s: %w", path, err)
	}
	if err := Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("container: close %s: %w", path, err)
	}
	return nil
}
