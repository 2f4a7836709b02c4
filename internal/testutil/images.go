// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
)

type fataler interface {
	Helper()
	Fatalf(string, ...any)
}

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t fataler, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, solid(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// TinyJPEG returns an in-memory JPEG byte slice with the requested dimensions.
func TinyJPEG(t fataler, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, solid(w, h), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// TinyGIF returns an in-memory single-frame GIF with the requested dimensions.
func TinyGIF(t fataler, w, h int) []byte {
	t.Helper()
	buf := bytes.NewBuffer(nil)
	if err := gif.Encode(buf, solid(w, h), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// PNGDeclaring returns a small PNG whose header claims w x h pixels. The pixel data does not
// match, so only DecodeConfig succeeds on it.
func PNGDeclaring(t fataler, w, h uint32) []byte {
	t.Helper()
	b := TinyPNG(t, 1, 1)
	// 8-byte signature, then the IHDR chunk: length(4) type(4) width(4) height(4) ... crc.
	const ihdr = 8
	binary.BigEndian.PutUint32(b[ihdr+8:], w)
	binary.BigEndian.PutUint32(b[ihdr+12:], h)
	binary.BigEndian.PutUint32(b[ihdr+8+13:], crc32.ChecksumIEEE(b[ihdr+4:ihdr+8+13]))
	return b
}
