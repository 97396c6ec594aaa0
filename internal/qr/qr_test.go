package qr

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	payload := "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Priya Raman\r\nTEL:+919876543210\r\nEND:VCARD\r\n"
	b, err := EncodePNG(payload, 0)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if img.Bounds().Dx() != DefaultSize {
		t.Fatalf("width = %d, want %d", img.Bounds().Dx(), DefaultSize)
	}
	got, ok := Decode(img)
	if !ok || got != payload {
		t.Fatalf("Decode = %q, %v", got, ok)
	}
}

func TestDecodeInsideLargerPhoto(t *testing.T) {
	code, err := Encode("https://acme.io", 200)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	photo := image.NewRGBA(image.Rect(0, 0, 640, 400))
	draw.Draw(photo, photo.Bounds(), &image.Uniform{C: color.RGBA{R: 235, G: 235, B: 230, A: 255}}, image.Point{}, draw.Src)
	draw.Draw(photo, image.Rect(400, 150, 600, 350), code, code.Bounds().Min, draw.Src)
	if got, ok := Decode(photo); !ok || got != "https://acme.io" {
		t.Fatalf("Decode = %q, %v", got, ok)
	}
}

func TestDecodeWithoutCode(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 120, 80))
	if _, ok := Decode(blank); ok {
		t.Fatalf("blank image should not decode")
	}
	if _, ok := Decode(nil); ok {
		t.Fatalf("nil image should not decode")
	}
}
