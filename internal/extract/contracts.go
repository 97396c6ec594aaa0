package extract

import (
	"context"
	"image"
)

// ImageLoader resolves an image reference. A missing or undecodable image
// must be reported as common.ErrImageNotFound.
type ImageLoader interface {
	Load(ctx context.Context, path string) (image.Image, error)
}

// LineReader runs OCR on a preprocessed image and returns lines ordered top
// to bottom.
type LineReader interface {
	ReadLines(ctx context.Context, img image.Image) ([]TextLine, error)
}

// QRDecoder returns the payload of a QR code in img, if any.
type QRDecoder func(img image.Image) (string, bool)
