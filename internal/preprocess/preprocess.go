// Package preprocess prepares card photographs for OCR. Each transform is a
// pure function of its input image; the three strengths back the escalation
// stages of the extraction engine.
package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/sunshineplan/imgconv"
)

// Transform turns a decoded photo into the image handed to OCR.
type Transform func(image.Image) image.Image

// MinLongSide is the size below which photos are upscaled before filtering.
const MinLongSide = 1000

var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// Light removes sensor noise and stretches contrast.
func Light(img image.Image) image.Image {
	g := imaging.Grayscale(Upscale(img))
	g = imaging.Blur(g, 0.8)
	return Equalize(toGray(g))
}

// Moderate binarizes against the local neighbourhood mean, which copes with
// uneven lighting across the card.
func Moderate(img image.Image) image.Image {
	g := imaging.Grayscale(Upscale(img))
	return AdaptiveThreshold(toGray(g), 31, 15)
}

// Aggressive smooths heavily and then sharpens stroke edges.
func Aggressive(img image.Image) image.Image {
	g := imaging.Grayscale(Upscale(img))
	g = imaging.Blur(g, 1.5)
	g = imaging.Convolve3x3(g, sharpenKernel, nil)
	g = imaging.AdjustContrast(g, 20)
	return toGray(g)
}

// Upscale enlarges img so that its longer side reaches MinLongSide.
func Upscale(img image.Image) image.Image {
	b := img.Bounds()
	long := b.Dx()
	if b.Dy() > long {
		long = b.Dy()
	}
	if long == 0 || long >= MinLongSide {
		return img
	}
	factor := (MinLongSide + long - 1) / long
	return imgconv.Resize(img, &imgconv.ResizeOption{
		Width:  b.Dx() * factor,
		Height: b.Dy() * factor,
	})
}
