package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Preprocess controls the cleanup applied to a page before local recognition.
type Preprocess struct {
	// MinHeight upscales shorter pages to this height, keeping aspect ratio.
	MinHeight int
	Contrast  float64
	Sharpen   float64
	// Threshold binarizes the page when non-zero.
	Threshold uint8
}

// DefaultPreprocess suits scanned invoices rendered at 144 DPI.
var DefaultPreprocess = Preprocess{MinHeight: 1200, Contrast: 15, Sharpen: 0.7}

// Apply returns a grayscale, optionally upscaled and binarized copy of img.
func (p Preprocess) Apply(img image.Image) *image.NRGBA {
	out := imaging.Grayscale(img)
	if p.Contrast != 0 {
		out = imaging.AdjustContrast(out, p.Contrast)
	}
	if p.Sharpen > 0 {
		out = imaging.Sharpen(out, p.Sharpen)
	}
	if p.MinHeight > 0 && out.Bounds().Dy() < p.MinHeight {
		out = imaging.Resize(out, 0, p.MinHeight, imaging.Lanczos)
	}
	if p.Threshold > 0 {
		out = binarize(out, p.Threshold)
	}
	return out
}

// binarize performs a global threshold on a grayscale image.
func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			v := uint8(255)
			if c.R <= threshold {
				v = 0
			}
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
