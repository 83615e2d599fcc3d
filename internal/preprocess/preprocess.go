// Package preprocess implements deterministic image-quality enhancement to
// maximize recognizer accuracy on scanned statement pages.
package preprocess

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"
)

// sharpenKernel is a 3x3 sharpening convolution applied per channel.
var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// Enhancer applies the fixed enhancement sequence: contrast stretch, mild
// blur for noise reduction, sharpening convolution, then Otsu binarization.
// Enhancement is best-effort; a failing stage returns the unmodified input.
type Enhancer struct {
	logger *slog.Logger
	// BlurSigma controls the noise-reduction blur strength.
	BlurSigma float64
}

// NewEnhancer creates an enhancer with default settings.
func NewEnhancer(logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{
		logger:    logger,
		BlurSigma: 0.8,
	}
}

// Enhance runs the full enhancement sequence on a page image. A failing
// stage returns the unmodified input.
func (e *Enhancer) Enhance(img image.Image) (out image.Image) {
	out = img
	if img == nil {
		return out
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("image enhancement aborted", "panic", r)
			out = img
		}
	}()

	enhanced := stretchContrast(copyToNRGBA(img))
	enhanced = imaging.Blur(enhanced, e.BlurSigma)
	enhanced = imaging.Convolve3x3(enhanced, sharpenKernel, nil)
	return binarize(enhanced)
}

// copyToNRGBA materializes the source pixels on the calling goroutine, where
// the recover above can catch a panicking source image. The later stages run
// imaging's parallel workers, but only over this known-good buffer.
func copyToNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

// stretchContrast applies a linear gain mapping the observed luminance range
// onto [0,255], clamped.
func stretchContrast(img *image.NRGBA) *image.NRGBA {
	minLum, maxLum := 255, 0
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			l := luminance(img.NRGBAAt(x, y))
			if l < minLum {
				minLum = l
			}
			if l > maxLum {
				maxLum = l
			}
		}
	}
	if maxLum <= minLum {
		return img
	}

	gain := 255.0 / float64(maxLum-minLum)
	out := imaging.Clone(img)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			px.R = clamp8(float64(int(px.R)-minLum) * gain)
			px.G = clamp8(float64(int(px.G)-minLum) * gain)
			px.B = clamp8(float64(int(px.B)-minLum) * gain)
			out.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, px)
		}
	}
	return out
}

// binarize thresholds the image at the Otsu-optimal luminance cut.
func binarize(img *image.NRGBA) *image.NRGBA {
	threshold := otsuThreshold(img)
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			v := uint8(0)
			if luminance(px) >= threshold {
				v = 255
			}
			out.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.NRGBA{R: v, G: v, B: v, A: px.A})
		}
	}
	return out
}

// luminance computes the ITU-R BT.601 luma of a pixel.
func luminance(px color.NRGBA) int {
	return int(0.299*float64(px.R) + 0.587*float64(px.G) + 0.114*float64(px.B))
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
