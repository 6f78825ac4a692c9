// Package imagequality flags photographed or scanned invoices that are too
// blurry or too flat to extract reliably.
package imagequality

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	DefaultBlurThreshold     = 450.0
	DefaultContrastThreshold = 35.0

	ReasonUndecodable = "Unable to decode image"
	ReasonBlurry      = "Image is too blurry"
	ReasonLowContrast = "Image contrast is too low"
)

// Thresholds configures the minimum acceptable metrics.
type Thresholds struct {
	Blur     float64
	Contrast float64
}

// DefaultThresholds returns the thresholds used for uploads.
func DefaultThresholds() Thresholds {
	return Thresholds{Blur: DefaultBlurThreshold, Contrast: DefaultContrastThreshold}
}

// Result reports the outcome of a quality check. Score is the metric that
// failed, or the blur metric when the image passed.
type Result struct {
	Bad      bool
	Reason   string
	Score    float64
	Blur     float64
	Contrast float64
}

// Checker runs the check with fixed thresholds.
type Checker struct {
	Thresholds Thresholds
}

// NewChecker constructs a Checker with the default thresholds.
func NewChecker() *Checker {
	return &Checker{Thresholds: DefaultThresholds()}
}

// Check implements the upload quality hook.
func (c *Checker) Check(data []byte) Result {
	return Check(data, c.Thresholds)
}

// Check decodes data and evaluates blur (variance of the Laplacian) and
// contrast (standard deviation of luma) against the thresholds.
func Check(data []byte, th Thresholds) Result {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{Bad: true, Reason: ReasonUndecodable}
	}
	gray := toGray(img)
	blur := laplacianVariance(gray)
	contrast := stdDev(gray)

	res := Result{Score: blur, Blur: blur, Contrast: contrast}
	switch {
	case blur < th.Blur:
		res.Bad = true
		res.Reason = ReasonBlurry
	case contrast < th.Contrast:
		res.Bad = true
		res.Reason = ReasonLowContrast
		res.Score = contrast
	}
	return res
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// laplacianVariance applies the 4-neighbour Laplacian kernel to interior
// pixels and returns the variance of the response.
func laplacianVariance(g *image.Gray) float64 {
	b := g.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return 0
	}
	var sum, sumSq float64
	var n int
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			v := float64(g.GrayAt(x, y-1).Y) +
				float64(g.GrayAt(x, y+1).Y) +
				float64(g.GrayAt(x-1, y).Y) +
				float64(g.GrayAt(x+1, y).Y) -
				4*float64(g.GrayAt(x, y).Y)
			sum += v
			sumSq += v * v
			n++
		}
	}
	return variance(sum, sumSq, n)
}

func stdDev(g *image.Gray) float64 {
	b := g.Bounds()
	var sum, sumSq float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := float64(g.GrayAt(x, y).Y)
			sum += v
			sumSq += v * v
			n++
		}
	}
	return math.Sqrt(variance(sum, sumSq, n))
}

func variance(sum, sumSq float64, n int) float64 {
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	v := sumSq/float64(n) - mean*mean
	if v < 0 {
		return 0
	}
	return v
}
