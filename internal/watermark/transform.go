package watermark

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Transform prepares the mark for compositing: greyscale, scale, rotate, then opacity.
// It returns the transformed mark and its blend mask, both with the post-rotation bounds.
// The input mark is never modified.
func (e *Engine) Transform(mark image.Image, opacity, scale, rotation float64, greyscale bool) (*image.NRGBA, *image.Alpha, error) {
	if isEmpty(mark) {
		return nil, nil, fmt.Errorf("%w: mark has no pixel data", ErrUnsupportedFormat)
	}
	if !finite(scale) || scale <= 0 {
		return nil, nil, fmt.Errorf("%w: scale %v must be positive", ErrInvalidParameter, scale)
	}
	if !finite(rotation) {
		return nil, nil, fmt.Errorf("%w: rotation %v", ErrInvalidParameter, rotation)
	}
	if math.IsNaN(opacity) {
		return nil, nil, fmt.Errorf("%w: opacity is NaN", ErrInvalidParameter)
	}
	if err := e.checkMarkSize(mark.Bounds().Size(), scale, rotation); err != nil {
		return nil, nil, err
	}

	stage := imaging.Clone(mark)
	if greyscale {
		stage = imaging.Grayscale(stage)
	}
	stage = e.scale(stage, scale)
	stage = rotate(stage, rotation)

	return stage, opacityMask(stage, clamp01(opacity)), nil
}

// checkMarkSize rejects scale/rotation pairs whose result would not fit into maxMarkPixels.
// Counted in float64 so huge factors cannot overflow.
func (e *Engine) checkMarkSize(mark image.Point, scale, rotation float64) error {
	limit := e.maxMarkPixels
	if limit <= 0 {
		limit = DefaultMaxMarkPixels
	}
	w := math.Max(1, math.Round(float64(mark.X)*scale))
	h := math.Max(1, math.Round(float64(mark.Y)*scale))
	sin, cos := math.Sincos(math.Pi * normalizeDegrees(rotation) / 180)
	sin, cos = math.Abs(sin), math.Abs(cos)
	rw, rh := w*cos+h*sin, w*sin+h*cos
	if w*h > limit || rw*rh > limit {
		return fmt.Errorf("%w: scale %v turns a %dx%d mark into %.0fx%.0f, above %.0f pixels",
			ErrInvalidParameter, scale, mark.X, mark.Y, rw, rh, limit)
	}
	return nil
}

func (e *Engine) scale(img *image.NRGBA, factor float64) *image.NRGBA {
	if factor == 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	return imaging.Resize(img, w, h, e.filter)
}

func rotate(img *image.NRGBA, degrees float64) *image.NRGBA {
	degrees = normalizeDegrees(degrees)
	if degrees == 0 {
		return img
	}
	return imaging.Rotate(img, degrees, color.Transparent)
}

// opacityMask scales the alpha channel of img by opacity.
func opacityMask(img *image.NRGBA, opacity float64) *image.Alpha {
	b := img.Bounds()
	mask := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, y):]
		dst := mask.Pix[mask.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			a := float64(src[x*4+3]) * opacity
			dst[x] = uint8(math.Round(a))
		}
	}
	return mask
}

// RotatedBounds is the analytic bounding box of a w×h raster rotated by degrees.
func RotatedBounds(w, h int, degrees float64) (float64, float64) {
	sin, cos := math.Sincos(math.Pi * degrees / 180)
	sin, cos = math.Abs(sin), math.Abs(cos)
	return float64(w)*cos + float64(h)*sin, float64(w)*sin + float64(h)*cos
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isEmpty(img image.Image) bool {
	return img == nil || img.Bounds().Empty()
}
