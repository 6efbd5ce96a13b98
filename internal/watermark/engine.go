// Package watermark stamps a mark image onto a target image: it resolves relative scale,
// rotation and position settings into pixel geometry, transforms the mark and alpha-blends
// it onto a copy of the target, either once or tiled over the whole surface.
//
// Everything here is synchronous and free of shared state; concurrent calls are safe as long
// as each one gets its own Rand (or nil, which uses the process source).
package watermark

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

var (
	ErrInvalidParameter  = errors.New("invalid watermark parameter")
	ErrUnsupportedFormat = errors.New("image has no readable pixel data")
)

// Engine holds immutable compositing settings. The zero value is not usable, use New.
type Engine struct {
	filter        imaging.ResampleFilter
	autoFraction  float64
	maxMarkPixels float64
}

// DefaultMaxMarkPixels caps the transformed mark (after scaling and rotation), 64 Mpx.
const DefaultMaxMarkPixels = 64 << 20

type Option func(*Engine) error

// WithFilter sets the resampling filter used when scaling the mark.
// Nearest-neighbour is rejected, it aliases badly on logos and text.
func WithFilter(f imaging.ResampleFilter) Option {
	return func(e *Engine) error {
		if f.Support <= 0 || f.Kernel == nil {
			return fmt.Errorf("%w: resampling filter must be smooth", ErrInvalidParameter)
		}
		e.filter = f
		return nil
	}
}

// WithAutoFitFraction sets the fraction AutoScale{} without an explicit Fraction fits to.
func WithAutoFitFraction(fraction float64) Option {
	return func(e *Engine) error {
		if !finite(fraction) || fraction <= 0 || fraction > 1 {
			return fmt.Errorf("%w: auto-fit fraction %v out of (0, 1]", ErrInvalidParameter, fraction)
		}
		e.autoFraction = fraction
		return nil
	}
}

// WithMaxMarkPixels sets the largest pixel count the transformed mark may reach.
// Larger scales fail with ErrInvalidParameter before anything is allocated.
func WithMaxMarkPixels(n int) Option {
	return func(e *Engine) error {
		if n <= 0 {
			return fmt.Errorf("%w: max mark pixels %d must be positive", ErrInvalidParameter, n)
		}
		e.maxMarkPixels = float64(n)
		return nil
	}
}

// New builds an engine. Defaults: Lanczos resampling, DefaultAutoFitFraction, DefaultMaxMarkPixels.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		filter:        imaging.Lanczos,
		autoFraction:  DefaultAutoFitFraction,
		maxMarkPixels: DefaultMaxMarkPixels,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

var defaultEngine, _ = New()

// Apply runs the default engine. See (*Engine).Apply.
func Apply(target, mark image.Image, opts Options, rng Rand) (*image.NRGBA, Params, error) {
	return defaultEngine.Apply(target, mark, opts, rng)
}

// Apply resolves opts against the two rasters, transforms the mark and composites it onto a
// copy of target. The resolved Params are returned alongside the result for logging.
// On error target is untouched and no image is returned.
func (e *Engine) Apply(target, mark image.Image, opts Options, rng Rand) (*image.NRGBA, Params, error) {
	if isEmpty(target) {
		return nil, Params{}, fmt.Errorf("%w: target has no pixel data", ErrUnsupportedFormat)
	}
	if isEmpty(mark) {
		return nil, Params{}, fmt.Errorf("%w: mark has no pixel data", ErrUnsupportedFormat)
	}
	rng = orProcessRand(rng)

	targetSize := target.Bounds().Size()
	markSize := mark.Bounds().Size()

	scaleSpec := opts.Scale
	if auto, ok := scaleSpec.(AutoScale); ok && auto.Fraction == 0 {
		scaleSpec = AutoScale{Fraction: e.autoFraction}
	}
	scale, err := ResolveScale(scaleSpec, targetSize, markSize)
	if err != nil {
		return nil, Params{}, fmt.Errorf("resolve scale: %w", err)
	}

	rotation, err := ResolveRotation(opts.Rotation, rng)
	if err != nil {
		return nil, Params{}, fmt.Errorf("resolve rotation: %w", err)
	}

	transformed, mask, err := e.Transform(mark, opts.Opacity, scale, rotation, opts.Greyscale)
	if err != nil {
		return nil, Params{}, fmt.Errorf("transform mark: %w", err)
	}

	position := opts.Position
	_, tilePos := position.(TilePosition)
	tile := opts.Tile || tilePos
	if tile {
		position = TilePosition{}
	}
	placement, err := ResolvePosition(position, targetSize, transformed.Rect.Size(), rng)
	if err != nil {
		return nil, Params{}, fmt.Errorf("resolve position: %w", err)
	}

	out, err := Composite(target, transformed, mask, placement)
	if err != nil {
		return nil, Params{}, fmt.Errorf("composite: %w", err)
	}

	return out, Params{
		Placement: placement,
		Opacity:   clamp01(opts.Opacity),
		Scale:     scale,
		Rotation:  rotation,
		Tile:      tile,
		Greyscale: opts.Greyscale,
	}, nil
}
