package watermark

import (
	"fmt"
	"image"
	"math"
	"math/rand/v2"
)

// DefaultAutoFitFraction is the share of the target's smaller side AutoScale fits the mark to.
const DefaultAutoFitFraction = 0.5

// Rand is the random source for RandomRotation and RandomPosition.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// NewRand returns a deterministic source for one call.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// processRand proxies the goroutine-safe top-level functions of math/rand/v2.
type processRand struct{}

func (processRand) IntN(n int) int   { return rand.IntN(n) }
func (processRand) Float64() float64 { return rand.Float64() }

func orProcessRand(rng Rand) Rand {
	if rng == nil {
		return processRand{}
	}
	return rng
}

// ResolveScale turns spec into a positive scale factor for mark given the target size.
func ResolveScale(spec ScaleSpec, target, mark image.Point) (float64, error) {
	if err := checkSize(target); err != nil {
		return 0, err
	}
	if err := checkSize(mark); err != nil {
		return 0, err
	}

	switch s := spec.(type) {
	case nil:
		return 1, nil
	case FixedScale:
		f := float64(s)
		if !finite(f) || f <= 0 {
			return 0, fmt.Errorf("%w: scale %v must be positive", ErrInvalidParameter, f)
		}
		return f, nil
	case AutoScale:
		fraction := s.Fraction
		if fraction == 0 {
			fraction = DefaultAutoFitFraction
		}
		if !finite(fraction) || fraction <= 0 || fraction > 1 {
			return 0, fmt.Errorf("%w: auto-fit fraction %v out of (0, 1]", ErrInvalidParameter, fraction)
		}
		return fraction * float64(min(target.X, target.Y)) / float64(max(mark.X, mark.Y)), nil
	case FitScale:
		return math.Min(float64(target.X)/float64(mark.X), float64(target.Y)/float64(mark.Y)), nil
	default:
		return 0, fmt.Errorf("%w: unknown scale spec %T", ErrInvalidParameter, spec)
	}
}

// ResolveRotation turns spec into an angle in [0, 360).
func ResolveRotation(spec RotationSpec, rng Rand) (float64, error) {
	switch s := spec.(type) {
	case nil:
		return 0, nil
	case FixedRotation:
		d := float64(s)
		if !finite(d) {
			return 0, fmt.Errorf("%w: rotation %v", ErrInvalidParameter, d)
		}
		return normalizeDegrees(d), nil
	case RandomRotation:
		return normalizeDegrees(360 * orProcessRand(rng).Float64()), nil
	default:
		return 0, fmt.Errorf("%w: unknown rotation spec %T", ErrInvalidParameter, spec)
	}
}

// ResolvePosition turns spec into a placement of a mark of the given (already transformed) size.
func ResolvePosition(spec PositionSpec, target, mark image.Point, rng Rand) (Placement, error) {
	if err := checkSize(target); err != nil {
		return nil, err
	}
	if err := checkSize(mark); err != nil {
		return nil, err
	}

	switch s := spec.(type) {
	case nil:
		return Single{}, nil
	case Anchor:
		h, v, ok := anchorAxes(s)
		if !ok {
			return nil, fmt.Errorf("%w: unknown anchor %d", ErrInvalidParameter, int(s))
		}
		return Single{At: image.Pt(
			anchorOffset(h, target.X, mark.X),
			anchorOffset(v, target.Y, mark.Y),
		)}, nil
	case RandomPosition:
		rng = orProcessRand(rng)
		return Single{At: image.Pt(
			randomOffset(rng, target.X, mark.X),
			randomOffset(rng, target.Y, mark.Y),
		)}, nil
	case TilePosition:
		return TileGrid{Step: mark}, nil
	case Offset:
		x, err := coordOffset(s.X, target.X, mark.X)
		if err != nil {
			return nil, err
		}
		y, err := coordOffset(s.Y, target.Y, mark.Y)
		if err != nil {
			return nil, err
		}
		return Single{At: image.Pt(x, y)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown position spec %T", ErrInvalidParameter, spec)
	}
}

// Cells implements Placement.
func (s Single) Cells(target image.Rectangle, mark image.Point) []Cell {
	box := image.Rectangle{Min: s.At, Max: s.At.Add(mark)}
	dst := box.Intersect(target)
	if dst.Empty() {
		return nil
	}
	return []Cell{{Dst: dst, Src: dst.Min.Sub(s.At)}}
}

// Cells implements Placement. Edge cells are clipped to the target, so the grid leaves no gaps.
func (g TileGrid) Cells(target image.Rectangle, _ image.Point) []Cell {
	if g.Step.X <= 0 || g.Step.Y <= 0 || target.Empty() {
		return nil
	}

	// shift the grid origin back so the first cell covers the top-left corner
	x0 := target.Min.X - floorMod(target.Min.X-g.Origin.X, g.Step.X)
	y0 := target.Min.Y - floorMod(target.Min.Y-g.Origin.Y, g.Step.Y)

	cols := (target.Max.X - x0 + g.Step.X - 1) / g.Step.X
	rows := (target.Max.Y - y0 + g.Step.Y - 1) / g.Step.Y
	cells := make([]Cell, 0, cols*rows)

	for y := y0; y < target.Max.Y; y += g.Step.Y {
		for x := x0; x < target.Max.X; x += g.Step.X {
			at := image.Pt(x, y)
			dst := image.Rectangle{Min: at, Max: at.Add(g.Step)}.Intersect(target)
			if dst.Empty() {
				continue
			}
			cells = append(cells, Cell{Dst: dst, Src: dst.Min.Sub(at)})
		}
	}
	return cells
}

type axisAlign int

const (
	alignStart axisAlign = iota
	alignMiddle
	alignEnd
)

func anchorAxes(a Anchor) (h, v axisAlign, ok bool) {
	switch a {
	case TopLeft:
		return alignStart, alignStart, true
	case Top:
		return alignMiddle, alignStart, true
	case TopRight:
		return alignEnd, alignStart, true
	case Left:
		return alignStart, alignMiddle, true
	case Center:
		return alignMiddle, alignMiddle, true
	case Right:
		return alignEnd, alignMiddle, true
	case BottomLeft:
		return alignStart, alignEnd, true
	case Bottom:
		return alignMiddle, alignEnd, true
	case BottomRight:
		return alignEnd, alignEnd, true
	}
	return 0, 0, false
}

// anchorOffset pins to 0 when the mark is larger than the target on this axis.
func anchorOffset(align axisAlign, target, mark int) int {
	if mark > target {
		return 0
	}
	switch align {
	case alignMiddle:
		return (target - mark) / 2
	case alignEnd:
		return target - mark
	default:
		return 0
	}
}

func randomOffset(rng Rand, target, mark int) int {
	if mark > target {
		return (target - mark) / 2
	}
	return rng.IntN(target - mark + 1)
}

func coordOffset(c Coord, target, mark int) (int, error) {
	if !finite(c.Value) {
		return 0, fmt.Errorf("%w: offset %v", ErrInvalidParameter, c.Value)
	}
	if !c.Percent {
		return int(math.Round(c.Value)), nil
	}
	free := max(target-mark, 0)
	return int(math.Round(float64(free) * c.Value / 100)), nil
}

func checkSize(p image.Point) error {
	if p.X <= 0 || p.Y <= 0 {
		return fmt.Errorf("%w: empty raster %dx%d", ErrInvalidParameter, p.X, p.Y)
	}
	return nil
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
