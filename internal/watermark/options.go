package watermark

import (
	"image"

	"github.com/disintegration/imaging"
)

// ScaleSpec is one of: nil (unscaled), FixedScale, AutoScale, FitScale.
type ScaleSpec interface {
	scaleSpec()
}

// FixedScale is an explicit scale factor, must be > 0.
type FixedScale float64

// AutoScale fits the longer side of the mark to Fraction of the target's smaller side.
// Zero Fraction means the engine default.
type AutoScale struct {
	Fraction float64
}

// FitScale scales the mark as large as possible while keeping it inside the target.
type FitScale struct{}

func (FixedScale) scaleSpec() {}
func (AutoScale) scaleSpec()  {}
func (FitScale) scaleSpec()   {}

// RotationSpec is one of: nil (no rotation), FixedRotation, RandomRotation.
type RotationSpec interface {
	rotationSpec()
}

// FixedRotation is a counter-clockwise angle in degrees.
type FixedRotation float64

// RandomRotation draws an angle uniformly from [0, 360).
type RandomRotation struct{}

func (FixedRotation) rotationSpec()  {}
func (RandomRotation) rotationSpec() {}

// PositionSpec is one of: nil (top-left), Anchor, RandomPosition, TilePosition, Offset.
type PositionSpec interface {
	positionSpec()
}

// Anchor pins the mark to an edge, a corner or the centre of the target.
type Anchor imaging.Anchor

const (
	Center      = Anchor(imaging.Center)
	TopLeft     = Anchor(imaging.TopLeft)
	Top         = Anchor(imaging.Top)
	TopRight    = Anchor(imaging.TopRight)
	Left        = Anchor(imaging.Left)
	Right       = Anchor(imaging.Right)
	BottomLeft  = Anchor(imaging.BottomLeft)
	Bottom      = Anchor(imaging.Bottom)
	BottomRight = Anchor(imaging.BottomRight)
)

var anchorNames = map[Anchor]string{
	Center:      "center",
	TopLeft:     "top-left",
	Top:         "top",
	TopRight:    "top-right",
	Left:        "left",
	Right:       "right",
	BottomLeft:  "bottom-left",
	Bottom:      "bottom",
	BottomRight: "bottom-right",
}

func (a Anchor) String() string {
	if name, ok := anchorNames[a]; ok {
		return name
	}
	return "unknown"
}

// RandomPosition places the mark at a uniformly random offset inside the target.
type RandomPosition struct{}

// TilePosition repeats the mark over the whole target.
type TilePosition struct{}

// Coord is a single axis of an Offset: absolute pixels, or a percentage of the free
// space left on that axis when Percent is set.
type Coord struct {
	Value   float64
	Percent bool
}

// Offset places the top-left corner of the mark at an explicit position.
type Offset struct {
	X, Y Coord
}

func (Anchor) positionSpec()         {}
func (RandomPosition) positionSpec() {}
func (TilePosition) positionSpec()   {}
func (Offset) positionSpec()         {}

// Placement is one of: Single, TileGrid.
type Placement interface {
	// Cells returns the destination rectangles, clipped to target, with the mark offset for each.
	Cells(target image.Rectangle, mark image.Point) []Cell
}

// Cell is one blend region: Dst in target coordinates, Src is the mark pixel matching Dst.Min.
type Cell struct {
	Dst image.Rectangle
	Src image.Point
}

// Single is one placement of the mark with its top-left corner at At.
type Single struct {
	At image.Point
}

// TileGrid repeats the mark every Step pixels starting from Origin.
type TileGrid struct {
	Origin image.Point
	Step   image.Point
}

// Options is the unresolved configuration of a single Apply call.
type Options struct {
	Position  PositionSpec
	Opacity   float64
	Scale     ScaleSpec
	Rotation  RotationSpec
	Tile      bool
	Greyscale bool
}

// Params is the concrete geometry a call resolved to.
type Params struct {
	Placement Placement
	Opacity   float64
	Scale     float64
	Rotation  float64
	Tile      bool
	Greyscale bool
}

// DefaultOptions returns half-opaque, unscaled, unrotated top-left placement.
func DefaultOptions() Options {
	return Options{
		Opacity: 0.5,
		Scale:   FixedScale(1),
	}
}
