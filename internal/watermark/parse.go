package watermark

import (
	"fmt"
	"strconv"
	"strings"
)

var anchorAliases = map[string]Anchor{
	"tl": TopLeft, "top-left": TopLeft,
	"t": Top, "top": Top,
	"tr": TopRight, "top-right": TopRight,
	"l": Left, "left": Left, "right": Right,
	"c": Center, "center": Center, "centre": Center,
	"bl": BottomLeft, "bottom-left": BottomLeft,
	"b": Bottom, "bottom": Bottom,
	"br": BottomRight, "bottom-right": BottomRight,
}

// ParsePosition reads a textual position: an anchor name, "r"/"random", "tile",
// or "XxY" where each side is pixels or a percentage ("50%x10").
// An empty string yields a nil spec.
func ParsePosition(s string) (PositionSpec, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return nil, nil
	case "r", "random":
		return RandomPosition{}, nil
	case "tile":
		return TilePosition{}, nil
	}
	if a, ok := anchorAliases[s]; ok {
		return a, nil
	}

	xs, ys, ok := strings.Cut(s, "x")
	if !ok {
		return nil, fmt.Errorf("%w: position %q", ErrInvalidParameter, s)
	}
	x, err := parseCoord(xs)
	if err != nil {
		return nil, fmt.Errorf("%w: position %q", ErrInvalidParameter, s)
	}
	y, err := parseCoord(ys)
	if err != nil {
		return nil, fmt.Errorf("%w: position %q", ErrInvalidParameter, s)
	}
	return Offset{X: x, Y: y}, nil
}

func parseCoord(s string) (Coord, error) {
	s = strings.TrimSpace(s)
	pct := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || !finite(v) {
		return Coord{}, fmt.Errorf("bad coordinate %q", s)
	}
	return Coord{Value: v, Percent: pct}, nil
}

// MaxParsedScale bounds textual fixed scales; the engine still checks the resulting size.
const MaxParsedScale = 100

// ParseScale reads "auto", "f"/"fit" or a positive number up to MaxParsedScale. Empty means unscaled.
func ParseScale(s string) (ScaleSpec, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return nil, nil
	case "auto":
		return AutoScale{}, nil
	case "f", "fit":
		return FitScale{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) || f <= 0 || f > MaxParsedScale {
		return nil, fmt.Errorf("%w: scale %q", ErrInvalidParameter, s)
	}
	return FixedScale(f), nil
}

// ParseRotation reads "r"/"random" or an angle in degrees. Empty means no rotation.
func ParseRotation(s string) (RotationSpec, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return nil, nil
	case "r", "random":
		return RandomRotation{}, nil
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(d) {
		return nil, fmt.Errorf("%w: rotation %q", ErrInvalidParameter, s)
	}
	return FixedRotation(d), nil
}
