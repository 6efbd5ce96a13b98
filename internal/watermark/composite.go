package watermark

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Composite alpha-blends mark onto a copy of target at every cell of p, weighting each
// pixel by mask. The result has the target's size; target itself is left untouched.
func Composite(target image.Image, mark *image.NRGBA, mask *image.Alpha, p Placement) (*image.NRGBA, error) {
	if isEmpty(target) {
		return nil, fmt.Errorf("%w: target has no pixel data", ErrUnsupportedFormat)
	}
	if mark == nil || mark.Rect.Empty() {
		return nil, fmt.Errorf("%w: mark has no pixel data", ErrUnsupportedFormat)
	}
	if mask == nil || mask.Rect != mark.Rect {
		return nil, fmt.Errorf("%w: mask bounds do not match mark", ErrInvalidParameter)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no placement", ErrInvalidParameter)
	}

	out := imaging.Clone(target)
	for _, c := range p.Cells(out.Rect, mark.Rect.Size()) {
		blend(out, mark, mask, c)
	}
	return out, nil
}

// blend: out = t*(1-a) + m*a per colour channel, alpha composited "over".
func blend(dst, mark *image.NRGBA, mask *image.Alpha, c Cell) {
	w := c.Dst.Dx()
	src := mark.Rect.Min.Add(c.Src)

	for dy := 0; dy < c.Dst.Dy(); dy++ {
		d := dst.Pix[dst.PixOffset(c.Dst.Min.X, c.Dst.Min.Y+dy):]
		m := mark.Pix[mark.PixOffset(src.X, src.Y+dy):]
		a := mask.Pix[mask.PixOffset(src.X, src.Y+dy):]

		for x := 0; x < w; x++ {
			wgt := uint32(a[x])
			if wgt == 0 {
				continue
			}
			inv := 255 - wgt
			i := x * 4
			d[i+0] = uint8((uint32(d[i+0])*inv + uint32(m[i+0])*wgt + 127) / 255)
			d[i+1] = uint8((uint32(d[i+1])*inv + uint32(m[i+1])*wgt + 127) / 255)
			d[i+2] = uint8((uint32(d[i+2])*inv + uint32(m[i+2])*wgt + 127) / 255)
			d[i+3] = uint8((uint32(d[i+3])*inv + 255*wgt + 127) / 255)
		}
	}
}
