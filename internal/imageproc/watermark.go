// Package imageproc glues the watermark engine to encoded images: decoding inputs, encoding the result and naming it.
package imageproc

import (
	"errors"
	"fmt"
	"io"

	"github.com/UnendingLoop/Watermarker/internal/watermark"
	"github.com/disintegration/imaging"
)

// Watermarker декодирует основу и знак, накладывает знак движком и кодирует результат в format
func Watermarker(b, w io.Reader, engine *watermark.Engine, opts watermark.Options, format imaging.Format, quality int, rng watermark.Rand) (io.Reader, int64, watermark.Params, error) {
	if b == nil {
		return nil, 0, watermark.Params{}, errors.New("nil-reader baseIMG provided")
	}
	if w == nil {
		return nil, 0, watermark.Params{}, errors.New("nil-reader wmIMG provided")
	}
	if engine == nil {
		return nil, 0, watermark.Params{}, errors.New("nil watermark engine provided")
	}

	base, err := Decode(b)
	if err != nil {
		return nil, 0, watermark.Params{}, fmt.Errorf("decode base image: %w", err)
	}

	mark, err := Decode(w)
	if err != nil {
		return nil, 0, watermark.Params{}, fmt.Errorf("decode watermark image: %w", err)
	}

	// само наложение:
	result, params, err := engine.Apply(base, mark, opts, rng)
	if err != nil {
		return nil, 0, watermark.Params{}, fmt.Errorf("apply watermark: %w", err)
	}

	// готовим результат к возврату
	buf, err := Encode(result, format, quality)
	if err != nil {
		return nil, 0, watermark.Params{}, err
	}

	return buf, int64(buf.Len()), params, nil
}
