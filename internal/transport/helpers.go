package transport

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/wb-go/wbf/ginext"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrTaskNotFound),
		errors.Is(err, model.ErrMarkNotFound),
		errors.Is(err, model.ErrResultNotReady):
		return 404
	case errors.Is(err, model.ErrMarkExists):
		return 409
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrEmptyMark),
		errors.Is(err, model.ErrConfiguration),
		errors.Is(err, model.ErrIncorrectOptions),
		errors.Is(err, model.ErrUnsupportedMarkFormat),
		errors.Is(err, model.ErrUnsupportedFormat):
		return 400
	default:
		return 500
	}
}

// parseOptionsForm собирает параметры наложения из формы; пустые поля остаются пустыми и получат дефолты в сервисе
func parseOptionsForm(ctx *ginext.Context) (model.WatermarkOptions, error) {
	opts := model.WatermarkOptions{
		Position: strings.TrimSpace(ctx.PostForm("position")),
		Scale:    strings.TrimSpace(ctx.PostForm("scale")),
		Rotation: strings.TrimSpace(ctx.PostForm("rotation")),
	}

	if raw := strings.TrimSpace(ctx.PostForm("opacity")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, fmt.Errorf("%w: opacity %q", model.ErrIncorrectOptions, raw)
		}
		opts.Opacity = &v
	}

	var err error
	if opts.Tile, err = parseFormBool(ctx, "tile"); err != nil {
		return opts, err
	}
	if opts.Greyscale, err = parseFormBool(ctx, "greyscale"); err != nil {
		return opts, err
	}

	if raw := strings.TrimSpace(ctx.PostForm("quality")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return opts, fmt.Errorf("%w: quality %q", model.ErrIncorrectOptions, raw)
		}
		opts.Quality = v
	}

	return opts, nil
}

func parseFormBool(ctx *ginext.Context, field string) (bool, error) {
	raw := strings.TrimSpace(ctx.PostForm(field))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s %q", model.ErrIncorrectOptions, field, raw)
	}
	return v, nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
