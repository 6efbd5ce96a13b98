package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/Watermarker/internal/watermark"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // регистрирует декодер webp для image.Decode
)

// Decode читает изображение любого зарегистрированного формата с учетом EXIF-ориентации
func Decode(r io.Reader) (image.Image, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", watermark.ErrUnsupportedFormat)
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", watermark.ErrUnsupportedFormat, err)
	}
	return img, nil
}

// OutputFormat решает, в каком формате сохранять результат:
// jpg/jpeg/png остаются как есть, все остальное уходит в jpg
func OutputFormat(sourceName string) (imaging.Format, string) {
	ext := strings.ToLower(filepath.Ext(sourceName))
	switch ext {
	case ".jpg", ".jpeg":
		return imaging.JPEG, ext
	case ".png":
		return imaging.PNG, ext
	default:
		return imaging.JPEG, ".jpg"
	}
}

// ResultName - имя файла результата с учетом выбранного расширения
func ResultName(sourceName string) string {
	_, ext := OutputFormat(sourceName)
	base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + "_watermarked" + ext
}

func Encode(img image.Image, format imaging.Format, quality int) (*bytes.Buffer, error) {
	if img == nil {
		return nil, errors.New("nil image provided to Encode")
	}
	if quality < 1 || quality > 100 {
		quality = 85
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode result image: %w", err)
	}
	return &buf, nil
}

// FilterByName возвращает фильтр ресэмплинга по имени из конфига, пустое имя - Lanczos
func FilterByName(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "catmullrom":
		return imaging.CatmullRom, nil
	case "mitchell", "mitchellnetravali":
		return imaging.MitchellNetravali, nil
	case "linear":
		return imaging.Linear, nil
	case "box":
		return imaging.Box, nil
	case "hermite":
		return imaging.Hermite, nil
	case "bspline":
		return imaging.BSpline, nil
	case "gaussian":
		return imaging.Gaussian, nil
	case "bartlett":
		return imaging.Bartlett, nil
	case "hann":
		return imaging.Hann, nil
	case "hamming":
		return imaging.Hamming, nil
	case "blackman":
		return imaging.Blackman, nil
	case "welch":
		return imaging.Welch, nil
	case "cosine":
		return imaging.Cosine, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q", name)
	}
}
