package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/UnendingLoop/Watermarker/internal/watermark"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// WatermarkOptions - параметры наложения в текстовом виде, как они приходят из формы и лежат в БД.
// Quality используется только при кодировании результата.
type WatermarkOptions struct {
	Position  string   `json:"position" default:"r" validate:"wm_position"`
	Opacity   *float64 `json:"opacity" default:"0.5" validate:"required,gte=0,lte=1"`
	Scale     string   `json:"scale" default:"1.0" validate:"wm_scale"`
	Tile      bool     `json:"tile"`
	Greyscale bool     `json:"greyscale"`
	Rotation  string   `json:"rotation" default:"0" validate:"wm_rotation"`
	Quality   int      `json:"quality" default:"85" validate:"gte=1,lte=100"`
}

var optionsValidator = newOptionsValidator()

func newOptionsValidator() *validator.Validate {
	v := validator.New()
	register := func(tag string, parse func(string) error) {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return parse(fl.Field().String()) == nil
		}); err != nil {
			panic(err)
		}
	}
	register("wm_position", func(s string) error { _, err := watermark.ParsePosition(s); return err })
	register("wm_scale", func(s string) error { _, err := watermark.ParseScale(s); return err })
	register("wm_rotation", func(s string) error { _, err := watermark.ParseRotation(s); return err })
	return v
}

// Normalize заполняет незаданные поля дефолтами и валидирует результат
func (o *WatermarkOptions) Normalize() error {
	if err := defaults.Set(o); err != nil {
		return fmt.Errorf("%w: %v", ErrIncorrectOptions, err)
	}

	if err := optionsValidator.Struct(o); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", ErrIncorrectOptions, vErrs[0].Field(), vErrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrIncorrectOptions, err)
	}
	return nil
}

// Engine переводит текстовые параметры в параметры движка наложения
func (o WatermarkOptions) Engine() (watermark.Options, error) {
	pos, err := watermark.ParsePosition(o.Position)
	if err != nil {
		return watermark.Options{}, fmt.Errorf("%w: %v", ErrIncorrectOptions, err)
	}
	scale, err := watermark.ParseScale(o.Scale)
	if err != nil {
		return watermark.Options{}, fmt.Errorf("%w: %v", ErrIncorrectOptions, err)
	}
	rotation, err := watermark.ParseRotation(o.Rotation)
	if err != nil {
		return watermark.Options{}, fmt.Errorf("%w: %v", ErrIncorrectOptions, err)
	}

	opacity := 0.5
	if o.Opacity != nil {
		opacity = *o.Opacity
	}

	return watermark.Options{
		Position:  pos,
		Opacity:   opacity,
		Scale:     scale,
		Rotation:  rotation,
		Tile:      o.Tile,
		Greyscale: o.Greyscale,
	}, nil
}

func (o *WatermarkOptions) Scan(value any) error {
	if value == nil {
		*o = WatermarkOptions{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for WatermarkOptions")
	}

	if err := json.Unmarshal(b, o); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to WatermarkOptions: %w", err)
	}
	return nil
}

func (o WatermarkOptions) Value() (driver.Value, error) {
	res, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal WatermarkOptions to JSONB: %w", err)
	}
	return res, nil
}
