package service

import (
	"fmt"
	"image"
	_ "image/png" // нужен для DecodeConfig знака
	"io"
	"strings"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/go-playground/validator/v10"
)

var nameValidator = validator.New()

// имя знака попадает в ключ хранилища, поэтому только безопасные символы
const markNameRules = "required,max=64,printascii,excludesall=/\\ ?#%"

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем поле типа сортировки
	req.Sort = strings.ToLower(req.Sort)
	req.Sort = strings.TrimSpace(req.Sort)
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "task_uid"
	case strings.Contains(req.Sort, model.ByCreated):
		req.Sort = "created_at"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валадируем порядок
	req.Order = strings.ToLower(req.Order)
	req.Order = strings.TrimSpace(req.Order)
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	case strings.Contains(req.Order, model.OrderDESC):
		req.Order = "DESC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

func validateMarkName(name string) error {
	if err := nameValidator.Var(name, markNameRules); err != nil {
		return model.ErrConfiguration
	}
	return nil
}

func validateNormalizeTaskInfo(raw *model.TaskCreateData, clean *model.Task) error {
	// корректен ли исходник
	if raw.OrigImg == nil || raw.OrigImgSize <= 0 || !model.InImageTypeMap[raw.OrigContentType] {
		return model.ErrEmptySource
	}

	// указан ли знак
	raw.MarkName = strings.TrimSpace(raw.MarkName)
	if err := validateMarkName(raw.MarkName); err != nil {
		return err
	}

	// параметры наложения: дефолты + проверка
	opts := raw.Options
	if err := opts.Normalize(); err != nil {
		return err
	}

	clean.MarkName = raw.MarkName
	clean.SourceName = raw.OrigName
	clean.Options = opts
	clean.ErrMsg = model.StringSlice{}

	return nil
}

func validateMarkData(raw *model.MarkCreateData) error {
	raw.Name = strings.TrimSpace(raw.Name)
	if err := validateMarkName(raw.Name); err != nil {
		return err
	}

	if raw.Img == nil || raw.Size <= 0 {
		return model.ErrEmptyMark
	}

	// знак хранится только в PNG - нужен альфа-канал
	if raw.ContentType != model.PNG {
		return model.ErrUnsupportedMarkFormat
	}

	// по заголовку проверяем что это действительно PNG разумного размера, не декодируя пиксели
	cfg, f, err := image.DecodeConfig(io.NewSectionReader(raw.Img, 0, raw.Size))
	if err != nil || f != "png" {
		return model.ErrUnsupportedMarkFormat
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > model.DefaultMaxImagePixels {
		return fmt.Errorf("%w: %dx%d is too large", model.ErrUnsupportedMarkFormat, cfg.Width, cfg.Height)
	}
	return nil
}
