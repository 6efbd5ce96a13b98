// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

//---------------------

// Task - задача на наложение водяного знака на исходник
type Task struct {
	UID        uuid.UUID        `json:"uid"`
	SourceKey  string           `json:"-"`
	SourceName string           `json:"source_name"`
	ResultKey  string           `json:"-"`
	ResultName string           `json:"result_name,omitempty"`
	MarkName   string           `json:"mark"`
	MarkKey    string           `json:"-"` // ключ картинки знака на момент создания задачи
	Options    WatermarkOptions `json:"options"`
	Status     Status           `json:"status,omitempty"`
	ErrMsg     StringSlice      `json:"error,omitempty"`
	CreatedAt  *time.Time       `json:"created_at,omitempty"`
	UpdatedAt  *time.Time       `json:"updated_at,omitempty"`
}

// Mark - именованный водяной знак, на который ссылаются задачи
type Mark struct {
	Name        string     `json:"name"`
	ImageKey    string     `json:"-"`
	ContentType string     `json:"content_type"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

type TaskCreateData struct {
	MarkName        string
	Options         WatermarkOptions
	OrigImg         multipart.File
	OrigName        string
	OrigContentType string
	OrigImgSize     int64
}

type MarkCreateData struct {
	Name        string
	Img         multipart.File
	ContentType string
	Size        int64
}

// ------------------

var (
	ErrCommon500             error = errors.New("something went wrong. Try again later")       // 500
	ErrIncorrectQuery        error = errors.New("incorrect query parameters")                  // 400
	ErrIncorrectID           error = errors.New("incorrect task UUID")                         // 400
	ErrTaskNotFound          error = errors.New("specified task UUID doesn't exist")           // 404
	ErrResultNotReady        error = errors.New("requested image is not processed yet")        // 404
	ErrEmptySource           error = errors.New("empty/incorrect source image provided")       // 400
	ErrEmptyMark             error = errors.New("empty/incorrect watermark provided")          // 400
	ErrConfiguration         error = errors.New("watermark name is missing or invalid")        // 400
	ErrIncorrectOptions      error = errors.New("incorrect watermark options")                 // 400
	ErrMarkNotFound          error = errors.New("watermark doesn't exist or is inactive")      // 404
	ErrMarkExists            error = errors.New("watermark with this name already exists")     // 409
	ErrUnsupportedMarkFormat error = errors.New("unsupported watermark-image format")          // 400
	ErrUnsupportedFormat     error = errors.New("unsupported or unreadable base image format") // 400
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	WEBP = "image/webp"
	BMP  = "image/bmp"
	TIFF = "image/tiff"
)

// DefaultMaxImagePixels - предел ширина*высота для декодируемых исходников и знаков, 40 Мп
const DefaultMaxImagePixels int64 = 40 << 20

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	WEBP: ".webp",
	BMP:  ".bmp",
	TIFF: ".tiff",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
	WEBP: true,
	BMP:  true,
	TIFF: true,
}

// OutFormats - форматы, в которых сохраняется результат
var OutFormats = map[imaging.Format]bool{
	imaging.JPEG: true,
	imaging.PNG:  true,
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.PNG:  PNG,
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 || s == nil {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}
