package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/UnendingLoop/Watermarker/internal/mwlogger"
	"github.com/google/uuid"
)

func (c WatermarkService) CreateMark(ctx context.Context, data *model.MarkCreateData) (*model.Mark, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := validateMarkData(data); err != nil {
		return nil, err
	}

	// ключ уникален на каждую загрузку: при повторной регистрации имени старый блоб не затирается
	mark := &model.Mark{
		Name:        data.Name,
		ImageKey:    c.markKeyPrefix + data.Name + "-" + uuid.NewString() + model.GetImageFileExt[data.ContentType],
		ContentType: data.ContentType,
		IsActive:    true,
	}

	if err := c.storage.Put(ctx, mark.ImageKey, data.Size, data.ContentType, data.Img); err != nil {
		logger.Error().Err(err).Msg("Failed to save watermark in Storage")
		return nil, model.ErrCommon500
	}

	now := time.Now().UTC()
	mark.CreatedAt = &now

	if err := c.repo.CreateMark(ctx, mark); err != nil {
		c.cleanupBlob(ctx, mark.ImageKey)
		if errors.Is(err, model.ErrMarkExists) {
			return nil, err // 409
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to create watermark %q in DB", mark.Name))
		return nil, model.ErrCommon500
	}

	return mark, nil
}

// GetMark отдает только активный знак
func (c WatermarkService) GetMark(ctx context.Context, name string) (*model.Mark, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := validateMarkName(name); err != nil {
		return nil, err
	}

	mark, err := c.repo.GetMark(ctx, name)
	if err != nil {
		if errors.Is(err, model.ErrMarkNotFound) {
			return nil, err // 404
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch watermark %q from DB", name))
		return nil, model.ErrCommon500
	}
	return mark, nil
}

func (c WatermarkService) ListMarks(ctx context.Context, onlyActive bool) ([]model.Mark, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	marks, err := c.repo.ListMarks(ctx, onlyActive)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch watermarks list from DB")
		return nil, model.ErrCommon500
	}
	return marks, nil
}

// DeactivateMark выключает знак; блоб остается, чтобы уже готовые результаты можно было воспроизвести
func (c WatermarkService) DeactivateMark(ctx context.Context, name string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := validateMarkName(name); err != nil {
		return err
	}

	if err := c.repo.DeactivateMark(ctx, name); err != nil {
		if errors.Is(err, model.ErrMarkNotFound) {
			return err // 404
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to deactivate watermark %q in DB", name))
		return model.ErrCommon500
	}
	return nil
}
