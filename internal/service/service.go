// Package service provides business-logic for the app
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/UnendingLoop/Watermarker/internal/mwlogger"
	"github.com/UnendingLoop/Watermarker/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/retry"
)

type WatermarkService struct {
	repo            repository.WatermarkRepo
	publisher       TaskPublisher
	storage         BlobStorage
	srcKeyPrefix    string
	markKeyPrefix   string
	resultKeyPrefix string
}

// KeyPrefixes - префиксы ключей в хранилище для исходников, знаков и результатов
type KeyPrefixes struct {
	Source string
	Mark   string
	Result string
}

func PrefixesFromConfig(cfg *config.Config) KeyPrefixes {
	p := KeyPrefixes{
		Source: cfg.GetString("SRC_KEY"),
		Mark:   cfg.GetString("MARK_KEY"),
		Result: cfg.GetString("RESULT_KEY"),
	}
	if p.Source == "" {
		p.Source = "src/"
	}
	if p.Mark == "" {
		p.Mark = "marks/"
	}
	if p.Result == "" {
		p.Result = "results/"
	}
	return p
}

func NewWatermarkService(repo repository.WatermarkRepo, pub TaskPublisher, strg BlobStorage, prefixes KeyPrefixes) *WatermarkService {
	return &WatermarkService{
		repo:            repo,
		publisher:       pub,
		storage:         strg,
		srcKeyPrefix:    prefixes.Source,
		markKeyPrefix:   prefixes.Mark,
		resultKeyPrefix: prefixes.Result,
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// BlobStorage - контракт для работы с хранилищем
type BlobStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// Стратегия ретрая отправки в очередь - можно потом вынести значения в конфиг/env
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

func (c WatermarkService) Create(ctx context.Context, taskData *model.TaskCreateData) (*model.Task, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	newTask := &model.Task{}

	// Валидируем исходник, имя знака и параметры наложения
	if err := validateNormalizeTaskInfo(taskData, newTask); err != nil {
		return nil, err
	}

	// знак должен существовать и быть активным уже на этапе приема задачи
	mark, err := c.repo.GetMark(ctx, newTask.MarkName)
	if err != nil {
		if errors.Is(err, model.ErrMarkNotFound) {
			return nil, err // 404
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch watermark %q from DB", newTask.MarkName))
		return nil, model.ErrCommon500
	}
	// фиксируем картинку знака: перерегистрация имени не должна менять уже принятые задачи
	newTask.MarkKey = mark.ImageKey

	// генерируем UUID
	newTask.UID = uuid.New()

	// кладем в хранилище сорсник
	newTask.SourceKey = c.srcKeyPrefix + newTask.UID.String() + model.GetImageFileExt[taskData.OrigContentType]

	if err := c.storage.Put(ctx, newTask.SourceKey, taskData.OrigImgSize, taskData.OrigContentType, taskData.OrigImg); err != nil {
		logger.Error().Err(err).Msg("Failed to save src-image in Storage")
		return nil, model.ErrCommon500
	}

	// ставим статус и таймстамп
	newTask.Status = model.StatusCreated
	now := time.Now().UTC()
	newTask.CreatedAt = &now
	newTask.UpdatedAt = &now

	// шлем в базу
	if err := c.repo.Create(ctx, newTask); err != nil {
		logger.Error().Err(err).Msg("Failed to create task in DB")
		c.cleanupBlob(ctx, newTask.SourceKey)
		return nil, model.ErrCommon500
	}

	// кладем в очередь задач(в кафку)
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newTask.UID.String()), nil); err != nil {
		// задача останется в created и будет переотправлена ReviveOrphans
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish task %q to task-queue", newTask.UID))
		return nil, model.ErrCommon500
	}
	return newTask, nil
}

func (c WatermarkService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Task, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch tasks list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c WatermarkService) Get(ctx context.Context, id string) (*model.Task, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			return nil, err // 404
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch task %q from DB", id))
		return nil, model.ErrCommon500
	}

	return res, nil
}

// LoadResult отдает поток результата, его content-type и имя файла для скачивания
func (c WatermarkService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	res, err := c.Get(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	if res.Status != model.StatusDone || res.ResultKey == "" {
		return nil, "", "", model.ErrResultNotReady
	}

	// достаем из хранилища
	data, cType, err := c.storage.Get(ctx, res.ResultKey)
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch result-image %q from Storage", id))
		return nil, "", "", model.ErrCommon500
	}
	return data, cType, res.ResultName, nil
}

func (c WatermarkService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	// читаем из базы
	res, err := c.Get(ctx, id)
	if err != nil {
		return err
	}

	// удаляем из базы
	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			return err // 404
		}
		logger.Error().Err(err).Msg("Failed to delete task from DB")
		return model.ErrCommon500
	}

	// удаляем из хранилища сорсник и результат(если он есть); знак общий и остается
	if err := c.storage.Delete(ctx, res.SourceKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete src-image from Storage")
		return model.ErrCommon500
	}
	if res.ResultKey != "" {
		if err := c.storage.Delete(ctx, res.ResultKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete result-image from Storage")
			return model.ErrCommon500
		}
	}

	return nil
}

func (c WatermarkService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}
	if !model.StatusMap[newStat] {
		return model.ErrIncorrectQuery
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, model.ErrTaskNotFound):
			return err // 404
		default:
			logger.Error().Err(err).Msg("Failed to update task status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c WatermarkService) SaveResult(ctx context.Context, input *model.Task) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, model.ErrTaskNotFound):
			return err // 404
		default:
			logger.Error().Err(err).Msg("Failed to save task result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c WatermarkService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Msg("Failed to publish orphan to queue")
		}
	}
	if len(orphans) > 0 {
		logger.Info().Int("count", len(orphans)).Msg("Orphan tasks re-published")
	}
}

func (c WatermarkService) cleanupBlob(ctx context.Context, key string) {
	if err := c.storage.Delete(ctx, key); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Warn().Err(err).Str("key", key).Msg("Failed to clean up blob after failed write")
	}
}
