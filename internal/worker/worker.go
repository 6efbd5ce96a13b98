// Package worker contains methods for worker to init at start, and to process watermark tasks
package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"strings"

	"github.com/UnendingLoop/Watermarker/internal/imageproc"
	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/UnendingLoop/Watermarker/internal/mwlogger"
	"github.com/UnendingLoop/Watermarker/internal/service"
	"github.com/UnendingLoop/Watermarker/internal/watermark"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

type WatermarkWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Task) error
	Get(ctx context.Context, id string) (*model.Task, error)
	GetMark(ctx context.Context, name string) (*model.Mark, error)
}

// MessageCommitter - то, что нужно воркеру от консьюмера кафки
type MessageCommitter interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

// CommitFunc позволяет передать воркеру любой коммит как функцию
type CommitFunc func(ctx context.Context, msg kafkago.Message) error

func (f CommitFunc) Commit(ctx context.Context, msg kafkago.Message) error {
	return f(ctx, msg)
}

type Worker struct {
	storage      service.BlobStorage
	service      WatermarkWorkerService
	engine       *watermark.Engine
	queue        <-chan kafkago.Message
	consumer     MessageCommitter
	resultPrefix string
	maxPixels    int64
}

func NewWorkerInstance(strg service.BlobStorage, svc WatermarkWorkerService, engine *watermark.Engine, q <-chan kafkago.Message, cons MessageCommitter, resPr string) *Worker {
	return &Worker{storage: strg, service: svc, engine: engine, queue: q, consumer: cons, resultPrefix: resPr, maxPixels: model.DefaultMaxImagePixels}
}

// WithMaxImagePixels меняет предел размера декодируемых картинок; n <= 0 оставляет текущий
func (w *Worker) WithMaxImagePixels(n int64) *Worker {
	if n > 0 {
		w.maxPixels = n
	}
	return w
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				log.Println("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			// сообщение о несуществующей задаче коммитим, иначе оно будет приходить вечно
			if err := w.initProcessor(ctx, id); err != nil &&
				!errors.Is(err, model.ErrTaskNotFound) && !errors.Is(err, model.ErrIncorrectID) {
				zlog.Logger.Error().Err(err).Str("task_id", id).Msg("Task left uncommitted")
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Str("task_id", id).Msg("Failed to commit queue-message")
			}
		}
	}
}

// initProcessor возвращает ошибку только когда сообщение нельзя коммитить:
// падение самой обработки записывается в задачу как failed
func (w *Worker) initProcessor(ctx context.Context, id string) error {
	logger := zlog.Logger.With().Str("task_id", id).Logger()
	ctx = mwlogger.WithLogger(ctx, logger)

	// считать из базы задачу
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch task %q from DB: %w", id, err)
	}
	// проверить статус; in_progress сюда попадает только через ReviveOrphans - берем заново
	switch task.Status {
	case model.StatusDone, model.StatusFailed:
		return nil
	}

	// на всякий случай проверить поле с результатом
	if task.ResultKey != "" && strings.HasPrefix(task.ResultKey, w.resultPrefix) {
		if err := w.service.UpdateStatus(ctx, id, model.StatusDone); err != nil {
			return fmt.Errorf("failed to update status of already-done task in DB: %w", err)
		}
		return nil
	}

	// обновить статус
	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of task %q to `in_progress` in DB: %w", id, err)
	}

	// выполняем саму операцию
	if pErr := w.processTask(ctx, task); pErr != nil {
		logger.Warn().Err(pErr).Msg("Task failed")
		task.Status = model.StatusFailed
		task.ErrMsg = append(task.ErrMsg, failureReason(pErr))
		if uErr := w.service.SaveResult(ctx, task); uErr != nil {
			return fmt.Errorf("failed to set status of task %q to `failed` in DB: %w \nAFTER\n error while processing task: %w", id, uErr, pErr)
		}
	}

	return nil
}

func (w *Worker) processTask(ctx context.Context, task *model.Task) error {
	logger := mwlogger.LoggerFromContext(ctx)

	// знак ищется по имени и должен быть активным
	mark, err := w.service.GetMark(ctx, task.MarkName)
	if err != nil {
		return fmt.Errorf("worker failed to fetch watermark %q: %w", task.MarkName, err)
	}

	opts, err := task.Options.Engine()
	if err != nil {
		return err
	}

	// достать из storage исходники
	base, _, err := w.storage.Get(ctx, task.SourceKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch base-image from storage: %w", err)
	}
	pBase, err := validateImgFormat(base, false, w.maxPixels)
	if err != nil {
		return fmt.Errorf("worker failed to validate base-image format: %w", err)
	}

	// картинка знака берется та, что была активна при создании задачи
	markKey := task.MarkKey
	if markKey == "" {
		markKey = mark.ImageKey
	}
	wm, _, err := w.storage.Get(ctx, markKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch wm-image from storage: %w", err)
	}
	pWm, err := validateImgFormat(wm, true, w.maxPixels)
	if err != nil {
		return fmt.Errorf("worker failed to validate wm-image format: %w", err)
	}

	// формат результата определяется расширением исходника
	format, ext := imageproc.OutputFormat(task.SourceName)

	result, size, params, err := imageproc.Watermarker(pBase, pWm, w.engine, opts, format, task.Options.Quality, taskRand(task.UID))
	if err != nil {
		return fmt.Errorf("worker failed to apply wm on image: %w", err)
	}

	logger.Debug().
		Str("placement", fmt.Sprintf("%+v", params.Placement)).
		Float64("opacity", params.Opacity).
		Float64("scale", params.Scale).
		Float64("rotation", params.Rotation).
		Bool("tile", params.Tile).
		Bool("greyscale", params.Greyscale).
		Msg("Watermark applied")

	// положить результат в сторедж если ошибок нет на предыдущем этапе
	resCType := model.GetCType[format]
	resKey := w.resultPrefix + task.UID.String() + ext
	if err := w.storage.Put(ctx, resKey, size, resCType, result); err != nil {
		return fmt.Errorf("worker failed to put result image to storage: %w", err)
	}

	task.Status = model.StatusDone
	task.ResultKey = resKey
	task.ResultName = imageproc.ResultName(task.SourceName)

	// обновить запись в БД
	if err := w.service.SaveResult(ctx, task); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return nil
}

// taskRand - генератор, детерминированный по UUID задачи: повторная обработка дает тот же результат
func taskRand(uid uuid.UUID) watermark.Rand {
	return watermark.NewRand(binary.BigEndian.Uint64(uid[:8]) ^ binary.BigEndian.Uint64(uid[8:]))
}

// failureReason - текст для err_msg задачи; внутренние подробности хранилища наружу не отдаем
func failureReason(err error) string {
	for _, known := range []error{
		model.ErrMarkNotFound,
		model.ErrUnsupportedFormat,
		model.ErrUnsupportedMarkFormat,
		model.ErrIncorrectOptions,
		watermark.ErrUnsupportedFormat,
		watermark.ErrInvalidParameter,
	} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	return model.ErrCommon500.Error()
}

var allowedBaseFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
	"tiff": true,
}

// validateImgFormat читает только заголовок: формат и размеры проверяются до полного декодирования
func validateImgFormat(r io.ReadCloser, wm bool, maxPixels int64) (io.Reader, error) {
	if r == nil {
		return nil, errors.New("nil-reader provided")
	}
	defer closeFileFlow(r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if maxPixels <= 0 {
		maxPixels = model.DefaultMaxImagePixels
	}
	formatErr := model.ErrUnsupportedFormat
	if wm {
		formatErr = model.ErrUnsupportedMarkFormat
	}

	cfg, f, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", formatErr, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", formatErr, cfg.Width, cfg.Height, maxPixels)
	}

	if wm && f != "png" {
		return nil, model.ErrUnsupportedMarkFormat
	}

	if !allowedBaseFormats[f] {
		return nil, model.ErrUnsupportedFormat
	}

	return bytes.NewReader(data), nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		log.Println("Worker failed to close fileflow:", err)
	}
}
