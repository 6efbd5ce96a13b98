// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"io"
	"log"
	"mime"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/wb-go/wbf/ginext"
)

type WatermarkHandler struct {
	service WatermarkService
}

type WatermarkService interface {
	Create(ctx context.Context, newTask *model.TaskCreateData) (*model.Task, error)
	Get(ctx context.Context, id string) (*model.Task, error)
	Delete(ctx context.Context, id string) error                                      // удалить как в базе, так и в minio
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, string, error) // прям скачать результат
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Task, error)        // получить список
	CreateMark(ctx context.Context, data *model.MarkCreateData) (*model.Mark, error)
	GetMark(ctx context.Context, name string) (*model.Mark, error)
	ListMarks(ctx context.Context, onlyActive bool) ([]model.Mark, error)
	DeactivateMark(ctx context.Context, name string) error
}

func NewWatermarkHandler(svc WatermarkService) *WatermarkHandler {
	return &WatermarkHandler{
		service: svc,
	}
}

func (h WatermarkHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h WatermarkHandler) Create(ctx *ginext.Context) {
	// парсинг параметров наложения
	opts, err := parseOptionsForm(ctx)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	// парсинг исходника
	imageFile, imageHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(400, map[string]string{"error": "image is required"})
		return
	}
	defer closeFileFlow(imageFile)

	// собираем все в структуру
	var newTaskRaw model.TaskCreateData
	newTaskRaw.MarkName = ctx.PostForm("mark")
	newTaskRaw.Options = opts
	newTaskRaw.OrigImg = imageFile
	newTaskRaw.OrigName = imageHeader.Filename
	newTaskRaw.OrigContentType = imageHeader.Header.Get("Content-Type")
	newTaskRaw.OrigImgSize = imageHeader.Size

	// передаем в сервис
	res, err := h.service.Create(ctx.Request.Context(), &newTaskRaw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h WatermarkHandler) GetAllTasks(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h WatermarkHandler) GetTask(ctx *ginext.Context) {
	res, err := h.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h WatermarkHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, name, err := h.service.LoadResult(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	if name != "" {
		ctx.Writer.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		log.Printf("Failed to write response at byte %d for task id %q: %v", n, id, err)
	}
}

func (h WatermarkHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
