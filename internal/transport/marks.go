package transport

import (
	"strconv"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/wb-go/wbf/ginext"
)

func (h WatermarkHandler) CreateMark(ctx *ginext.Context) {
	markFile, markHeader, err := ctx.Request.FormFile("mark")
	if err != nil {
		ctx.JSON(400, map[string]string{"error": "mark image is required"})
		return
	}
	defer closeFileFlow(markFile)

	data := model.MarkCreateData{
		Name:        ctx.PostForm("name"),
		Img:         markFile,
		ContentType: markHeader.Header.Get("Content-Type"),
		Size:        markHeader.Size,
	}

	res, err := h.service.CreateMark(ctx.Request.Context(), &data)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

// ListMarks - по умолчанию только активные, ?all=true покажет и выключенные
func (h WatermarkHandler) ListMarks(ctx *ginext.Context) {
	all := false
	if raw := ctx.Query("all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			ctx.JSON(400, map[string]string{"error": model.ErrIncorrectQuery.Error()})
			return
		}
		all = v
	}

	res, err := h.service.ListMarks(ctx.Request.Context(), !all)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h WatermarkHandler) GetMark(ctx *ginext.Context) {
	res, err := h.service.GetMark(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h WatermarkHandler) DeactivateMark(ctx *ginext.Context) {
	if err := h.service.DeactivateMark(ctx.Request.Context(), ctx.Param("name")); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
