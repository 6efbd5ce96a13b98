package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/gin-gonic/gin"
)

type mockWatermarkService struct {
	createFn         func(ctx context.Context, d *model.TaskCreateData) (*model.Task, error)
	getFn            func(ctx context.Context, id string) (*model.Task, error)
	deleteFn         func(ctx context.Context, id string) error
	loadResultFn     func(ctx context.Context, id string) (io.ReadCloser, string, string, error)
	getListFn        func(ctx context.Context, req *model.ListRequest) ([]model.Task, error)
	createMarkFn     func(ctx context.Context, d *model.MarkCreateData) (*model.Mark, error)
	getMarkFn        func(ctx context.Context, name string) (*model.Mark, error)
	listMarksFn      func(ctx context.Context, onlyActive bool) ([]model.Mark, error)
	deactivateMarkFn func(ctx context.Context, name string) error
}

func (m *mockWatermarkService) Create(ctx context.Context, d *model.TaskCreateData) (*model.Task, error) {
	return m.createFn(ctx, d)
}

func (m *mockWatermarkService) Get(ctx context.Context, id string) (*model.Task, error) {
	return m.getFn(ctx, id)
}

func (m *mockWatermarkService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockWatermarkService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, string, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockWatermarkService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Task, error) {
	return m.getListFn(ctx, req)
}

func (m *mockWatermarkService) CreateMark(ctx context.Context, d *model.MarkCreateData) (*model.Mark, error) {
	return m.createMarkFn(ctx, d)
}

func (m *mockWatermarkService) GetMark(ctx context.Context, name string) (*model.Mark, error) {
	return m.getMarkFn(ctx, name)
}

func (m *mockWatermarkService) ListMarks(ctx context.Context, onlyActive bool) ([]model.Mark, error) {
	return m.listMarksFn(ctx, onlyActive)
}

func (m *mockWatermarkService) DeactivateMark(ctx context.Context, name string) error {
	return m.deactivateMarkFn(ctx, name)
}

func init() {
	gin.SetMode(gin.TestMode)
}
