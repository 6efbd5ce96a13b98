package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
)

func activeMark(_ context.Context, name string) (*model.Mark, error) {
	return &model.Mark{Name: name, ImageKey: "marks/" + name + ".png", IsActive: true}, nil
}

// CREATE - SUCCESS
func TestWatermarkService_Create_OK(t *testing.T) {
	ctx := context.Background()

	repo := &mockRepo{
		getMarkFn: activeMark,
		createFn: func(ctx context.Context, task *model.Task) error {
			require.NotEmpty(t, task.UID)
			require.Equal(t, model.StatusCreated, task.Status)
			require.Equal(t, "logo", task.MarkName)
			require.Equal(t, "marks/logo.png", task.MarkKey)
			require.Equal(t, "r", task.Options.Position)
			require.Equal(t, 0.5, *task.Options.Opacity)
			require.Equal(t, 85, task.Options.Quality)
			require.True(t, strings.HasPrefix(task.SourceKey, "src/"))
			require.True(t, strings.HasSuffix(task.SourceKey, ".jpg"))
			return nil
		},
	}

	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			require.Equal(t, model.JPEG, ct)
			return nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			require.NotEmpty(t, key)
			return nil
		},
	}

	svc := WatermarkService{
		repo:         repo,
		storage:      storage,
		publisher:    pub,
		srcKeyPrefix: "src/",
	}

	task, err := svc.Create(ctx, validCreateData())
	require.NoError(t, err)
	require.NotNil(t, task)
	require.Equal(t, "photo.jpg", task.SourceName)
}

// CREATE - VALIDATION FAIL
func TestWatermarkService_Create_InvalidInput(t *testing.T) {
	svc := WatermarkService{}

	tests := []struct {
		name    string
		mutate  func(d *model.TaskCreateData)
		wantErr error
	}{
		{name: "no source", mutate: func(d *model.TaskCreateData) { d.OrigImg = nil }, wantErr: model.ErrEmptySource},
		{name: "unsupported source type", mutate: func(d *model.TaskCreateData) { d.OrigContentType = "application/pdf" }, wantErr: model.ErrEmptySource},
		{name: "no mark name", mutate: func(d *model.TaskCreateData) { d.MarkName = "  " }, wantErr: model.ErrConfiguration},
		{name: "mark name with slash", mutate: func(d *model.TaskCreateData) { d.MarkName = "../logo" }, wantErr: model.ErrConfiguration},
		{name: "bad position", mutate: func(d *model.TaskCreateData) { d.Options.Position = "under" }, wantErr: model.ErrIncorrectOptions},
		{name: "bad opacity", mutate: func(d *model.TaskCreateData) { o := 3.0; d.Options.Opacity = &o }, wantErr: model.ErrIncorrectOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := validCreateData()
			tt.mutate(data)
			_, err := svc.Create(context.Background(), data)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// CREATE - MARK NOT FOUND
func TestWatermarkService_Create_MarkNotFound(t *testing.T) {
	repo := &mockRepo{
		getMarkFn: func(ctx context.Context, name string) (*model.Mark, error) {
			return nil, model.ErrMarkNotFound
		},
	}

	svc := WatermarkService{repo: repo}
	_, err := svc.Create(context.Background(), validCreateData())
	require.ErrorIs(t, err, model.ErrMarkNotFound)
}

// CREATE - STORAGE PUT FAIL
func TestWatermarkService_Create_StorageError(t *testing.T) {
	repo := &mockRepo{getMarkFn: activeMark}
	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			return errors.New("storage is down")
		},
	}

	svc := WatermarkService{
		repo:         repo,
		storage:      storage,
		srcKeyPrefix: "src/",
	}

	_, err := svc.Create(context.Background(), validCreateData())
	require.ErrorIs(t, err, model.ErrCommon500)
}

// CREATE - DB FAIL - блоб подчищается
func TestWatermarkService_Create_DBErrorCleansBlob(t *testing.T) {
	var putKey, deletedKey string
	repo := &mockRepo{
		getMarkFn: activeMark,
		createFn: func(ctx context.Context, task *model.Task) error {
			return errors.New("db down")
		},
	}
	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			putKey = key
			return nil
		},
		deleteFn: func(ctx context.Context, key string) error {
			deletedKey = key
			return nil
		},
	}

	svc := WatermarkService{repo: repo, storage: storage, srcKeyPrefix: "src/"}
	_, err := svc.Create(context.Background(), validCreateData())
	require.ErrorIs(t, err, model.ErrCommon500)
	require.Equal(t, putKey, deletedKey)
}

// GETLIST - SUCCESS
func TestWatermarkService_GetList_OK(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Task, error) {
			require.Equal(t, 1, req.Page)
			require.Equal(t, 30, req.Limit)
			require.Equal(t, "created_at", req.Sort)
			require.Equal(t, "DESC", req.Order)
			return []model.Task{{UID: uuid.New()}}, nil
		},
	}

	svc := WatermarkService{repo: repo}

	res, err := svc.GetList(context.Background(), &model.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestValidateQueryParams(t *testing.T) {
	tests := []struct {
		in   model.ListRequest
		want model.ListRequest
	}{
		{in: model.ListRequest{}, want: model.ListRequest{Page: 1, Limit: 30, Sort: "created_at", Order: "DESC"}},
		{in: model.ListRequest{Page: 3, Limit: 500, Sort: " UID ", Order: "ascend"}, want: model.ListRequest{Page: 3, Limit: 30, Sort: "task_uid", Order: "ASC"}},
		{in: model.ListRequest{Limit: 10, Sort: "drop table", Order: "sideways"}, want: model.ListRequest{Page: 1, Limit: 10, Sort: "created_at", Order: "DESC"}},
	}

	for _, tt := range tests {
		req := tt.in
		validateQueryParams(&req)
		require.Equal(t, tt.want, req)
	}
}

// GET - SUCCESS
func TestWatermarkService_Get_OK(t *testing.T) {
	id := uuid.New().String()

	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Task, error) {
			return &model.Task{UID: uuid.MustParse(uid)}, nil
		},
	}

	svc := WatermarkService{repo: repo}

	task, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, task.UID.String())
}

// GET - FAIL
func TestWatermarkService_Get_Errors(t *testing.T) {
	svc := WatermarkService{}
	_, err := svc.Get(context.Background(), "bad-id")
	require.ErrorIs(t, err, model.ErrIncorrectID)

	svc.repo = &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Task, error) { return nil, model.ErrTaskNotFound },
	}
	_, err = svc.Get(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrTaskNotFound)

	svc.repo = &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Task, error) { return nil, errors.New("db down") },
	}
	_, err = svc.Get(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrCommon500)
}

// LOADRESULT - FAIL
func TestWatermarkService_LoadResult_NotReady(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{Status: model.StatusCreated}, nil
		},
	}

	svc := WatermarkService{repo: repo}

	_, _, _, err := svc.LoadResult(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrResultNotReady)
}

// LOADRESULT - SUCCESS
func TestWatermarkService_LoadResult_OK(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{Status: model.StatusDone, ResultKey: "results/x.png", ResultName: "cat_watermarked.png"}, nil
		},
	}
	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			require.Equal(t, "results/x.png", key)
			return io.NopCloser(strings.NewReader("png")), model.PNG, nil
		},
	}

	svc := WatermarkService{repo: repo, storage: storage}

	r, ct, name, err := svc.LoadResult(context.Background(), uuid.New().String())
	require.NoError(t, err)
	require.Equal(t, model.PNG, ct)
	require.Equal(t, "cat_watermarked.png", name)
	body, _ := io.ReadAll(r)
	require.Equal(t, "png", string(body))
}

// DELETE - FAIL - NOT FOUND
func TestWatermarkService_Delete_NotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Task, error) {
			return nil, model.ErrTaskNotFound
		},
	}

	svc := WatermarkService{repo: repo}
	err := svc.Delete(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrTaskNotFound)
}

// DELETE - SUCCESS - удаляются исходник и результат, знак не трогается
func TestWatermarkService_Delete_OK(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{SourceKey: "src/a.jpg", ResultKey: "results/a.jpg", MarkName: "logo", Status: model.StatusDone}, nil
		},
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	var deleted []string
	storage := &mockStorage{
		deleteFn: func(ctx context.Context, key string) error {
			deleted = append(deleted, key)
			return nil
		},
	}

	svc := WatermarkService{repo: repo, storage: storage}
	require.NoError(t, svc.Delete(context.Background(), uuid.New().String()))
	require.Equal(t, []string{"src/a.jpg", "results/a.jpg"}, deleted)
}

// UPDATESTATUS - SUCCESS
func TestWatermarkService_UpdateStatus_OK(t *testing.T) {
	repo := &mockRepo{
		updateStatusFn: func(ctx context.Context, id string, st model.Status) error {
			require.Equal(t, model.StatusDone, st)
			return nil
		},
	}

	svc := WatermarkService{repo: repo}
	err := svc.UpdateStatus(context.Background(), uuid.New().String(), model.StatusDone)
	require.NoError(t, err)

	err = svc.UpdateStatus(context.Background(), uuid.New().String(), model.Status("paused"))
	require.ErrorIs(t, err, model.ErrIncorrectQuery)
}

// SAVERESULT - SUCCESS
func TestWatermarkService_SaveResult_OK(t *testing.T) {
	repo := &mockRepo{
		saveResultFn: func(ctx context.Context, task *model.Task) error {
			require.NotNil(t, task.UpdatedAt)
			return nil
		},
	}

	svc := WatermarkService{repo: repo}
	err := svc.SaveResult(context.Background(), &model.Task{})
	require.NoError(t, err)
}

// REVIVEORPHANS - SUCCESS
func TestWatermarkService_ReviveOrphans(t *testing.T) {
	called := 0

	repo := &mockRepo{
		fetchOrphansFn: func(ctx context.Context, limit int) ([]string, error) {
			return []string{"id1", "id2"}, nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			called++
			return nil
		},
	}

	svc := WatermarkService{repo: repo, publisher: pub}
	svc.ReviveOrphans(context.Background(), 10)

	require.Equal(t, 2, called)
}

// хелпер для создания файла
func newFakeFile(content string) multipart.File {
	return &fakeMultipartFile{
		Reader: bytes.NewReader([]byte(content)),
	}
}

// хелпер для генерации корректного TaskCreateData
func validCreateData() *model.TaskCreateData {
	return &model.TaskCreateData{
		MarkName:        "logo",
		OrigImg:         newFakeFile("image-bytes"),
		OrigName:        "photo.jpg",
		OrigImgSize:     int64(len("image-bytes")),
		OrigContentType: model.JPEG,
	}
}
