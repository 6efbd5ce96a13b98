package wmpostgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"
)

func newRepoWithMock(t *testing.T) (PostgresRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
	})

	pg := &dbpg.DB{Master: db}

	return PostgresRepo{DB: pg}, mock
}

var taskColumns = []string{
	"task_uid", "source_key", "source_name", "result_key", "result_name",
	"mark_name", "mark_key", "options", "status", "err_msg", "created_at", "updated_at",
}

// CREATE - SUCCESS
func TestPostgresRepo_Create_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	ctime := time.Now()
	task := &model.Task{
		UID:        uuid.New(),
		SourceKey:  "src/1.png",
		SourceName: "cat.png",
		MarkName:   "logo",
		MarkKey:    "marks/logo-1.png",
		Status:     model.StatusCreated,
		CreatedAt:  &ctime,
	}

	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs(
			task.UID,
			task.SourceKey,
			task.SourceName,
			task.ResultKey,
			task.ResultName,
			task.MarkName,
			task.MarkKey,
			sqlmock.AnyArg(),
			task.Status,
			sqlmock.AnyArg(),
			task.CreatedAt,
			task.CreatedAt,
		).
		WillReturnRows(sqlmock.NewRows([]string{}))

	err := repo.Create(context.Background(), task)
	require.NoError(t, err)
}

// GET - SUCCESS
func TestPostgresRepo_Get_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	id := uuid.New().String()

	rows := sqlmock.NewRows(taskColumns).AddRow(
		id, "src/x.png", "x.png", "", "",
		"logo", "marks/logo-1.png", []byte(`{"position":"br","opacity":0.4,"scale":"auto","rotation":"0","quality":85}`),
		model.StatusCreated, []byte(`["first try failed"]`), time.Now(), time.Now(),
	)

	mock.ExpectQuery(`SELECT task_uid`).
		WithArgs(id).
		WillReturnRows(rows)

	task, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, task.UID.String())
	require.Equal(t, "logo", task.MarkName)
	require.Equal(t, "marks/logo-1.png", task.MarkKey)
	require.Equal(t, "br", task.Options.Position)
	require.Equal(t, 0.4, *task.Options.Opacity)
	require.Equal(t, model.StringSlice{"first try failed"}, task.ErrMsg)
}

// GET - NOT FOUND
func TestPostgresRepo_Get_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT task_uid`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrTaskNotFound)
}

// GETLIST - SUCCESS
func TestPostgresRepo_GetList_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	req := &model.ListRequest{
		Page:  2,
		Limit: 2,
		Sort:  "created_at",
		Order: "DESC",
	}

	rows := sqlmock.NewRows([]string{
		"task_uid", "source_name", "result_name", "mark_name", "options",
		"status", "err_msg", "created_at", "updated_at",
	}).
		AddRow(uuid.New().String(), "a.jpg", "a_watermarked.jpg", "logo", []byte(`{}`), model.StatusDone, nil, time.Now(), time.Now()).
		AddRow(uuid.New().String(), "b.gif", "", "logo", []byte(`{}`), model.StatusCreated, nil, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC`)).
		WithArgs(2, 2).
		WillReturnRows(rows)

	res, err := repo.GetList(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "a_watermarked.jpg", res[0].ResultName)
}

// GETLIST - DBERROR
func TestPostgresRepo_GetList_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT task_uid`).
		WillReturnError(errors.New("db down"))

	_, err := repo.GetList(context.Background(), &model.ListRequest{Page: 1, Limit: 10, Sort: "task_uid", Order: "ASC"})
	require.Error(t, err)
}

func TestPostgresRepo_ReturningQueries(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		rows    *sqlmock.Rows
		dbErr   error
		call    func(repo PostgresRepo) error
		wantErr error
	}{
		{
			name:  "delete ok",
			query: `DELETE FROM tasks`,
			rows:  sqlmock.NewRows([]string{"task_uid"}).AddRow("id"),
			call:  func(repo PostgresRepo) error { return repo.Delete(context.Background(), "id") },
		},
		{
			name:    "delete not found",
			query:   `DELETE FROM tasks`,
			rows:    sqlmock.NewRows([]string{"task_uid"}),
			call:    func(repo PostgresRepo) error { return repo.Delete(context.Background(), "id") },
			wantErr: model.ErrTaskNotFound,
		},
		{
			name:  "update status ok",
			query: `UPDATE tasks SET status`,
			rows:  sqlmock.NewRows([]string{"task_uid"}).AddRow("id"),
			call: func(repo PostgresRepo) error {
				return repo.UpdateStatus(context.Background(), "id", model.StatusInProgress)
			},
		},
		{
			name:  "update status not found",
			query: `UPDATE tasks SET status`,
			rows:  sqlmock.NewRows([]string{"task_uid"}),
			call: func(repo PostgresRepo) error {
				return repo.UpdateStatus(context.Background(), "id", model.StatusInProgress)
			},
			wantErr: model.ErrTaskNotFound,
		},
		{
			name:  "save result ok",
			query: `UPDATE tasks SET status`,
			rows:  sqlmock.NewRows([]string{"task_uid"}).AddRow("id"),
			call: func(repo PostgresRepo) error {
				now := time.Now()
				return repo.SaveResult(context.Background(), &model.Task{UID: uuid.New(), Status: model.StatusDone, ResultKey: "res/1.jpg", UpdatedAt: &now})
			},
		},
		{
			name:  "save result db error",
			query: `UPDATE tasks SET status`,
			dbErr: errors.New("db down"),
			call: func(repo PostgresRepo) error {
				return repo.SaveResult(context.Background(), &model.Task{UID: uuid.New(), Status: model.StatusFailed})
			},
			wantErr: errAny,
		},
		{
			name:  "create mark ok",
			query: `INSERT INTO marks`,
			rows:  sqlmock.NewRows([]string{"name"}).AddRow("logo"),
			call: func(repo PostgresRepo) error {
				return repo.CreateMark(context.Background(), &model.Mark{Name: "logo", ImageKey: "marks/logo.png", ContentType: model.PNG})
			},
		},
		{
			name:  "create mark already active",
			query: `INSERT INTO marks`,
			rows:  sqlmock.NewRows([]string{"name"}),
			call: func(repo PostgresRepo) error {
				return repo.CreateMark(context.Background(), &model.Mark{Name: "logo"})
			},
			wantErr: model.ErrMarkExists,
		},
		{
			name:  "deactivate ok",
			query: `UPDATE marks SET is_active = FALSE`,
			rows:  sqlmock.NewRows([]string{"name"}).AddRow("logo"),
			call:  func(repo PostgresRepo) error { return repo.DeactivateMark(context.Background(), "logo") },
		},
		{
			name:    "deactivate missing",
			query:   `UPDATE marks SET is_active = FALSE`,
			rows:    sqlmock.NewRows([]string{"name"}),
			call:    func(repo PostgresRepo) error { return repo.DeactivateMark(context.Background(), "ghost") },
			wantErr: model.ErrMarkNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)

			exp := mock.ExpectQuery(regexp.QuoteMeta(tt.query))
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnRows(tt.rows)
			}

			err := tt.call(repo)
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
			case tt.wantErr == errAny:
				require.Error(t, err)
			default:
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

var errAny = errors.New("any error")

// GETMARK - только активные
func TestPostgresRepo_GetMark(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE name = $1 AND is_active = TRUE`)).
		WithArgs("logo").
		WillReturnRows(sqlmock.NewRows([]string{"name", "image_key", "content_type", "is_active", "created_at"}).
			AddRow("logo", "marks/logo.png", model.PNG, true, time.Now()))

	mark, err := repo.GetMark(context.Background(), "logo")
	require.NoError(t, err)
	require.Equal(t, "marks/logo.png", mark.ImageKey)
	require.True(t, mark.IsActive)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE name = $1 AND is_active = TRUE`)).
		WithArgs("old").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetMark(context.Background(), "old")
	require.ErrorIs(t, err, model.ErrMarkNotFound)
}

func TestPostgresRepo_ListMarks(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT name, image_key`).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"name", "image_key", "content_type", "is_active", "created_at"}).
			AddRow("a", "marks/a.png", model.PNG, true, time.Now()).
			AddRow("b", "marks/b.png", model.PNG, false, time.Now()))

	marks, err := repo.ListMarks(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, marks, 2)
	require.False(t, marks[1].IsActive)
}

func TestPostgresRepo_FetchOrphans(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT task_uid`).
		WithArgs(model.StatusCreated, model.StatusInProgress, 5).
		WillReturnRows(sqlmock.NewRows([]string{"task_uid"}).AddRow("a").AddRow("b"))

	res, err := repo.FetchOrphans(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, res)
}
