// Package wmpostgres implements task and watermark storage on PostgreSQL
package wmpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/UnendingLoop/Watermarker/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, n *model.Task) error {
	query := `INSERT INTO tasks (task_uid, source_key, source_name, result_key, result_name, mark_name, mark_key, options, status, err_msg, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	return p.DB.QueryRowContext(ctx, query, n.UID, n.SourceKey, n.SourceName, n.ResultKey, n.ResultName, n.MarkName, n.MarkKey, n.Options, n.Status, n.ErrMsg, n.CreatedAt, n.CreatedAt).Err()
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT task_uid, source_key, source_name, result_key, result_name, mark_name, mark_key, options, status, err_msg, created_at, updated_at
	FROM tasks
	WHERE task_uid = $1`
	var task model.Task

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&task.UID,
		&task.SourceKey,
		&task.SourceName,
		&task.ResultKey,
		&task.ResultName,
		&task.MarkName,
		&task.MarkKey,
		&task.Options,
		&task.Status,
		&task.ErrMsg,
		&task.CreatedAt,
		&task.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrTaskNotFound
		default:
			return nil, err // 500
		}
	}
	return &task, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Task, error) {
	query := fmt.Sprintf(`SELECT task_uid, source_name, result_name, mark_name, options, status, err_msg, created_at, updated_at
	FROM tasks
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, req.Sort, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	tasks := make([]model.Task, 0, req.Limit)
	for rows.Next() {
		var task model.Task
		if err := rows.Scan(&task.UID,
			&task.SourceName,
			&task.ResultName,
			&task.MarkName,
			&task.Options,
			&task.Status,
			&task.ErrMsg,
			&task.CreatedAt,
			&task.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return tasks, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM tasks
	WHERE task_uid = $1
	RETURNING task_uid`

	return scanAffected(p.DB.QueryRowContext(ctx, query, id), model.ErrTaskNotFound)
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE tasks SET status = $1, updated_at = now()
	WHERE task_uid = $2
	RETURNING task_uid`

	return scanAffected(p.DB.QueryRowContext(ctx, query, newStat, id), model.ErrTaskNotFound)
}

// SaveResult фиксирует итог обработки: статус, ключ и имя результата, накопленные ошибки
func (p PostgresRepo) SaveResult(ctx context.Context, input *model.Task) error {
	query := `UPDATE tasks SET status = $1, updated_at = $2, result_key = $3, result_name = $4, err_msg = $5
	WHERE task_uid = $6
	RETURNING task_uid`

	row := p.DB.QueryRowContext(ctx, query, input.Status, input.UpdatedAt, input.ResultKey, input.ResultName, input.ErrMsg, input.UID)
	return scanAffected(row, model.ErrTaskNotFound)
}

func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT task_uid
	FROM tasks
	WHERE status IN ($1, $2)
	AND updated_at < now() - interval '10 minutes'
	LIMIT $3`

	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}

// scanAffected читает ключ из RETURNING: пустой результат означает, что строка не найдена
func scanAffected(row *sql.Row, notFound error) error {
	var key string
	if err := row.Scan(&key); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return notFound // 404
		default:
			return err // 500
		}
	}
	return nil
}
