package wmpostgres

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/UnendingLoop/Watermarker/internal/model"
)

// CreateMark регистрирует знак; деактивированный знак с тем же именем перезаписывается и снова активируется.
// Уже созданные задачи не затрагиваются: они хранят свой mark_key
func (p PostgresRepo) CreateMark(ctx context.Context, m *model.Mark) error {
	query := `INSERT INTO marks (name, image_key, content_type, is_active, created_at)
	VALUES ($1, $2, $3, TRUE, $4)
	ON CONFLICT (name) DO UPDATE
	SET image_key = EXCLUDED.image_key, content_type = EXCLUDED.content_type, is_active = TRUE, created_at = EXCLUDED.created_at
	WHERE marks.is_active = FALSE
	RETURNING name`

	return scanAffected(p.DB.QueryRowContext(ctx, query, m.Name, m.ImageKey, m.ContentType, m.CreatedAt), model.ErrMarkExists)
}

// GetMark отдает только активный знак
func (p PostgresRepo) GetMark(ctx context.Context, name string) (*model.Mark, error) {
	query := `SELECT name, image_key, content_type, is_active, created_at
	FROM marks
	WHERE name = $1 AND is_active = TRUE`
	var mark model.Mark

	err := p.DB.QueryRowContext(ctx, query, name).Scan(&mark.Name,
		&mark.ImageKey,
		&mark.ContentType,
		&mark.IsActive,
		&mark.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrMarkNotFound
		default:
			return nil, err // 500
		}
	}
	return &mark, nil
}

func (p PostgresRepo) ListMarks(ctx context.Context, onlyActive bool) ([]model.Mark, error) {
	query := `SELECT name, image_key, content_type, is_active, created_at
	FROM marks
	WHERE is_active OR NOT $1
	ORDER BY name ASC`

	rows, err := p.DB.QueryContext(ctx, query, onlyActive)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	marks := make([]model.Mark, 0)
	for rows.Next() {
		var mark model.Mark
		if err := rows.Scan(&mark.Name,
			&mark.ImageKey,
			&mark.ContentType,
			&mark.IsActive,
			&mark.CreatedAt); err != nil {
			return nil, err
		}
		marks = append(marks, mark)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return marks, nil
}

// DeactivateMark снимает флаг is_active; задачи, уже ссылающиеся на знак, упадут с ErrMarkNotFound
func (p PostgresRepo) DeactivateMark(ctx context.Context, name string) error {
	query := `UPDATE marks SET is_active = FALSE
	WHERE name = $1 AND is_active = TRUE
	RETURNING name`

	return scanAffected(p.DB.QueryRowContext(ctx, query, name), model.ErrMarkNotFound)
}
