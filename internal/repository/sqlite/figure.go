package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/flashdeck/internal/domain"
)

// figureRepo implements domain.FigureRepository using SQLite.
type figureRepo struct {
	db querier
}

func (r *figureRepo) Create(ctx context.Context, figure *domain.Figure) error {
	codeType, codeExample, image, err := figureColumns(figure.Content)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO figures (code_type, code_example, image_handle, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		codeType, codeExample, image, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert figure: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	figure.ID = id
	figure.CreatedAt = now
	figure.UpdatedAt = now
	return nil
}

func (r *figureRepo) GetByID(ctx context.Context, id int64) (*domain.Figure, error) {
	var (
		f                          domain.Figure
		codeType, codeExample, img sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code_type, code_example, image_handle, created_at, updated_at
		 FROM figures WHERE id = ?`, id,
	).Scan(&f.ID, &codeType, &codeExample, &img, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get figure: %w", err)
	}

	switch {
	case img.Valid:
		f.Content = domain.ImageContent{Handle: img.String}
	case codeType.Valid && codeExample.Valid:
		f.Content = domain.CodeContent{Type: codeType.String, Example: codeExample.String}
	default:
		return nil, fmt.Errorf("figure %d has no content", id)
	}
	return &f, nil
}

func (r *figureRepo) Update(ctx context.Context, figure *domain.Figure) error {
	codeType, codeExample, image, err := figureColumns(figure.Content)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE figures SET code_type = ?, code_example = ?, image_handle = ?, updated_at = ?
		 WHERE id = ?`,
		codeType, codeExample, image, now, figure.ID,
	)
	if err != nil {
		return fmt.Errorf("update figure: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	figure.UpdatedAt = now
	return nil
}

func (r *figureRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM figures WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete figure: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// figureColumns maps figure content onto the nullable figure columns,
// leaving the columns of the other representation NULL.
func figureColumns(content domain.FigureContent) (codeType, codeExample, image sql.NullString, err error) {
	switch c := content.(type) {
	case domain.CodeContent:
		if domain.IsBlank(c.Type) || domain.IsBlank(c.Example) {
			return codeType, codeExample, image, domain.ErrInvalidFigureInput
		}
		codeType = sql.NullString{String: c.Type, Valid: true}
		codeExample = sql.NullString{String: c.Example, Valid: true}
	case domain.ImageContent:
		if domain.IsBlank(c.Handle) {
			return codeType, codeExample, image, domain.ErrInvalidFigureInput
		}
		image = sql.NullString{String: c.Handle, Valid: true}
	default:
		return codeType, codeExample, image, domain.ErrInvalidFigureInput
	}
	return codeType, codeExample, image, nil
}
