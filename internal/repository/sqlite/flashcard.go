package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/flashdeck/internal/domain"
)

// flashcardRepo implements domain.FlashcardRepository using SQLite.
type flashcardRepo struct {
	db querier
}

const cardViewSelect = `
	SELECT c.id, c.category, c.question, c.answer,
	       c.question_figure_id, qf.code_type, qf.code_example, qf.image_handle,
	       c.answer_figure_id, af.code_type, af.code_example, af.image_handle
	FROM flashcards c
	LEFT JOIN figures qf ON qf.id = c.question_figure_id
	LEFT JOIN figures af ON af.id = c.answer_figure_id`

func (r *flashcardRepo) Create(ctx context.Context, card *domain.Flashcard) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO flashcards (category, question, answer, question_figure_id, answer_figure_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		card.Category, nullIfBlank(card.Question), nullIfBlank(card.Answer),
		card.QuestionFigureID, card.AnswerFigureID, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert flashcard: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	card.ID = id
	card.CreatedAt = now
	card.UpdatedAt = now
	return nil
}

func (r *flashcardRepo) GetByID(ctx context.Context, id int64) (*domain.Flashcard, error) {
	var (
		c                domain.Flashcard
		question, answer sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, category, question, answer, question_figure_id, answer_figure_id, created_at, updated_at
		 FROM flashcards WHERE id = ?`, id,
	).Scan(&c.ID, &c.Category, &question, &answer, &c.QuestionFigureID, &c.AnswerFigureID,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get flashcard: %w", err)
	}
	c.Question = question.String
	c.Answer = answer.String
	return &c, nil
}

func (r *flashcardRepo) Update(ctx context.Context, card *domain.Flashcard) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE flashcards SET category = ?, question = ?, answer = ?, question_figure_id = ?, answer_figure_id = ?, updated_at = ?
		 WHERE id = ?`,
		card.Category, nullIfBlank(card.Question), nullIfBlank(card.Answer),
		card.QuestionFigureID, card.AnswerFigureID, now, card.ID,
	)
	if err != nil {
		return fmt.Errorf("update flashcard: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	card.UpdatedAt = now
	return nil
}

func (r *flashcardRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM flashcards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
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

func (r *flashcardRepo) GetView(ctx context.Context, id int64) (*domain.CardView, error) {
	row := r.db.QueryRowContext(ctx, cardViewSelect+" WHERE c.id = ?", id)
	v, err := scanCardView(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get flashcard view: %w", err)
	}
	return v, nil
}

func (r *flashcardRepo) ListViews(ctx context.Context, category string) ([]domain.CardView, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category == "" {
		rows, err = r.db.QueryContext(ctx, cardViewSelect+" ORDER BY c.id")
	} else {
		rows, err = r.db.QueryContext(ctx, cardViewSelect+" WHERE c.category = ? ORDER BY c.id", category)
	}
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	defer rows.Close()

	views := []domain.CardView{}
	for rows.Next() {
		v, err := scanCardView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flashcard: %w", err)
		}
		views = append(views, *v)
	}
	return views, rows.Err()
}

func (r *flashcardRepo) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT category, COUNT(*) FROM flashcards GROUP BY category")
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCardView(s scanner) (*domain.CardView, error) {
	var v domain.CardView
	err := s.Scan(&v.ID, &v.Category, &v.Question, &v.Answer,
		&v.QuestionFigureID, &v.QCodeType, &v.QCodeExample, &v.QImage,
		&v.AnswerFigureID, &v.ACodeType, &v.ACodeExample, &v.AImage)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
