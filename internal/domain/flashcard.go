package domain

import (
	"context"
	"strings"
	"time"
)

// Flashcard is a question/answer pair in a category. Each side may reference
// a figure owned exclusively by this card.
type Flashcard struct {
	ID               int64
	Category         string
	Question         string // "" when absent
	Answer           string // "" when absent
	QuestionFigureID *int64
	AnswerFigureID   *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CardInput is the plain data submitted to create or update a flashcard.
type CardInput struct {
	Category       string
	Question       string
	Answer         string
	QuestionFigure FigureInput
	AnswerFigure   FigureInput
}

// CardView is a flashcard joined with its figures. Absent values are nil and
// encode as JSON null.
type CardView struct {
	ID               int64   `json:"id"`
	Category         string  `json:"category"`
	Question         *string `json:"question"`
	Answer           *string `json:"answer"`
	QuestionFigureID *int64  `json:"q_figure_id"`
	QCodeType        *string `json:"q_code_type"`
	QCodeExample     *string `json:"q_code_example"`
	QImage           *string `json:"q_image"`
	AnswerFigureID   *int64  `json:"a_figure_id"`
	ACodeType        *string `json:"a_code_type"`
	ACodeExample     *string `json:"a_code_example"`
	AImage           *string `json:"a_image"`
}

// FlashcardRepository handles flashcard row persistence and the joined reads.
type FlashcardRepository interface {
	Create(ctx context.Context, card *Flashcard) error
	GetByID(ctx context.Context, id int64) (*Flashcard, error)
	Update(ctx context.Context, card *Flashcard) error
	Delete(ctx context.Context, id int64) error
	GetView(ctx context.Context, id int64) (*CardView, error)
	// ListViews returns every card, or only cards in category when it is non-empty.
	ListViews(ctx context.Context, category string) ([]CardView, error)
	CategoryCounts(ctx context.Context) (map[string]int, error)
}

var categoryReplacer = strings.NewReplacer(
	`\`, "_", "/", "_", "*", "_", "?", "_", ":", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeCategory replaces path and shell special characters with underscores
// and trims surrounding whitespace.
func SanitizeCategory(category string) string {
	return strings.TrimSpace(categoryReplacer.Replace(category))
}

// IsBlank reports whether s has no visible text.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
