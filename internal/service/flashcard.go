package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/msomdec/flashdeck/internal/domain"
)

// FlashcardService handles a flashcard together with the figures it owns.
// Every mutation runs in one transaction.
type FlashcardService struct {
	store  domain.Store
	images *ImageFiles
	log    *slog.Logger
}

// NewFlashcardService creates a new FlashcardService.
func NewFlashcardService(store domain.Store, images *ImageFiles, logger *slog.Logger) *FlashcardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlashcardService{store: store, images: images, log: logger}
}

// Create validates in and stores the card with its figures.
func (s *FlashcardService) Create(ctx context.Context, in domain.CardInput) (*domain.Flashcard, error) {
	category, err := validateCard(in)
	if err != nil {
		return nil, err
	}
	for _, fig := range []domain.FigureInput{in.QuestionFigure, in.AnswerFigure} {
		if _, ok := fig.(domain.KeepImage); ok {
			return nil, fmt.Errorf("%w: a new card has no image to keep", domain.ErrInvalidFigureInput)
		}
	}

	j := &fileJournal{}
	q, a, err := s.stageSides(ctx, in, j)
	if err != nil {
		return nil, err
	}

	card := &domain.Flashcard{Category: category, Question: in.Question, Answer: in.Answer}
	err = runInTx(ctx, s.store, s.images, s.log, j, func(repos domain.Repositories) error {
		figures := figureStore{repo: repos.Figures(), journal: j}
		if q != nil {
			f, err := figures.create(ctx, q)
			if err != nil {
				return fmt.Errorf("create question figure: %w", err)
			}
			card.QuestionFigureID = &f.ID
		}
		if a != nil {
			f, err := figures.create(ctx, a)
			if err != nil {
				return fmt.Errorf("create answer figure: %w", err)
			}
			card.AnswerFigureID = &f.ID
		}
		if err := repos.Flashcards().Create(ctx, card); err != nil {
			return fmt.Errorf("create flashcard: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("flashcard created", "id", card.ID, "category", card.Category)
	return card, nil
}

// View returns the card joined with its figures.
func (s *FlashcardService) View(ctx context.Context, id int64) (*domain.CardView, error) {
	return s.store.Flashcards().GetView(ctx, id)
}

// GetByID returns the card row without its figures.
func (s *FlashcardService) GetByID(ctx context.Context, id int64) (*domain.Flashcard, error) {
	return s.store.Flashcards().GetByID(ctx, id)
}

// Update overwrites the card's text and applies each side's figure input:
// an existing figure is updated in place, or deleted when no input is given;
// a side without a figure gets a new one when input is given.
func (s *FlashcardService) Update(ctx context.Context, id int64, in domain.CardInput) error {
	category, err := validateCard(in)
	if err != nil {
		return err
	}

	j := &fileJournal{}
	q, a, err := s.stageSides(ctx, in, j)
	if err != nil {
		return err
	}

	err = runInTx(ctx, s.store, s.images, s.log, j, func(repos domain.Repositories) error {
		cards := repos.Flashcards()
		figures := figureStore{repo: repos.Figures(), journal: j}

		card, err := cards.GetByID(ctx, id)
		if err != nil {
			return err
		}

		var dropped []int64
		if card.QuestionFigureID, err = applySide(ctx, figures, card.QuestionFigureID, q, &dropped); err != nil {
			return fmt.Errorf("question figure: %w", err)
		}
		if card.AnswerFigureID, err = applySide(ctx, figures, card.AnswerFigureID, a, &dropped); err != nil {
			return fmt.Errorf("answer figure: %w", err)
		}

		card.Category = category
		card.Question = in.Question
		card.Answer = in.Answer
		if err := cards.Update(ctx, card); err != nil {
			return fmt.Errorf("update flashcard: %w", err)
		}

		// The card no longer references these, so the foreign key allows the delete.
		for _, figID := range dropped {
			if err := figures.delete(ctx, figID); err != nil {
				return fmt.Errorf("delete figure %d: %w", figID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update flashcard %d: %w", id, err)
	}

	s.log.Info("flashcard updated", "id", id, "category", category)
	return nil
}

// applySide returns the side's figure reference after applying in. A figure
// that must be deleted is appended to dropped and the returned reference is nil.
func applySide(ctx context.Context, figures figureStore, current *int64, in *stagedFigure, dropped *[]int64) (*int64, error) {
	switch {
	case current != nil && in != nil:
		if err := figures.update(ctx, *current, in); err != nil {
			return nil, err
		}
		return current, nil
	case current != nil:
		*dropped = append(*dropped, *current)
		return nil, nil
	case in != nil:
		f, err := figures.create(ctx, in)
		if err != nil {
			return nil, err
		}
		return &f.ID, nil
	default:
		return nil, nil
	}
}

// Delete removes the card, both of its figures, and their image files.
func (s *FlashcardService) Delete(ctx context.Context, id int64) error {
	j := &fileJournal{}
	err := runInTx(ctx, s.store, s.images, s.log, j, func(repos domain.Repositories) error {
		cards := repos.Flashcards()
		card, err := cards.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := cards.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete flashcard: %w", err)
		}

		figures := figureStore{repo: repos.Figures(), journal: j}
		for _, figID := range []*int64{card.QuestionFigureID, card.AnswerFigureID} {
			if figID == nil {
				continue
			}
			if err := figures.delete(ctx, *figID); err != nil {
				return fmt.Errorf("delete figure %d: %w", *figID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete flashcard %d: %w", id, err)
	}

	s.log.Info("flashcard deleted", "id", id)
	return nil
}

// List returns every card, or the cards whose category equals category.
func (s *FlashcardService) List(ctx context.Context, category string) ([]domain.CardView, error) {
	return s.store.Flashcards().ListViews(ctx, category)
}

// CategoryCounts returns the number of cards per category.
func (s *FlashcardService) CategoryCounts(ctx context.Context) (map[string]int, error) {
	return s.store.Flashcards().CategoryCounts(ctx)
}

// Categories returns the sorted category names containing term, ignoring case.
// An empty term matches every category.
func (s *FlashcardService) Categories(ctx context.Context, term string) ([]string, error) {
	counts, err := s.store.Flashcards().CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}

	term = strings.ToLower(strings.TrimSpace(term))
	names := make([]string, 0, len(counts))
	for name := range counts {
		if strings.Contains(strings.ToLower(name), term) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *FlashcardService) stageSides(ctx context.Context, in domain.CardInput, j *fileJournal) (q, a *stagedFigure, err error) {
	if q, err = stageFigure(ctx, in.QuestionFigure, s.images, j); err != nil {
		j.rollback(ctx, s.images, s.log)
		return nil, nil, fmt.Errorf("question figure: %w", err)
	}
	if a, err = stageFigure(ctx, in.AnswerFigure, s.images, j); err != nil {
		j.rollback(ctx, s.images, s.log)
		return nil, nil, fmt.Errorf("answer figure: %w", err)
	}
	return q, a, nil
}

// validateCard checks card-level rules before anything is written and returns
// the sanitized category.
func validateCard(in domain.CardInput) (string, error) {
	category := domain.SanitizeCategory(in.Category)
	if category == "" {
		return "", domain.ErrMissingCategory
	}
	if domain.IsBlank(in.Question) && in.QuestionFigure == nil {
		return "", domain.ErrEmptyQuestionSide
	}
	if domain.IsBlank(in.Answer) && in.AnswerFigure == nil {
		return "", domain.ErrEmptyAnswerSide
	}
	return category, nil
}
