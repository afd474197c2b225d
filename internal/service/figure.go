package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/msomdec/flashdeck/internal/domain"
)

// stagedFigure is a FigureInput whose new image bytes, if any, are already
// stored. keep marks a re-submitted existing image.
type stagedFigure struct {
	content domain.FigureContent
	keep    bool
}

// stageFigure writes any uploaded image before the transaction starts, so no
// file I/O happens while the database is locked. A nil input stages to nil.
func stageFigure(ctx context.Context, in domain.FigureInput, images *ImageFiles, j *fileJournal) (*stagedFigure, error) {
	switch v := in.(type) {
	case nil:
		return nil, nil
	case domain.CodeInput:
		if domain.IsBlank(v.Type) || domain.IsBlank(v.Example) {
			return nil, domain.ErrInvalidFigureInput
		}
		return &stagedFigure{content: domain.CodeContent{Type: v.Type, Example: v.Example}}, nil
	case domain.UploadImage:
		if v.Upload == nil {
			return nil, domain.ErrInvalidFigureInput
		}
		handle, err := images.Save(ctx, v.Upload)
		if err != nil {
			return nil, err
		}
		j.markSaved(handle)
		return &stagedFigure{content: domain.ImageContent{Handle: handle}}, nil
	case domain.KeepImage:
		if domain.IsBlank(v.Handle) {
			return nil, domain.ErrInvalidFigureInput
		}
		return &stagedFigure{content: domain.ImageContent{Handle: v.Handle}, keep: true}, nil
	default:
		return nil, fmt.Errorf("%w: unknown figure input %T", domain.ErrInvalidFigureInput, in)
	}
}

// figureStore applies figure changes through a transaction-bound repository.
type figureStore struct {
	repo    domain.FigureRepository
	journal *fileJournal
}

func (s figureStore) create(ctx context.Context, in *stagedFigure) (*domain.Figure, error) {
	// A new figure has no image to keep.
	if in == nil || in.keep {
		return nil, domain.ErrInvalidFigureInput
	}
	f := &domain.Figure{Content: in.content}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s figureStore) update(ctx context.Context, id int64, in *stagedFigure) error {
	if in == nil {
		return domain.ErrEmptyFigureUpdate
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	old := f.ImageHandle()

	if in.keep {
		if kept := in.content.(domain.ImageContent).Handle; kept != old {
			return fmt.Errorf("%w: figure %d does not hold image %q", domain.ErrInvalidFigureInput, id, kept)
		}
		return nil
	}

	f.Content = in.content
	if err := s.repo.Update(ctx, f); err != nil {
		return err
	}
	if old != "" {
		s.journal.markObsolete(old)
	}
	return nil
}

func (s figureStore) delete(ctx context.Context, id int64) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if h := f.ImageHandle(); h != "" {
		s.journal.markObsolete(h)
	}
	return nil
}

// FigureService creates, updates, and deletes figures on their own, each call
// in its own transaction.
type FigureService struct {
	store  domain.Store
	images *ImageFiles
	log    *slog.Logger
}

// NewFigureService creates a new FigureService.
func NewFigureService(store domain.Store, images *ImageFiles, logger *slog.Logger) *FigureService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FigureService{store: store, images: images, log: logger}
}

// Create stores a figure holding exactly the given content.
func (s *FigureService) Create(ctx context.Context, in domain.FigureInput) (*domain.Figure, error) {
	if in == nil {
		return nil, domain.ErrInvalidFigureInput
	}
	if _, ok := in.(domain.KeepImage); ok {
		return nil, domain.ErrInvalidFigureInput
	}

	j := &fileJournal{}
	staged, err := stageFigure(ctx, in, s.images, j)
	if err != nil {
		j.rollback(ctx, s.images, s.log)
		return nil, err
	}

	var figure *domain.Figure
	err = runInTx(ctx, s.store, s.images, s.log, j, func(repos domain.Repositories) error {
		f, err := figureStore{repo: repos.Figures(), journal: j}.create(ctx, staged)
		if err != nil {
			return fmt.Errorf("create figure: %w", err)
		}
		figure = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("figure created", "id", figure.ID)
	return figure, nil
}

// Get returns a figure by ID.
func (s *FigureService) Get(ctx context.Context, id int64) (*domain.Figure, error) {
	return s.store.Figures().GetByID(ctx, id)
}

// Update replaces a figure's content in place. Re-submitting the image the
// figure already holds is a no-op; a nil input is ErrEmptyFigureUpdate.
func (s *FigureService) Update(ctx context.Context, id int64, in domain.FigureInput) error {
	if in == nil {
		return domain.ErrEmptyFigureUpdate
	}

	j := &fileJournal{}
	staged, err := stageFigure(ctx, in, s.images, j)
	if err != nil {
		j.rollback(ctx, s.images, s.log)
		return err
	}

	err = runInTx(ctx, s.store, s.images, s.log, j, func(repos domain.Repositories) error {
		return figureStore{repo: repos.Figures(), journal: j}.update(ctx, id, staged)
	})
	if err != nil {
		return fmt.Errorf("update figure %d: %w", id, err)
	}

	s.log.Info("figure updated", "id", id)
	return nil
}

// Delete removes a figure and its image file. Unknown IDs are ErrNotFound.
func (s *FigureService) Delete(ctx context.Context, id int64) error {
	j := &fileJournal{}
	err := runInTx(ctx, s.store, s.images, s.log, j, func(repos domain.Repositories) error {
		return figureStore{repo: repos.Figures(), journal: j}.delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete figure %d: %w", id, err)
	}

	s.log.Info("figure deleted", "id", id)
	return nil
}
