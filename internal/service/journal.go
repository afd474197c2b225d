package service

import (
	"context"
	"log/slog"

	"github.com/msomdec/flashdeck/internal/domain"
)

// fileJournal records image files touched by one operation. Files saved by
// the operation are removed if it rolls back; files it made obsolete are
// removed only once its transaction has committed.
type fileJournal struct {
	saved    []string
	obsolete []string
}

func (j *fileJournal) markSaved(handle string)    { j.saved = append(j.saved, handle) }
func (j *fileJournal) markObsolete(handle string) { j.obsolete = append(j.obsolete, handle) }

func (j *fileJournal) rollback(ctx context.Context, images *ImageFiles, log *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range j.saved {
		if err := images.Remove(ctx, h); err != nil {
			log.Error("remove image after rollback", "handle", h, "error", err)
		}
	}
	j.saved = nil
	j.obsolete = nil
}

// commit removes obsolete files. The rows are already committed, so failures
// are logged and the operation still succeeds.
func (j *fileJournal) commit(ctx context.Context, images *ImageFiles, log *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range j.obsolete {
		if err := images.Remove(ctx, h); err != nil {
			log.Error("remove obsolete image", "handle", h, "error", err)
		}
	}
	j.saved = nil
	j.obsolete = nil
}

// runInTx runs fn in one transaction and settles the journal on the outcome.
func runInTx(ctx context.Context, store domain.Transactor, images *ImageFiles, log *slog.Logger, j *fileJournal, fn func(repos domain.Repositories) error) error {
	if err := store.InTx(ctx, fn); err != nil {
		j.rollback(ctx, images, log)
		return err
	}
	j.commit(ctx, images, log)
	return nil
}
