package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"bookapp/internal/activity"
	"bookapp/internal/storage"
)

// SyncResult summarises one remote to local pass
type SyncResult struct {
	Fetched  int
	Inserted int
	Skipped  int
}

// SyncFromRemote copies the signed-in user's remote books that are missing
// locally. Local books are never deleted or pushed. Documents that carry a
// local id keep it; documents without one are given the new local id so the
// next pass skips them.
func (r *BookRepository) SyncFromRemote(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	owner, ok := r.owner()
	if !ok {
		return result, ErrNoSession
	}

	docs, err := r.mirror.BooksByOwner(ctx, owner)
	if err != nil {
		r.logger.Error("Failed to fetch remote books", zap.Error(err), zap.String("owner", owner))
		return result, fmt.Errorf("failed to fetch remote books: %w", err)
	}
	result.Fetched = len(docs)

	for _, doc := range docs {
		if doc.LocalID != 0 {
			_, err := r.store.GetBook(ctx, doc.LocalID)
			if err == nil {
				result.Skipped++
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return result, fmt.Errorf("failed to check local book %d: %w", doc.LocalID, err)
			}
		}

		book := doc.Book()
		id, err := r.store.InsertBook(ctx, book)
		if err != nil {
			r.logger.Error("Failed to insert synced book", zap.Error(err), zap.String("doc_id", doc.ID))
			return result, fmt.Errorf("failed to insert synced book: %w", err)
		}
		if doc.LocalID == 0 {
			if err := r.mirror.SetBookLocalID(ctx, doc.ID, id); err != nil {
				r.logger.Error("Failed to write back local id", zap.Error(err), zap.String("doc_id", doc.ID))
				return result, fmt.Errorf("%w: %w", ErrRemoteMirror, err)
			}
		}
		book.ID = id
		result.Inserted++
		r.record(ctx, activity.KindSynced, book)
	}

	r.logger.Info("Sync from remote completed",
		zap.String("owner", owner),
		zap.Int("fetched", result.Fetched),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
