package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bookapp/internal/activity"
	"bookapp/internal/models"
	"bookapp/internal/remote"
	"bookapp/internal/storage"
)

// BookRepository writes books locally and mirrors them to the remote store
// while a session is active
type BookRepository struct {
	store    storage.BookStore
	mirror   remote.BookMirror
	session  Session
	recorder activity.Recorder
	logger   *zap.Logger
}

// NewBookRepository wires a repository. mirror and session may be nil, in
// which case every operation is local only. recorder may be nil.
func NewBookRepository(store storage.BookStore, mirror remote.BookMirror, session Session, recorder activity.Recorder, logger *zap.Logger) *BookRepository {
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &BookRepository{
		store:    store,
		mirror:   mirror,
		session:  session,
		recorder: recorder,
		logger:   logger,
	}
}

// owner returns the uid that remote documents are tagged with
func (r *BookRepository) owner() (string, bool) {
	if r.mirror == nil || r.session == nil {
		return "", false
	}
	user := r.session.CurrentUser()
	if user == nil {
		return "", false
	}
	return user.UID, true
}

func (r *BookRepository) record(ctx context.Context, kind activity.Kind, book models.Book) {
	event := activity.Event{Kind: kind, BookID: book.ID, Title: book.Title}
	if r.session != nil {
		if user := r.session.CurrentUser(); user != nil {
			event.UserID = user.UID
		}
	}
	if err := r.recorder.Record(ctx, event); err != nil {
		r.logger.Warn("Failed to record activity", zap.Error(err), zap.String("kind", string(kind)), zap.Int64("book_id", book.ID))
	}
}

func (r *BookRepository) AllBooks(ctx context.Context) <-chan []models.Book {
	return r.store.WatchBooks(ctx, storage.AllBooks())
}

func (r *BookRepository) FavoriteBooks(ctx context.Context) <-chan []models.Book {
	return r.store.WatchBooks(ctx, storage.FavoriteBooks())
}

func (r *BookRepository) DownloadedBooks(ctx context.Context) <-chan []models.Book {
	return r.store.WatchBooks(ctx, storage.DownloadedBooks())
}

func (r *BookRepository) BooksByCategory(ctx context.Context, category string) <-chan []models.Book {
	return r.store.WatchBooks(ctx, storage.BooksInCategory(category))
}

// SearchBooks streams the search results as the table changes
func (r *BookRepository) SearchBooks(ctx context.Context, query string) <-chan []models.Book {
	return r.store.WatchBooks(ctx, searchFilter(query))
}

func (r *BookRepository) WatchBook(ctx context.Context, id int64) <-chan *models.Book {
	return r.store.WatchBook(ctx, id)
}

// Book returns the book with id, or nil when there is none
func (r *BookRepository) Book(ctx context.Context, id int64) (*models.Book, error) {
	book, err := r.store.GetBook(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get book", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// Search runs a one-off search. A blank query matches every book.
func (r *BookRepository) Search(ctx context.Context, query string) ([]models.Book, error) {
	books, err := r.store.ListBooks(ctx, searchFilter(query))
	if err != nil {
		r.logger.Error("Failed to search books", zap.Error(err), zap.String("query", query))
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	return books, nil
}

func searchFilter(query string) storage.BookFilter {
	if strings.TrimSpace(query) == "" {
		return storage.AllBooks()
	}
	return storage.SearchBooks(strings.TrimSpace(query))
}

// Insert stores the book locally and returns it with its assigned id. When
// the mirror write fails the local book is still returned together with an
// ErrRemoteMirror error.
func (r *BookRepository) Insert(ctx context.Context, book models.Book) (models.Book, error) {
	if err := ValidateBook(&book); err != nil {
		r.logger.Warn("Rejected book", zap.Error(err))
		return models.Book{}, err
	}
	id, err := r.store.InsertBook(ctx, book)
	if err != nil {
		r.logger.Error("Failed to insert book", zap.Error(err), zap.String("title", book.Title))
		return models.Book{}, fmt.Errorf("failed to insert book: %w", err)
	}

	saved, err := r.store.GetBook(ctx, id)
	if err != nil {
		r.logger.Error("Failed to read inserted book", zap.Error(err), zap.Int64("id", id))
		return models.Book{}, fmt.Errorf("failed to read inserted book: %w", err)
	}
	r.logger.Info("Book inserted", zap.Int64("id", id), zap.String("title", saved.Title))
	r.record(ctx, activity.KindAdded, *saved)

	if owner, ok := r.owner(); ok {
		docID, err := r.mirror.InsertBook(ctx, remote.NewBookDocument(*saved, owner))
		if err != nil {
			r.logger.Error("Failed to mirror book", zap.Error(err), zap.Int64("id", id))
			return *saved, fmt.Errorf("%w: %w", ErrRemoteMirror, err)
		}
		r.logger.Debug("Book mirrored", zap.Int64("id", id), zap.String("doc_id", docID))
	}
	return *saved, nil
}

// Update replaces the stored book and refreshes its mirror document
func (r *BookRepository) Update(ctx context.Context, book models.Book) (models.Book, error) {
	if err := ValidateBook(&book); err != nil {
		r.logger.Warn("Rejected book", zap.Error(err), zap.Int64("id", book.ID))
		return models.Book{}, err
	}
	book.LastModified = models.NowMillis()
	if book.LastModified < book.DateAdded {
		book.LastModified = book.DateAdded
	}
	if err := r.store.UpdateBook(ctx, book); err != nil {
		r.logger.Error("Failed to update book", zap.Error(err), zap.Int64("id", book.ID))
		return models.Book{}, fmt.Errorf("failed to update book: %w", err)
	}
	r.record(ctx, activity.KindUpdated, book)

	owner, ok := r.owner()
	if !ok {
		return book, nil
	}
	doc, err := r.mirror.FindBookByLocalID(ctx, owner, book.ID)
	if err != nil {
		r.logger.Error("Failed to find mirrored book", zap.Error(err), zap.Int64("id", book.ID))
		return book, fmt.Errorf("%w: %w", ErrRemoteMirror, err)
	}
	if doc == nil {
		r.logger.Warn("No mirrored document for book", zap.Int64("id", book.ID), zap.String("owner", owner))
		return book, nil
	}
	if err := r.mirror.UpdateBook(ctx, doc.ID, remote.NewBookDocument(book, owner)); err != nil {
		r.logger.Error("Failed to update mirrored book", zap.Error(err), zap.Int64("id", book.ID))
		return book, fmt.Errorf("%w: %w", ErrRemoteMirror, err)
	}
	return book, nil
}

// Delete removes the book locally, then its mirror document. Deleting an
// unknown id is not an error.
func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	existing, err := r.Book(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.DeleteBook(ctx, id); err != nil {
		r.logger.Error("Failed to delete book", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if existing == nil {
		return nil
	}
	r.logger.Info("Book deleted", zap.Int64("id", id))
	r.record(ctx, activity.KindDeleted, *existing)

	owner, ok := r.owner()
	if !ok {
		return nil
	}
	return r.unmirror(ctx, owner, id)
}

// ToggleFavorite flips the favorite flag and returns the updated book
func (r *BookRepository) ToggleFavorite(ctx context.Context, id int64) (models.Book, error) {
	return r.toggle(ctx, id, activity.KindFavorited, func(b *models.Book) bool {
		b.IsFavorite = !b.IsFavorite
		return b.IsFavorite
	})
}

// ToggleDownload flips the downloaded flag and returns the updated book
func (r *BookRepository) ToggleDownload(ctx context.Context, id int64) (models.Book, error) {
	return r.toggle(ctx, id, activity.KindDownloaded, func(b *models.Book) bool {
		b.IsDownloaded = !b.IsDownloaded
		return b.IsDownloaded
	})
}

func (r *BookRepository) toggle(ctx context.Context, id int64, kind activity.Kind, flip func(*models.Book) bool) (models.Book, error) {
	book, err := r.Book(ctx, id)
	if err != nil {
		return models.Book{}, err
	}
	if book == nil {
		return models.Book{}, fmt.Errorf("book %d: %w", id, storage.ErrNotFound)
	}
	set := flip(book)
	updated, err := r.Update(ctx, *book)
	if set && updated.ID != 0 {
		r.record(ctx, kind, updated)
	}
	return updated, err
}

// DeleteByCategory removes every book in category and their mirror
// documents
func (r *BookRepository) DeleteByCategory(ctx context.Context, category string) error {
	err := r.deleteMany(ctx, storage.BooksInCategory(category), func(ctx context.Context) error {
		return r.store.DeleteBooksByCategory(ctx, category)
	})
	if err != nil {
		return err
	}
	r.logger.Info("Books deleted by category", zap.String("category", category))
	return nil
}

// DeleteAll removes every book and their mirror documents
func (r *BookRepository) DeleteAll(ctx context.Context) error {
	if err := r.deleteMany(ctx, storage.AllBooks(), r.store.DeleteAllBooks); err != nil {
		return err
	}
	r.logger.Info("All books deleted")
	return nil
}

// deleteMany runs a bulk local delete over the books matched by filter, then
// removes each one's mirror document. Mirror failures do not stop the pass;
// the first is returned.
func (r *BookRepository) deleteMany(ctx context.Context, filter storage.BookFilter, del func(context.Context) error) error {
	books, err := r.store.ListBooks(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to list books to delete", zap.Error(err), zap.Stringer("filter", filter))
		return fmt.Errorf("failed to list books (%s): %w", filter, err)
	}
	if err := del(ctx); err != nil {
		r.logger.Error("Failed to delete books", zap.Error(err), zap.Stringer("filter", filter))
		return fmt.Errorf("failed to delete books (%s): %w", filter, err)
	}
	for _, book := range books {
		r.record(ctx, activity.KindDeleted, book)
	}

	owner, ok := r.owner()
	if !ok {
		return nil
	}
	var first error
	for _, book := range books {
		if err := r.unmirror(ctx, owner, book.ID); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// unmirror deletes the mirror document of a local book, if there is one
func (r *BookRepository) unmirror(ctx context.Context, owner string, id int64) error {
	doc, err := r.mirror.FindBookByLocalID(ctx, owner, id)
	if err != nil {
		r.logger.Error("Failed to find mirrored book", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("%w: %w", ErrRemoteMirror, err)
	}
	if doc == nil {
		r.logger.Warn("No mirrored document for deleted book", zap.Int64("id", id))
		return nil
	}
	if err := r.mirror.DeleteBook(ctx, doc.ID); err != nil {
		r.logger.Error("Failed to delete mirrored book", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("%w: %w", ErrRemoteMirror, err)
	}
	return nil
}
