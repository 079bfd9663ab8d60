package viewstate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"bookapp/internal/models"
	"bookapp/internal/repository"
	"bookapp/internal/storage"
)

// BookSnapshot is the book screen read model
type BookSnapshot struct {
	AllBooks         []models.Book
	FavoriteBooks    []models.Book
	DownloadedBooks  []models.Book
	CategoryBooks    []models.Book
	SelectedCategory string

	SearchQuery   string
	SearchResults []models.Book

	LastSync *repository.SyncResult
	Status   Status
}

// BookState keeps live mirrors of the book streams and runs book operations
type BookState struct {
	container
	books *repository.BookRepository

	mu             sync.RWMutex
	snapshot       BookSnapshot
	categoryCancel context.CancelFunc
	categoryGen    int
}

// NewBookState starts the book mirrors. They stop when parent is done or
// Close is called.
func NewBookState(parent context.Context, books *repository.BookRepository, logger *zap.Logger) *BookState {
	s := &BookState{
		container: newContainer(parent, logger),
		books:     books,
		snapshot:  BookSnapshot{SelectedCategory: models.DefaultCategory, Status: Idle()},
	}

	s.follow(s.books.AllBooks(s.ctx), func(snap *BookSnapshot, b []models.Book) { snap.AllBooks = b })
	s.follow(s.books.FavoriteBooks(s.ctx), func(snap *BookSnapshot, b []models.Book) { snap.FavoriteBooks = b })
	s.follow(s.books.DownloadedBooks(s.ctx), func(snap *BookSnapshot, b []models.Book) { snap.DownloadedBooks = b })
	s.SelectCategory(models.DefaultCategory)
	return s
}

func (s *BookState) follow(ch <-chan []models.Book, set func(*BookSnapshot, []models.Book)) {
	s.goFollow(func() {
		for books := range ch {
			s.mu.Lock()
			set(&s.snapshot, books)
			s.mu.Unlock()
			s.notify()
		}
	})
}

// Snapshot returns a copy of the current state
func (s *BookState) Snapshot() BookSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.AllBooks = cloneBooks(s.snapshot.AllBooks)
	snap.FavoriteBooks = cloneBooks(s.snapshot.FavoriteBooks)
	snap.DownloadedBooks = cloneBooks(s.snapshot.DownloadedBooks)
	snap.CategoryBooks = cloneBooks(s.snapshot.CategoryBooks)
	snap.SearchResults = cloneBooks(s.snapshot.SearchResults)
	if s.snapshot.LastSync != nil {
		last := *s.snapshot.LastSync
		snap.LastSync = &last
	}
	return snap
}

func cloneBooks(books []models.Book) []models.Book {
	if len(books) == 0 {
		return nil
	}
	dup := make([]models.Book, len(books))
	copy(dup, books)
	return dup
}

func (s *BookState) setStatus(status Status) {
	s.mu.Lock()
	s.snapshot.Status = status
	s.mu.Unlock()
	s.notify()
}

// run drives the status through loading into success or error
func (s *BookState) run(action string, fn func(ctx context.Context) error) {
	s.setStatus(Loading())
	if err := fn(s.ctx); err != nil {
		s.logger.Error("Book operation failed", zap.String("action", action), zap.Error(err))
		s.setStatus(Failed(fmt.Sprintf("Error %s: %v", action, err)))
		return
	}
	s.setStatus(Success())
}

func (s *BookState) AddBook(book models.Book) {
	if problem := bookProblem(&book); problem != "" {
		s.setStatus(Failed(problem))
		return
	}
	s.run("adding book", func(ctx context.Context) error {
		_, err := s.books.Insert(ctx, book)
		return err
	})
}

func (s *BookState) UpdateBook(book models.Book) {
	if problem := bookProblem(&book); problem != "" {
		s.setStatus(Failed(problem))
		return
	}
	s.run("updating book", func(ctx context.Context) error {
		_, err := s.books.Update(ctx, book)
		return err
	})
}

func (s *BookState) DeleteBook(id int64) {
	s.run("deleting book", func(ctx context.Context) error {
		return s.books.Delete(ctx, id)
	})
}

// DeleteCategory removes every book in category
func (s *BookState) DeleteCategory(category string) {
	s.run("deleting category", func(ctx context.Context) error {
		return s.books.DeleteByCategory(ctx, category)
	})
}

func (s *BookState) DeleteAll() {
	s.run("deleting all books", func(ctx context.Context) error {
		return s.books.DeleteAll(ctx)
	})
}

func (s *BookState) ToggleFavorite(id int64) {
	s.run("toggling favorite", func(ctx context.Context) error {
		_, err := s.books.ToggleFavorite(ctx, id)
		return err
	})
}

func (s *BookState) ToggleDownload(id int64) {
	s.run("toggling download", func(ctx context.Context) error {
		_, err := s.books.ToggleDownload(ctx, id)
		return err
	})
}

// Sync pulls the signed-in user's remote books into the local store
func (s *BookState) Sync() {
	s.run("syncing books", func(ctx context.Context) error {
		result, err := s.books.SyncFromRemote(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.snapshot.LastSync = &result
		s.mu.Unlock()
		return nil
	})
}

// SelectCategory switches the category mirror. Updates from the previous
// category stream are dropped.
func (s *BookState) SelectCategory(category string) {
	s.mu.Lock()
	if s.categoryCancel != nil {
		s.categoryCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.categoryCancel = cancel
	s.categoryGen++
	gen := s.categoryGen
	s.snapshot.SelectedCategory = category
	s.snapshot.CategoryBooks = nil
	s.mu.Unlock()
	s.notify()

	ch := s.books.BooksByCategory(ctx, category)
	s.goFollow(func() {
		for books := range ch {
			s.mu.Lock()
			if s.categoryGen == gen {
				s.snapshot.CategoryBooks = books
			}
			s.mu.Unlock()
			s.notify()
		}
	})
}

// Search filters the current in-memory list of all books. A blank query
// matches everything.
func (s *BookState) Search(query string) []models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []models.Book
	filter := storage.SearchBooks(strings.TrimSpace(query))
	for _, b := range s.snapshot.AllBooks {
		if filter.Value == "" || filter.Match(b) {
			results = append(results, b)
		}
	}
	s.snapshot.SearchQuery = query
	s.snapshot.SearchResults = results
	s.snapshot.Status = Success()
	s.notify()
	return cloneBooks(results)
}
