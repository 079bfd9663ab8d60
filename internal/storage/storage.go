package storage

import (
	"context"
	"errors"
	"strings"

	"bookapp/internal/models"
)

// ErrNotFound is returned when a record addressed by id or key does not exist
var ErrNotFound = errors.New("record not found")

// Table names used for change notifications
const (
	TableBooks = "books"
	TableUsers = "users"
)

// BookStore defines local book persistence
type BookStore interface {
	// InsertBook upserts a book. A zero ID asks the store to assign one;
	// a colliding ID replaces the existing row. Returns the row id.
	InsertBook(ctx context.Context, book models.Book) (int64, error)
	// UpdateBook replaces the book with the same ID, ErrNotFound if absent
	UpdateBook(ctx context.Context, book models.Book) error
	// DeleteBook removes a book by id. Missing ids are ignored.
	DeleteBook(ctx context.Context, id int64) error
	DeleteBooksByCategory(ctx context.Context, category string) error
	DeleteAllBooks(ctx context.Context) error

	GetBook(ctx context.Context, id int64) (*models.Book, error)
	// ListBooks returns books matching the filter ordered by title
	ListBooks(ctx context.Context, filter BookFilter) ([]models.Book, error)

	// WatchBooks emits the filtered list now and after every change to the
	// books table. The channel is closed when ctx is done.
	WatchBooks(ctx context.Context, filter BookFilter) <-chan []models.Book
	// WatchBook emits the book with the given id (nil when absent) the same way
	WatchBook(ctx context.Context, id int64) <-chan *models.Book
}

// UserStore defines local user persistence
type UserStore interface {
	InsertUser(ctx context.Context, user models.User) (int64, error)
	UpdateUser(ctx context.Context, user models.User) error
	DeleteUser(ctx context.Context, id int64) error
	DeleteAllUsers(ctx context.Context) error

	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByProviderID(ctx context.Context, providerID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UserExists(ctx context.Context, email string) (bool, error)

	WatchUsers(ctx context.Context) <-chan []models.User
}

// Storage defines the interface for local data storage operations
type Storage interface {
	BookStore
	UserStore

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// FilterKind selects which book query a BookFilter runs
type FilterKind int

const (
	FilterAll FilterKind = iota
	FilterFavorites
	FilterDownloaded
	FilterCategory
	FilterSearch
)

// BookFilter describes a book query
type BookFilter struct {
	Kind  FilterKind
	Value string // category or search text
}

func AllBooks() BookFilter        { return BookFilter{Kind: FilterAll} }
func FavoriteBooks() BookFilter   { return BookFilter{Kind: FilterFavorites} }
func DownloadedBooks() BookFilter { return BookFilter{Kind: FilterDownloaded} }

func BooksInCategory(category string) BookFilter {
	return BookFilter{Kind: FilterCategory, Value: category}
}

// SearchBooks matches query as a case-insensitive substring of title,
// author, description or category
func SearchBooks(query string) BookFilter {
	return BookFilter{Kind: FilterSearch, Value: query}
}

// Match reports whether the book satisfies the filter
func (f BookFilter) Match(b models.Book) bool {
	switch f.Kind {
	case FilterFavorites:
		return b.IsFavorite
	case FilterDownloaded:
		return b.IsDownloaded
	case FilterCategory:
		return b.Category == f.Value
	case FilterSearch:
		q := strings.ToLower(f.Value)
		return strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(models.StringValue(b.Description)), q) ||
			strings.Contains(strings.ToLower(b.Category), q)
	}
	return true
}

// String returns a short label for logging
func (f BookFilter) String() string {
	switch f.Kind {
	case FilterFavorites:
		return "favorites"
	case FilterDownloaded:
		return "downloaded"
	case FilterCategory:
		return "category:" + f.Value
	case FilterSearch:
		return "search:" + f.Value
	}
	return "all"
}

// PrepareInsert fills defaults for a book about to be inserted
func PrepareInsert(book *models.Book, now int64) {
	if book.Category == "" {
		book.Category = models.DefaultCategory
	}
	if book.DateAdded == 0 {
		book.DateAdded = now
	}
	if book.LastModified < book.DateAdded {
		book.LastModified = book.DateAdded
	}
}
