package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"bookapp/internal/models"
	"bookapp/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migrations returns the schema migrations rooted at the migrations directory
func Migrations() fs.FS {
	sub, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// driverName is the sqlite3 driver with the fold() SQL function registered
const driverName = "sqlite3_bookapp"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", foldCase, true)
		},
	})
}

// foldCase lower-cases with the same Unicode rules as storage.BookFilter.
// SQLite's own lower() and LIKE only fold ASCII.
func foldCase(s string) string {
	return strings.ToLower(s)
}

// SQLiteDB is the on-device relational store
type SQLiteDB struct {
	db       *sql.DB
	notifier *storage.Notifier
	logger   *zap.Logger
}

// NewSQLiteDB opens (or creates) the SQLite database at dbPath
func NewSQLiteDB(dbPath string, logger *zap.Logger) (*SQLiteDB, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL", dbPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return &SQLiteDB{
		db:       db,
		notifier: storage.NewNotifier(),
		logger:   logger,
	}, nil
}

// DB exposes the underlying handle for the migration tool
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

// NewMigrationProvider returns a goose provider for the local schema
func NewMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, Migrations())
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// Initialize applies pending schema migrations
func (s *SQLiteDB) Initialize(ctx context.Context) error {
	provider, err := NewMigrationProvider(s.db)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Info("Applied migration",
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const bookColumns = `id, title, author, description, category, is_favorite, is_downloaded,
	image_url, publisher, published_date, page_count, isbn, language, rating,
	date_added, last_modified`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (models.Book, error) {
	var b models.Book
	var description, imageURL, publisher, published, isbn, lang sql.NullString
	var pageCount sql.NullInt64
	var rating sql.NullFloat64

	err := row.Scan(&b.ID, &b.Title, &b.Author, &description, &b.Category, &b.IsFavorite, &b.IsDownloaded,
		&imageURL, &publisher, &published, &pageCount, &isbn, &lang, &rating,
		&b.DateAdded, &b.LastModified)
	if err != nil {
		return models.Book{}, err
	}

	b.Description = fromNullString(description)
	b.ImageURL = fromNullString(imageURL)
	b.Publisher = fromNullString(publisher)
	b.PublishedDate = fromNullString(published)
	b.ISBN = fromNullString(isbn)
	b.Language = fromNullString(lang)
	if pageCount.Valid {
		n := int(pageCount.Int64)
		b.PageCount = &n
	}
	if rating.Valid {
		r := rating.Float64
		b.Rating = &r
	}
	return b, nil
}

func bookArgs(b models.Book) []any {
	var pageCount, rating any
	if b.PageCount != nil {
		pageCount = *b.PageCount
	}
	if b.Rating != nil {
		rating = *b.Rating
	}
	return []any{
		b.Title, b.Author, toNullString(b.Description), b.Category, b.IsFavorite, b.IsDownloaded,
		toNullString(b.ImageURL), toNullString(b.Publisher), toNullString(b.PublishedDate),
		pageCount, toNullString(b.ISBN), toNullString(b.Language), rating,
		b.DateAdded, b.LastModified,
	}
}

// InsertBook upserts a book, replacing any row with the same id
func (s *SQLiteDB) InsertBook(ctx context.Context, book models.Book) (int64, error) {
	storage.PrepareInsert(&book, models.NowMillis())

	var id any
	if book.ID != 0 {
		id = book.ID
	}
	args := append([]any{id}, bookArgs(book)...)
	res, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert book: %w", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read book id: %w", err)
	}

	s.notifier.Notify(storage.TableBooks)
	return newID, nil
}

// UpdateBook replaces the book matched by id
func (s *SQLiteDB) UpdateBook(ctx context.Context, book models.Book) error {
	args := append(bookArgs(book), book.ID)
	res, err := s.db.ExecContext(ctx, `UPDATE books SET
		title = ?, author = ?, description = ?, category = ?, is_favorite = ?, is_downloaded = ?,
		image_url = ?, publisher = ?, published_date = ?, page_count = ?, isbn = ?, language = ?, rating = ?,
		date_added = ?, last_modified = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("failed to update book %d: %w", book.ID, err)
	}

	s.notifier.Notify(storage.TableBooks)
	return nil
}

// DeleteBook removes the book with the given id
func (s *SQLiteDB) DeleteBook(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	s.notifier.Notify(storage.TableBooks)
	return nil
}

// DeleteBooksByCategory removes every book in category
func (s *SQLiteDB) DeleteBooksByCategory(ctx context.Context, category string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE category = ?`, category); err != nil {
		return fmt.Errorf("failed to delete books by category: %w", err)
	}
	s.notifier.Notify(storage.TableBooks)
	return nil
}

// DeleteAllBooks empties the books table
func (s *SQLiteDB) DeleteAllBooks(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return fmt.Errorf("failed to delete books: %w", err)
	}
	s.notifier.Notify(storage.TableBooks)
	return nil
}

// GetBook returns a single book by id
func (s *SQLiteDB) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &b, nil
}

// ListBooks returns the books matching filter ordered by title
func (s *SQLiteDB) ListBooks(ctx context.Context, filter storage.BookFilter) ([]models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books`
	var args []any

	switch filter.Kind {
	case storage.FilterFavorites:
		query += ` WHERE is_favorite = 1`
	case storage.FilterDownloaded:
		query += ` WHERE is_downloaded = 1`
	case storage.FilterCategory:
		query += ` WHERE category = ?`
		args = append(args, filter.Value)
	case storage.FilterSearch:
		needle := foldCase(filter.Value)
		query += ` WHERE instr(fold(title), ?) > 0
			OR instr(fold(author), ?) > 0
			OR instr(fold(COALESCE(description, '')), ?) > 0
			OR instr(fold(category), ?) > 0`
		args = append(args, needle, needle, needle, needle)
	}
	query += ` ORDER BY title ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books (%s): %w", filter, err)
	}
	defer rows.Close()

	books := make([]models.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// WatchBooks streams the filtered book list on every change
func (s *SQLiteDB) WatchBooks(ctx context.Context, filter storage.BookFilter) <-chan []models.Book {
	return storage.Watch(ctx, s.notifier, storage.TableBooks, func(ctx context.Context) ([]models.Book, error) {
		return s.ListBooks(ctx, filter)
	}, s.logger)
}

// WatchBook streams a single book on every change
func (s *SQLiteDB) WatchBook(ctx context.Context, id int64) <-chan *models.Book {
	return storage.Watch(ctx, s.notifier, storage.TableBooks, func(ctx context.Context) (*models.Book, error) {
		b, err := s.GetBook(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return b, err
	}, s.logger)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func toNullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
