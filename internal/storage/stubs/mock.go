package stubs

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"bookapp/internal/models"
	"bookapp/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu         sync.RWMutex
	books      map[int64]models.Book
	users      map[int64]models.User
	nextBookID int64
	nextUserID int64
	writeErr   error

	notifier *storage.Notifier
	logger   *zap.Logger
}

// NewMockDB creates a new mock database
func NewMockDB(logger *zap.Logger) *MockDB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockDB{
		books:    make(map[int64]models.Book),
		users:    make(map[int64]models.User),
		notifier: storage.NewNotifier(),
		logger:   logger,
	}
}

// Initialize has nothing to migrate
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// FailWrites makes every subsequent write return err. Pass nil to recover.
func (m *MockDB) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// InsertBook upserts a book and returns its id
func (m *MockDB) InsertBook(ctx context.Context, book models.Book) (int64, error) {
	m.mu.Lock()
	if m.writeErr != nil {
		defer m.mu.Unlock()
		return 0, m.writeErr
	}

	storage.PrepareInsert(&book, models.NowMillis())
	if book.ID == 0 {
		m.nextBookID++
		book.ID = m.nextBookID
	} else if book.ID > m.nextBookID {
		m.nextBookID = book.ID
	}
	m.books[book.ID] = book
	m.mu.Unlock()

	m.notifier.Notify(storage.TableBooks)
	return book.ID, nil
}

// UpdateBook replaces the book matched by id
func (m *MockDB) UpdateBook(ctx context.Context, book models.Book) error {
	m.mu.Lock()
	if m.writeErr != nil {
		defer m.mu.Unlock()
		return m.writeErr
	}
	if _, ok := m.books[book.ID]; !ok {
		m.mu.Unlock()
		return storage.ErrNotFound
	}
	m.books[book.ID] = book
	m.mu.Unlock()

	m.notifier.Notify(storage.TableBooks)
	return nil
}

// DeleteBook removes a book by id
func (m *MockDB) DeleteBook(ctx context.Context, id int64) error {
	return m.deleteBooks(func(b models.Book) bool { return b.ID == id })
}

// DeleteBooksByCategory removes every book in category
func (m *MockDB) DeleteBooksByCategory(ctx context.Context, category string) error {
	return m.deleteBooks(func(b models.Book) bool { return b.Category == category })
}

// DeleteAllBooks removes every book
func (m *MockDB) DeleteAllBooks(ctx context.Context) error {
	return m.deleteBooks(func(models.Book) bool { return true })
}

func (m *MockDB) deleteBooks(match func(models.Book) bool) error {
	m.mu.Lock()
	if m.writeErr != nil {
		defer m.mu.Unlock()
		return m.writeErr
	}
	for id, b := range m.books {
		if match(b) {
			delete(m.books, id)
		}
	}
	m.mu.Unlock()

	m.notifier.Notify(storage.TableBooks)
	return nil
}

// GetBook returns a book by id
func (m *MockDB) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.books[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

// ListBooks returns books matching the filter sorted by title
func (m *MockDB) ListBooks(ctx context.Context, filter storage.BookFilter) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	books := make([]models.Book, 0, len(m.books))
	for _, b := range m.books {
		if filter.Match(b) {
			books = append(books, b)
		}
	}

	// Sort by title, then id
	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID < books[j].ID
	})

	return books, nil
}

// WatchBooks streams the filtered list on every change
func (m *MockDB) WatchBooks(ctx context.Context, filter storage.BookFilter) <-chan []models.Book {
	return storage.Watch(ctx, m.notifier, storage.TableBooks, func(ctx context.Context) ([]models.Book, error) {
		return m.ListBooks(ctx, filter)
	}, m.logger)
}

// WatchBook streams a single book on every change
func (m *MockDB) WatchBook(ctx context.Context, id int64) <-chan *models.Book {
	return storage.Watch(ctx, m.notifier, storage.TableBooks, func(ctx context.Context) (*models.Book, error) {
		b, err := m.GetBook(ctx, id)
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return b, err
	}, m.logger)
}

// InsertUser upserts a user. Rows colliding on email or provider id are replaced.
func (m *MockDB) InsertUser(ctx context.Context, user models.User) (int64, error) {
	m.mu.Lock()
	if m.writeErr != nil {
		defer m.mu.Unlock()
		return 0, m.writeErr
	}

	if user.DateCreated == 0 {
		user.DateCreated = models.NowMillis()
	}
	for id, existing := range m.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email || (user.ProviderID != "" && existing.ProviderID == user.ProviderID) {
			delete(m.users, id)
		}
	}
	if user.ID == 0 {
		m.nextUserID++
		user.ID = m.nextUserID
	} else if user.ID > m.nextUserID {
		m.nextUserID = user.ID
	}
	m.users[user.ID] = user
	m.mu.Unlock()

	m.notifier.Notify(storage.TableUsers)
	return user.ID, nil
}

// UpdateUser replaces the user matched by id
func (m *MockDB) UpdateUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	if m.writeErr != nil {
		defer m.mu.Unlock()
		return m.writeErr
	}
	if _, ok := m.users[user.ID]; !ok {
		m.mu.Unlock()
		return storage.ErrNotFound
	}
	m.users[user.ID] = user
	m.mu.Unlock()

	m.notifier.Notify(storage.TableUsers)
	return nil
}

// DeleteUser removes a user by id
func (m *MockDB) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	if m.writeErr != nil {
		defer m.mu.Unlock()
		return m.writeErr
	}
	delete(m.users, id)
	m.mu.Unlock()

	m.notifier.Notify(storage.TableUsers)
	return nil
}

// DeleteAllUsers removes every user
func (m *MockDB) DeleteAllUsers(ctx context.Context) error {
	m.mu.Lock()
	if m.writeErr != nil {
		defer m.mu.Unlock()
		return m.writeErr
	}
	m.users = make(map[int64]models.User)
	m.mu.Unlock()

	m.notifier.Notify(storage.TableUsers)
	return nil
}

func (m *MockDB) findUser(match func(models.User) bool) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetUser returns a user by id
func (m *MockDB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.ID == id })
}

// GetUserByEmail returns the user registered with email
func (m *MockDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.Email == email })
}

// GetUserByProviderID returns the user cached for a provider uid
func (m *MockDB) GetUserByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	if providerID == "" {
		return nil, storage.ErrNotFound
	}
	return m.findUser(func(u models.User) bool { return u.ProviderID == providerID })
}

// ListUsers returns all users sorted by id
func (m *MockDB) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// UserExists reports whether a user with email exists
func (m *MockDB) UserExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetUserByEmail(ctx, email)
	if err == storage.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// WatchUsers streams the user list on every change
func (m *MockDB) WatchUsers(ctx context.Context) <-chan []models.User {
	return storage.Watch(ctx, m.notifier, storage.TableUsers, m.ListUsers, m.logger)
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
