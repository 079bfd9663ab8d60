package stubs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bookapp/internal/models"
	"bookapp/internal/remote"
)

var _ remote.Store = (*MemoryRemote)(nil)

// MemoryRemote is an in-memory remote.Store for tests and offline runs
type MemoryRemote struct {
	mu         sync.RWMutex
	books      map[string]remote.BookDocument
	users      map[string]remote.UserDocument
	bookstores map[string]models.BookstoreLocation
	seq        int
	writeErr   error
	readErr    error
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{
		books:      make(map[string]remote.BookDocument),
		users:      make(map[string]remote.UserDocument),
		bookstores: make(map[string]models.BookstoreLocation),
	}
}

// FailWrites makes every subsequent write return err. Pass nil to recover.
func (m *MemoryRemote) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// FailReads makes every subsequent read return err. Pass nil to recover.
func (m *MemoryRemote) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

func (m *MemoryRemote) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *MemoryRemote) InsertBook(ctx context.Context, doc remote.BookDocument) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	doc.ID = m.nextID("book")
	m.books[doc.ID] = doc
	return doc.ID, nil
}

func (m *MemoryRemote) FindBookByLocalID(ctx context.Context, userID string, localID int64) (*remote.BookDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	for _, doc := range m.books {
		if doc.UserID == userID && doc.LocalID == localID {
			found := doc
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryRemote) UpdateBook(ctx context.Context, id string, doc remote.BookDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.books[id]; !ok {
		return remote.ErrNotFound
	}
	doc.ID = id
	m.books[id] = doc
	return nil
}

func (m *MemoryRemote) DeleteBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	delete(m.books, id)
	return nil
}

// BooksByOwner returns the owner's documents in insertion order
func (m *MemoryRemote) BooksByOwner(ctx context.Context, userID string) ([]remote.BookDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var docs []remote.BookDocument
	for _, doc := range m.books {
		if doc.UserID == userID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].DateAdded != docs[j].DateAdded {
			return docs[i].DateAdded < docs[j].DateAdded
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (m *MemoryRemote) SetBookLocalID(ctx context.Context, id string, localID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	doc, ok := m.books[id]
	if !ok {
		return remote.ErrNotFound
	}
	doc.LocalID = localID
	m.books[id] = doc
	return nil
}

// PutBookDocument stores a document as-is, for tests that need documents
// created elsewhere
func (m *MemoryRemote) PutBookDocument(doc remote.BookDocument) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		doc.ID = m.nextID("book")
	}
	m.books[doc.ID] = doc
	return doc.ID
}

// BookDocuments returns a copy of every stored book document
func (m *MemoryRemote) BookDocuments() []remote.BookDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]remote.BookDocument, 0, len(m.books))
	for _, doc := range m.books {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (m *MemoryRemote) PutUser(ctx context.Context, doc remote.UserDocument) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return false, m.writeErr
	}
	if existing, ok := m.users[doc.UID]; ok {
		existing.LastLogin = doc.LastLogin
		m.users[doc.UID] = existing
		return false, nil
	}
	m.users[doc.UID] = doc
	return true, nil
}

func (m *MemoryRemote) GetUser(ctx context.Context, uid string) (*remote.UserDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	if doc, ok := m.users[uid]; ok {
		return &doc, nil
	}
	return nil, nil
}

func (m *MemoryRemote) UpdateUser(ctx context.Context, doc remote.UserDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	existing, ok := m.users[doc.UID]
	if !ok {
		return remote.ErrNotFound
	}
	doc.DateCreated = existing.DateCreated
	doc.LastLogin = existing.LastLogin
	m.users[doc.UID] = doc
	return nil
}

func (m *MemoryRemote) DeleteUser(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	delete(m.users, uid)
	return nil
}

func (m *MemoryRemote) ListBookstores(ctx context.Context) ([]models.BookstoreLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	stores := make([]models.BookstoreLocation, 0, len(m.bookstores))
	for _, s := range m.bookstores {
		stores = append(stores, s)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].Name < stores[j].Name })
	return stores, nil
}

func (m *MemoryRemote) AddBookstore(ctx context.Context, loc models.BookstoreLocation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	loc.ID = m.nextID("store")
	if loc.DateAdded == 0 {
		loc.DateAdded = models.NowMillis()
	}
	m.bookstores[loc.ID] = loc
	return loc.ID, nil
}

func (m *MemoryRemote) Close(ctx context.Context) error {
	return nil
}
