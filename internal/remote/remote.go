// Package remote defines the document store that mirrors local books and
// user profiles. Documents carry a back-reference to the local id but never
// originate identity.
package remote

import (
	"context"
	"errors"

	"bookapp/internal/models"
)

// ErrNotFound is returned when a document addressed by id does not exist
var ErrNotFound = errors.New("remote document not found")

// BookDocument is the mirrored copy of a local book
type BookDocument struct {
	ID      string // opaque document id assigned by the store
	LocalID int64
	UserID  string // owner, the identity provider uid

	Title        string
	Author       string
	Description  *string
	Category     string
	IsFavorite   bool
	IsDownloaded bool

	ImageURL      *string
	Publisher     *string
	PublishedDate *string
	PageCount     *int
	ISBN          *string
	Language      *string
	Rating        *float64

	DateAdded    int64
	LastModified int64
}

// NewBookDocument builds the mirror document for a local book
func NewBookDocument(book models.Book, userID string) BookDocument {
	return BookDocument{
		LocalID:       book.ID,
		UserID:        userID,
		Title:         book.Title,
		Author:        book.Author,
		Description:   book.Description,
		Category:      book.Category,
		IsFavorite:    book.IsFavorite,
		IsDownloaded:  book.IsDownloaded,
		ImageURL:      book.ImageURL,
		Publisher:     book.Publisher,
		PublishedDate: book.PublishedDate,
		PageCount:     book.PageCount,
		ISBN:          book.ISBN,
		Language:      book.Language,
		Rating:        book.Rating,
		DateAdded:     book.DateAdded,
		LastModified:  book.LastModified,
	}
}

// Book converts the document back into a local book keyed by LocalID
func (d BookDocument) Book() models.Book {
	return models.Book{
		ID:            d.LocalID,
		Title:         d.Title,
		Author:        d.Author,
		Description:   d.Description,
		Category:      d.Category,
		IsFavorite:    d.IsFavorite,
		IsDownloaded:  d.IsDownloaded,
		ImageURL:      d.ImageURL,
		Publisher:     d.Publisher,
		PublishedDate: d.PublishedDate,
		PageCount:     d.PageCount,
		ISBN:          d.ISBN,
		Language:      d.Language,
		Rating:        d.Rating,
		DateAdded:     d.DateAdded,
		LastModified:  d.LastModified,
	}
}

// UserDocument is the remote profile keyed by provider uid
type UserDocument struct {
	UID              string
	FirstName        string
	LastName         string
	Email            string
	PhoneNumber      *string
	ProfileImagePath *string
	DateCreated      int64
	LastLogin        int64
}

// NewUserDocument builds the remote profile for a local user
func NewUserDocument(user models.User) UserDocument {
	doc := UserDocument{
		UID:              user.ProviderID,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		Email:            user.Email,
		PhoneNumber:      user.PhoneNumber,
		ProfileImagePath: user.ProfileImagePath,
		DateCreated:      user.DateCreated,
	}
	if user.LastLogin != nil {
		doc.LastLogin = *user.LastLogin
	}
	return doc
}

// BookMirror holds mirrored book documents
type BookMirror interface {
	InsertBook(ctx context.Context, doc BookDocument) (string, error)
	// FindBookByLocalID returns nil, nil when no document matches
	FindBookByLocalID(ctx context.Context, userID string, localID int64) (*BookDocument, error)
	UpdateBook(ctx context.Context, id string, doc BookDocument) error
	DeleteBook(ctx context.Context, id string) error
	BooksByOwner(ctx context.Context, userID string) ([]BookDocument, error)
	SetBookLocalID(ctx context.Context, id string, localID int64) error
}

// UserMirror holds remote user profiles
type UserMirror interface {
	// PutUser creates the profile if absent, otherwise refreshes its last
	// login. Reports whether a document was created.
	PutUser(ctx context.Context, doc UserDocument) (bool, error)
	// GetUser returns nil, nil when no document matches
	GetUser(ctx context.Context, uid string) (*UserDocument, error)
	UpdateUser(ctx context.Context, doc UserDocument) error
	DeleteUser(ctx context.Context, uid string) error
}

// Bookstores holds the bookstore map locations
type Bookstores interface {
	ListBookstores(ctx context.Context) ([]models.BookstoreLocation, error)
	AddBookstore(ctx context.Context, loc models.BookstoreLocation) (string, error)
}

// Store is the full remote document store
type Store interface {
	BookMirror
	UserMirror
	Bookstores

	Close(ctx context.Context) error
}
