package models

import "time"

// DefaultCategory is assigned to books created without a category
const DefaultCategory = "Fiction"

// Book represents a book in the catalog
type Book struct {
	ID          int64
	Title       string
	Author      string
	Description *string
	Category    string

	IsFavorite   bool
	IsDownloaded bool

	ImageURL      *string
	Publisher     *string
	PublishedDate *string
	PageCount     *int
	ISBN          *string
	Language      *string
	Rating        *float64

	// Epoch milliseconds
	DateAdded    int64
	LastModified int64
}

// User represents a local user profile
type User struct {
	ID         int64
	ProviderID string // identity provider uid, empty for local-only accounts
	FirstName  string
	LastName   string
	Email      string

	PasswordHash string

	PhoneNumber      *string
	ProfileImagePath *string
	Preferences      *string

	IsActive    bool
	DateCreated int64
	LastLogin   *int64
}

// FullName joins first and last name
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// BookstoreLocation represents a bookstore shown on the map
type BookstoreLocation struct {
	ID               string
	Name             string
	Address          string
	Latitude         float64
	Longitude        float64
	Description      *string
	Website          *string
	PhoneNumber      *string
	AssociatedBookID *int64
	DateAdded        int64
}

// BookStat represents activity statistics for a book
type BookStat struct {
	BookID int64
	Title  string
	Count  int
}

// NowMillis returns the current time as epoch milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
