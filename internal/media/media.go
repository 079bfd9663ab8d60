package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// MaxImageBytes caps the size of an uploaded image
const MaxImageBytes = 10 << 20

// PresignExpiry is how long a generated download link stays valid
const PresignExpiry = 24 * time.Hour

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("image is too large")
)

// Store keeps uploaded images. Objects are addressed by their key.
type Store interface {
	// Upload stores the body under prefix and returns the new object key
	Upload(ctx context.Context, prefix, filename string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// URL returns a link that can be used to download the object
	URL(ctx context.Context, key string) (string, error)
	// Ref returns the reference stored on a book or profile for key
	Ref(key string) string
	// Key returns the object key of a reference made by Ref, or false when
	// ref points somewhere else
	Key(ref string) (string, bool)
}

// CoverPrefix is where a book's cover images live
func CoverPrefix(bookID int64) string {
	return fmt.Sprintf("covers/%d/", bookID)
}

// AvatarPrefix is where a profile's images live
func AvatarPrefix(userID int64) string {
	return fmt.Sprintf("avatars/%d/", userID)
}

// ReadImage reads at most MaxImageBytes from r and sniffs its content type
func ReadImage(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", ErrTooLarge
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", ErrNotImage
	}
	return data, contentType, nil
}

func objectKey(prefix, filename, id string) string {
	return prefix + id + strings.ToLower(filepath.Ext(filename))
}

// Put validates an image and uploads it under prefix. It returns the
// reference to store on the book or profile.
func Put(ctx context.Context, store Store, prefix, filename string, r io.Reader) (string, error) {
	data, contentType, err := ReadImage(r)
	if err != nil {
		return "", err
	}
	key, err := store.Upload(ctx, prefix, filename, bytes.NewReader(data), contentType)
	if err != nil {
		return "", err
	}
	return store.Ref(key), nil
}

// Discard deletes the object behind ref. References the store did not
// create, such as external cover URLs, are left alone.
func Discard(ctx context.Context, store Store, ref *string) error {
	if ref == nil {
		return nil
	}
	key, ok := store.Key(*ref)
	if !ok {
		return nil
	}
	return store.Delete(ctx, key)
}

// Link returns a downloadable link for ref. External URLs are returned as
// they are.
func Link(ctx context.Context, store Store, ref string) (string, error) {
	if store == nil {
		return ref, nil
	}
	key, ok := store.Key(ref)
	if !ok {
		return ref, nil
	}
	return store.URL(ctx, key)
}
