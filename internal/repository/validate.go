package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"bookapp/internal/models"
)

// ErrInvalidBook is returned for a book missing a required field
var ErrInvalidBook = errors.New("invalid book")

var validate = validator.New()

type requiredBookFields struct {
	Title  string `validate:"required"`
	Author string `validate:"required"`
}

// ValidateBook trims the title and author of book and checks that neither
// is blank. A blank category becomes models.DefaultCategory.
func ValidateBook(book *models.Book) error {
	book.Title = strings.TrimSpace(book.Title)
	book.Author = strings.TrimSpace(book.Author)
	book.Category = strings.TrimSpace(book.Category)
	if book.Category == "" {
		book.Category = models.DefaultCategory
	}

	err := validate.Struct(requiredBookFields{Title: book.Title, Author: book.Author})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: %s cannot be blank", ErrInvalidBook, strings.ToLower(fieldErrs[0].Field()))
	}
	return fmt.Errorf("%w: %w", ErrInvalidBook, err)
}
