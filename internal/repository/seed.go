package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bookapp/internal/models"
)

const (
	SampleUserEmail    = "test@example.com"
	SampleUserPassword = "password"
)

func sampleBooks() []models.Book {
	return []models.Book{
		{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Description: models.StringPtr("A story about the American Dream"), Category: "Fiction"},
		{Title: "To Kill a Mockingbird", Author: "Harper Lee", Description: models.StringPtr("A story of racial injustice"), Category: "Fiction"},
		{Title: "1984", Author: "George Orwell", Description: models.StringPtr("A dystopian novel"), Category: "Science Fiction"},
	}
}

// SeedSampleData adds a test user and a few books to an empty store. It does
// nothing once any user exists.
func SeedSampleData(ctx context.Context, books *BookRepository, users *UserRepository, logger *zap.Logger) error {
	existing, err := users.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Debug("Store already has users, skipping sample data")
		return nil
	}

	testUser := models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     SampleUserEmail,
		IsActive:  true,
	}
	if _, err := users.Insert(ctx, testUser, SampleUserPassword); err != nil {
		return fmt.Errorf("failed to add sample user: %w", err)
	}
	logger.Info("Added test user", zap.String("email", SampleUserEmail))

	for _, book := range sampleBooks() {
		if _, err := books.store.InsertBook(ctx, book); err != nil {
			return fmt.Errorf("failed to add sample book %q: %w", book.Title, err)
		}
		logger.Debug("Added sample book", zap.String("title", book.Title))
	}
	return nil
}
