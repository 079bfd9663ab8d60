package viewstate

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"bookapp/internal/models"
	"bookapp/internal/repository"
)

var validate = validator.New()

type loginInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type signUpInput struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

// loginProblem returns the form message for invalid login input, or ""
func loginProblem(email, password string) string {
	in := loginInput{Email: strings.TrimSpace(email), Password: strings.TrimSpace(password)}
	if err := validate.Struct(in); err != nil {
		return "Email and password cannot be blank"
	}
	return ""
}

// signUpProblem returns the first form message for invalid signup input,
// or "". Missing fields are reported before format problems.
func signUpProblem(email, password, confirm string) string {
	in := signUpInput{
		Email:           strings.TrimSpace(email),
		Password:        strings.TrimSpace(password),
		ConfirmPassword: strings.TrimSpace(confirm),
	}
	err := validate.Struct(in)
	if err == nil {
		return ""
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "Sign up failed. Please try again."
	}
	failed := make(map[string]bool)
	for _, fe := range fieldErrs {
		failed[fe.Field()+"."+fe.Tag()] = true
	}
	switch {
	case failed["Email.required"] || failed["Password.required"]:
		return "Email and password cannot be empty."
	case failed["Email.email"]:
		return "Please enter a valid email address."
	case failed["Password.min"]:
		return "Password must be at least 6 characters long."
	case failed["ConfirmPassword.eqfield"]:
		return "Passwords do not match."
	}
	return "Sign up failed. Please try again."
}

// bookProblem returns the form message for a book missing its title or
// author, or "". The book's text fields are trimmed.
func bookProblem(book *models.Book) string {
	if err := repository.ValidateBook(book); err != nil {
		return "Title and author cannot be blank."
	}
	return ""
}
