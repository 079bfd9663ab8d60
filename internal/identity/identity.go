package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidToken       = errors.New("invalid identity token")
	ErrNotSignedIn        = errors.New("not signed in")
)

// MinPasswordLength is the shortest password the provider accepts
const MinPasswordLength = 6

// User is the identity issued by the provider after a successful sign-in
type User struct {
	UID         string
	Email       string
	DisplayName string
	Token       string // signed session token, used to restore the session
}

// Account is the provider's credential record
type Account struct {
	UID          string
	Email        string
	PasswordHash string // empty for federated-only accounts
	GoogleID     string
	DisplayName  string
	CreatedAt    time.Time
}

// AccountStore persists provider accounts
type AccountStore interface {
	// Lookups return nil, nil when no account matches
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByGoogleID(ctx context.Context, googleID string) (*Account, error)
	AccountByUID(ctx context.Context, uid string) (*Account, error)
	// CreateAccount returns ErrEmailInUse when the email is taken
	CreateAccount(ctx context.Context, account Account) error
	LinkGoogleID(ctx context.Context, uid, googleID string) error
	DeleteAccount(ctx context.Context, uid string) error
}

// Provider signs users in and tracks the current session
type Provider interface {
	SignInWithEmail(ctx context.Context, email, password string) (*User, error)
	RegisterWithEmail(ctx context.Context, email, password, displayName string) (*User, error)
	SignInWithGoogle(ctx context.Context, idToken string) (*User, error)
	// Restore resumes a session from a token issued earlier
	Restore(ctx context.Context, token string) (*User, error)
	// DeleteAccount removes the signed-in account and ends the session
	DeleteAccount(ctx context.Context) error
	SignOut(ctx context.Context) error
	CurrentUser() *User
}

// Message maps provider errors to text suitable for a form
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrEmailInUse):
		return "An account already exists with this email."
	case errors.Is(err, ErrWeakPassword):
		return "Password must be at least 6 characters long."
	case errors.Is(err, ErrInvalidToken):
		return "Sign-in token was rejected. Please try again."
	case errors.Is(err, ErrNotSignedIn):
		return "You are not signed in."
	}
	return "Authentication failed. Please try again."
}
