package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const defaultSessionTTL = 30 * 24 * time.Hour

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Service is the identity provider backed by an AccountStore
type Service struct {
	accounts AccountStore
	verifier TokenVerifier
	secret   []byte
	ttl      time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	current *User
}

// NewService creates a provider. verifier may be nil when federated
// sign-in is not configured.
func NewService(accounts AccountStore, verifier TokenVerifier, secret []byte, logger *zap.Logger) *Service {
	return &Service{
		accounts: accounts,
		verifier: verifier,
		secret:   secret,
		ttl:      defaultSessionTTL,
		logger:   logger,
	}
}

// SignInWithEmail checks the password against the stored hash
func (s *Service) SignInWithEmail(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	account, err := s.accounts.AccountByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to look up account", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if account == nil || account.PasswordHash == "" {
		s.logger.Info("Sign-in rejected", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("Sign-in rejected", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("User signed in", zap.String("uid", account.UID), zap.String("email", email))
	return s.startSession(*account)
}

// RegisterWithEmail creates an account and signs it in
func (s *Service) RegisterWithEmail(ctx context.Context, email, password, displayName string) (*User, error) {
	email = NormalizeEmail(email)
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := Account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if !errors.Is(err, ErrEmailInUse) {
			s.logger.Error("Failed to create account", zap.Error(err), zap.String("email", email))
		}
		return nil, err
	}

	s.logger.Info("User registered", zap.String("uid", account.UID), zap.String("email", email))
	return s.startSession(account)
}

// SignInWithGoogle verifies a Google ID token, creating or linking the
// account on first use
func (s *Service) SignInWithGoogle(ctx context.Context, idToken string) (*User, error) {
	if s.verifier == nil {
		return nil, fmt.Errorf("%w: federated sign-in is not configured", ErrInvalidToken)
	}

	claims, err := s.verifier.Verify(idToken)
	if err != nil {
		s.logger.Warn("Google token rejected", zap.Error(err))
		return nil, err
	}

	account, err := s.accounts.AccountByGoogleID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if account == nil {
		account, err = s.linkOrCreateGoogleAccount(ctx, claims)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("User signed in with Google", zap.String("uid", account.UID), zap.String("email", account.Email))
	return s.startSession(*account)
}

func (s *Service) linkOrCreateGoogleAccount(ctx context.Context, claims *GoogleClaims) (*Account, error) {
	email := NormalizeEmail(claims.Email)
	existing, err := s.accounts.AccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if existing != nil {
		if err := s.accounts.LinkGoogleID(ctx, existing.UID, claims.Subject); err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		existing.GoogleID = claims.Subject
		return existing, nil
	}

	account := Account{
		UID:         uuid.NewString(),
		Email:       email,
		GoogleID:    claims.Subject,
		DisplayName: claims.Name,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Restore resumes the session carried by a previously issued token
func (s *Service) Restore(ctx context.Context, token string) (*User, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	account, err := s.accounts.AccountByUID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account no longer exists", ErrInvalidToken)
	}

	user := &User{UID: account.UID, Email: account.Email, DisplayName: account.DisplayName, Token: token}
	s.setCurrent(user)
	return user, nil
}

// DeleteAccount removes the signed-in account
func (s *Service) DeleteAccount(ctx context.Context) error {
	current := s.CurrentUser()
	if current == nil {
		return ErrNotSignedIn
	}
	if err := s.accounts.DeleteAccount(ctx, current.UID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	s.logger.Info("Account deleted", zap.String("uid", current.UID))
	s.setCurrent(nil)
	return nil
}

// SignOut ends the current session
func (s *Service) SignOut(ctx context.Context) error {
	if current := s.CurrentUser(); current != nil {
		s.logger.Info("User signed out", zap.String("uid", current.UID))
	}
	s.setCurrent(nil)
	return nil
}

// CurrentUser returns the signed-in user, or nil
func (s *Service) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

func (s *Service) startSession(account Account) (*User, error) {
	now := time.Now()
	claims := sessionClaims{
		Email: account.Email,
		Name:  account.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	user := &User{UID: account.UID, Email: account.Email, DisplayName: account.DisplayName, Token: token}
	s.setCurrent(user)
	return user, nil
}

func (s *Service) setCurrent(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = user
}

// NormalizeEmail is the canonical form of an email used as a lookup key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
