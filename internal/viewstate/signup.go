package viewstate

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"bookapp/internal/identity"
	"bookapp/internal/models"
	"bookapp/internal/repository"
)

// SignUpForm is the registration screen read model
type SignUpForm struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	IsLoading       bool
	IsSuccess       bool
	Error           string
	User            *identity.User
	Profile         *models.User
	Status          Status
}

// SignUpState registers through the identity provider
type SignUpState struct {
	container
	provider identity.Provider
	users    *repository.UserRepository

	mu   sync.RWMutex
	form SignUpForm
}

func NewSignUpState(parent context.Context, provider identity.Provider, users *repository.UserRepository, logger *zap.Logger) *SignUpState {
	return &SignUpState{
		container: newContainer(parent, logger),
		provider:  provider,
		users:     users,
		form:      SignUpForm{Status: Idle()},
	}
}

func (s *SignUpState) Snapshot() SignUpForm {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := s.form
	if f.User != nil {
		u := *f.User
		f.User = &u
	}
	if f.Profile != nil {
		p := *f.Profile
		f.Profile = &p
	}
	return f
}

func (s *SignUpState) update(fn func(*SignUpForm)) {
	s.mu.Lock()
	fn(&s.form)
	s.mu.Unlock()
	s.notify()
}

func (s *SignUpState) FirstNameChanged(name string) {
	s.update(func(f *SignUpForm) { f.FirstName = name })
}

func (s *SignUpState) LastNameChanged(name string) {
	s.update(func(f *SignUpForm) { f.LastName = name })
}

func (s *SignUpState) EmailChanged(email string) {
	s.update(func(f *SignUpForm) {
		f.Email = email
		f.Error = ""
	})
}

func (s *SignUpState) PasswordChanged(password string) {
	s.update(func(f *SignUpForm) {
		f.Password = password
		f.Error = ""
	})
}

func (s *SignUpState) ConfirmPasswordChanged(password string) {
	s.update(func(f *SignUpForm) {
		f.ConfirmPassword = password
		f.Error = ""
	})
}

// Submit validates the form and registers the account
func (s *SignUpState) Submit() {
	form := s.Snapshot()
	if problem := signUpProblem(form.Email, form.Password, form.ConfirmPassword); problem != "" {
		s.update(func(f *SignUpForm) {
			f.Error = problem
			f.Status = Failed(problem)
		})
		return
	}

	s.update(func(f *SignUpForm) {
		f.IsLoading = true
		f.IsSuccess = false
		f.Error = ""
		f.Status = Loading()
	})

	displayName := strings.TrimSpace(form.FirstName + " " + form.LastName)
	user, err := s.provider.RegisterWithEmail(s.ctx, strings.TrimSpace(form.Email), strings.TrimSpace(form.Password), displayName)
	if err != nil {
		s.logger.Warn("Sign-up failed", zap.Error(err))
		message := identity.Message(err)
		s.update(func(f *SignUpForm) {
			f.IsLoading = false
			f.Error = message
			f.Status = Failed(message)
		})
		return
	}

	profile := syncProfile(s.ctx, s.users, user, s.logger)
	s.update(func(f *SignUpForm) {
		f.IsLoading = false
		f.IsSuccess = true
		f.User = user
		f.Profile = profile
		f.Status = Success()
	})
}

func (s *SignUpState) Reset() {
	s.update(func(f *SignUpForm) { *f = SignUpForm{Status: Idle()} })
}
