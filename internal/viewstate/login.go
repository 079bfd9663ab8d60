package viewstate

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"bookapp/internal/identity"
	"bookapp/internal/models"
	"bookapp/internal/repository"
)

// LoginForm is the sign-in screen read model
type LoginForm struct {
	Email     string
	Password  string
	IsLoading bool
	IsSuccess bool
	Error     string
	User      *identity.User
	Profile   *models.User
	Status    Status
}

// LoginState signs in through the identity provider and refreshes the local
// profile cache on success
type LoginState struct {
	container
	provider identity.Provider
	users    *repository.UserRepository

	mu   sync.RWMutex
	form LoginForm
}

func NewLoginState(parent context.Context, provider identity.Provider, users *repository.UserRepository, logger *zap.Logger) *LoginState {
	return &LoginState{
		container: newContainer(parent, logger),
		provider:  provider,
		users:     users,
		form:      LoginForm{Status: Idle()},
	}
}

func (s *LoginState) Snapshot() LoginForm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLoginForm(s.form)
}

func cloneLoginForm(f LoginForm) LoginForm {
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

func (s *LoginState) update(fn func(*LoginForm)) {
	s.mu.Lock()
	fn(&s.form)
	s.mu.Unlock()
	s.notify()
}

func (s *LoginState) EmailChanged(email string) {
	s.update(func(f *LoginForm) {
		f.Email = email
		f.Error = ""
	})
}

func (s *LoginState) PasswordChanged(password string) {
	s.update(func(f *LoginForm) {
		f.Password = password
		f.Error = ""
	})
}

// Submit signs in with the entered email and password
func (s *LoginState) Submit() {
	form := s.Snapshot()
	if problem := loginProblem(form.Email, form.Password); problem != "" {
		s.update(func(f *LoginForm) {
			f.Error = problem
			f.Status = Failed(problem)
		})
		return
	}

	s.signIn(func(ctx context.Context) (*identity.User, error) {
		return s.provider.SignInWithEmail(ctx, form.Email, form.Password)
	})
}

// SignInWithGoogle signs in with a Google ID token
func (s *LoginState) SignInWithGoogle(idToken string) {
	s.signIn(func(ctx context.Context) (*identity.User, error) {
		return s.provider.SignInWithGoogle(ctx, idToken)
	})
}

func (s *LoginState) signIn(fn func(ctx context.Context) (*identity.User, error)) {
	s.update(func(f *LoginForm) {
		f.IsLoading = true
		f.IsSuccess = false
		f.Error = ""
		f.Status = Loading()
	})

	user, err := fn(s.ctx)
	if err != nil {
		s.logger.Warn("Sign-in failed", zap.Error(err))
		message := identity.Message(err)
		s.update(func(f *LoginForm) {
			f.IsLoading = false
			f.Error = message
			f.Status = Failed(message)
		})
		return
	}

	profile := syncProfile(s.ctx, s.users, user, s.logger)
	s.update(func(f *LoginForm) {
		f.IsLoading = false
		f.IsSuccess = true
		f.User = user
		f.Profile = profile
		f.Status = Success()
	})
}

// SignOut ends the provider session and clears the form
func (s *LoginState) SignOut() {
	if err := s.provider.SignOut(s.ctx); err != nil {
		s.logger.Error("Sign-out failed", zap.Error(err))
		s.update(func(f *LoginForm) { f.Status = Failed(identity.Message(err)) })
		return
	}
	s.Reset()
}

func (s *LoginState) Reset() {
	s.update(func(f *LoginForm) { *f = LoginForm{Status: Idle()} })
}

// syncProfile refreshes the local profile for a signed-in user. The session
// stands even when the profile cannot be written.
func syncProfile(ctx context.Context, users *repository.UserRepository, user *identity.User, logger *zap.Logger) *models.User {
	if users == nil {
		return nil
	}
	profile, err := users.SyncProfile(ctx, user)
	if err != nil && !errors.Is(err, repository.ErrRemoteMirror) {
		logger.Error("Failed to sync profile", zap.Error(err), zap.String("uid", user.UID))
		return nil
	}
	if err != nil {
		logger.Warn("Profile saved locally only", zap.Error(err), zap.String("uid", user.UID))
	}
	return &profile
}
