package viewstate

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"bookapp/internal/models"
	"bookapp/internal/repository"
)

// UserSnapshot is the local account read model
type UserSnapshot struct {
	CurrentUser *models.User
	IsLoggedIn  bool
	LoginError  string
	SignupError string
	Status      Status
}

// UserState runs the local credential flow: login against stored profiles,
// signup, profile edits and account deletion
type UserState struct {
	container
	users *repository.UserRepository

	mu       sync.RWMutex
	snapshot UserSnapshot
}

func NewUserState(parent context.Context, users *repository.UserRepository, logger *zap.Logger) *UserState {
	return &UserState{
		container: newContainer(parent, logger),
		users:     users,
		snapshot:  UserSnapshot{Status: Idle()},
	}
}

func (s *UserState) Snapshot() UserSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.CurrentUser != nil {
		u := *s.snapshot.CurrentUser
		snap.CurrentUser = &u
	}
	return snap
}

func (s *UserState) update(fn func(*UserSnapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	s.mu.Unlock()
	s.notify()
}

func (s *UserState) fail(action string, err error, set func(*UserSnapshot, string)) {
	s.logger.Error("User operation failed", zap.String("action", action), zap.Error(err))
	message := fmt.Sprintf("Error during %s: %v", action, err)
	s.update(func(snap *UserSnapshot) {
		if set != nil {
			set(snap, message)
		}
		snap.Status = Failed(message)
	})
}

// Login checks the credentials against the stored profiles
func (s *UserState) Login(email, password string) {
	s.update(func(snap *UserSnapshot) {
		snap.Status = Loading()
		snap.LoginError = ""
	})

	user, err := s.users.ValidateUser(s.ctx, email, password)
	if err != nil {
		s.fail("login", err, func(snap *UserSnapshot, m string) { snap.LoginError = m })
		return
	}
	if user == nil {
		s.update(func(snap *UserSnapshot) {
			snap.LoginError = "Invalid email or password"
			snap.Status = Failed(snap.LoginError)
		})
		return
	}

	stamped, err := s.users.RecordLogin(s.ctx, user.ID)
	if err != nil {
		s.logger.Warn("Failed to record login", zap.Error(err), zap.Int64("id", user.ID))
		stamped = *user
	}
	s.logger.Info("User logged in", zap.Int64("id", stamped.ID))
	s.update(func(snap *UserSnapshot) {
		snap.CurrentUser = &stamped
		snap.IsLoggedIn = true
		snap.Status = Success()
	})
}

func (s *UserState) Logout() {
	s.update(func(snap *UserSnapshot) {
		snap.CurrentUser = nil
		snap.IsLoggedIn = false
		snap.Status = Idle()
	})
}

// Signup creates a local profile and logs it in. A taken email is reported
// through SignupError.
func (s *UserState) Signup(user models.User, password string) {
	s.update(func(snap *UserSnapshot) {
		snap.Status = Loading()
		snap.SignupError = ""
	})

	exists, err := s.users.EmailExists(s.ctx, user.Email)
	if err != nil {
		s.fail("signup", err, func(snap *UserSnapshot, m string) { snap.SignupError = m })
		return
	}
	if exists {
		s.update(func(snap *UserSnapshot) {
			snap.SignupError = "Email already registered"
			snap.Status = Failed(snap.SignupError)
		})
		return
	}

	user.IsActive = true
	saved, err := s.users.Insert(s.ctx, user, password)
	if err != nil {
		s.fail("signup", err, func(snap *UserSnapshot, m string) { snap.SignupError = m })
		return
	}
	s.update(func(snap *UserSnapshot) {
		snap.CurrentUser = &saved
		snap.IsLoggedIn = true
		snap.Status = Success()
	})
}

// UpdateProfile saves the edited profile and makes it current
func (s *UserState) UpdateProfile(user models.User) {
	s.update(func(snap *UserSnapshot) { snap.Status = Loading() })

	if err := s.users.Update(s.ctx, user); err != nil {
		s.fail("profile update", err, nil)
		return
	}
	s.update(func(snap *UserSnapshot) {
		snap.CurrentUser = &user
		snap.Status = Success()
	})
}

// DeleteAccount removes the current user's profile and logs out
func (s *UserState) DeleteAccount() {
	current := s.Snapshot().CurrentUser
	if current == nil {
		s.update(func(snap *UserSnapshot) { snap.Status = Failed("No user is logged in") })
		return
	}
	s.update(func(snap *UserSnapshot) { snap.Status = Loading() })

	if err := s.users.Delete(s.ctx, current.ID); err != nil {
		s.fail("account deletion", err, nil)
		return
	}
	s.update(func(snap *UserSnapshot) {
		snap.CurrentUser = nil
		snap.IsLoggedIn = false
		snap.Status = Success()
	})
}

// SetCurrentUser adopts a profile established elsewhere, such as a provider
// sign-in
func (s *UserState) SetCurrentUser(user models.User) {
	s.update(func(snap *UserSnapshot) {
		snap.CurrentUser = &user
		snap.IsLoggedIn = true
	})
}

func (s *UserState) ClearLoginError() {
	s.update(func(snap *UserSnapshot) { snap.LoginError = "" })
}

func (s *UserState) ClearSignupError() {
	s.update(func(snap *UserSnapshot) { snap.SignupError = "" })
}
