package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bookapp/internal/identity"
	"bookapp/internal/models"
	"bookapp/internal/remote"
	"bookapp/internal/storage"
)

// UserRepository manages the local profile records and their remote copies.
// Profiles are mirrored only once they are linked to a provider uid.
type UserRepository struct {
	store  storage.UserStore
	mirror remote.UserMirror
	logger *zap.Logger
}

// NewUserRepository wires a repository. mirror may be nil.
func NewUserRepository(store storage.UserStore, mirror remote.UserMirror, logger *zap.Logger) *UserRepository {
	return &UserRepository{store: store, mirror: mirror, logger: logger}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (r *UserRepository) lookup(user *models.User, err error, what string) (*models.User, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err), zap.String("by", what))
		return nil, fmt.Errorf("failed to get user by %s: %w", what, err)
	}
	return user, nil
}

// User returns the user with id, or nil
func (r *UserRepository) User(ctx context.Context, id int64) (*models.User, error) {
	u, err := r.store.GetUser(ctx, id)
	return r.lookup(u, err, "id")
}

// UserByEmail returns the user with email, or nil
func (r *UserRepository) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := r.store.GetUserByEmail(ctx, identity.NormalizeEmail(email))
	return r.lookup(u, err, "email")
}

// UserByProviderID returns the user linked to a provider uid, or nil
func (r *UserRepository) UserByProviderID(ctx context.Context, uid string) (*models.User, error) {
	u, err := r.store.GetUserByProviderID(ctx, uid)
	return r.lookup(u, err, "provider id")
}

func (r *UserRepository) AllUsers(ctx context.Context) <-chan []models.User {
	return r.store.WatchUsers(ctx)
}

func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	exists, err := r.store.UserExists(ctx, identity.NormalizeEmail(email))
	if err != nil {
		r.logger.Error("Failed to check email", zap.Error(err))
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// ValidateUser returns the user when the password matches, nil otherwise
func (r *UserRepository) ValidateUser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := r.UserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		r.logger.Debug("Password mismatch", zap.String("email", user.Email))
		return nil, nil
	}
	return user, nil
}

// Insert stores a new profile. A non-empty password is hashed before it is
// written.
func (r *UserRepository) Insert(ctx context.Context, user models.User, password string) (models.User, error) {
	user.Email = identity.NormalizeEmail(user.Email)
	if password != "" {
		hash, err := hashPassword(password)
		if err != nil {
			return models.User{}, err
		}
		user.PasswordHash = hash
	}

	id, err := r.store.InsertUser(ctx, user)
	if err != nil {
		r.logger.Error("Failed to insert user", zap.Error(err), zap.String("email", user.Email))
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	saved, err := r.store.GetUser(ctx, id)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to read inserted user: %w", err)
	}
	r.logger.Info("User inserted", zap.Int64("id", id), zap.String("email", saved.Email))

	if err := r.putRemote(ctx, *saved); err != nil {
		return *saved, err
	}
	return *saved, nil
}

// Update replaces the stored profile and its remote copy
func (r *UserRepository) Update(ctx context.Context, user models.User) error {
	user.Email = identity.NormalizeEmail(user.Email)
	if err := r.store.UpdateUser(ctx, user); err != nil {
		r.logger.Error("Failed to update user", zap.Error(err), zap.Int64("id", user.ID))
		return fmt.Errorf("failed to update user: %w", err)
	}

	if r.mirror == nil || user.ProviderID == "" {
		return nil
	}
	err := r.mirror.UpdateUser(ctx, remote.NewUserDocument(user))
	if errors.Is(err, remote.ErrNotFound) {
		r.logger.Warn("No remote profile to update", zap.String("uid", user.ProviderID))
		return nil
	}
	if err != nil {
		r.logger.Error("Failed to update remote profile", zap.Error(err), zap.String("uid", user.ProviderID))
		return fmt.Errorf("%w: %w", ErrRemoteMirror, err)
	}
	return nil
}

// Delete removes the profile and its remote copy. Unknown ids are ignored.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	user, err := r.User(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.DeleteUser(ctx, id); err != nil {
		r.logger.Error("Failed to delete user", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if user == nil {
		return nil
	}
	r.logger.Info("User deleted", zap.Int64("id", id), zap.String("email", user.Email))

	if r.mirror == nil || user.ProviderID == "" {
		return nil
	}
	if err := r.mirror.DeleteUser(ctx, user.ProviderID); err != nil {
		r.logger.Error("Failed to delete remote profile", zap.Error(err), zap.String("uid", user.ProviderID))
		return fmt.Errorf("%w: %w", ErrRemoteMirror, err)
	}
	return nil
}

// SetPassword replaces the stored password hash
func (r *UserRepository) SetPassword(ctx context.Context, id int64, password string) error {
	user, err := r.User(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := r.store.UpdateUser(ctx, *user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// RecordLogin stamps the last login time locally and remotely
func (r *UserRepository) RecordLogin(ctx context.Context, id int64) (models.User, error) {
	user, err := r.User(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if user == nil {
		return models.User{}, fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	now := models.NowMillis()
	user.LastLogin = &now
	if err := r.store.UpdateUser(ctx, *user); err != nil {
		r.logger.Error("Failed to record login", zap.Error(err), zap.Int64("id", id))
		return models.User{}, fmt.Errorf("failed to record login: %w", err)
	}
	if err := r.putRemote(ctx, *user); err != nil {
		return *user, err
	}
	return *user, nil
}

// SyncProfile makes sure a local profile exists for the signed-in identity.
// An existing profile is matched by uid, then by email. A new profile takes
// its names from the remote profile when there is one.
func (r *UserRepository) SyncProfile(ctx context.Context, identityUser *identity.User) (models.User, error) {
	if identityUser == nil {
		return models.User{}, identity.ErrNotSignedIn
	}
	user, err := r.UserByProviderID(ctx, identityUser.UID)
	if err != nil {
		return models.User{}, err
	}
	if user == nil {
		if user, err = r.UserByEmail(ctx, identityUser.Email); err != nil {
			return models.User{}, err
		}
	}

	now := models.NowMillis()
	if user == nil {
		user = r.newProfile(ctx, identityUser, now)
	}
	user.ProviderID = identityUser.UID
	user.LastLogin = &now

	if user.ID == 0 {
		id, err := r.store.InsertUser(ctx, *user)
		if err != nil {
			r.logger.Error("Failed to create profile", zap.Error(err), zap.String("uid", identityUser.UID))
			return models.User{}, fmt.Errorf("failed to create profile: %w", err)
		}
		user.ID = id
		r.logger.Info("Profile created", zap.Int64("id", id), zap.String("uid", identityUser.UID))
	} else if err := r.store.UpdateUser(ctx, *user); err != nil {
		r.logger.Error("Failed to refresh profile", zap.Error(err), zap.String("uid", identityUser.UID))
		return models.User{}, fmt.Errorf("failed to refresh profile: %w", err)
	}

	if err := r.putRemote(ctx, *user); err != nil {
		return *user, err
	}
	return *user, nil
}

func (r *UserRepository) newProfile(ctx context.Context, identityUser *identity.User, now int64) *models.User {
	first, last := splitName(identityUser.DisplayName)
	user := &models.User{
		FirstName:   first,
		LastName:    last,
		Email:       identity.NormalizeEmail(identityUser.Email),
		IsActive:    true,
		DateCreated: now,
	}
	if r.mirror == nil {
		return user
	}

	doc, err := r.mirror.GetUser(ctx, identityUser.UID)
	if err != nil {
		r.logger.Warn("Failed to fetch remote profile", zap.Error(err), zap.String("uid", identityUser.UID))
		return user
	}
	if doc != nil {
		user.FirstName = doc.FirstName
		user.LastName = doc.LastName
		user.PhoneNumber = doc.PhoneNumber
		user.ProfileImagePath = doc.ProfileImagePath
		if doc.DateCreated != 0 {
			user.DateCreated = doc.DateCreated
		}
	}
	return user
}

// putRemote creates the remote profile if missing and refreshes its last
// login otherwise
func (r *UserRepository) putRemote(ctx context.Context, user models.User) error {
	if r.mirror == nil || user.ProviderID == "" {
		return nil
	}
	created, err := r.mirror.PutUser(ctx, remote.NewUserDocument(user))
	if err != nil {
		r.logger.Error("Failed to write remote profile", zap.Error(err), zap.String("uid", user.ProviderID))
		return fmt.Errorf("%w: %w", ErrRemoteMirror, err)
	}
	if created {
		r.logger.Info("Remote profile created", zap.String("uid", user.ProviderID))
	}
	return nil
}

func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
