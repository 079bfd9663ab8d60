package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookapp/internal/models"
	"bookapp/internal/storage"
)

const userColumns = `id, provider_id, first_name, last_name, email, password_hash,
	phone_number, profile_image_path, preferences, is_active, date_created, last_login`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var providerID, phone, image, prefs sql.NullString
	var lastLogin sql.NullInt64

	err := row.Scan(&u.ID, &providerID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&phone, &image, &prefs, &u.IsActive, &u.DateCreated, &lastLogin)
	if err != nil {
		return models.User{}, err
	}

	u.ProviderID = providerID.String
	u.PhoneNumber = fromNullString(phone)
	u.ProfileImagePath = fromNullString(image)
	u.Preferences = fromNullString(prefs)
	if lastLogin.Valid {
		ts := lastLogin.Int64
		u.LastLogin = &ts
	}
	return u, nil
}

func userArgs(u models.User) []any {
	var lastLogin any
	if u.LastLogin != nil {
		lastLogin = *u.LastLogin
	}
	return []any{
		sql.NullString{String: u.ProviderID, Valid: u.ProviderID != ""},
		u.FirstName, u.LastName, u.Email, u.PasswordHash,
		toNullString(u.PhoneNumber), toNullString(u.ProfileImagePath), toNullString(u.Preferences),
		u.IsActive, u.DateCreated, lastLogin,
	}
}

// InsertUser upserts a user and returns its id
func (s *SQLiteDB) InsertUser(ctx context.Context, user models.User) (int64, error) {
	if user.DateCreated == 0 {
		user.DateCreated = models.NowMillis()
	}

	var id any
	if user.ID != 0 {
		id = user.ID
	}
	args := append([]any{id}, userArgs(user)...)
	res, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read user id: %w", err)
	}

	s.notifier.Notify(storage.TableUsers)
	return newID, nil
}

// UpdateUser replaces the user matched by id
func (s *SQLiteDB) UpdateUser(ctx context.Context, user models.User) error {
	args := append(userArgs(user), user.ID)
	res, err := s.db.ExecContext(ctx, `UPDATE users SET
		provider_id = ?, first_name = ?, last_name = ?, email = ?, password_hash = ?,
		phone_number = ?, profile_image_path = ?, preferences = ?, is_active = ?,
		date_created = ?, last_login = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}

	s.notifier.Notify(storage.TableUsers)
	return nil
}

// DeleteUser removes the user with the given id
func (s *SQLiteDB) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.notifier.Notify(storage.TableUsers)
	return nil
}

// DeleteAllUsers empties the users table
func (s *SQLiteDB) DeleteAllUsers(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to delete users: %w", err)
	}
	s.notifier.Notify(storage.TableUsers)
	return nil
}

func (s *SQLiteDB) getUserWhere(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetUser returns a user by id
func (s *SQLiteDB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.getUserWhere(ctx, `id = ?`, id)
}

// GetUserByEmail returns the user registered with email
func (s *SQLiteDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserWhere(ctx, `email = ?`, email)
}

// GetUserByProviderID returns the profile cached for an identity provider uid
func (s *SQLiteDB) GetUserByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	return s.getUserWhere(ctx, `provider_id = ?`, providerID)
}

// ListUsers returns all users ordered by id
func (s *SQLiteDB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserExists reports whether a user with email exists
func (s *SQLiteDB) UserExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// WatchUsers streams the user list on every change
func (s *SQLiteDB) WatchUsers(ctx context.Context) <-chan []models.User {
	return storage.Watch(ctx, s.notifier, storage.TableUsers, s.ListUsers, s.logger)
}
