package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/netfusion/netfusion/pkg/auth"
)

// CreateUser inserts a user account. The email is lower-cased before
// storage so the unique constraint enforces case-insensitive uniqueness.
// Returns ErrConflict on a duplicate email.
func (s *Store) CreateUser(ctx context.Context, email string, role auth.Role, passwordHash string) (_ *User, err error) {
	defer s.observe("create_user", time.Now(), &err)

	if !role.Valid() {
		return nil, fmt.Errorf("invalid role: %q", role)
	}

	email = strings.ToLower(email)
	now := time.Now().UTC()

	id, err := s.insertID(ctx,
		"INSERT INTO users (email, role, password_hash, enabled, created_at) VALUES (?, ?, ?, ?, ?)",
		email, string(role), passwordHash, true, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &User{
		ID:           id,
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		Enabled:      true,
		CreatedAt:    now,
	}, nil
}

// GetUserByEmail looks a user up by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, email, role, password_hash, enabled, created_at
		FROM users WHERE lower(email) = ?
	`), strings.ToLower(email))
	return scanUser(row)
}

// ListUsers returns all user accounts ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, role, password_hash, enabled, created_at
		FROM users ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// HasAnyUser reports whether at least one user account exists. Drives the
// first-run flow.
func (s *Store) HasAnyUser(ctx context.Context) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users LIMIT 1").Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for users: %w", err)
	}
	return true, nil
}

// UpdateUserPassword replaces a user's password hash.
func (s *Store) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) (err error) {
	defer s.observe("update_user_password", time.Now(), &err)

	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE users SET password_hash = ? WHERE id = ?"),
		passwordHash, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// SetUserEnabled toggles the enabled flag; disablement is the removal
// mechanism (accounts are never hard-deleted).
func (s *Store) SetUserEnabled(ctx context.Context, userID int64, enabled bool) (err error) {
	defer s.observe("set_user_enabled", time.Now(), &err)

	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE users SET enabled = ? WHERE id = ?"),
		enabled, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update enabled flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// UpdateUserRole changes a user's role.
func (s *Store) UpdateUserRole(ctx context.Context, userID int64, role auth.Role) (err error) {
	defer s.observe("update_user_role", time.Now(), &err)

	if !role.Valid() {
		return fmt.Errorf("invalid role: %q", role)
	}
	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE users SET role = ? WHERE id = ?"),
		string(role), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(scanner rowScanner) (*User, error) {
	var u User
	var role string
	err := scanner.Scan(&u.ID, &u.Email, &role, &u.PasswordHash, &u.Enabled, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	// A persisted role outside the canonical set is a data-integrity bug;
	// surface it instead of coercing.
	parsed, err := auth.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s has corrupt role: %w", u.Email, err)
	}
	u.Role = parsed
	return &u, nil
}
