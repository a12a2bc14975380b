// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/fedauth/pkg/storage"
	"github.com/stacklok/fedauth/pkg/users"
)

// UserStore implements users.Store and users.ValuesStore.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a UserStore on db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db.DB()}
}

var (
	_ users.Store       = (*UserStore)(nil)
	_ users.ValuesStore = (*UserStore)(nil)
)

const userColumns = `id, email, given_name, family_name, language, enabled, email_verified,
	created_at, last_login, last_failed_login, failed_login_attempts, auth_provider_id, federation_uid`

// FindByID implements users.Store.
func (s *UserStore) FindByID(ctx context.Context, id string) (*users.User, error) {
	return s.findOne(ctx, `WHERE id = ?`, id)
}

// FindByEmail implements users.Store.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	return s.findOne(ctx, `WHERE email = ?`, email)
}

// FindByFederationUID implements users.Store.
func (s *UserStore) FindByFederationUID(ctx context.Context, subject string) (*users.User, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: user with empty federation uid", storage.ErrNotFound)
	}
	return s.findOne(ctx, `WHERE federation_uid = ? ORDER BY created_at LIMIT 1`, subject)
}

func (s *UserStore) findOne(ctx context.Context, where string, arg any) (*users.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", storage.ErrNotFound)
	}
	return u, err
}

// Save implements users.Store. The email column is unique, so renaming to an
// email owned by another account fails with storage.ErrAlreadyExists.
func (s *UserStore) Save(ctx context.Context, u *users.User, _ string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			email = ?, given_name = ?, family_name = ?, language = ?, enabled = ?,
			email_verified = ?, last_login = ?, last_failed_login = ?,
			failed_login_attempts = ?, auth_provider_id = ?, federation_uid = ?
		WHERE id = ?`,
		u.Email, u.GivenName, u.FamilyName, u.Language, u.Enabled,
		u.EmailVerified, formatNullTime(u.LastLogin), formatNullTime(u.LastFailedLogin),
		u.FailedLoginAttempts, u.AuthProviderID, u.FederationUID,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email", storage.ErrAlreadyExists)
		}
		return fmt.Errorf("updating user: %w", err)
	}
	return requireAffected(res, "user", u.ID)
}

// CreateFederated implements users.Store.
func (s *UserStore) CreateFederated(ctx context.Context, u *users.User) (*users.User, error) {
	created := u.Clone()
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Email, created.GivenName, created.FamilyName, created.Language,
		created.Enabled, created.EmailVerified, formatTime(created.CreatedAt),
		formatNullTime(created.LastLogin), formatNullTime(created.LastFailedLogin),
		created.FailedLoginAttempts, created.AuthProviderID, created.FederationUID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user", storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return created, nil
}

// Find implements users.ValuesStore.
func (s *UserStore) Find(ctx context.Context, userID string) (*users.Values, error) {
	var birthdate, phone, street, zip, city, country sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT birthdate, phone, street, zip, city, country FROM user_values WHERE user_id = ?`,
		userID,
	).Scan(&birthdate, &phone, &street, &zip, &city, &country)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: values for user %s", storage.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("scanning user values: %w", err)
	}
	return &users.Values{
		Birthdate: stringPtr(birthdate),
		Phone:     stringPtr(phone),
		Street:    stringPtr(street),
		Zip:       stringPtr(zip),
		City:      stringPtr(city),
		Country:   stringPtr(country),
	}, nil
}

// Upsert implements users.ValuesStore. COALESCE keeps stored values for
// fields absent from the update.
func (s *UserStore) Upsert(ctx context.Context, userID string, v *users.Values) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_values (user_id, birthdate, phone, street, zip, city, country)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			birthdate = COALESCE(excluded.birthdate, birthdate),
			phone     = COALESCE(excluded.phone, phone),
			street    = COALESCE(excluded.street, street),
			zip       = COALESCE(excluded.zip, zip),
			city      = COALESCE(excluded.city, city),
			country   = COALESCE(excluded.country, country)`,
		userID, nullString(v.Birthdate), nullString(v.Phone), nullString(v.Street),
		nullString(v.Zip), nullString(v.City), nullString(v.Country),
	)
	if err != nil {
		return fmt.Errorf("upserting user values: %w", err)
	}
	return nil
}

func scanUser(sc scanner) (*users.User, error) {
	var (
		u                          users.User
		createdAt                  string
		lastLogin, lastFailedLogin sql.NullString
	)
	err := sc.Scan(
		&u.ID, &u.Email, &u.GivenName, &u.FamilyName, &u.Language, &u.Enabled, &u.EmailVerified,
		&createdAt, &lastLogin, &lastFailedLogin, &u.FailedLoginAttempts, &u.AuthProviderID, &u.FederationUID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning user row: %w", err)
	}

	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if u.LastLogin, err = parseNullTime(lastLogin); err != nil {
		return nil, fmt.Errorf("parsing last_login: %w", err)
	}
	if u.LastFailedLogin, err = parseNullTime(lastFailedLogin); err != nil {
		return nil, fmt.Errorf("parsing last_failed_login: %w", err)
	}
	return &u, nil
}
