// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package users defines the local account records touched by federated
// logins and the stores that persist them.
package users

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=users.go Store,ValuesStore

// PlaceholderName is stored when an upstream does not provide a name claim.
const PlaceholderName = "N/A"

// User is a local account.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Language      string `json:"language"`
	Enabled       bool   `json:"enabled"`
	EmailVerified bool   `json:"email_verified"`

	CreatedAt           time.Time  `json:"created_at"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
	LastFailedLogin     *time.Time `json:"last_failed_login,omitempty"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`

	// AuthProviderID is the upstream provider that last authenticated the account.
	AuthProviderID string `json:"auth_provider_id,omitempty"`
	// FederationUID is the upstream provider's subject for this account.
	FederationUID string `json:"federation_uid,omitempty"`
}

// IsFederated reports whether the account is bound to an upstream identity.
func (u *User) IsFederated() bool {
	return u.FederationUID != ""
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	if u.LastFailedLogin != nil {
		t := *u.LastFailedLogin
		c.LastFailedLogin = &t
	}
	return &c
}

// Values are optional profile fields. A nil field is absent.
type Values struct {
	Birthdate *string `json:"birthdate,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Street    *string `json:"street,omitempty"`
	Zip       *string `json:"zip,omitempty"`
	City      *string `json:"city,omitempty"`
	Country   *string `json:"country,omitempty"`
}

// IsEmpty reports whether no field is set.
func (v *Values) IsEmpty() bool {
	return v.Birthdate == nil && v.Phone == nil && v.Street == nil &&
		v.Zip == nil && v.City == nil && v.Country == nil
}

// Merge overwrites fields of v with the fields present in update.
func (v *Values) Merge(update *Values) {
	mergeField(&v.Birthdate, update.Birthdate)
	mergeField(&v.Phone, update.Phone)
	mergeField(&v.Street, update.Street)
	mergeField(&v.Zip, update.Zip)
	mergeField(&v.City, update.City)
	mergeField(&v.Country, update.Country)
}

func mergeField(dst **string, src *string) {
	if src != nil {
		s := *src
		*dst = &s
	}
}

// Store persists local accounts.
type Store interface {
	// FindByID returns the user or storage.ErrNotFound.
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByEmail returns the user with exactly this email or storage.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByFederationUID returns the user bound to the upstream subject or storage.ErrNotFound.
	FindByFederationUID(ctx context.Context, subject string) (*User, error)
	// Save persists changes to an existing user. previousEmail is non-empty
	// when the email changed and names the email the account had before.
	Save(ctx context.Context, user *User, previousEmail string) error
	// CreateFederated inserts a new user, assigning its ID when empty.
	// It fails with storage.ErrAlreadyExists when the email is taken.
	CreateFederated(ctx context.Context, user *User) (*User, error)
}

// ValuesStore persists profile values.
type ValuesStore interface {
	// Find returns the user's values or storage.ErrNotFound.
	Find(ctx context.Context, userID string) (*Values, error)
	// Upsert merges the present fields of values into the stored record,
	// creating it when missing. Absent fields keep their stored value.
	Upsert(ctx context.Context, userID string, values *Values) error
}
