// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stacklok/fedauth/pkg/federation/provider"
	"github.com/stacklok/fedauth/pkg/storage"
)

// ProviderStore implements provider.Store.
type ProviderStore struct {
	db *sql.DB
}

// NewProviderStore creates a ProviderStore on db.
func NewProviderStore(db *DB) *ProviderStore {
	return &ProviderStore{db: db.DB()}
}

var _ provider.Store = (*ProviderStore)(nil)

const providerColumns = `id, name, type, issuer, authorization_endpoint, token_endpoint,
	userinfo_endpoint, client_id, secret, scope, allow_insecure_requests, use_pkce,
	root_pem, logo, logo_type`

// Create implements provider.Store.
func (s *ProviderStore) Create(ctx context.Context, p *provider.Provider) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_providers (`+providerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Type), p.Issuer, p.AuthorizationEndpoint, p.TokenEndpoint,
		p.UserinfoEndpoint, p.ClientID, p.Secret, p.Scope, p.AllowInsecureRequests, p.UsePKCE,
		p.RootPEM, p.Logo, p.LogoType,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: provider %s", storage.ErrAlreadyExists, p.ID)
		}
		return fmt.Errorf("inserting provider: %w", err)
	}
	return nil
}

// Get implements provider.Store.
func (s *ProviderStore) Get(ctx context.Context, id string) (*provider.Provider, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM auth_providers WHERE id = ?`, id)
	p, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: provider %s", storage.ErrNotFound, id)
	}
	return p, err
}

// List implements provider.Store.
func (s *ProviderStore) List(ctx context.Context) ([]*provider.Provider, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+providerColumns+` FROM auth_providers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying providers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*provider.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating provider rows: %w", err)
	}
	return out, nil
}

// Update implements provider.Store.
func (s *ProviderStore) Update(ctx context.Context, p *provider.Provider) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE auth_providers SET
			name = ?, type = ?, issuer = ?, authorization_endpoint = ?, token_endpoint = ?,
			userinfo_endpoint = ?, client_id = ?, secret = ?, scope = ?,
			allow_insecure_requests = ?, use_pkce = ?, root_pem = ?, logo = ?, logo_type = ?
		WHERE id = ?`,
		p.Name, string(p.Type), p.Issuer, p.AuthorizationEndpoint, p.TokenEndpoint,
		p.UserinfoEndpoint, p.ClientID, p.Secret, p.Scope,
		p.AllowInsecureRequests, p.UsePKCE, p.RootPEM, p.Logo, p.LogoType,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating provider: %w", err)
	}
	return requireAffected(res, "provider", p.ID)
}

// Delete implements provider.Store.
func (s *ProviderStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_providers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting provider: %w", err)
	}
	return requireAffected(res, "provider", id)
}

func scanProvider(sc scanner) (*provider.Provider, error) {
	var (
		p   provider.Provider
		typ string
	)
	err := sc.Scan(
		&p.ID, &p.Name, &typ, &p.Issuer, &p.AuthorizationEndpoint, &p.TokenEndpoint,
		&p.UserinfoEndpoint, &p.ClientID, &p.Secret, &p.Scope, &p.AllowInsecureRequests, &p.UsePKCE,
		&p.RootPEM, &p.Logo, &p.LogoType,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning provider row: %w", err)
	}
	p.Type = provider.Type(typ)
	return &p, nil
}

// requireAffected maps an UPDATE or DELETE that matched no row to storage.ErrNotFound.
func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", storage.ErrNotFound, kind, id)
	}
	return nil
}
