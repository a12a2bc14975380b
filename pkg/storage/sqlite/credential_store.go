// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/stacklok/fedauth/pkg/mfa"
)

// CredentialStore implements mfa.CredentialStore. Credentials are stored as
// JSON so library additions to webauthn.Credential need no migration.
type CredentialStore struct {
	db *sql.DB
}

// NewCredentialStore creates a CredentialStore on db.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db.DB()}
}

var _ mfa.CredentialStore = (*CredentialStore)(nil)

// List implements mfa.CredentialStore.
func (s *CredentialStore) List(ctx context.Context, userID string) ([]webauthn.Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT credential FROM webauthn_credentials WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var creds []webauthn.Credential
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		var cred webauthn.Credential
		if err := json.Unmarshal(blob, &cred); err != nil {
			return nil, fmt.Errorf("decoding credential: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credential rows: %w", err)
	}
	return creds, nil
}

// Put implements mfa.CredentialStore.
func (s *CredentialStore) Put(ctx context.Context, userID string, cred webauthn.Credential) error {
	blob, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO webauthn_credentials (id, user_id, credential) VALUES (?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET credential = excluded.credential`,
		cred.ID, userID, blob,
	)
	if err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}
