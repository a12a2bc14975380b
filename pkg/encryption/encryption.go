// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package encryption seals secrets at rest with keys owned by process startup.
//
// A KeyProvider is constructed once from configuration and injected into
// every component that encrypts or decrypts. There is no default key.
package encryption

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// keyIDSeparator separates the key id prefix from the sealed payload.
const keyIDSeparator = '/'

var (
	// ErrNoKeys is returned when a KeyProvider is built without keys.
	ErrNoKeys = errors.New("no encryption keys configured")

	// ErrUnknownKey is returned when a payload was sealed with a key that is not loaded.
	ErrUnknownKey = errors.New("unknown encryption key id")

	// ErrMalformed is returned when a payload does not have the sealed layout.
	ErrMalformed = errors.New("malformed sealed value")
)

// KeyProvider encrypts with the active key and decrypts with any loaded key,
// which allows rotating the active key without re-encrypting stored data first.
type KeyProvider struct {
	active string
	aeads  map[string]cipher.AEAD
}

// NewKeyProvider builds a KeyProvider. Every key must be exactly 32 bytes and
// activeID must name one of them.
func NewKeyProvider(activeID string, keys map[string][]byte) (*KeyProvider, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	aeads := make(map[string]cipher.AEAD, len(keys))
	for id, key := range keys {
		if id == "" || strings.ContainsRune(id, keyIDSeparator) {
			return nil, fmt.Errorf("invalid key id %q", id)
		}
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", id, err)
		}
		aeads[id] = aead
	}
	if _, ok := aeads[activeID]; !ok {
		return nil, fmt.Errorf("active key %q is not among the configured keys", activeID)
	}
	return &KeyProvider{active: activeID, aeads: aeads}, nil
}

// ParseKeys parses a whitespace separated list of "id/base64key" entries.
func ParseKeys(raw string) (map[string][]byte, error) {
	keys := make(map[string][]byte)
	for _, entry := range strings.Fields(raw) {
		id, encoded, ok := strings.Cut(entry, string(keyIDSeparator))
		if !ok || id == "" {
			return nil, fmt.Errorf("key entry must have the form id/base64key")
		}
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("key %q is not valid base64: %w", id, err)
		}
		if _, dup := keys[id]; dup {
			return nil, fmt.Errorf("duplicate key id %q", id)
		}
		keys[id] = key
	}
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	return keys, nil
}

// ActiveKeyID returns the id of the key used for new ciphertexts.
func (k *KeyProvider) ActiveKeyID() string {
	return k.active
}

// Encrypt seals plaintext with the active key. The result is
// "<key id>/" followed by nonce and ciphertext. A fresh random nonce is used
// for every call.
func (k *KeyProvider) Encrypt(plaintext []byte) ([]byte, error) {
	aead := k.aeads[k.active]

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, []byte(k.active))

	out := make([]byte, 0, len(k.active)+1+len(sealed))
	out = append(out, k.active...)
	out = append(out, keyIDSeparator)
	return append(out, sealed...), nil
}

// Decrypt opens a value produced by Encrypt with whichever key sealed it.
func (k *KeyProvider) Decrypt(ciphertext []byte) ([]byte, error) {
	idx := -1
	for i, b := range ciphertext {
		if b == keyIDSeparator {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return nil, ErrMalformed
	}
	id := string(ciphertext[:idx])
	aead, ok := k.aeads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, id)
	}

	payload := ciphertext[idx+1:]
	if len(payload) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformed
	}
	nonce, sealed := payload[:aead.NonceSize()], payload[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, []byte(id))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptString is Encrypt for string secrets.
func (k *KeyProvider) EncryptString(plaintext string) ([]byte, error) {
	return k.Encrypt([]byte(plaintext))
}

// DecryptString is Decrypt for string secrets.
func (k *KeyProvider) DecryptString(ciphertext []byte) (string, error) {
	plaintext, err := k.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
