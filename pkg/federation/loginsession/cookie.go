// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package loginsession

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	// CookieName is the callback cookie carrying the session id.
	CookieName = "upstream_auth_callback"
	// CookiePath scopes the cookie to the auth surface.
	CookiePath = "/auth"
)

// cookieCodec encrypts and authenticates the session id.
type cookieCodec struct {
	codec *securecookie.SecureCookie
	ttl   time.Duration
}

func newCookieCodec(hashKey, blockKey []byte, ttl time.Duration) (*cookieCodec, error) {
	if len(hashKey) < 32 {
		return nil, fmt.Errorf("cookie hash key must be at least 32 bytes")
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("cookie block key must be 16, 24 or 32 bytes")
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(ttl.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &cookieCodec{codec: codec, ttl: ttl}, nil
}

func (c *cookieCodec) encode(sessionID string) (*http.Cookie, error) {
	value, err := c.codec.Encode(CookieName, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to encode callback cookie: %w", err)
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     CookiePath,
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

func (c *cookieCodec) decode(value string) (string, error) {
	var sessionID string
	if err := c.codec.Decode(CookieName, value, &sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}

func (*cookieCodec) clear() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
