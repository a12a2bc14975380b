// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	fderrors "github.com/stacklok/fedauth/pkg/errors"
)

// Claims are the ID token claims read during reconciliation. Only Email and
// Subject are required; every other field may be absent.
type Claims struct {
	Issuer          string         `json:"iss"`
	Subject         string         `json:"sub"`
	Audience        audience       `json:"aud,omitempty"`
	AuthorizedParty string         `json:"azp,omitempty"`
	AMR             []string       `json:"amr,omitempty"`
	Email           *string        `json:"email,omitempty"`
	EmailVerified   *flexBool      `json:"email_verified,omitempty"`
	GivenName       *string        `json:"given_name,omitempty"`
	FamilyName      *string        `json:"family_name,omitempty"`
	Address         *AddressClaims `json:"address,omitempty"`
	Birthdate       *string        `json:"birthdate,omitempty"`
	Locale          *string        `json:"locale,omitempty"`
	Phone           *string        `json:"phone,omitempty"`
	PhoneNumber     *string        `json:"phone_number,omitempty"`
}

// AddressClaims is the structured address claim.
type AddressClaims struct {
	Formatted     *string     `json:"formatted,omitempty"`
	StreetAddress *string     `json:"street_address,omitempty"`
	Locality      *string     `json:"locality,omitempty"`
	PostalCode    *flexString `json:"postal_code,omitempty"`
	Country       *string     `json:"country,omitempty"`
}

// EmailVerifiedOrFalse returns the email_verified claim, false when absent.
func (c *Claims) EmailVerifiedOrFalse() bool {
	return c.EmailVerified != nil && bool(*c.EmailVerified)
}

// PhoneClaim returns phone, falling back to the standard phone_number claim.
func (c *Claims) PhoneClaim() *string {
	if c.Phone != nil {
		return c.Phone
	}
	return c.PhoneNumber
}

// Audiences returns the aud claim as a list.
func (c *Claims) Audiences() []string {
	return c.Audience
}

// ParseClaims decodes the payload segment of a compact JWT. It does not
// verify the signature.
func ParseClaims(idToken string) (*Claims, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) < 2 || parts[0] == "" {
		return nil, fderrors.NewInvalidArgumentError("ID token was unsigned or malformed", nil)
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fderrors.NewInvalidArgumentError("ID token payload is not valid base64", err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fderrors.NewInvalidArgumentError("ID token payload is not valid JSON", err)
	}

	if claims.Email == nil || strings.TrimSpace(*claims.Email) == "" {
		return nil, fderrors.NewInvalidArgumentError("no `email` in ID token claims, this is a mandatory claim", nil)
	}
	if claims.Subject == "" {
		return nil, fderrors.NewInvalidArgumentError("no `sub` in ID token claims", nil)
	}
	return &claims, nil
}

// decodeSegment accepts unpadded and padded URL-safe or standard base64.
func decodeSegment(seg string) ([]byte, error) {
	trimmed := strings.TrimRight(seg, "=")
	if b, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(trimmed)
}

// audience accepts a single string or a list of strings.
type audience []string

func (a *audience) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = audience{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("aud must be a string or a list of strings: %w", err)
	}
	*a = list
	return nil
}

// flexString accepts a string or a number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected a string or a number: %w", err)
	}
	*s = flexString(n.String())
	return nil
}

// flexBool accepts a boolean or the strings "true" and "false".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("expected a boolean")
	}
	parsed, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("expected a boolean: %w", err)
	}
	*b = flexBool(parsed)
	return nil
}
