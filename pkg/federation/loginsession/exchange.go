// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package loginsession

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	fderrors "github.com/stacklok/fedauth/pkg/errors"
	"github.com/stacklok/fedauth/pkg/networking"
)

// maxTokenResponseSize limits the token endpoint response body.
const maxTokenResponseSize = 1 << 20

// tokenResponse is the upstream token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// exchangeCode redeems the authorization code and returns the raw ID token.
func (s *Service) exchangeCode(
	ctx context.Context, client *http.Client, p *ProviderSnapshot, code, verifier string,
) (string, error) {
	secret, err := s.decryptSecret(p.Secret)
	if err != nil {
		return "", err
	}

	form := url.Values{
		"client_id":    {p.ClientID},
		"code":         {code},
		"grant_type":   {"authorization_code"},
		"redirect_uri": {s.callbackURI},
	}
	if secret != "" {
		form.Set("client_secret", secret)
	}
	if p.UsePKCE {
		form.Set("code_verifier", verifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fderrors.NewInternalError("failed to build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(p.ClientID, secret)

	start := time.Now()
	resp, err := client.Do(req)
	s.metrics.ObserveTokenExchange(start)
	if err != nil {
		return "", fderrors.NewConnectivityError(
			fmt.Sprintf("failed to reach token endpoint of upstream auth provider '%s'", p.ClientID), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := networking.NewHTTPError(resp)
		return "", fderrors.NewInternalError(fmt.Sprintf(
			"HTTP %d during POST %s for upstream auth provider '%s': %s",
			httpErr.StatusCode, p.TokenEndpoint, p.ClientID, httpErr.Body), httpErr)
	}

	var tokens tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseSize)).Decode(&tokens); err != nil {
		return "", fderrors.NewInternalError(
			fmt.Sprintf("failed to decode token response from upstream auth provider '%s'", p.ClientID), err)
	}
	if tokens.IDToken == "" {
		return "", fderrors.NewInternalError(
			fmt.Sprintf("did not receive an ID token from %s when one was expected", p.Issuer), nil)
	}
	return tokens.IDToken, nil
}
