// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package loginsession

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/sync/singleflight"

	fderrors "github.com/stacklok/fedauth/pkg/errors"
)

// verifierMaxAge bounds how long a verifier is reused before the discovery
// document is fetched again. Entries of removed providers age out with it.
const verifierMaxAge = 12 * time.Hour

type verifierEntry struct {
	fingerprint string
	verifier    *oidc.IDTokenVerifier
	loadedAt    time.Time
}

// verifierCache keeps one ID token verifier per provider so JWKS are fetched
// once and refreshed on key rotation by go-oidc. A verifier is only reused
// while the provider's issuer, client id and TLS policy are unchanged.
type verifierCache struct {
	mu      sync.Mutex
	entries map[string]verifierEntry
	loads   singleflight.Group
	now     func() time.Time
}

func newVerifierCache() *verifierCache {
	return &verifierCache{
		entries: make(map[string]verifierEntry),
		now:     time.Now,
	}
}

// fingerprint covers every setting the verifier or its HTTP client was
// built from.
func fingerprint(p *ProviderSnapshot) string {
	pem := sha256.Sum256([]byte(p.RootPEM))
	return strings.Join([]string{
		p.Issuer, p.ClientID, strconv.FormatBool(p.AllowInsecure), hex.EncodeToString(pem[:]),
	}, "\x00")
}

// get returns the cached verifier or loads it. Loads for the same provider
// are collapsed; the map lock is never held during discovery.
func (c *verifierCache) get(client *http.Client, p *ProviderSnapshot) (*oidc.IDTokenVerifier, error) {
	fp := fingerprint(p)
	if v, ok := c.lookup(p.ID, fp); ok {
		return v, nil
	}

	v, err, _ := c.loads.Do(p.ID+"\x00"+fp, func() (any, error) {
		// The key set keeps using this context for later JWKS refreshes, so
		// it must outlive the request.
		op, err := oidc.NewProvider(oidc.ClientContext(context.Background(), client), p.Issuer)
		if err != nil {
			return nil, fderrors.NewConnectivityError("failed to load upstream provider signing keys", err)
		}
		v := op.Verifier(&oidc.Config{ClientID: p.ClientID})
		c.put(p.ID, fp, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oidc.IDTokenVerifier), nil
}

func (c *verifierCache) lookup(providerID, fp string) (*oidc.IDTokenVerifier, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[providerID]
	if !ok || e.fingerprint != fp || c.now().Sub(e.loadedAt) > verifierMaxAge {
		return nil, false
	}
	return e.verifier, true
}

// put replaces the provider's entry and drops every expired one.
func (c *verifierCache) put(providerID, fp string, v *oidc.IDTokenVerifier) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, e := range c.entries {
		if now.Sub(e.loadedAt) > verifierMaxAge {
			delete(c.entries, id)
		}
	}
	c.entries[providerID] = verifierEntry{fingerprint: fp, verifier: v, loadedAt: now}
}

// verifyIDToken checks signature, issuer, audience and expiry.
func (s *Service) verifyIDToken(ctx context.Context, client *http.Client, p *ProviderSnapshot, rawIDToken string) error {
	v, err := s.verifiers.get(client, p)
	if err != nil {
		return err
	}
	if _, err := v.Verify(oidc.ClientContext(ctx, client), rawIDToken); err != nil {
		return fderrors.NewUnauthorizedError("upstream ID token failed verification", err)
	}
	return nil
}
