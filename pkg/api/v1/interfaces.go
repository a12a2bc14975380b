// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"context"
	"net/http"

	"github.com/stacklok/fedauth/pkg/federation/discovery"
	"github.com/stacklok/fedauth/pkg/federation/loginsession"
	"github.com/stacklok/fedauth/pkg/federation/provider"
	"github.com/stacklok/fedauth/pkg/users"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks -source=interfaces.go LoginService,ProviderRegistry,DiscoveryResolver,AccountDisconnector,Pinger

// LoginService runs upstream logins.
type LoginService interface {
	Start(ctx context.Context, req loginsession.LoginRequest) (*loginsession.StartResult, error)
	Finish(ctx context.Context, cookieValue string, req loginsession.CallbackRequest) (*loginsession.FinishResult, error)
	CompleteStepUp(ctx context.Context, challengeID string, response []byte) (*loginsession.FinishResult, error)
	ClearCookie() *http.Cookie
}

// ProviderRegistry manages upstream provider configuration.
type ProviderRegistry interface {
	Create(ctx context.Context, req provider.Request) (*provider.Provider, error)
	Update(ctx context.Context, id string, req provider.Request) (*provider.Provider, error)
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, id string) (*provider.Provider, error)
	FindAll(ctx context.Context) ([]*provider.Provider, error)
	Templates(ctx context.Context) ([]provider.Template, error)
}

// DiscoveryResolver proposes provider configuration from an issuer.
type DiscoveryResolver interface {
	Lookup(ctx context.Context, req discovery.LookupRequest) (*discovery.Proposal, error)
}

// AccountDisconnector unbinds accounts from their upstream provider.
type AccountDisconnector interface {
	Disconnect(ctx context.Context, userID string) (*users.User, error)
}

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}
