// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-s3mcp.
//
// go-s3mcp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package adapters

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingCredentials is returned when required credentials are missing.
	ErrMissingCredentials = errors.New("missing credentials")
)

// Principal represents an authenticated entity (user, service, etc.).
type Principal struct {
	// ID is the unique identifier for this principal.
	ID string

	// Name is the human-readable name.
	Name string

	// Type indicates the principal type (e.g., "user", "service", "system").
	Type string
}

// Authenticator defines the interface for pluggable authentication of
// the HTTP transport. The stdio transport trusts its parent process
// and performs no authentication.
type Authenticator interface {
	// AuthenticateHTTP authenticates an HTTP request and returns the
	// authenticated principal. Returns ErrUnauthorized on failure.
	AuthenticateHTTP(ctx context.Context, req *http.Request) (*Principal, error)
}

// NoOpAuthenticator accepts every request. It is the default for
// deployments that terminate authentication upstream.
type NoOpAuthenticator struct{}

// NewNoOpAuthenticator creates an authenticator that accepts all requests.
func NewNoOpAuthenticator() Authenticator {
	return &NoOpAuthenticator{}
}

// AuthenticateHTTP accepts the request unconditionally.
func (a *NoOpAuthenticator) AuthenticateHTTP(ctx context.Context, req *http.Request) (*Principal, error) {
	return &Principal{ID: "anonymous", Name: "anonymous", Type: "system"}, nil
}

// BearerTokenAuthenticator authenticates requests carrying a static
// bearer token in the Authorization header.
type BearerTokenAuthenticator struct {
	token string
}

// NewBearerTokenAuthenticator creates a bearer-token authenticator.
func NewBearerTokenAuthenticator(token string) Authenticator {
	return &BearerTokenAuthenticator{token: token}
}

// AuthenticateHTTP validates the Authorization: Bearer header.
func (a *BearerTokenAuthenticator) AuthenticateHTTP(ctx context.Context, req *http.Request) (*Principal, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingCredentials
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return nil, ErrUnauthorized
	}
	return &Principal{ID: "bearer", Name: "bearer-token client", Type: "service"}, nil
}
