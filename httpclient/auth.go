package httpclient

import (
	"context"
	"net/http"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthToken fetches a Bearer token from a TokenSource before every request.
	AuthToken
)

// TokenSource supplies the access token for a secured request. It is
// consulted before every request so that it can refresh mid-export.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AuthConfig configures request authentication.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType
	// Source supplies tokens (AuthToken).
	Source TokenSource
}

// TokenAuth creates an auth config backed by a TokenSource.
func TokenAuth(src TokenSource) *AuthConfig {
	return &AuthConfig{Type: AuthToken, Source: src}
}

// apply applies authentication to an HTTP request.
func (a *AuthConfig) apply(ctx context.Context, req *http.Request) error {
	if a == nil {
		return nil
	}
	if a.Type != AuthToken || a.Source == nil {
		return nil
	}
	token, err := a.Source.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
