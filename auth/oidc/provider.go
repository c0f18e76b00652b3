package oidc

import "context"

// Provider obtains credentials from an identity provider.
type Provider interface {
	// Acquire obtains fresh credentials (client credentials grant).
	Acquire(ctx context.Context) (*Credentials, error)

	// Refresh exchanges a refresh token for new credentials.
	Refresh(ctx context.Context, refreshToken string) (*Credentials, error)
}

// ProviderFunc builds the Provider for an identity on first use.
type ProviderFunc func(identity string) (Provider, error)
