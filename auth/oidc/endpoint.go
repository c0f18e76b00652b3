package oidc

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/httpclient"
)

// TokenEndpoint is a Provider backed by an OIDC token endpoint.
type TokenEndpoint struct {
	cfg    Config
	client *httpclient.Client
}

// NewTokenEndpoint creates a provider for cfg. When client is nil a
// client with the configured timeout and no retry is created.
func NewTokenEndpoint(cfg Config, client *httpclient.Client) (*TokenEndpoint, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError("oidc %s: %v", cfg.Identity, err)
	}
	if client == nil {
		c, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
		if err != nil {
			return nil, err
		}
		client = c
	}
	return &TokenEndpoint{cfg: cfg, client: client}, nil
}

// Acquire implements Provider with the client_credentials grant.
func (t *TokenEndpoint) Acquire(ctx context.Context) (*Credentials, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {t.cfg.ClientID},
		"client_secret": {t.cfg.ClientSecret},
	}
	if len(t.cfg.Scopes) > 0 {
		form.Set("scope", strings.Join(t.cfg.Scopes, " "))
	}
	return t.exchange(ctx, form)
}

// Refresh implements Provider with the refresh_token grant.
func (t *TokenEndpoint) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {t.cfg.ClientID},
		"client_secret": {t.cfg.ClientSecret},
		"refresh_token": {refreshToken},
	}
	return t.exchange(ctx, form)
}

func (t *TokenEndpoint) exchange(ctx context.Context, form url.Values) (*Credentials, error) {
	resp, err := httpclient.PostJSON[Credentials](ctx, t.client, t.cfg.TokenURL, form)
	if err != nil {
		status := httpclient.StatusCode(err)
		if status >= 400 && status < 500 && status != 429 {
			return nil, errors.CredentialsError(t.cfg.Identity, err)
		}
		return nil, errors.APIError(t.cfg.TokenURL, status, err)
	}
	creds := resp.Data
	if creds.AccessToken == "" {
		return nil, errors.ProtocolError("token endpoint %s returned no access_token", t.cfg.TokenURL)
	}
	creds.Timestamp = time.Now()
	return &creds, nil
}
