package oidc

import (
	"fmt"
	"time"
)

// DefaultMargin is the share of a token lifetime after which it is
// considered stale.
const DefaultMargin = 0.75

// Config describes one secured client identity.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Identity names the client; it keys the credential cache.
	Identity string `mapstructure:"identity" validate:"required"`

	// TokenURL is the OIDC token endpoint.
	TokenURL string `mapstructure:"token_url" validate:"required,url"`

	// ClientID is the OAuth2 client ID.
	ClientID string `mapstructure:"client_id" validate:"required"`

	// ClientSecret is the OAuth2 client secret.
	ClientSecret string `mapstructure:"client_secret"`

	// Scopes are sent with the client credentials grant when set.
	Scopes []string `mapstructure:"scopes"`

	// Margin is the safety factor applied to token lifetimes (default 0.75).
	Margin float64 `mapstructure:"margin" validate:"gte=0,lte=1"`

	// Timeout bounds a single token request (default 30s).
	Timeout time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Margin == 0 {
		c.Margin = DefaultMargin
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Identity == "" {
		return fmt.Errorf("identity is required")
	}
	if c.TokenURL == "" {
		return fmt.Errorf("token_url is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.Margin <= 0 || c.Margin > 1 {
		return fmt.Errorf("margin must be in (0, 1], got %v", c.Margin)
	}
	return nil
}
