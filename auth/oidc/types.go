package oidc

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is one token set issued by the token endpoint. It is
// replaced as a whole on refresh or renewal, never updated in place.
type Credentials struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`

	// Timestamp is when the credentials were obtained.
	Timestamp time.Time `json:"-"`
}

// Age returns how long ago the credentials were obtained.
func (c *Credentials) Age(now time.Time) time.Duration {
	return now.Sub(c.Timestamp)
}

// Subject returns the "sub" claim of a JWT access token, or "" when the
// token is opaque. The signature is not verified; the value is only used
// for log context.
func (c *Credentials) Subject() string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, &claims); err != nil {
		return ""
	}
	return claims.Subject
}

// State is the position of a Lifecycle in its credential cycle.
type State int

const (
	// StateNone means no credentials are held.
	StateNone State = iota
	// StateValid means the access token can be used as is.
	StateValid
	// StateStale means the access token must be refreshed.
	StateStale
	// StateExpired means the refresh token is too old and credentials
	// must be acquired from scratch.
	StateExpired
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateValid:
		return "VALID"
	case StateStale:
		return "STALE"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// stateOf classifies credentials of the given age.
func stateOf(c *Credentials, age time.Duration, margin float64) State {
	if c == nil {
		return StateNone
	}
	seconds := age.Seconds()
	switch {
	case seconds < float64(c.ExpiresIn)*margin:
		return StateValid
	case c.RefreshToken != "" && seconds < float64(c.RefreshExpiresIn)*margin:
		return StateStale
	default:
		return StateExpired
	}
}
