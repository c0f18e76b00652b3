package oidc

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/logger"
)

// Lifecycle holds the credentials of one identity and keeps them usable.
// It is safe for use by several sources at once.
type Lifecycle struct {
	identity string
	provider Provider
	margin   float64
	now      func() time.Time
	log      *logger.Logger

	mu    sync.Mutex
	creds *Credentials
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

// WithMargin sets the lifetime safety factor.
func WithMargin(margin float64) Option {
	return func(l *Lifecycle) {
		if margin > 0 {
			l.margin = margin
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(l *Lifecycle) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLifecycle creates a lifecycle in state NONE.
func NewLifecycle(identity string, p Provider, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		identity: identity,
		provider: p,
		margin:   DefaultMargin,
		now:      time.Now,
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithComponent("oidc").WithFields(logger.Fields(logger.FieldIdentity, identity))
	return l
}

// Identity returns the identity name.
func (l *Lifecycle) Identity() string {
	return l.identity
}

// State reports the current state without changing it.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state()
}

func (l *Lifecycle) state() State {
	if l.creds == nil {
		return StateNone
	}
	return stateOf(l.creds, l.creds.Age(l.now()), l.margin)
}

// Credentials returns usable credentials, refreshing or re-acquiring
// them when they have aged past the margin.
func (l *Lifecycle) Credentials(ctx context.Context) (*Credentials, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state() {
	case StateValid:
		return l.creds, nil
	case StateStale:
		creds, err := l.provider.Refresh(ctx, l.creds.RefreshToken)
		if err == nil {
			l.store(creds, "refreshed")
			return creds, nil
		}
		if !errors.IsCode(err, errors.ErrCodeCredentials) {
			return nil, err
		}
		l.log.Warn("refresh rejected, acquiring new credentials", logger.ErrorFields("refresh", err))
	case StateExpired:
		l.log.Debug("credentials expired")
	}

	l.creds = nil
	creds, err := l.provider.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	l.store(creds, "acquired")
	return creds, nil
}

func (l *Lifecycle) store(creds *Credentials, how string) {
	creds.Timestamp = l.now()
	l.creds = creds
	l.log.Info("credentials "+how, logger.Fields("subject", creds.Subject(), "expires_in", creds.ExpiresIn))
}

// Token returns the current access token. It makes a Lifecycle usable as
// an httpclient.TokenSource.
func (l *Lifecycle) Token(ctx context.Context) (string, error) {
	creds, err := l.Credentials(ctx)
	if err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// Reset discards held credentials.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creds = nil
}
