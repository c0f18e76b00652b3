package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/gobexport/resilience"
)

const (
	defaultTimeout = 60 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the base URL prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the default request timeout. Defaults to 60s. Streaming
	// requests are bounded by their context only.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Auth configures default authentication applied to all requests.
	// Individual requests can override this.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.Executor `yaml:"-" mapstructure:"-"`

	// RateLimiter paces requests. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.Retry != nil && c.Retry.MaxTries < 1 {
		return fmt.Errorf("httpclient: retry max tries must be at least 1")
	}
	return nil
}

// DefaultRetry returns the retry policy for remote sources: transport
// failures are retried with a fixed delay, anything else fails fast.
func DefaultRetry(maxTries int, delay time.Duration) *resilience.Executor {
	return &resilience.Executor{
		MaxTries: maxTries,
		Delay:    delay,
		RetryIf:  IsRetryable,
	}
}
