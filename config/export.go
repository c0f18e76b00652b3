package config

import (
	"path/filepath"
	"time"

	"github.com/kbukum/gobexport/auth/oidc"
	"github.com/kbukum/gobexport/observability"
	"github.com/kbukum/gobexport/resilience"
	"github.com/kbukum/gobexport/source"
	"github.com/kbukum/gobexport/storage"
	"github.com/kbukum/gobexport/validation"
)

// ServiceName is the name the loader searches config files for.
const ServiceName = "gobexport"

// ExportConfig is the complete configuration of an export run.
type ExportConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	API           APIConfig            `yaml:"api" mapstructure:"api"`
	Auth          *oidc.Config         `yaml:"auth" mapstructure:"auth"`
	Batch         BatchConfig          `yaml:"batch" mapstructure:"batch"`
	Retry         RetryConfig          `yaml:"retry" mapstructure:"retry"`
	Buffer        DirConfig            `yaml:"buffer" mapstructure:"buffer"`
	Output        DirConfig            `yaml:"output" mapstructure:"output"`
	Catalogue     string               `yaml:"catalogue" mapstructure:"catalogue"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// APIConfig locates the registry API.
type APIConfig struct {
	Host    string        `yaml:"host" mapstructure:"host" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// RateLimit paces API requests. A zero rate disables pacing.
	RateLimit resilience.RateLimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// BatchConfig holds the page sizes of the GraphQL variants.
// A zero streaming batch submits streaming queries all at once.
type BatchConfig struct {
	GraphQL   int `yaml:"graphql" mapstructure:"graphql" validate:"gte=0"`
	Streaming int `yaml:"streaming" mapstructure:"streaming" validate:"gte=0"`
}

// RetryConfig bounds the retry executor used for every remote call.
type RetryConfig struct {
	MaxTries int           `yaml:"max_tries" mapstructure:"max_tries" validate:"gte=1"`
	Delay    time.Duration `yaml:"delay" mapstructure:"delay" validate:"gte=0"`
}

// Executor returns the retry executor for the configured bounds.
func (c RetryConfig) Executor() resilience.Executor {
	ex := resilience.DefaultExecutor()
	ex.MaxTries = c.MaxTries
	ex.Delay = c.Delay
	return ex
}

// DirConfig names a local directory.
type DirConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir" validate:"required"`
}

// Storage returns the local storage configuration rooted at the directory.
func (c DirConfig) Storage() storage.Config {
	return storage.Config{Provider: storage.ProviderLocal, BasePath: c.Dir}
}

// ApplyDefaults fills in zero-value fields.
func (c *ExportConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()

	if c.API.Timeout == 0 {
		c.API.Timeout = 60 * time.Second
	}
	if c.Batch.GraphQL == 0 {
		c.Batch.GraphQL = source.DefaultPageSize
	}
	if c.Retry.MaxTries == 0 {
		def := resilience.DefaultExecutor()
		c.Retry.MaxTries = def.MaxTries
		if c.Retry.Delay == 0 {
			c.Retry.Delay = def.Delay
		}
	}
	if c.Buffer.Dir == "" {
		c.Buffer.Dir = filepath.Join(storage.DefaultBasePath, "buffer")
	}
	if c.Output.Dir == "" {
		c.Output.Dir = filepath.Join(storage.DefaultBasePath, "output")
	}
	if c.Catalogue == "" {
		c.Catalogue = "catalogue.yml"
	}
	if c.Auth != nil {
		if c.Auth.Identity == "" {
			c.Auth.Identity = c.Name
		}
		c.Auth.ApplyDefaults()
	}

	c.Observability.ServiceName = c.Name
	c.Observability.ServiceVersion = c.Version
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate checks the configuration after defaults are applied.
func (c *ExportConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}

// Secured reports whether client credentials are configured.
func (c *ExportConfig) Secured() bool {
	return c.Auth != nil && c.Auth.ClientID != ""
}

// Load reads, defaults and validates the export configuration.
func Load(opts ...LoaderOption) (*ExportConfig, error) {
	cfg := &ExportConfig{}
	if err := LoadConfig(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
