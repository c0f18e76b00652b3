package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/gobexport/auth/oidc"
	"github.com/kbukum/gobexport/buffer"
	"github.com/kbukum/gobexport/catalogue"
	"github.com/kbukum/gobexport/config"
	"github.com/kbukum/gobexport/export"
	"github.com/kbukum/gobexport/httpclient"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/observability"
	"github.com/kbukum/gobexport/storage"
	_ "github.com/kbukum/gobexport/storage/local"
)

// App holds the collaborators of an export run and manages its lifecycle.
//
// Example:
//
//	app, err := bootstrap.NewApp(cfg)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := app.Runner().Run(ctx, products...)
//	    return err
//	})
type App struct {
	Name    string
	Version string
	Cfg     *config.ExportConfig
	Logger  *logger.Logger
	Summary *Summary

	// Client performs every API and token call.
	Client *httpclient.Client
	// Credentials hands out one lifecycle per client identity.
	Credentials *oidc.Cache
	// Output receives the exported products.
	Output storage.Storage
	// Buffer replays sources shared by several products.
	Buffer  *buffer.Cache
	Metrics *observability.ExportMetrics

	gracefulTimeout time.Duration
	setup           func(context.Context, observability.Config) (func(context.Context) error, error)

	onStart []Hook
	onStop  []Hook
}

// NewApp creates an application from cfg. It applies defaults, validates
// the config and wires the HTTP client, credentials and storages.
func NewApp(cfg *config.ExportConfig, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
		setup:           observability.Setup,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		// Telemetry setup logs through the package-level logger.
		app.Logger = o.logger
		logger.SetGlobalLogger(o.logger)
	} else {
		logger.Init(cfg.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	metrics, err := observability.NewExportMetrics(observability.Meter(cfg.Name))
	if err != nil {
		return nil, err
	}
	app.Metrics = metrics

	if err := app.wire(); err != nil {
		return nil, err
	}

	app.Summary = NewSummary(cfg.Name, cfg.Version)
	return app, nil
}

func (a *App) wire() error {
	cfg := a.Cfg

	retry := cfg.Retry.Executor()
	retry.RetryIf = httpclient.IsRetryable
	log := a.Logger.WithComponent("httpclient")
	retry.OnRetry = func(attempt int, err error) {
		log.WithError(err).Warn("request failed, retrying", logger.Fields(logger.FieldAttempt, attempt))
		a.Metrics.RecordRetry(context.Background(), cfg.API.Host)
	}

	client, err := httpclient.New(httpclient.Config{
		BaseURL:     cfg.API.Host,
		Timeout:     cfg.API.Timeout,
		Retry:       &retry,
		RateLimiter: &cfg.API.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}
	a.Client = client

	var providers oidc.ProviderFunc
	if cfg.Secured() {
		auth := *cfg.Auth
		providers = func(identity string) (oidc.Provider, error) {
			c := auth
			c.Identity = identity
			return oidc.NewTokenEndpoint(c, nil)
		}
	}
	a.Credentials = oidc.NewCache(providers, oidc.WithLogger(a.Logger))

	if a.Output, err = storage.New(cfg.Output.Storage(), a.Logger); err != nil {
		return err
	}
	scratch, err := storage.New(cfg.Buffer.Storage(), a.Logger)
	if err != nil {
		return err
	}
	a.Buffer = buffer.New(scratch, buffer.WithLogger(a.Logger))
	return nil
}

// Deps returns the collaborators catalogue products are built with.
func (a *App) Deps() catalogue.Deps {
	identity := ""
	if a.Cfg.Auth != nil {
		identity = a.Cfg.Auth.Identity
	}
	return catalogue.Deps{
		Client:         a.Client,
		Credentials:    a.Credentials,
		Identity:       identity,
		Buffer:         a.Buffer,
		GraphQLBatch:   a.Cfg.Batch.GraphQL,
		StreamingBatch: a.Cfg.Batch.Streaming,
		Logger:         a.Logger,
		Metrics:        a.Metrics,
	}
}

// Runner returns a runner writing to the output storage.
func (a *App) Runner() *export.Runner {
	return export.NewRunner(a.Output,
		export.WithBuffer(a.Buffer),
		export.WithLogger(a.Logger),
		export.WithMetrics(a.Metrics),
	)
}

// RunTask starts the application, runs task and shuts down when the task
// completes. SIGINT and SIGTERM cancel the task context.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling export", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	start := time.Now()
	taskErr := task(taskCtx)
	a.Summary.SetRunDuration(time.Since(start))

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// startup exports telemetry and runs the OnStart hooks.
func (a *App) startup(ctx context.Context) error {
	a.Logger.Info("Starting export", logger.Fields(
		"name", a.Name,
		"version", a.Version,
		logger.FieldURL, a.Cfg.API.Host,
	))

	shutdown, err := a.setup(ctx, a.Cfg.Observability)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	a.OnStop(shutdown)

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	return nil
}

// Shutdown runs the OnStop hooks. Use when managing your own lifecycle.
func (a *App) Shutdown() error {
	return a.stop()
}

// stop runs the OnStop hooks within the graceful timeout.
func (a *App) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	for i := len(a.onStop) - 1; i >= 0; i-- {
		if err := a.onStop[i](ctx); err != nil {
			a.Logger.WithError(err).Error("OnStop hook error")
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
	}
	a.onStop = nil

	a.Logger.Debug("Application shutdown complete")
	return shutdownErr
}
