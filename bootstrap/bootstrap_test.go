package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/gobexport/auth/oidc"
	"github.com/kbukum/gobexport/catalogue"
	"github.com/kbukum/gobexport/config"
	"github.com/kbukum/gobexport/export"
	"github.com/kbukum/gobexport/httpclient"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/observability"
)

func newTestConfig(t *testing.T, host string) *config.ExportConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.ExportConfig{
		ServiceConfig: config.ServiceConfig{Name: "gobexport", Version: "1.0.0"},
		API:           config.APIConfig{Host: host},
		Retry:         config.RetryConfig{MaxTries: 2, Delay: time.Millisecond},
		Buffer:        config.DirConfig{Dir: filepath.Join(dir, "buffer")},
		Output:        config.DirConfig{Dir: filepath.Join(dir, "output")},
	}
}

func newTestApp(t *testing.T, host string, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewNop())}, opts...)
	app, err := NewApp(newTestConfig(t, host), opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func noopSetup(calls *[]string) func(context.Context, observability.Config) (func(context.Context) error, error) {
	return func(context.Context, observability.Config) (func(context.Context) error, error) {
		*calls = append(*calls, "setup")
		return func(context.Context) error {
			*calls = append(*calls, "telemetry-shutdown")
			return nil
		}, nil
	}
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t, "https://api.data.amsterdam.nl")

	if app.Name != "gobexport" || app.Version != "1.0.0" {
		t.Errorf("unexpected name/version %s/%s", app.Name, app.Version)
	}
	if app.Client == nil || app.Client.BaseURL() != "https://api.data.amsterdam.nl" {
		t.Errorf("expected client for the API host")
	}
	if app.Credentials == nil || app.Output == nil || app.Buffer == nil || app.Metrics == nil {
		t.Error("expected all collaborators to be wired")
	}
	if app.Summary == nil {
		t.Error("expected summary")
	}
	if _, err := os.Stat(app.Cfg.Output.Dir); err != nil {
		t.Errorf("expected output dir to exist: %v", err)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := newTestConfig(t, "")
	if _, err := NewApp(cfg, WithLogger(logger.NewNop())); err == nil {
		t.Fatal("expected error for missing API host")
	}
}

func TestNewApp_Credentials(t *testing.T) {
	t.Run("unsecured", func(t *testing.T) {
		app := newTestApp(t, "https://api.data.amsterdam.nl")
		if _, err := app.Credentials.Get("gob"); err == nil {
			t.Error("expected error without client credentials")
		}
		if d := app.Deps(); d.Identity != "" {
			t.Errorf("expected no identity, got %q", d.Identity)
		}
	})

	t.Run("secured", func(t *testing.T) {
		cfg := newTestConfig(t, "https://api.data.amsterdam.nl")
		cfg.Auth = &oidc.Config{TokenURL: "https://iam.amsterdam.nl/token", ClientID: "gob", ClientSecret: "secret"}
		app, err := NewApp(cfg, WithLogger(logger.NewNop()))
		if err != nil {
			t.Fatalf("NewApp failed: %v", err)
		}
		if d := app.Deps(); d.Identity != "gobexport" {
			t.Errorf("expected identity to default to the service name, got %q", d.Identity)
		}
		a, err := app.Credentials.Get("gobexport")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, _ := app.Credentials.Get("gobexport")
		if a != b || a.Identity() != "gobexport" {
			t.Error("expected one lifecycle per identity")
		}
	})
}

func TestNewApp_ClientRetriesAndLogs(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "gobexport", &buf)
	app := newTestApp(t, srv.URL, WithLogger(log))

	if _, err := app.Client.Do(context.Background(), httpclient.Request{Method: http.MethodGet, Path: "/"}); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", hits.Load())
	}
	if !strings.Contains(buf.String(), "retrying") {
		t.Errorf("expected retry to be logged, got %q", buf.String())
	}
}

func TestNewApp_LoggerOptionIsGlobal(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "gobexport", &buf)
	newTestApp(t, "https://api.data.amsterdam.nl", WithLogger(log))

	logger.Info("meter initialized")
	if !strings.Contains(buf.String(), "meter initialized") {
		t.Errorf("expected package-level logs on the app logger, got %q", buf.String())
	}
}

func TestRunTask_HookOrder(t *testing.T) {
	app := newTestApp(t, "https://api.data.amsterdam.nl")
	var calls []string
	app.setup = noopSetup(&calls)

	app.OnStart(func(context.Context) error {
		calls = append(calls, "start")
		return nil
	})
	app.OnStop(
		func(context.Context) error { calls = append(calls, "stop-1"); return nil },
		func(context.Context) error { calls = append(calls, "stop-2"); return nil },
	)

	err := app.RunTask(context.Background(), func(context.Context) error {
		calls = append(calls, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	want := "setup,start,task,telemetry-shutdown,stop-2,stop-1"
	if got := strings.Join(calls, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRunTask_Errors(t *testing.T) {
	taskErr := errors.New("task failed")
	stopErr := errors.New("stop failed")

	tests := []struct {
		name     string
		startErr error
		taskErr  error
		stopErr  error
		want     error
		ranTask  bool
	}{
		{name: "task error wins over stop error", taskErr: taskErr, stopErr: stopErr, want: taskErr, ranTask: true},
		{name: "stop error reported", stopErr: stopErr, want: stopErr, ranTask: true},
		{name: "start hook aborts", startErr: errors.New("no"), ranTask: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, "https://api.data.amsterdam.nl")
			var calls []string
			app.setup = noopSetup(&calls)
			app.OnStart(func(context.Context) error { return tt.startErr })
			stopped := false
			app.OnStop(func(context.Context) error {
				stopped = true
				return tt.stopErr
			})

			ran := false
			err := app.RunTask(context.Background(), func(context.Context) error {
				ran = true
				return tt.taskErr
			})
			if ran != tt.ranTask {
				t.Errorf("expected task ran=%v", tt.ranTask)
			}
			if tt.startErr != nil {
				if err == nil || !errors.Is(err, tt.startErr) {
					t.Errorf("expected start error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !stopped {
				t.Error("expected stop hooks to run")
			}
		})
	}
}

func TestRunTask_SetupError(t *testing.T) {
	app := newTestApp(t, "https://api.data.amsterdam.nl")
	setupErr := errors.New("collector unreachable")
	app.setup = func(context.Context, observability.Config) (func(context.Context) error, error) {
		return nil, setupErr
	}
	err := app.RunTask(context.Background(), func(context.Context) error {
		t.Error("task must not run")
		return nil
	})
	if !errors.Is(err, setupErr) {
		t.Errorf("expected setup error, got %v", err)
	}
}

func TestRunTask_ContextCanceled(t *testing.T) {
	app := newTestApp(t, "https://api.data.amsterdam.nl", WithGracefulTimeout(time.Second))
	var calls []string
	app.setup = noopSetup(&calls)

	ctx, cancel := context.WithCancel(context.Background())
	err := app.RunTask(ctx, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls[len(calls)-1] != "telemetry-shutdown" {
		t.Errorf("expected telemetry to be shut down, got %v", calls)
	}
}

func TestApp_ExportsCatalogue(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"_links": map[string]any{"next": map[string]any{"href": nil}},
			"results": []any{
				map[string]any{"code": "A01", "naam": "Centrum"},
				map[string]any{"code": "A02", "naam": "Noord"},
			},
		})
	}))
	defer srv.Close()

	cat, err := catalogue.Parse([]byte(`
sources:
  buurten: {type: rest, path: /gob/public/gebieden/buurten/}
products:
  buurten_csv:
    source: buurten
    format: {code: code, naam: naam}
    output: gebieden/buurten.csv
  buurten_ndjson:
    source: buurten
    sink: ndjson
    format: {code: code}
    output: gebieden/buurten.ndjson
`))
	if err != nil {
		t.Fatal(err)
	}

	app := newTestApp(t, srv.URL)
	var calls []string
	app.setup = noopSetup(&calls)

	products, err := cat.Build(app.Deps())
	if err != nil {
		t.Fatal(err)
	}
	names := []string{"buurten_csv", "buurten_ndjson"}
	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		results, err := app.Runner().Run(ctx, products...)
		app.Summary.TrackRun(names, results, err)
		return err
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected the shared source to be fetched once, got %d", hits.Load())
	}

	b, err := os.ReadFile(filepath.Join(app.Cfg.Output.Dir, "gebieden", "buurten.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "code;naam\nA01;Centrum\nA02;Noord\n" {
		t.Errorf("unexpected csv %q", b)
	}
	if app.Summary.Failed() || len(app.Summary.Products()) != 2 {
		t.Errorf("unexpected summary %+v", app.Summary.Products())
	}
}

func TestSummary_TrackRun(t *testing.T) {
	s := NewSummary("gobexport", "1.0.0")
	s.SetRunDuration(3 * time.Second)
	s.TrackRun(
		[]string{"a", "b", "c"},
		[]export.Result{{Product: "a", Output: "a.csv", Rows: 10, Duration: time.Second}},
		errors.New("HTTP 500"),
	)

	got := s.Products()
	if len(got) != 3 {
		t.Fatalf("expected 3 products, got %d", len(got))
	}
	want := []string{StatusExported, StatusFailed, StatusSkipped}
	for i, st := range want {
		if got[i].Status != st {
			t.Errorf("product %d: expected %s, got %s", i, st, got[i].Status)
		}
	}
	if got[1].Error != "HTTP 500" {
		t.Errorf("expected error on failed product, got %q", got[1].Error)
	}
	if !s.Failed() {
		t.Error("expected run to be marked failed")
	}

	var buf bytes.Buffer
	s.DisplaySummary(&buf)
	out := buf.String()
	for _, want := range []string{"gobexport v1.0.0 finished in 3.00s", "a → a.csv (10 rows", "b: HTTP 500", "c (skipped)", "1/3 exported"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestSummary_AllExported(t *testing.T) {
	s := NewSummary("gobexport", "dev")
	s.TrackRun([]string{"a"}, []export.Result{{Product: "a", Output: "a.csv", Rows: 2}}, nil)

	var buf bytes.Buffer
	s.DisplaySummary(&buf)
	if !strings.Contains(buf.String(), "All products exported (1/1, 2 rows)") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}

	empty := NewSummary("gobexport", "dev")
	buf.Reset()
	empty.DisplaySummary(&buf)
	if !strings.Contains(buf.String(), "No products exported") {
		t.Errorf("unexpected empty summary:\n%s", buf.String())
	}
}
