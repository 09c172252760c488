package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/crimson-sun/auditexport/internal/config"
	"github.com/crimson-sun/auditexport/internal/connector"
	"github.com/crimson-sun/auditexport/internal/eventtype"
	"github.com/crimson-sun/auditexport/internal/exporter"
	"github.com/crimson-sun/auditexport/internal/fetcher"
	"github.com/crimson-sun/auditexport/internal/ledger"
	"github.com/crimson-sun/auditexport/internal/logging"
	"github.com/crimson-sun/auditexport/internal/observability"
	"github.com/crimson-sun/auditexport/internal/output/export"
)

// App is the wired set of components behind every command.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Types    *eventtype.Table
	Exporter *exporter.Exporter
	Ledger   *ledger.Store // nil when the ledger is disabled
	Registry *prometheus.Registry
}

// NewApp wires the source, fetcher, scheduler observers, writer and ledger
// described by cfg.
func NewApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	types := eventtype.Default()

	ctor, err := connector.Get(cfg.Connector.Provider)
	if err != nil {
		return nil, err
	}
	src, err := ctor(connector.Config{
		Provider:       cfg.Connector.Provider,
		Token:          cfg.Connector.Token,
		Endpoint:       cfg.Connector.Endpoint,
		RequestTimeout: cfg.Connector.RequestTimeout,
	}, types)
	if err != nil {
		return nil, fmt.Errorf("create %s source: %w", cfg.Connector.Provider, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	obs := observability.NewMulti(observability.NewLogObserver(logger), metrics)

	f := fetcher.New(src, types,
		fetcher.WithPageSize(cfg.Export.PageSize),
		fetcher.WithMaxPages(cfg.Export.MaxPages),
		fetcher.WithObserver(obs),
	)

	app := &App{Config: cfg, Logger: logger, Types: types, Registry: reg}
	opts := []exporter.Option{
		exporter.WithConcurrency(cfg.Export.MaxConcurrent),
		exporter.WithObserver(obs),
		exporter.WithLogger(logger),
	}
	if cfg.Export.LedgerPath != "" {
		store, err := ledger.Open(cfg.Export.LedgerPath)
		if err != nil {
			return nil, err
		}
		app.Ledger = store
		opts = append(opts, exporter.WithLedger(store))
	}
	app.Exporter = exporter.New(types, f, export.New(cfg.Export.OutputDir), opts...)
	return app, nil
}

// Close releases the ledger and flushes the logger.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	if a.Ledger != nil {
		return a.Ledger.Close()
	}
	return nil
}

// exportContext applies the configured overall export timeout, if any.
func (a *App) exportContext(parent context.Context) (context.Context, context.CancelFunc) {
	if a.Config.Export.Timeout > 0 {
		return context.WithTimeout(parent, a.Config.Export.Timeout)
	}
	return context.WithCancel(parent)
}

// loadConfig loads the env file and configuration, applying global flag
// overrides.
func (e *environment) loadConfig() (config.Config, error) {
	if err := config.LoadEnvFile(e.globals.EnvFile); err != nil {
		return config.Config{}, err
	}
	cfg := config.Load()
	if e.globals.LogLevel != "" {
		cfg.Log.Level = e.globals.LogLevel
	}
	return cfg, nil
}

// openApp loads configuration and wires an App.
func (e *environment) openApp() (*App, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.JSON).With(zap.String("version", e.version))
	app, err := NewApp(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return app, nil
}

func elapsedSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
