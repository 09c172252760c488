package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/crimson-sun/auditexport/internal/server"
)

const shutdownTimeout = 10 * time.Second

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	app, err := c.env.openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return c.executeWithApp(ctx, app)
}

// executeWithApp serves until ctx is done.
func (c *ServeCommand) executeWithApp(ctx context.Context, app *App) error {
	addr := c.Addr
	if addr == "" {
		addr = app.Config.Server.Addr
	}
	opts := server.Options{
		Exporter:      app.Exporter,
		Gatherer:      app.Registry,
		Logger:        app.Logger,
		ExportTimeout: app.Config.Export.Timeout,
	}
	if app.Ledger != nil {
		opts.History = app.Ledger
	}
	return server.New(opts).ListenAndServe(ctx, addr, shutdownTimeout)
}
