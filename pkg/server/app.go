// Package server owns the application lifecycle: start the live feed and
// the HTTP server, wait for a signal, then unwind in reverse order.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/service/stream"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/config"
	xhttp "github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/http"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

// App encapsulates the running application.
type App struct {
	cfg        *config.Config
	handler    xhttp.Handler
	audit      domrepo.Audit
	board      *stream.QuoteBoard
	logger     *logger.Logger
	httpServer *xhttp.Server
}

// New creates an App. The board may be nil when streaming is disabled.
func New(cfg *config.Config, handler xhttp.Handler, audit domrepo.Audit, board *stream.QuoteBoard, log *logger.Logger) *App {
	return &App{
		cfg:     cfg,
		handler: handler,
		audit:   audit,
		board:   board,
		logger:  log,
	}
}

// Run starts everything and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.board != nil {
		a.board.Start(ctx)
		a.logger.Info("quote board started",
			logger.Strings("symbols", a.cfg.Stream.Symbols))
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	}
	a.httpServer = xhttp.NewServer(a.handler, opts...)

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", logger.Error(err))
		return err
	}
	a.logger.Info("server started",
		logger.Int("port", a.cfg.Server.Port),
		logger.String("environment", a.cfg.Environment),
		logger.String("audit_backend", a.cfg.Audit.Backend))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	if a.board != nil {
		a.board.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", logger.Error(err))
	}

	// Drains the buffer, then closes the backend client.
	if err := a.audit.Close(); err != nil {
		a.logger.Warn("audit close error", logger.Error(err))
	}

	a.logger.RemoveCollector()
	a.logger.Info("shutdown complete")
	return nil
}
