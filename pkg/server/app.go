package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CoinCast/internal/domain/repository"
	"CoinCast/internal/service/ticker"
	pkgch "CoinCast/pkg/clickhouse"
	"CoinCast/pkg/config"
	xhttp "CoinCast/pkg/http"
	applogger "CoinCast/pkg/logger"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	stream     *ticker.Stream
	chClient   *pkgch.Client
	events     repository.EventPublisher
	httpServer *xhttp.Server
}

// New creates an App. stream and chClient may be nil when the
// corresponding subsystems are disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	stream *ticker.Stream,
	chClient *pkgch.Client,
	events repository.EventPublisher,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		handler:  handler,
		stream:   stream,
		chClient: chClient,
		events:   events,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.stream != nil {
		go func() {
			if err := a.stream.Connect(ctx); err != nil {
				a.log.Warn("ticker stream connect failed", applogger.Error(err))
			} else if err := a.stream.Subscribe(ctx); err != nil {
				a.log.Warn("ticker stream subscribe failed", applogger.Error(err))
			}
			a.stream.Run(ctx)
		}()
		a.log.Info("ticker stream started", applogger.String("url", a.cfg.Ticker.WebSocketURL))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.log.Warn("ticker stream close error", applogger.Error(err))
		}
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
