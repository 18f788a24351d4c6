package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AutoTrade/internal/broker/ibgw"
	internalrepo "AutoTrade/internal/repository"
	"AutoTrade/internal/usecase"
	pkgch "AutoTrade/pkg/clickhouse"
	"AutoTrade/pkg/config"
	xhttp "AutoTrade/pkg/http"
	pkgkafka "AutoTrade/pkg/kafka"
	applogger "AutoTrade/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	l        *applogger.Logger
	broker   *ibgw.Client
	pump     *ibgw.EventPump
	producer *pkgkafka.Producer
	consumer *pkgkafka.Consumer
	handlers []pkgkafka.MessageHandler
	ledger   *usecase.Ledger
	handler  xhttp.Handler
	chClient *pkgch.Client
	state    *internalrepo.RedisStateStore

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	broker *ibgw.Client,
	pump *ibgw.EventPump,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	ledger *usecase.Ledger,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	state *internalrepo.RedisStateStore,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		broker:   broker,
		pump:     pump,
		producer: producer,
		consumer: consumer,
		handlers: handlers,
		ledger:   ledger,
		handler:  handler,
		chClient: chClient,
		state:    state,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The gateway may come up after us; the executor reconnects on demand,
	// so a failed initial connect is not fatal.
	connectCtx, connectCancel := context.WithTimeout(ctx, a.cfg.Broker.ConnectTimeout)
	if err := a.broker.Connect(connectCtx); err != nil {
		a.l.Warn("initial broker connect failed, continuing", applogger.Error(err))
	}
	connectCancel()

	go a.pump.Run(ctx)

	for _, h := range a.handlers {
		a.consumer.RegisterHandler(h)
	}
	go func() {
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer error", applogger.Error(err))
		}
	}()
	a.l.Info("kafka consumer started",
		applogger.String("order_status_topic", a.cfg.Kafka.OrderStatusTopic),
		applogger.String("fill_topic", a.cfg.Kafka.FillTopic),
	)

	go a.refreshDaily(ctx)

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("autotrade started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("mode", a.cfg.Trading.Mode),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// refreshDaily keeps the daily P&L row current even when no fills arrive.
func (a *App) refreshDaily(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Trading.PnlRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := a.ledger.UpdateDaily(refreshCtx); err != nil {
				a.l.Warn("periodic pnl refresh failed", applogger.Error(err))
			}
			cancel()
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.consumer.Stop(shutdownCtx); err != nil {
		a.l.Warn("kafka consumer stop error", applogger.Error(err))
	}
	if err := a.producer.Close(); err != nil {
		a.l.Warn("kafka producer close error", applogger.Error(err))
	}

	if err := a.broker.Close(); err != nil {
		a.l.Warn("broker close error", applogger.Error(err))
	}
	if err := a.chClient.Close(); err != nil {
		a.l.Warn("clickhouse close error", applogger.Error(err))
	}
	if err := a.state.Close(); err != nil {
		a.l.Warn("redis close error", applogger.Error(err))
	}

	a.l.Info("shutdown complete")
	return nil
}
