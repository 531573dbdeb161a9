package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "DigitPulse/internal/domain/repository"
	"DigitPulse/internal/usecase"
	pkgch "DigitPulse/pkg/clickhouse"
	"DigitPulse/pkg/config"
	xhttp "DigitPulse/pkg/http"
	pkgkafka "DigitPulse/pkg/kafka"
	applogger "DigitPulse/pkg/logger"
	"DigitPulse/pkg/queue"
)

// App encapsulates the application lifecycle: the tick collector, the
// background workers around it, and the HTTP surface. Every component
// is optional except the collector; disabled subsystems arrive nil.
type App struct {
	cfg *config.Config
	log *applogger.Logger

	collector *usecase.TickCollector
	archiver  *usecase.TradeArchiver
	flusher   *usecase.StateFlusher

	consumer *pkgkafka.Consumer
	replay   pkgkafka.MessageHandler

	jobQueue  *queue.RedisQueue
	notifyJob queue.Job

	tradeLog drepo.TradeLog
	events   drepo.EventSink
	state    drepo.StateStore
	chClient *pkgch.Client

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New assembles the application from its wired dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.TickCollector,
	archiver *usecase.TradeArchiver,
	flusher *usecase.StateFlusher,
	consumer *pkgkafka.Consumer,
	replay pkgkafka.MessageHandler,
	jobQueue *queue.RedisQueue,
	notifyJob queue.Job,
	tradeLog drepo.TradeLog,
	events drepo.EventSink,
	state drepo.StateStore,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		collector:   collector,
		archiver:    archiver,
		flusher:     flusher,
		consumer:    consumer,
		replay:      replay,
		jobQueue:    jobQueue,
		notifyJob:   notifyJob,
		tradeLog:    tradeLog,
		events:      events,
		state:       state,
		chClient:    chClient,
		httpHandler: httpHandler,
	}
}

// Run starts every subsystem and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.tradeLog != nil {
		if err := a.tradeLog.Init(ctx); err != nil {
			a.log.Warn("trade log init failed", applogger.Error(err))
		}
	}

	// Restore learned state before the first tick arrives.
	if a.state != nil {
		if err := a.collector.Engine().State().Load(ctx, a.state); err != nil {
			a.log.Warn("state restore incomplete", applogger.Error(err))
		} else {
			a.log.Info("state restored")
		}
	}

	if a.archiver != nil {
		a.archiver.Start(ctx)
	}

	if a.jobQueue != nil {
		if a.notifyJob != nil {
			a.jobQueue.RegisterJob(a.notifyJob)
		}
		if err := a.jobQueue.Start(); err != nil {
			a.log.Error("job queue start failed", applogger.Error(err))
			return err
		}
	}

	if err := a.collector.Start(ctx); err != nil {
		a.log.Error("collector start failed", applogger.Error(err))
		return err
	}
	a.log.Info("collector started",
		applogger.String("symbol", a.cfg.Venue.Symbol),
		applogger.Bool("trading_enabled", a.cfg.Engine.TradingEnabled))

	if a.flusher != nil {
		a.flusher.Start(ctx)
	}

	if a.consumer != nil && a.replay != nil {
		a.consumer.RegisterHandler(a.replay)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("replay consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("replay consumer started", applogger.String("topic", a.replay.Topic()))
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start failed", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops intake first, then drains the workers, and flushes
// learned state last so nothing written after the flush is lost.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("replay consumer stop error", applogger.Error(err))
		}
	}

	a.collector.Stop()

	if a.archiver != nil {
		a.archiver.Stop()
	}
	if a.flusher != nil {
		// Stop runs one final flush through the stopped collector.
		a.flusher.Stop()
	}
	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Warn("http shutdown error", applogger.Error(err))
		}
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("event sink close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			a.log.Warn("state store close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
