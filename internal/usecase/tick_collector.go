package usecase

import (
	"context"
	"sync"

	"DigitPulse/internal/domain/models"
	"DigitPulse/internal/domain/repository"
	"DigitPulse/internal/engine"
	"DigitPulse/pkg/logger"
)

// TickCollector owns the engine's single dispatch goroutine. Venue
// events, replayed ticks and snapshot requests all funnel through one
// loop, so engine state is never touched concurrently.
type TickCollector struct {
	stream   repository.VenueStream
	engine   *engine.Engine
	events   repository.EventSink
	notifier repository.Notifier
	archiver *TradeArchiver
	log      *logger.Logger

	injected  chan models.VenueEvent
	snapshots chan snapshotReq
	persists  chan persistReq

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

type snapshotReq struct {
	reply chan models.EngineSnapshot
}

type persistReq struct {
	store repository.StateStore
	reply chan error
}

// NewTickCollector wires the engine to its collaborators. The sink,
// notifier and archiver may be nil when those subsystems are disabled.
func NewTickCollector(
	stream repository.VenueStream,
	eng *engine.Engine,
	events repository.EventSink,
	notifier repository.Notifier,
	archiver *TradeArchiver,
	log *logger.Logger,
) *TickCollector {
	c := &TickCollector{
		stream:    stream,
		engine:    eng,
		events:    events,
		notifier:  notifier,
		archiver:  archiver,
		log:       log,
		injected:  make(chan models.VenueEvent, 256),
		snapshots: make(chan snapshotReq),
		persists:  make(chan persistReq),
		done:      make(chan struct{}),
	}
	eng.OnCommand(c.submitBuy)
	eng.OnEvent(c.publishEvent)
	if archiver != nil {
		eng.OnRecord(archiver.Submit)
	}
	return c
}

// Engine exposes the wrapped engine. Callers may only touch its state
// before Start or after Stop; while the loop runs, go through Snapshot
// and Persist.
func (c *TickCollector) Engine() *engine.Engine { return c.engine }

// Start connects, subscribes and runs the dispatch loop until the
// context is canceled. Stream errors trigger reconnects; the engine
// sees them as venue errors first so pending state is cleared.
func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.startOnce.Do(func() {
		go c.run(runCtx)
	})
	return nil
}

// Stop cancels the loop and waits for it to drain.
func (c *TickCollector) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		<-c.done
	})
}

// Submit injects an event into the dispatch loop from outside the
// venue stream. The replay consumer feeds ticks through here.
func (c *TickCollector) Submit(ev models.VenueEvent) {
	select {
	case c.injected <- ev:
	case <-c.done:
	}
}

// Snapshot asks the dispatch loop for the current engine state, so the
// status API never races the decision path.
func (c *TickCollector) Snapshot(ctx context.Context) (models.EngineSnapshot, error) {
	req := snapshotReq{reply: make(chan models.EngineSnapshot, 1)}
	select {
	case c.snapshots <- req:
	case <-ctx.Done():
		return models.EngineSnapshot{}, ctx.Err()
	case <-c.done:
		return c.engine.Snapshot(), nil
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-ctx.Done():
		return models.EngineSnapshot{}, ctx.Err()
	}
}

// Persist saves the engine tables through the dispatch loop so the
// serialization never observes a half-applied update. Once the loop
// has exited it saves directly; nothing mutates state anymore.
func (c *TickCollector) Persist(ctx context.Context, store repository.StateStore) error {
	req := persistReq{store: store, reply: make(chan error, 1)}
	select {
	case c.persists <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.engine.State().Save(ctx, store)
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *TickCollector) run(ctx context.Context) {
	defer close(c.done)
	events, errs := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events, errs = c.reconnect(ctx)
				if events == nil {
					return
				}
				continue
			}
			c.engine.Dispatch(ev)
		case err, ok := <-errs:
			if ok && err != nil {
				c.log.Error("venue stream failed", logger.Error(err))
				c.engine.Dispatch(models.VenueErrorEvent{Code: "StreamError", Message: err.Error()})
			}
			events, errs = c.reconnect(ctx)
			if events == nil {
				return
			}
		case ev := <-c.injected:
			c.engine.Dispatch(ev)
		case req := <-c.snapshots:
			req.reply <- c.engine.Snapshot()
		case req := <-c.persists:
			req.reply <- c.engine.State().Save(ctx, req.store)
		}
	}
}

// reconnect retries until the stream is back or the context ends.
func (c *TickCollector) reconnect(ctx context.Context) (<-chan models.VenueEvent, <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return nil, nil
		default:
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			c.log.Error("venue reconnect failed", logger.Error(err))
			continue
		}
		c.log.Info("venue stream restored")
		return c.stream.Read(ctx)
	}
}

func (c *TickCollector) submitBuy(cmd *models.TradeCommand) {
	if err := c.stream.Buy(context.Background(), cmd); err != nil {
		c.log.Error("buy submission failed", logger.Error(err))
		c.engine.Dispatch(models.VenueErrorEvent{Code: "BuySubmit", Message: err.Error()})
	}
}

func (c *TickCollector) publishEvent(ev *models.EngineEvent) {
	if c.events != nil {
		if err := c.events.Publish(context.Background(), ev); err != nil {
			c.log.Warn("event publish failed", logger.Error(err), logger.String("type", ev.Type))
		}
	}
	if c.notifier == nil {
		return
	}
	switch ev.Type {
	case models.EventHealthWarning:
		_ = c.notifier.Notify(context.Background(), "Engine health degraded",
			"Health dropped below the warning line; stakes and thresholds are tightening.")
	case models.EventCooldown:
		_ = c.notifier.Notify(context.Background(), "Trading cooldown engaged",
			"Consecutive losses in a high-entropy regime; decisions paused for a cooldown window.")
	case models.EventAnomalyFlag:
		_ = c.notifier.Notify(context.Background(), "Feed anomaly",
			"An anomalous price jump was flagged; feed integrity is discounted.")
	}
}
