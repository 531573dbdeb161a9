package usecase

import (
	"context"
	"sync"
	"time"

	"DigitPulse/internal/domain/repository"
	"DigitPulse/pkg/logger"
)

// StateFlusher periodically persists the engine's learned tables so a
// restart resumes from recent state instead of cold defaults.
type StateFlusher struct {
	collector *TickCollector
	store     repository.StateStore
	every     time.Duration
	log       *logger.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewStateFlusher creates the flusher.
func NewStateFlusher(collector *TickCollector, store repository.StateStore, every time.Duration, log *logger.Logger) *StateFlusher {
	if every <= 0 {
		every = 30 * time.Second
	}
	return &StateFlusher{
		collector: collector,
		store:     store,
		every:     every,
		log:       log,
		stop:      make(chan struct{}),
	}
}

// Start launches the periodic flush loop. Failures are logged and the
// next tick retries.
func (f *StateFlusher) Start(ctx context.Context) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(f.every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.flush(ctx)
			case <-f.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and runs one final flush so shutdown never loses
// the last learning window.
func (f *StateFlusher) Stop() {
	close(f.stop)
	f.wg.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.flush(ctx)
}

func (f *StateFlusher) flush(ctx context.Context) {
	start := time.Now()
	if err := f.collector.Persist(ctx, f.store); err != nil {
		f.log.Warn("state flush failed", logger.Error(err))
		return
	}
	f.log.Debug("state flushed", logger.Duration("took", time.Since(start)))
}
