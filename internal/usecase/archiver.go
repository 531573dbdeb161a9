package usecase

import (
	"context"
	"sync"
	"time"

	"DigitPulse/internal/domain/models"
	"DigitPulse/internal/domain/repository"
	"DigitPulse/pkg/logger"
)

const (
	archiveBatchSize  = 32
	archiveFlushEvery = 10 * time.Second
	archiveRetryMax   = 3
	archiveRetryBase  = 500 * time.Millisecond
)

// TradeArchiver batches resolved trade records into the trade log so
// the decision path never waits on the database. Submit is non-blocking
// and drops on a full buffer.
type TradeArchiver struct {
	log      *logger.Logger
	tradeLog repository.TradeLog
	metrics  repository.Metrics

	in   chan *models.TradeRecord
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewTradeArchiver creates the archiver; metrics may be nil.
func NewTradeArchiver(tradeLog repository.TradeLog, metrics repository.Metrics, log *logger.Logger) *TradeArchiver {
	return &TradeArchiver{
		log:      log,
		tradeLog: tradeLog,
		metrics:  metrics,
		in:       make(chan *models.TradeRecord, 512),
		stop:     make(chan struct{}),
	}
}

// Start launches the flush loop.
func (a *TradeArchiver) Start(ctx context.Context) {
	a.wg.Add(1)
	go a.run(ctx)
}

// Submit hands a resolved record to the archiver. The record is copied
// because the engine keeps mutating its ring.
func (a *TradeArchiver) Submit(r *models.TradeRecord) {
	cp := *r
	select {
	case a.in <- &cp:
	default:
		a.log.Warn("archive buffer full, record dropped", logger.Int64("seq", r.Seq))
		if a.metrics != nil {
			a.metrics.RecordError("archive_overflow")
		}
	}
}

// Stop flushes what is buffered and waits for the loop to exit.
func (a *TradeArchiver) Stop() {
	close(a.stop)
	a.wg.Wait()
}

func (a *TradeArchiver) run(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(archiveFlushEvery)
	defer ticker.Stop()

	batch := make([]*models.TradeRecord, 0, archiveBatchSize)
	for {
		select {
		case r := <-a.in:
			batch = append(batch, r)
			if len(batch) >= archiveBatchSize {
				a.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// drain whatever arrived before shutdown
			for {
				select {
				case r := <-a.in:
					batch = append(batch, r)
				default:
					if len(batch) > 0 {
						a.flush(context.Background(), batch)
					}
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// flush writes one batch with bounded exponential backoff.
func (a *TradeArchiver) flush(ctx context.Context, batch []*models.TradeRecord) {
	start := time.Now()
	var err error
	for attempt := 0; attempt <= archiveRetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(archiveRetryBase << (attempt - 1)):
			case <-ctx.Done():
				return
			}
		}
		if err = a.tradeLog.StoreBatch(ctx, batch); err == nil {
			if a.metrics != nil {
				a.metrics.RecordLatency("archive_flush", time.Since(start).Seconds())
			}
			a.log.Debug("trade batch archived", logger.Int("records", len(batch)))
			return
		}
	}
	a.log.Error("trade batch archive failed", logger.Error(err), logger.Int("records", len(batch)))
	if a.metrics != nil {
		a.metrics.RecordError("archive_flush")
	}
}
