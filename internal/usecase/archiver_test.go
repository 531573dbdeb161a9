package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"DigitPulse/internal/domain/models"
)

type fakeTradeLog struct {
	mu      sync.Mutex
	stored  []*models.TradeRecord
	failN   int
	batches int
}

func (l *fakeTradeLog) Init(ctx context.Context) error { return nil }
func (l *fakeTradeLog) Store(ctx context.Context, r *models.TradeRecord) error {
	return l.StoreBatch(ctx, []*models.TradeRecord{r})
}

func (l *fakeTradeLog) StoreBatch(ctx context.Context, records []*models.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches++
	if l.failN > 0 {
		l.failN--
		return errors.New("transient")
	}
	l.stored = append(l.stored, records...)
	return nil
}

func (l *fakeTradeLog) Recent(ctx context.Context, limit int) ([]*models.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stored, nil
}

func (l *fakeTradeLog) Health(ctx context.Context) error { return nil }
func (l *fakeTradeLog) Close() error                     { return nil }

func (l *fakeTradeLog) storedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.stored)
}

func TestArchiverFlushesFullBatchImmediately(t *testing.T) {
	tl := &fakeTradeLog{}
	a := NewTradeArchiver(tl, nil, testLogger(t))
	a.Start(context.Background())

	for i := 0; i < archiveBatchSize; i++ {
		a.Submit(&models.TradeRecord{Seq: int64(i), Resolved: true, Won: true})
	}
	waitFor(t, func() bool { return tl.storedCount() == archiveBatchSize }, "full batch flush")
	a.Stop()
}

func TestArchiverStopDrainsPartialBatch(t *testing.T) {
	tl := &fakeTradeLog{}
	a := NewTradeArchiver(tl, nil, testLogger(t))
	a.Start(context.Background())

	a.Submit(&models.TradeRecord{Seq: 1, Resolved: true})
	a.Submit(&models.TradeRecord{Seq: 2, Resolved: true})
	a.Stop()

	if tl.storedCount() != 2 {
		t.Fatalf("stop must drain buffered records, got %d", tl.storedCount())
	}
}

func TestArchiverRetriesTransientFailures(t *testing.T) {
	tl := &fakeTradeLog{failN: 1}
	a := NewTradeArchiver(tl, nil, testLogger(t))
	a.Start(context.Background())

	for i := 0; i < archiveBatchSize; i++ {
		a.Submit(&models.TradeRecord{Seq: int64(i), Resolved: true})
	}
	waitFor(t, func() bool { return tl.storedCount() == archiveBatchSize }, "flush after retries")
	a.Stop()

	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.batches < 2 {
		t.Fatalf("expected a failed attempt before success, got %d", tl.batches)
	}
}

func TestArchiverCopiesSubmittedRecords(t *testing.T) {
	tl := &fakeTradeLog{}
	a := NewTradeArchiver(tl, nil, testLogger(t))
	a.Start(context.Background())

	r := &models.TradeRecord{Seq: 7, Resolved: true, Profit: 0.95}
	a.Submit(r)
	r.Profit = -1 // the engine reuses its ring slot
	a.Stop()

	stored, _ := tl.Recent(context.Background(), 10)
	if len(stored) != 1 || stored[0].Profit != 0.95 {
		t.Fatalf("archiver must snapshot the record at submit time, got %+v", stored)
	}
}
