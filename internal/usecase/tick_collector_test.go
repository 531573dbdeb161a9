package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"DigitPulse/internal/domain/models"
	"DigitPulse/internal/engine"
	irepo "DigitPulse/internal/repository"
	"DigitPulse/pkg/kv"
	"DigitPulse/pkg/logger"
)

// fakeStream scripts the venue: the test pushes events in, buys are
// captured for assertions.
type fakeStream struct {
	mu         sync.Mutex
	events     chan models.VenueEvent
	errs       chan error
	buys       []*models.TradeCommand
	reconnects int
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		events: make(chan models.VenueEvent, 256),
		errs:   make(chan error, 1),
	}
}

func (s *fakeStream) Connect(ctx context.Context) error   { return nil }
func (s *fakeStream) Subscribe(ctx context.Context) error { return nil }
func (s *fakeStream) Close() error                        { return nil }
func (s *fakeStream) IsConnected() bool                   { return true }

func (s *fakeStream) Read(ctx context.Context) (<-chan models.VenueEvent, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events, s.errs
}

func (s *fakeStream) Buy(ctx context.Context, cmd *models.TradeCommand) error {
	s.mu.Lock()
	s.buys = append(s.buys, cmd)
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	s.events = make(chan models.VenueEvent, 256)
	s.errs = make(chan error, 1)
	return nil
}

func (s *fakeStream) buyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buys)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	p := engine.Params{
		TradingEnabled:    true,
		Symbol:            "R_100",
		PipDigits:         2,
		BufferCapacity:    100,
		BaseStake:         1.0,
		Martingale:        2.0,
		ContractTicks:     5,
		BaseThreshold:     0.55,
		BaseLearningRate:  0.3,
		LearningRateDecay: 0.995,
		Discount:          0.9,
		Epsilon:           0,
		CooldownTicks:     5,
		PatternCapacity:   100,
		ContextCapacity:   50,
		RecordCapacity:    200,
		TuneEvery:         1000,
	}
	return engine.New(p, testLogger(t), nil)
}

func oddBiasedPrice(i int) float64 {
	return 100.00 + float64((i%5)*2+1)/100
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCollectorRoutesStreamToEngineAndBuys(t *testing.T) {
	stream := newFakeStream()
	c := NewTickCollector(stream, testEngine(t), nil, nil, nil, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	for i := 0; i < 40; i++ {
		stream.events <- models.TickEvent{Epoch: int64(1000 + i), Price: oddBiasedPrice(i)}
	}
	waitFor(t, func() bool { return stream.buyCount() == 1 }, "buy submission")

	stream.events <- models.TradeFilledEvent{ContractID: "c-1", BuyPrice: 1.0}
	stream.events <- models.ContractResolvedEvent{ContractID: "c-1", Profit: 0.95}
	waitFor(t, func() bool {
		snap, err := c.Snapshot(ctx)
		return err == nil && snap.Wins == 1
	}, "resolved win in snapshot")

	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Observations != 40 || snap.PendingTrade {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestCollectorSubmitInjectsReplayTicks(t *testing.T) {
	stream := newFakeStream()
	eng := testEngine(t)
	eng.SetTrading(false)
	c := NewTickCollector(stream, eng, nil, nil, nil, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	for i := 0; i < 25; i++ {
		c.Submit(models.TickEvent{Epoch: int64(2000 + i), Price: oddBiasedPrice(i)})
	}
	waitFor(t, func() bool {
		snap, err := c.Snapshot(ctx)
		return err == nil && snap.Observations == 25
	}, "replayed observations")
	if stream.buyCount() != 0 {
		t.Fatalf("replay with trading disabled must never buy")
	}
}

func TestCollectorPersistRoundTrips(t *testing.T) {
	stream := newFakeStream()
	c := NewTickCollector(stream, testEngine(t), nil, nil, nil, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	for i := 0; i < 25; i++ {
		c.Submit(models.TickEvent{Epoch: int64(3000 + i), Price: oddBiasedPrice(i)})
	}
	waitFor(t, func() bool {
		snap, err := c.Snapshot(ctx)
		return err == nil && snap.Observations == 25
	}, "ingested observations")

	store := irepo.NewRedisStateStore(kv.NewMemoryStore())
	if err := c.Persist(ctx, store); err != nil {
		t.Fatalf("persist: %v", err)
	}
	var counters map[string]interface{}
	if err := store.Load(ctx, "counters", &counters); err != nil {
		t.Fatalf("saved counters must be loadable: %v", err)
	}
}

func TestCollectorReconnectsOnStreamError(t *testing.T) {
	stream := newFakeStream()
	c := NewTickCollector(stream, testEngine(t), nil, nil, nil, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	stream.errs <- context.DeadlineExceeded
	waitFor(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.reconnects >= 1
	}, "reconnect attempt")
}
