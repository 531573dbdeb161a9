package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"DigitPulse/internal/domain/models"
	"DigitPulse/internal/engine"
	"DigitPulse/internal/usecase"
	xlogger "DigitPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubStream struct {
	events    chan models.VenueEvent
	errs      chan error
	connected bool
}

func newStubStream() *stubStream {
	return &stubStream{
		events:    make(chan models.VenueEvent, 64),
		errs:      make(chan error, 1),
		connected: true,
	}
}

func (s *stubStream) Connect(ctx context.Context) error   { return nil }
func (s *stubStream) Subscribe(ctx context.Context) error { return nil }
func (s *stubStream) Read(ctx context.Context) (<-chan models.VenueEvent, <-chan error) {
	return s.events, s.errs
}
func (s *stubStream) Buy(ctx context.Context, cmd *models.TradeCommand) error { return nil }
func (s *stubStream) Reconnect(ctx context.Context) error                     { return nil }
func (s *stubStream) Close() error                                            { return nil }
func (s *stubStream) IsConnected() bool                                       { return s.connected }

type stubTradeLog struct {
	records []*models.TradeRecord
	healthy bool
}

func (l *stubTradeLog) Init(ctx context.Context) error                         { return nil }
func (l *stubTradeLog) Store(ctx context.Context, r *models.TradeRecord) error { return nil }
func (l *stubTradeLog) StoreBatch(ctx context.Context, rs []*models.TradeRecord) error {
	return nil
}
func (l *stubTradeLog) Recent(ctx context.Context, limit int) ([]*models.TradeRecord, error) {
	if limit < len(l.records) {
		return l.records[:limit], nil
	}
	return l.records, nil
}
func (l *stubTradeLog) Health(ctx context.Context) error {
	if !l.healthy {
		return context.DeadlineExceeded
	}
	return nil
}
func (l *stubTradeLog) Close() error { return nil }

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testCollector(t *testing.T, stream *stubStream) *usecase.TickCollector {
	t.Helper()
	eng := engine.New(engine.Params{
		Symbol:          "R_100",
		PipDigits:       2,
		BufferCapacity:  100,
		BaseStake:       1.0,
		Martingale:      2.0,
		ContractTicks:   5,
		BaseThreshold:   0.55,
		BaseLearningRate: 0.3,
		LearningRateDecay: 0.995,
		Discount:        0.9,
		CooldownTicks:   5,
		PatternCapacity: 100,
		ContextCapacity: 50,
		RecordCapacity:  200,
		TuneEvery:       1000,
	}, testLogger(t), nil)
	c := usecase.NewTickCollector(stream, eng, nil, nil, nil, testLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start collector: %v", err)
	}
	t.Cleanup(func() {
		c.Stop()
		cancel()
	})
	return c
}

func TestStatusEndpointRendersSnapshot(t *testing.T) {
	stream := newStubStream()
	c := testCollector(t, stream)

	for i := 0; i < 5; i++ {
		stream.events <- models.TickEvent{Epoch: int64(1000 + i), Price: 100.01}
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := c.Snapshot(context.Background())
		if err == nil && snap.Observations == 5 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	h := NewStatusHandler(testLogger(t), c, stream, nil, nil)
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint returned %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data models.EngineSnapshot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Observations != 5 {
		t.Fatalf("expected 5 observations in snapshot, got %d", body.Data.Observations)
	}
	if body.Data.Mode == "" {
		t.Fatalf("snapshot must carry the operating mode")
	}
}

func TestHealthzReportsDegradedDependencies(t *testing.T) {
	stream := newStubStream()
	c := testCollector(t, stream)
	h := NewStatusHandler(testLogger(t), c, stream, nil, &stubTradeLog{healthy: false})
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("a down backend must yield 503, got %d", rec.Code)
	}

	stream.connected = false
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("a disconnected venue must yield 503, got %d", rec.Code)
	}
}

func TestHealthzHealthy(t *testing.T) {
	stream := newStubStream()
	c := testCollector(t, stream)
	h := NewStatusHandler(testLogger(t), c, stream, nil, &stubTradeLog{healthy: true})
	e := echo.New()
	h.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy backends must yield 200, got %d", rec.Code)
	}
}

func TestRecentTradesAppliesLimit(t *testing.T) {
	stream := newStubStream()
	c := testCollector(t, stream)
	tl := &stubTradeLog{healthy: true}
	for i := 0; i < 10; i++ {
		tl.records = append(tl.records, &models.TradeRecord{Seq: int64(i), Resolved: true})
	}
	h := NewStatusHandler(testLogger(t), c, stream, nil, tl)
	e := echo.New()
	h.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades/recent?limit=3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("recent trades returned %d", rec.Code)
	}
	var body struct {
		Data struct {
			Rows  []models.TradeRecord `json:"rows"`
			Total int64                `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(body.Data.Rows))
	}
}
