package usecase

import (
	"context"
	"testing"
)

func TestReplayHandlerSubmitsDecodedTicks(t *testing.T) {
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

	h := NewReplayHandler("digitpulse.ticks", c, testLogger(t))
	if h.Topic() != "digitpulse.ticks" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}

	if err := h.Handle(ctx, []byte(`{"epoch":1700000000,"quote":100.07}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	waitFor(t, func() bool {
		snap, err := c.Snapshot(ctx)
		return err == nil && snap.Observations == 1
	}, "replayed tick ingested")
}

func TestReplayHandlerRejectsMalformedPayload(t *testing.T) {
	stream := newFakeStream()
	c := NewTickCollector(stream, testEngine(t), nil, nil, nil, testLogger(t))
	h := NewReplayHandler("digitpulse.ticks", c, testLogger(t))

	if err := h.Handle(context.Background(), []byte("not json")); err == nil {
		t.Fatalf("malformed payload must error")
	}
	if err := h.Handle(context.Background(), []byte(`{"epoch":1,"quote":-5}`)); err != nil {
		t.Fatalf("non-positive quote is skipped, not retried: %v", err)
	}
}
