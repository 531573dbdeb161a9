package venue

import (
	"context"
	"encoding/json"
	"testing"

	"DigitPulse/internal/domain/models"
)

func parseFrame(t *testing.T, raw string) *venueFrame {
	t.Helper()
	var f venueFrame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &f
}

func TestFrameToEventTick(t *testing.T) {
	f := parseFrame(t, `{"msg_type":"tick","tick":{"epoch":1700000000,"quote":8123.45}}`)
	ev, ok := frameToEvent(f)
	if !ok {
		t.Fatalf("expected event")
	}
	tick, ok := ev.(models.TickEvent)
	if !ok {
		t.Fatalf("expected TickEvent, got %T", ev)
	}
	if tick.Epoch != 1700000000 || tick.Price != 8123.45 {
		t.Fatalf("unexpected tick %+v", tick)
	}
}

func TestFrameToEventError(t *testing.T) {
	f := parseFrame(t, `{"msg_type":"buy","error":{"code":"InvalidStake","message":"stake too low"}}`)
	ev, ok := frameToEvent(f)
	if !ok {
		t.Fatalf("expected event")
	}
	e, ok := ev.(models.VenueErrorEvent)
	if !ok {
		t.Fatalf("expected VenueErrorEvent, got %T", ev)
	}
	if e.Code != "InvalidStake" {
		t.Fatalf("unexpected code %q", e.Code)
	}
}

func TestFrameToEventContractOnlyWhenSold(t *testing.T) {
	open := parseFrame(t, `{"msg_type":"proposal_open_contract","proposal_open_contract":{"contract_id":42,"is_sold":0,"profit":0}}`)
	if _, ok := frameToEvent(open); ok {
		t.Fatalf("unsold contract must not emit an event")
	}
	sold := parseFrame(t, `{"msg_type":"proposal_open_contract","proposal_open_contract":{"contract_id":42,"is_sold":1,"profit":0.95}}`)
	ev, ok := frameToEvent(sold)
	if !ok {
		t.Fatalf("expected event")
	}
	r := ev.(models.ContractResolvedEvent)
	if r.ContractID != "42" || r.Profit != 0.95 {
		t.Fatalf("unexpected resolution %+v", r)
	}
}

func TestFrameToEventIgnoresUnknown(t *testing.T) {
	f := parseFrame(t, `{"msg_type":"ping"}`)
	if _, ok := frameToEvent(f); ok {
		t.Fatalf("unknown frames must be ignored")
	}
}

func TestForwardShedsTicksKeepsResolutions(t *testing.T) {
	ctx := context.Background()
	events := make(chan models.VenueEvent, 1)
	events <- models.TickEvent{Epoch: 1, Price: 1.23}

	// A tick against a full queue is shed.
	if !forward(ctx, events, models.TickEvent{Epoch: 2, Price: 1.24}) {
		t.Fatalf("tick forward must not report a dead context")
	}
	if len(events) != 1 {
		t.Fatalf("tick must be shed under backpressure, queue has %d", len(events))
	}

	// A resolution against a full queue waits for the consumer.
	done := make(chan bool)
	go func() {
		done <- forward(ctx, events, models.ContractResolvedEvent{ContractID: "42", Profit: 0.95})
	}()
	<-events // consumer drains the tick
	if !<-done {
		t.Fatalf("resolution forward must succeed once drained")
	}
	ev := <-events
	if r, ok := ev.(models.ContractResolvedEvent); !ok || r.ContractID != "42" {
		t.Fatalf("expected the resolution to be queued, got %#v", ev)
	}
}

func TestForwardStopsOnContextEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events := make(chan models.VenueEvent) // no consumer
	if forward(ctx, events, models.TradeFilledEvent{ContractID: "7"}) {
		t.Fatalf("forward must report a dead context")
	}
}
