package engine

import (
	"testing"

	"DigitPulse/internal/domain/models"
	"DigitPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testParams() Params {
	return Params{
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
		TuneEvery:         1000, // keep the periodic tuner out of the way
	}
}

// Prices whose last digit cycles 1,3,5,7,9: every observation is odd,
// small moves, no anomalies.
func oddBiasedPrice(i int) float64 {
	return 100.00 + float64((i%5)*2+1)/100
}

func TestEngineEndToEndLearningLoop(t *testing.T) {
	var commands []*models.TradeCommand
	e := New(testParams(), testLogger(t), nil)
	e.OnCommand(func(c *models.TradeCommand) { commands = append(commands, c) })

	for i := 0; i < 40; i++ {
		e.Dispatch(models.TickEvent{Epoch: int64(1000 + i), Price: oddBiasedPrice(i)})
	}

	if len(commands) != 1 {
		t.Fatalf("expected exactly one trade command, got %d", len(commands))
	}
	cmd := commands[0]
	if cmd.Side != models.Odd {
		t.Fatalf("an all-odd stream must predict odd, got %v", cmd.Side)
	}
	if cmd.Stake != 1.0 {
		t.Fatalf("no losses yet: stake must be base, got %v", cmd.Stake)
	}
	if cmd.DurationTicks != 5 || cmd.Symbol != "R_100" {
		t.Fatalf("unexpected command %+v", cmd)
	}

	e.Dispatch(models.TradeFilledEvent{ContractID: "c-1", BuyPrice: 1.0})
	e.Dispatch(models.ContractResolvedEvent{ContractID: "c-1", Profit: 0.95})

	st := e.State()
	if st.Counters.Wins != 1 || st.Counters.Losses != 0 || st.Counters.ConsecLosses != 0 {
		t.Fatalf("unexpected counters %+v", st.Counters)
	}
	if st.Patterns.Len() != 1 {
		t.Fatalf("expected one pattern entry, got %d", st.Patterns.Len())
	}
	p := st.Patterns.Entries[0]
	if p.Occurrences != 1 || p.Successes != 1 || p.Predicted != models.Odd {
		t.Fatalf("unexpected pattern entry %+v", p)
	}
	if st.Contexts.Len() != 1 {
		t.Fatalf("expected one context entry, got %d", st.Contexts.Len())
	}

	if st.Shallow.V[models.Odd][models.Odd] <= 0.5 {
		t.Fatalf("winning odd trade must raise the shallow value, got %v", st.Shallow.V[models.Odd][models.Odd])
	}
	deepTouched := 0
	for b := range st.Deep.V {
		for a := range st.Deep.V[b] {
			if st.Deep.V[b][a] != 0.5 {
				deepTouched++
			}
		}
	}
	if deepTouched != 1 {
		t.Fatalf("expected exactly one deep table cell updated, got %d", deepTouched)
	}
	metaTouched := 0
	for b := range st.Meta.V {
		for s := range st.Meta.V[b] {
			if st.Meta.V[b][s] != 0.5 {
				metaTouched++
			}
		}
	}
	if metaTouched != 1 {
		t.Fatalf("expected exactly one meta table cell updated, got %d", metaTouched)
	}

	r := st.LastRecord()
	if r == nil || !r.Resolved || !r.Won || r.Profit != 0.95 {
		t.Fatalf("unexpected trade record %+v", r)
	}
	for m := 0; m < NumModels; m++ {
		if st.ModelStats[m].Total != 1 {
			t.Fatalf("model %s: accuracy counters not updated", ModelNames[m])
		}
	}
}

func TestEngineShallowQCreditsDecisionObservation(t *testing.T) {
	var commands []*models.TradeCommand
	e := New(testParams(), testLogger(t), nil)
	e.OnCommand(func(c *models.TradeCommand) { commands = append(commands, c) })

	// Even warm-up with trading off, then flip parity on the decision
	// tick. The outcome must credit the shallow row the predictor read,
	// which belongs to the decision observation, not the one before it.
	e.SetTrading(false)
	for i := 0; i < 30; i++ {
		e.Dispatch(models.TickEvent{Epoch: int64(1000 + i), Price: 100.02})
	}
	e.SetTrading(true)
	e.state.Counters.SmoothedConf = 0.95 // above any reachable threshold after smoothing
	e.Dispatch(models.TickEvent{Epoch: 1030, Price: 100.01})

	if len(commands) != 1 {
		t.Fatalf("expected the odd tick to commit a trade, got %d commands", len(commands))
	}
	if e.pending == nil || e.pending.qState != models.Odd {
		t.Fatalf("pending trade must key the shallow table on the decision observation's parity")
	}
	side := e.pending.side

	e.Dispatch(models.TradeFilledEvent{ContractID: "c-1", BuyPrice: 1.0})
	e.Dispatch(models.ContractResolvedEvent{ContractID: "c-1", Profit: 0.95})

	st := e.State()
	if st.Shallow.V[models.Odd][side] <= 0.5 {
		t.Fatalf("the win must raise the row the predictor read, got %v", st.Shallow.V[models.Odd][side])
	}
	if st.Shallow.V[models.Even] != [2]float64{0.5, 0.5} {
		t.Fatalf("the prior observation's row must stay untouched: %v", st.Shallow.V[models.Even])
	}
}

func TestEnginePendingTimesOutWithoutResolution(t *testing.T) {
	var commands []*models.TradeCommand
	e := New(testParams(), testLogger(t), nil)
	e.OnCommand(func(c *models.TradeCommand) { commands = append(commands, c) })

	i := 0
	for ; i < 40; i++ {
		e.Dispatch(models.TickEvent{Epoch: int64(1000 + i), Price: oddBiasedPrice(i)})
	}
	if len(commands) != 1 {
		t.Fatalf("expected one command, got %d", len(commands))
	}
	e.Dispatch(models.TradeFilledEvent{ContractID: "c-lost", BuyPrice: 1.0})
	firstSeq := e.pending.seq

	// The resolution frame never arrives. Ticks keep flowing past the
	// contract duration plus the grace window.
	for ; i < 140; i++ {
		e.Dispatch(models.TickEvent{Epoch: int64(1000 + i), Price: oddBiasedPrice(i)})
	}

	if e.pending != nil && e.pending.seq == firstSeq {
		t.Fatalf("timed-out trade still pending")
	}
	if len(commands) < 2 {
		t.Fatalf("decisions must resume after the timeout, got %d commands", len(commands))
	}
	if c := e.State().Counters; c.Wins != 0 || c.Losses != 0 {
		t.Fatalf("a timed-out trade must not count as an outcome: %+v", c)
	}
	for _, r := range e.State().Records {
		if r.Seq == firstSeq {
			t.Fatalf("the timed-out trade's record must be dropped")
		}
	}
}

func TestEngineRejectsMalformedTick(t *testing.T) {
	e := New(testParams(), testLogger(t), nil)
	e.Dispatch(models.TickEvent{Epoch: 1, Price: -3})
	e.Dispatch(models.TickEvent{Epoch: 2, Price: 0})
	if e.State().Counters.Observations != 0 {
		t.Fatalf("malformed ticks must not be ingested")
	}
}

func TestEnginePendingBlocksNewDecisions(t *testing.T) {
	var commands []*models.TradeCommand
	e := New(testParams(), testLogger(t), nil)
	e.OnCommand(func(c *models.TradeCommand) { commands = append(commands, c) })

	for i := 0; i < 60; i++ {
		e.Dispatch(models.TickEvent{Epoch: int64(1000 + i), Price: oddBiasedPrice(i)})
	}
	if len(commands) != 1 {
		t.Fatalf("a pending trade must block further commands, got %d", len(commands))
	}
}

func TestEngineVenueErrorClearsPending(t *testing.T) {
	var commands []*models.TradeCommand
	e := New(testParams(), testLogger(t), nil)
	e.OnCommand(func(c *models.TradeCommand) { commands = append(commands, c) })

	for i := 0; i < 40; i++ {
		e.Dispatch(models.TickEvent{Epoch: int64(1000 + i), Price: oddBiasedPrice(i)})
	}
	if len(commands) != 1 {
		t.Fatalf("expected one command, got %d", len(commands))
	}
	records := len(e.State().Records)

	e.Dispatch(models.VenueErrorEvent{Code: "BuyError", Message: "market closed"})
	if e.State().Counters.Wins != 0 || e.State().Counters.Losses != 0 {
		t.Fatalf("an unfilled trade must not count as an outcome")
	}
	if len(e.State().Records) != records-1 {
		t.Fatalf("the dropped trade's record must be removed")
	}

	for i := 40; i < 80; i++ {
		e.Dispatch(models.TickEvent{Epoch: int64(1000 + i), Price: oddBiasedPrice(i)})
	}
	if len(commands) != 2 {
		t.Fatalf("a cleared error must allow a new decision cycle, got %d commands", len(commands))
	}
}

func TestEngineTradingDisabledStillLearnsNothingButIngests(t *testing.T) {
	var commands []*models.TradeCommand
	e := New(testParams(), testLogger(t), nil)
	e.OnCommand(func(c *models.TradeCommand) { commands = append(commands, c) })
	e.SetTrading(false)

	for i := 0; i < 40; i++ {
		e.Dispatch(models.TickEvent{Epoch: int64(1000 + i), Price: oddBiasedPrice(i)})
	}
	if len(commands) != 0 {
		t.Fatalf("disabled trading must never emit commands")
	}
	if e.State().Counters.Observations != 40 {
		t.Fatalf("observations must still be ingested, got %d", e.State().Counters.Observations)
	}
}
