package engine

import (
	"math"
	"math/rand"
	"time"

	"DigitPulse/internal/domain/models"
	"DigitPulse/internal/domain/repository"
	"DigitPulse/pkg/logger"
)

const (
	minHistory     = 20
	confSmoothKeep = 0.7
	confSmoothNew  = 0.3
	anomalyFactor  = 5.0
	integrityDecay = 0.95
	integrityFloor = 0.5
	integrityHeal  = 0.01
	healthWarnAt   = 0.6
	cooldownLosses = 3

	// Observations past the contract duration before a silent trade is
	// written off. Resolution frames can be lost on the wire; without a
	// timeout one lost frame would block decisions forever.
	pendingGraceTicks = 30
)

// Params are the engine knobs, lifted straight from configuration.
type Params struct {
	TradingEnabled    bool
	Symbol            string
	PipDigits         int
	BufferCapacity    int
	BaseStake         float64
	Martingale        float64
	ContractTicks     int
	BaseThreshold     float64
	BaseLearningRate  float64
	LearningRateDecay float64
	Discount          float64
	Epsilon           float64
	CooldownTicks     int
	PatternCapacity   int
	ContextCapacity   int
	RecordCapacity    int
	TuneEvery         int
}

// pendingTrade is everything the learning updates need once the
// committed trade resolves.
type pendingTrade struct {
	seq        int64
	side       models.Parity
	stake      float64
	strategy   models.Strategy
	metaBucket int
	deepBucket int
	qState     models.Parity // parity of the decision observation, the shallow Q row the predictor read
	tail       [patternLength]models.Parity
	hasTail    bool
	votes      [NumModels]models.Parity
	exploring  bool
	volatility float64
	entropy    float64
	streakLen  int
	contractID string
	filled     bool
}

// Engine is the single-flow decision core. Exactly one goroutine calls
// Dispatch; all tables are mutated synchronously inside it.
type Engine struct {
	p       Params
	log     *logger.Logger
	metrics repository.Metrics
	rng     *rand.Rand
	now     func() time.Time

	buffer *Buffer
	state  *State

	seq           int64
	lastPrice     float64
	lastRawVol    float64
	threshold     float64
	pending       *pendingTrade
	cooldownUntil int64
	lastTradeSeq  int64

	onCommand func(*models.TradeCommand)
	onEvent   func(*models.EngineEvent)
	onRecord  func(*models.TradeRecord)
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand overrides the exploration source; tests pass a seeded one.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// OnCommand registers the trade command callback. Must be set before
// the first Dispatch.
func (e *Engine) OnCommand(fn func(*models.TradeCommand)) { e.onCommand = fn }

// OnEvent registers the structured event callback.
func (e *Engine) OnEvent(fn func(*models.EngineEvent)) { e.onEvent = fn }

// OnRecord registers the resolved trade record callback.
func (e *Engine) OnRecord(fn func(*models.TradeRecord)) { e.onRecord = fn }

// New builds an engine with fresh state.
func New(p Params, log *logger.Logger, metrics repository.Metrics, opts ...Option) *Engine {
	e := &Engine{
		p:         p,
		log:       log,
		metrics:   metrics,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		buffer:    NewBuffer(p.BufferCapacity),
		state:     NewState(p.PatternCapacity, p.ContextCapacity, p.RecordCapacity, p.BaseLearningRate),
		threshold: p.BaseThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State exposes the learned tables for persistence and the status API.
func (e *Engine) State() *State { return e.state }

// Snapshot renders the current engine state.
func (e *Engine) Snapshot() models.EngineSnapshot {
	snap := e.state.Snapshot(e.threshold)
	snap.PendingTrade = e.pending != nil
	snap.CooldownActive = e.seq < e.cooldownUntil
	return snap
}

// SetTrading toggles decision making at runtime; learning continues
// either way. Used by the replay path.
func (e *Engine) SetTrading(enabled bool) { e.p.TradingEnabled = enabled }

// Dispatch is the single transition function over the closed venue
// event set. It must only ever run on one goroutine.
func (e *Engine) Dispatch(ev models.VenueEvent) {
	switch v := ev.(type) {
	case models.TickEvent:
		e.onTick(v)
	case models.ProposalReadyEvent:
		// Priced proposals are informational; the buy already carries
		// the stake.
		e.log.Debug("proposal priced",
			logger.String("proposal_id", v.ProposalID),
			logger.Float64("ask", v.AskPrice))
	case models.TradeFilledEvent:
		if e.pending != nil {
			e.pending.contractID = v.ContractID
			e.pending.filled = true
		}
	case models.ContractResolvedEvent:
		e.onResolved(v)
	case models.VenueErrorEvent:
		e.onVenueError(v)
	}
}

func (e *Engine) onTick(t models.TickEvent) {
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price <= 0 {
		e.log.Warn("malformed tick rejected", logger.Float64("price", t.Price))
		if e.metrics != nil {
			e.metrics.RecordError("malformed_tick")
		}
		return
	}

	e.seq++
	obs := models.NewObservation(e.seq, t.Epoch, t.Price, e.p.PipDigits)

	anomalous := e.checkAnomaly(t.Price)
	// Anomalous ticks still enter the buffer and all feature windows.
	// Replicated policy, not an endorsement; they only suppress the
	// decision for this observation.
	if err := e.buffer.Append(obs); err != nil {
		e.log.Warn("observation rejected", logger.Error(err), logger.Int64("seq", obs.Seq))
		return
	}
	e.lastPrice = t.Price
	e.state.Counters.Observations++
	if e.metrics != nil {
		e.metrics.RecordObservation(obs.Parity.String())
	}

	f := Extract(e.buffer.Window(e.buffer.Len()))
	e.lastRawVol = f.RawVolatility

	if e.state.Counters.Observations%int64(e.p.TuneEvery) == 0 {
		e.tune(f)
	}

	e.expirePending()

	if anomalous {
		return
	}
	e.decide(obs, f)
}

// expirePending writes off a trade whose resolution never arrived once
// the contract duration plus the grace window has passed. Nothing is
// learned from it and its record is dropped, same as an unfilled trade.
func (e *Engine) expirePending() {
	p := e.pending
	if p == nil || e.seq-p.seq <= int64(e.p.ContractTicks)+pendingGraceTicks {
		return
	}
	e.pending = nil
	if r := e.state.LastRecord(); r != nil && r.Seq == p.seq && !r.Resolved {
		e.state.Records = e.state.Records[:len(e.state.Records)-1]
	}
	e.log.Warn("pending trade timed out",
		logger.Int64("seq", p.seq),
		logger.String("contract_id", p.contractID))
	if e.metrics != nil {
		e.metrics.RecordError("pending_timeout")
	}
}

// checkAnomaly flags a price jump exceeding five times recent raw
// volatility and maintains the integrity score either way.
func (e *Engine) checkAnomaly(price float64) bool {
	if e.buffer.Len() < minHistory || e.lastRawVol <= 0 {
		return false
	}
	if math.Abs(price-e.lastPrice) > anomalyFactor*e.lastRawVol {
		e.state.Counters.Integrity = math.Max(integrityFloor, e.state.Counters.Integrity*integrityDecay)
		if e.metrics != nil {
			e.metrics.RecordAnomaly()
		}
		e.emit(models.EventAnomalyFlag, e.seq, map[string]interface{}{
			"price":     price,
			"integrity": e.state.Counters.Integrity,
		})
		e.log.Warn("anomalous tick flagged",
			logger.Float64("price", price),
			logger.Float64("integrity", e.state.Counters.Integrity))
		return true
	}
	e.state.Counters.Integrity = math.Min(1.0, e.state.Counters.Integrity+integrityHeal)
	return false
}

// decide runs the gate: fuse the ensemble, smooth confidence, and
// either commit a trade or skip.
func (e *Engine) decide(obs models.Observation, f Features) {
	c := &e.state.Counters
	switch {
	case !e.p.TradingEnabled:
		return
	case e.pending != nil:
		return
	case e.seq < e.cooldownUntil:
		return
	case e.lastTradeSeq > 0 && e.seq-e.lastTradeSeq < int64(e.p.CooldownTicks):
		return
	case e.buffer.Len() < minHistory:
		return
	}

	preds := PredictAll(e.buffer, f, &e.state.Shallow, &e.state.Deep, &e.state.Patterns)
	weights := Weights(e.state.ModelStats)
	fused := Fuse(preds, weights)
	consensus, _ := Consensus(preds)

	if ctx, sim, ok := e.state.Contexts.MostSimilar(f.Volatility, f.Entropy, f.StreakLen); ok {
		fused = ApplyContextBias(fused, ctx, sim)
	}
	if f.HasCycle && f.CycleStrength > cycleStrong {
		fused = ApplyCycleBlend(fused, preds[ModelCyclic])
	}
	fused = ApplyIntegrityPull(fused, c.Integrity)

	mode := models.Mode(c.Mode)
	side := fused.Favored()
	rawConf := fused.Max()
	exploring := false
	if eps := ModeEpsilon(mode, e.p.Epsilon); eps > 0 && e.rng.Float64() < eps {
		exploring = true
		side = models.Parity(e.rng.Intn(2))
		rawConf = 0.5
	}

	c.SmoothedConf = confSmoothKeep*c.SmoothedConf + confSmoothNew*rawConf
	e.threshold = AdaptiveThreshold(e.p.BaseThreshold, c.Health, f.Entropy)
	if e.metrics != nil {
		e.metrics.RecordConfidence(c.SmoothedConf)
	}

	if c.SmoothedConf < e.threshold {
		e.skip(obs.Seq, "below_threshold")
		return
	}
	if mode == models.ModePrecision && !HasConsensus(consensus) {
		e.skip(obs.Seq, "no_consensus")
		return
	}

	strategy, metaBucket := SelectStrategy(&e.state.Meta, f.Volatility, f.Entropy)
	stake := Stake(e.p.BaseStake, e.p.Martingale, c.ConsecLosses, strategy, c.SmoothedConf)

	pending := &pendingTrade{
		seq:        obs.Seq,
		side:       side,
		stake:      stake,
		strategy:   strategy,
		metaBucket: metaBucket,
		deepBucket: DeepBucket(VolLevel(f.Volatility), TrendLevel(f.TrendScore), StreakLevel(f.StreakLen)),
		qState:     obs.Parity,
		exploring:  exploring,
		volatility: f.Volatility,
		entropy:    f.Entropy,
		streakLen:  f.StreakLen,
	}
	if tail, ok := e.buffer.Tail(patternLength); ok {
		copy(pending.tail[:], tail)
		pending.hasTail = true
	}
	for m := 0; m < NumModels; m++ {
		pending.votes[m] = preds[m].Favored()
	}
	e.pending = pending
	e.lastTradeSeq = obs.Seq

	e.state.AppendRecord(models.TradeRecord{
		Seq:          obs.Seq,
		Time:         e.now(),
		Side:         side,
		Confidence:   c.SmoothedConf,
		Consensus:    consensus,
		Stake:        stake,
		Strategy:     strategy,
		Mode:         mode,
		Volatility:   f.Volatility,
		Entropy:      f.Entropy,
		StreakLen:    f.StreakLen,
		WeightSpread: WeightSpread(weights),
		Exploring:    exploring,
	})

	cmd := &models.TradeCommand{
		Side:          side,
		Stake:         stake,
		DurationTicks: e.p.ContractTicks,
		Symbol:        e.p.Symbol,
	}
	e.log.Info("decision committed",
		logger.Int64("seq", obs.Seq),
		logger.String("side", side.String()),
		logger.Float64("confidence", c.SmoothedConf),
		logger.Float64("consensus", consensus),
		logger.Float64("stake", stake),
		logger.String("strategy", strategy.String()),
		logger.Bool("exploring", exploring))
	if e.metrics != nil {
		e.metrics.RecordDecision(side.String())
	}
	e.emit(models.EventDecisionMade, obs.Seq, map[string]interface{}{
		"side":       side.String(),
		"confidence": c.SmoothedConf,
		"consensus":  consensus,
		"stake":      stake,
		"strategy":   strategy.String(),
		"mode":       mode.String(),
		"exploring":  exploring,
	})
	if e.onCommand != nil {
		e.onCommand(cmd)
	}
}

func (e *Engine) skip(seq int64, reason string) {
	if e.metrics != nil {
		e.metrics.RecordSkip(reason)
	}
	e.emit(models.EventDecisionSkip, seq, map[string]interface{}{"reason": reason})
}

// onResolved closes the learning loop for the pending trade.
func (e *Engine) onResolved(ev models.ContractResolvedEvent) {
	p := e.pending
	if p == nil {
		e.log.Warn("resolution without pending trade", logger.String("contract_id", ev.ContractID))
		return
	}
	e.pending = nil

	won := ev.Profit > 0
	reward := -1.0
	if won {
		reward = 1.0
	}

	c := &e.state.Counters
	if won {
		c.Wins++
		c.ConsecLosses = 0
	} else {
		c.Losses++
		c.ConsecLosses++
	}

	lr := c.LearningRate
	e.state.Shallow.Update(p.qState, p.side, reward, lr)
	e.state.Deep.Update(p.deepBucket, p.side, reward, lr, e.p.Discount)
	e.state.Meta.Update(p.metaBucket, p.strategy, reward)
	c.LearningRate = DecayLearningRate(lr, e.p.LearningRateDecay)

	// The realized class is what actually happened: the predicted side
	// on a win, its opposite on a loss.
	realized := p.side
	if !won {
		realized = p.side.Other()
	}
	for m := 0; m < NumModels; m++ {
		e.state.ModelStats[m].Total++
		if p.votes[m] == realized {
			e.state.ModelStats[m].Correct++
		}
	}

	if p.hasTail {
		e.state.Patterns.Observe(p.tail, p.side, won)
	}
	e.state.Contexts.Append(models.ContextEntry{
		Volatility: p.volatility,
		Entropy:    p.entropy,
		StreakLen:  p.streakLen,
		Side:       p.side,
		Won:        won,
	})

	if r := e.state.LastRecord(); r != nil && r.Seq == p.seq {
		r.Resolved = true
		r.Won = won
		r.Profit = ev.Profit
		if e.onRecord != nil {
			e.onRecord(r)
		}
	}

	prevHealth := c.Health
	c.Health = HealthScore(e.state.Records)
	if e.metrics != nil {
		e.metrics.RecordOutcome(won, ev.Profit)
		e.metrics.RecordHealth(c.Health)
	}
	if c.Health < healthWarnAt && prevHealth >= healthWarnAt {
		e.log.Warn("engine health degraded", logger.Float64("health", c.Health))
		e.emit(models.EventHealthWarning, p.seq, map[string]interface{}{"health": c.Health})
	}

	if c.ConsecLosses >= cooldownLosses && p.entropy > entropyExplore {
		e.cooldownUntil = e.seq + int64(5+c.ConsecLosses)
		e.emit(models.EventCooldown, p.seq, map[string]interface{}{
			"until_seq":          e.cooldownUntil,
			"consecutive_losses": c.ConsecLosses,
		})
	}

	e.log.Info("trade resolved",
		logger.Int64("seq", p.seq),
		logger.String("contract_id", ev.ContractID),
		logger.Bool("won", won),
		logger.Float64("profit", ev.Profit),
		logger.Int("consecutive_losses", c.ConsecLosses),
		logger.Float64("health", c.Health))
	e.emit(models.EventTradeResolved, p.seq, map[string]interface{}{
		"contract_id": ev.ContractID,
		"won":         won,
		"profit":      ev.Profit,
		"health":      c.Health,
	})
}

// onVenueError clears the pending flag so the next decision cycle can
// proceed; nothing is learned from an unfilled trade.
func (e *Engine) onVenueError(ev models.VenueErrorEvent) {
	e.log.Error("venue error",
		logger.String("code", ev.Code),
		logger.String("message", ev.Message))
	if e.metrics != nil {
		e.metrics.RecordError("venue_" + ev.Code)
	}
	if e.pending != nil && !e.pending.filled {
		// Drop the unresolved record so it never pollutes health.
		if r := e.state.LastRecord(); r != nil && r.Seq == e.pending.seq && !r.Resolved {
			e.state.Records = e.state.Records[:len(e.state.Records)-1]
		}
		e.pending = nil
	}
}

// tune runs the periodic controllers: operating mode from the entropy
// regime and learning rate from the recent win rate.
func (e *Engine) tune(f Features) {
	c := &e.state.Counters
	newMode := SelectMode(f.Entropy)
	if int(newMode) != c.Mode {
		e.log.Info("mode switch",
			logger.String("from", models.Mode(c.Mode).String()),
			logger.String("to", newMode.String()),
			logger.Float64("entropy", f.Entropy))
		c.Mode = int(newMode)
		if e.metrics != nil {
			e.metrics.RecordMode(newMode.String())
		}
		e.emit(models.EventModeSwitch, e.seq, map[string]interface{}{
			"mode":    newMode.String(),
			"entropy": f.Entropy,
		})
	}
	c.LearningRate = TuneLearningRate(c.LearningRate, e.p.BaseLearningRate, e.p.LearningRateDecay, RecentWinRate(e.state.Records))
}

func (e *Engine) emit(eventType string, seq int64, fields map[string]interface{}) {
	if e.onEvent == nil {
		return
	}
	e.onEvent(&models.EngineEvent{
		Type:   eventType,
		Time:   e.now(),
		Seq:    seq,
		Fields: fields,
	})
}
