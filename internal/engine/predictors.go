package engine

import (
	"math"

	"DigitPulse/internal/domain/models"
)

// Model indices. Accuracy counters, fusion weights, and votes all key
// off this enumeration.
const (
	ModelStatistical = iota
	ModelMarkov
	ModelTrend
	ModelQLearn
	ModelStreak
	ModelPattern
	ModelEntropy
	ModelCyclic
	NumModels
)

// ModelNames maps model index to a stable name used in logs and events.
var ModelNames = [NumModels]string{
	"statistical", "markov", "trend", "qlearn",
	"streak", "pattern", "entropy", "cyclic",
}

// PredictAll runs every model against the current buffer and features.
// Each output is a valid probability pair; models lacking history
// return the neutral pair rather than an error.
func PredictAll(buf *Buffer, f Features, shallow *QTable, deep *DeepQTable, patterns *PatternMemory) [NumModels]models.ProbPair {
	var out [NumModels]models.ProbPair
	out[ModelStatistical] = PredictStatistical(buf)
	out[ModelMarkov] = PredictMarkov(buf)
	out[ModelTrend] = PredictTrend(f)
	out[ModelQLearn] = PredictQ(buf, f, shallow, deep)
	out[ModelStreak] = PredictStreak(f)
	out[ModelPattern] = PredictPattern(buf, patterns)
	out[ModelEntropy] = PredictEntropy(buf, f)
	out[ModelCyclic] = PredictCyclic(buf, f)
	return out
}

// pairFor builds a probability pair assigning p to side. p is clamped
// away from the degenerate extremes so downstream fusion stays sane.
func pairFor(side models.Parity, p float64) models.ProbPair {
	p = clamp(p, 0.01, 0.99)
	var out models.ProbPair
	out[side] = p
	out[side.Other()] = 1 - p
	return out
}

// PredictStatistical votes by class frequency over the trailing window,
// with a mean-reversion prior: deviations beyond 0.15 from even odds
// are pulled 10% back toward 0.5.
func PredictStatistical(buf *Buffer) models.ProbPair {
	window := buf.Window(statWindow)
	if len(window) == 0 {
		return models.Neutral()
	}
	oddCount := 0
	for _, o := range window {
		if o.Parity == models.Odd {
			oddCount++
		}
	}
	p := float64(oddCount) / float64(len(window))
	if math.Abs(p-0.5) > 0.15 {
		p = 0.5 + (p-0.5)*0.9
	}
	return pairFor(models.Odd, p)
}

// PredictMarkov conditions first-order transition frequencies on the
// current class.
func PredictMarkov(buf *Buffer) models.ProbPair {
	window := buf.Window(markovWindow)
	if len(window) < 2 {
		return models.Neutral()
	}
	current := window[len(window)-1].Parity
	toOdd, total := 0, 0
	for i := 1; i < len(window); i++ {
		if window[i-1].Parity != current {
			continue
		}
		total++
		if window[i].Parity == models.Odd {
			toOdd++
		}
	}
	if total == 0 {
		return models.Neutral()
	}
	return pairFor(models.Odd, float64(toOdd)/float64(total))
}

// PredictTrend maps the compressed trend score onto the odd side, with
// a volatility adjustment shrinking or boosting the deviation.
func PredictTrend(f Features) models.ProbPair {
	dev := f.TrendScore
	var adj float64
	switch {
	case f.Volatility > 0.6:
		adj = -0.08
	case f.Volatility < 0.3:
		adj = 0.05
	}
	if dev > 0 {
		dev += adj
	} else if dev < 0 {
		dev -= adj
	}
	return pairFor(models.Odd, 0.5+dev)
}

// PredictQ blends the shallow table (keyed by the last parity) with the
// deep bucketed table, 40/60. Table values can drift outside [0,1]
// (the update rule is unclamped); they are clamped here, at the point
// of use.
func PredictQ(buf *Buffer, f Features, shallow *QTable, deep *DeepQTable) models.ProbPair {
	last, ok := buf.Last()
	if !ok {
		return models.Neutral()
	}
	bucket := DeepBucket(VolLevel(f.Volatility), TrendLevel(f.TrendScore), StreakLevel(f.StreakLen))
	var blended [2]float64
	for a := 0; a < 2; a++ {
		blended[a] = 0.4*clamp01(shallow.V[last.Parity][a]) + 0.6*clamp01(deep.V[bucket][a])
	}
	sum := blended[0] + blended[1]
	if sum == 0 {
		return models.Neutral()
	}
	return pairFor(models.Odd, blended[models.Odd]/sum)
}

// PredictStreak bets against runs: once a streak exceeds 3 its own
// class is penalized logarithmically, offset by short-term momentum.
func PredictStreak(f Features) models.ProbPair {
	if f.StreakLen <= 3 {
		return models.Neutral()
	}
	penalty := math.Log(float64(f.StreakLen-2)) * 0.12
	p := 0.5 - penalty + f.Momentum*0.08
	return pairFor(f.StreakSide, p)
}

// PredictPattern consults the pattern memory for the current 5-parity
// tail. A sufficiently similar stored pattern votes for its recorded
// outcome in proportion to similarity and historical success.
func PredictPattern(buf *Buffer, patterns *PatternMemory) models.ProbPair {
	tail, ok := buf.Tail(patternLength)
	if !ok {
		return models.Neutral()
	}
	var seq [patternLength]models.Parity
	copy(seq[:], tail)
	entry, sim, ok := patterns.BestMatch(seq)
	if !ok {
		return models.Neutral()
	}
	return pairFor(entry.Predicted, 0.5+sim*entry.SuccessRate*0.3)
}

// PredictEntropy biases against persistence in near-random regimes and
// toward it in ordered ones. A window shorter than the entropy feature
// needs is no information, not low entropy, so it stays neutral; a true
// zero (one constant digit) gets the full persistence bias.
func PredictEntropy(buf *Buffer, f Features) models.ProbPair {
	if buf.Len() < entropyWindow {
		return models.Neutral()
	}
	last, ok := buf.Last()
	if !ok {
		return models.Neutral()
	}
	switch {
	case f.Entropy > 0.9:
		return pairFor(last.Parity, 0.45)
	case f.Entropy < 0.7:
		return pairFor(last.Parity, 0.58)
	default:
		return models.Neutral()
	}
}

// PredictCyclic repeats the class observed exactly one period back,
// weighted by cycle strength, when a strong cycle is active.
func PredictCyclic(buf *Buffer, f Features) models.ProbPair {
	if !f.HasCycle || f.CycleStrength <= cycleStrong || f.CyclePeriod <= 0 {
		return models.Neutral()
	}
	obs := buf.Window(f.CyclePeriod + 1)
	if len(obs) < f.CyclePeriod+1 {
		return models.Neutral()
	}
	expected := obs[len(obs)-1-f.CyclePeriod].Parity
	return pairFor(expected, 0.5+f.CycleStrength*0.2)
}
