package engine

import (
	"math"

	"DigitPulse/internal/domain/models"
)

// Window sizes and gates shared by the extractors and predictors.
const (
	emaShortWindow = 10
	emaLongWindow  = 50
	entropyWindow  = 20
	momentumWindow = 10
	statWindow     = 20
	markovWindow   = 50
	maxCyclePeriod = 10
	cycleGate      = 0.65 // a cycle exists above this score
	cycleStrong    = 0.70 // and influences predictions above this one
)

// Features is everything the models and bucket tables derive from the
// buffer for one observation.
type Features struct {
	Volatility    float64 // normalized to [0,1]
	RawVolatility float64 // price units, backs the anomaly test
	TrendScore    float64 // tanh-compressed, ±0.1
	StreakLen     int
	StreakSide    models.Parity
	Momentum      float64
	Entropy       float64
	CyclePeriod   int
	CycleStrength float64
	HasCycle      bool
}

// Extract computes all features over the buffered observations.
func Extract(obs []models.Observation) Features {
	f := Features{}
	f.RawVolatility, f.Volatility = Volatility(obs)
	f.TrendScore = TrendScore(obs)
	f.StreakLen, f.StreakSide = Streak(obs)
	f.Momentum = Momentum(obs, f.StreakSide)
	f.Entropy = Entropy(obs)
	f.CyclePeriod, f.CycleStrength, f.HasCycle = DetectCycle(obs)
	return f
}

// EMA computes an exponential moving average with period n over prices.
func EMA(obs []models.Observation, n int) float64 {
	if len(obs) == 0 {
		return 0
	}
	k := 2.0 / (float64(n) + 1)
	ema := obs[0].Price
	for _, o := range obs[1:] {
		ema = o.Price*k + ema*(1-k)
	}
	return ema
}

// Volatility returns the exponentially-weighted standard deviation of
// price around the window EMA (weight exp(-0.1·age), newest age 0).
// The raw value is in price units; the normalized value is the raw
// deviation relative to the EMA, scaled into [0,1].
func Volatility(obs []models.Observation) (raw, normalized float64) {
	n := len(obs)
	if n < 2 {
		return 0, 0
	}
	ema := EMA(obs, n)
	var sum, wsum float64
	for i, o := range obs {
		age := float64(n - 1 - i)
		w := math.Exp(-0.1 * age)
		d := o.Price - ema
		sum += w * d * d
		wsum += w
	}
	if wsum == 0 {
		return 0, 0
	}
	raw = math.Sqrt(sum / wsum)
	if ema != 0 {
		normalized = clamp01(raw / math.Abs(ema) * 1000)
	}
	return raw, normalized
}

// TrendScore compares the short and long EMA and compresses the
// relative divergence via tanh so a runaway trend cannot dominate.
func TrendScore(obs []models.Observation) float64 {
	if len(obs) < emaLongWindow {
		return 0
	}
	emaShort := EMA(obs[len(obs)-emaShortWindow:], emaShortWindow)
	emaLong := EMA(obs[len(obs)-emaLongWindow:], emaLongWindow)
	if emaLong == 0 {
		return 0
	}
	strength := (emaShort - emaLong) / emaLong
	return math.Tanh(strength*10) * 0.1
}

// Streak returns the length of the run of identical parity at the
// buffer tail and which side it is on.
func Streak(obs []models.Observation) (int, models.Parity) {
	n := len(obs)
	if n == 0 {
		return 0, models.Even
	}
	side := obs[n-1].Parity
	length := 1
	for i := n - 2; i >= 0 && obs[i].Parity == side; i-- {
		length++
	}
	return length, side
}

// Momentum is the fraction of the given side in the last 10
// observations, centered on zero.
func Momentum(obs []models.Observation, side models.Parity) float64 {
	n := len(obs)
	if n == 0 {
		return 0
	}
	w := momentumWindow
	if n < w {
		w = n
	}
	count := 0
	for _, o := range obs[n-w:] {
		if o.Parity == side {
			count++
		}
	}
	return float64(count)/float64(w) - 0.5
}

// Entropy is the normalized Shannon entropy of the 10-way digit
// distribution over the trailing entropy window. A uniform
// distribution yields 1, a constant digit 0. Returns 0 when fewer
// than entropyWindow observations exist.
func Entropy(obs []models.Observation) float64 {
	if len(obs) < entropyWindow {
		return 0
	}
	window := obs[len(obs)-entropyWindow:]
	var counts [10]int
	for _, o := range window {
		counts[o.Digit]++
	}
	total := float64(len(window))
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	return h / math.Log2(10)
}

// DetectCycle scores every candidate period in [2, maxCyclePeriod] by
// the fraction of positions whose parity repeats exactly one period
// back, over the trailing 3×maxCyclePeriod observations. The best
// period wins; a cycle is declared above cycleGate.
func DetectCycle(obs []models.Observation) (period int, strength float64, has bool) {
	span := 3 * maxCyclePeriod
	if len(obs) < span {
		return 0, 0, false
	}
	window := obs[len(obs)-span:]
	bestPeriod, bestScore := 0, 0.0
	for p := 2; p <= maxCyclePeriod; p++ {
		matches, total := 0, 0
		for i := p; i < len(window); i++ {
			total++
			if window[i].Parity == window[i-p].Parity {
				matches++
			}
		}
		if total == 0 {
			continue
		}
		score := float64(matches) / float64(total)
		if score > bestScore {
			bestScore = score
			bestPeriod = p
		}
	}
	return bestPeriod, bestScore, bestScore > cycleGate
}

// --- bucket levels for the arena-indexed tables ---

// VolLevel bins normalized volatility into {low, medium, high}.
func VolLevel(v float64) int {
	switch {
	case v < 0.3:
		return 0
	case v < 0.6:
		return 1
	default:
		return 2
	}
}

// TrendLevel bins the compressed trend score into {down, flat, up}.
func TrendLevel(score float64) int {
	switch {
	case score < -0.01:
		return 0
	case score > 0.01:
		return 2
	default:
		return 1
	}
}

// StreakLevel bins streak length into {short, medium, long}.
func StreakLevel(length int) int {
	switch {
	case length <= 2:
		return 0
	case length <= 5:
		return 1
	default:
		return 2
	}
}

// EntropyLevel bins normalized entropy into {ordered, mixed, random}.
func EntropyLevel(e float64) int {
	switch {
	case e < 0.7:
		return 0
	case e < 0.9:
		return 1
	default:
		return 2
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
