package models

import "time"

// ProbPair is a probability distribution over {even, odd}, indexed by Parity.
type ProbPair [2]float64

// Of returns the probability assigned to the given class.
func (p ProbPair) Of(side Parity) float64 { return p[side] }

// Favored returns the class with the higher probability.
func (p ProbPair) Favored() Parity {
	if p[Odd] > p[Even] {
		return Odd
	}
	return Even
}

// Max returns the larger of the two probabilities.
func (p ProbPair) Max() float64 {
	if p[Odd] > p[Even] {
		return p[Odd]
	}
	return p[Even]
}

// Neutral is the no-information prior.
func Neutral() ProbPair { return ProbPair{0.5, 0.5} }

// Strategy is the meta-selected risk variant.
type Strategy int

const (
	Conservative Strategy = iota
	Balanced
	Aggressive
	NumStrategies = 3
)

func (s Strategy) String() string {
	switch s {
	case Conservative:
		return "conservative"
	case Aggressive:
		return "aggressive"
	default:
		return "balanced"
	}
}

// Mode is the engine operating mode chosen by the health controller.
type Mode int

const (
	ModeBalanced Mode = iota
	ModePrecision
	ModeExploration
)

func (m Mode) String() string {
	switch m {
	case ModePrecision:
		return "precision"
	case ModeExploration:
		return "exploration"
	default:
		return "balanced"
	}
}

// Prediction is the fused output of the model ensemble for one observation.
type Prediction struct {
	Probs      ProbPair `json:"probs"`
	Side       Parity   `json:"side"`
	Confidence float64  `json:"confidence"`
	Consensus  float64  `json:"consensus"`
	Exploring  bool     `json:"exploring"`
}

// TradeCommand is what the engine asks the venue to do.
type TradeCommand struct {
	Side          Parity  `json:"side"`
	Stake         float64 `json:"stake"`
	DurationTicks int     `json:"duration_ticks"`
	Symbol        string  `json:"symbol"`
}

// TradeRecord is one decision and, once resolved, its outcome. It feeds
// both the learning updates and the health diagnostics.
type TradeRecord struct {
	Seq          int64     `json:"seq"`
	Time         time.Time `json:"time"`
	Side         Parity    `json:"side"`
	Confidence   float64   `json:"confidence"`
	Consensus    float64   `json:"consensus"`
	Stake        float64   `json:"stake"`
	Strategy     Strategy  `json:"strategy"`
	Mode         Mode      `json:"mode"`
	Volatility   float64   `json:"volatility"`
	Entropy      float64   `json:"entropy"`
	StreakLen    int       `json:"streak_len"`
	WeightSpread float64   `json:"weight_spread"`
	Exploring    bool      `json:"exploring"`
	Resolved     bool      `json:"resolved"`
	Won          bool      `json:"won"`
	Profit       float64   `json:"profit"`
}
