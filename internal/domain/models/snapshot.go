package models

import "time"

// ModelStats is one predictor's lifetime accuracy counters. Never reset;
// read to derive adaptive fusion weights.
type ModelStats struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Accuracy returns correct/total, or 0.5 when there is no history yet.
func (s ModelStats) Accuracy() float64 {
	if s.Total == 0 {
		return 0.5
	}
	return float64(s.Correct) / float64(s.Total)
}

// PatternEntry records a discrete parity sequence and its realized outcomes.
type PatternEntry struct {
	Sequence    [5]Parity `json:"sequence"`
	Predicted   Parity    `json:"predicted"`
	Occurrences int       `json:"occurrences"`
	Successes   int       `json:"successes"`
	SuccessRate float64   `json:"success_rate"`
}

// Score is the eviction priority; low scores are evicted first.
func (e PatternEntry) Score() float64 {
	return e.SuccessRate * float64(e.Occurrences)
}

// ContextEntry is one feature snapshot taken at decision time, matched
// later by similarity to bias fused probabilities.
type ContextEntry struct {
	Volatility float64 `json:"volatility"`
	Entropy    float64 `json:"entropy"`
	StreakLen  int     `json:"streak_len"`
	Side       Parity  `json:"side"`
	Won        bool    `json:"won"`
}

// EngineSnapshot is the engine state exposed to the status API and
// flushed to the KV store.
type EngineSnapshot struct {
	Time           time.Time  `json:"time"`
	Mode           string     `json:"mode"`
	Health         float64    `json:"health"`
	Integrity      float64    `json:"integrity"`
	Threshold      float64    `json:"threshold"`
	LearningRate   float64    `json:"learning_rate"`
	SmoothedConf   float64    `json:"smoothed_confidence"`
	Wins           int        `json:"wins"`
	Losses         int        `json:"losses"`
	ConsecLosses   int        `json:"consecutive_losses"`
	Observations   int64      `json:"observations"`
	PendingTrade   bool       `json:"pending_trade"`
	CooldownActive bool       `json:"cooldown_active"`
	Weights        []float64  `json:"weights"`
	ModelAccuracy  []float64  `json:"model_accuracy"`
	PatternCount   int        `json:"pattern_count"`
	ContextCount   int        `json:"context_count"`
}
