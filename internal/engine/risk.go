package engine

import (
	"math"

	"DigitPulse/internal/domain/models"
)

const (
	stakeCapMultiple     = 10
	aggressiveConfidence = 0.65
)

// SelectStrategy looks up the best-scoring variant for the current
// volatility and entropy regime. Untouched buckets resolve to balanced
// through the table's uniform initialization.
func SelectStrategy(meta *MetaQTable, volatility, entropy float64) (models.Strategy, int) {
	bucket := MetaBucket(VolLevel(volatility), EntropyLevel(entropy))
	return meta.Best(bucket), bucket
}

// StrategyMultiplier scales the stake by variant. Aggressive only pays
// off above its confidence gate; below it the variant behaves as
// balanced.
func StrategyMultiplier(s models.Strategy, confidence float64) float64 {
	switch s {
	case models.Conservative:
		return 0.75
	case models.Aggressive:
		if confidence > aggressiveConfidence {
			return 1.25
		}
		return 1.0
	default:
		return 1.0
	}
}

// Stake computes the martingale-progressed, strategy-scaled stake,
// rounded to cents and capped at ten times the base.
func Stake(baseStake, martingale float64, consecutiveLosses int, strategy models.Strategy, confidence float64) float64 {
	stake := baseStake * math.Pow(martingale, float64(consecutiveLosses)) * StrategyMultiplier(strategy, confidence)
	stake = math.Round(stake*100) / 100
	if cap := baseStake * stakeCapMultiple; stake > cap {
		stake = cap
	}
	return stake
}
