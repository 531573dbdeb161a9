package engine

import (
	"math"

	"DigitPulse/internal/domain/models"
)

const (
	healthWindow   = 20
	healthMinTrade = 10
	healthFloor    = 0.3
	thresholdMin   = 0.52
	thresholdMax   = 0.75
	lrFloor        = 0.01
	lrBoostCap     = 1.2 // ceiling as a multiple of the base rate

	entropyExplore = 0.9
	entropyPrecise = 0.7
)

// HealthScore diagnoses recent prediction stability from resolved
// trade records: confidence variance, win-rate drift from even odds,
// and how lopsided the model weights were. Requires healthMinTrade
// resolved trades; before that the engine assumes it is healthy.
func HealthScore(records []models.TradeRecord) float64 {
	recent := resolvedTail(records, healthWindow)
	if len(recent) < healthMinTrade {
		return 1.0
	}

	var confSum, spreadSum float64
	wins := 0
	for _, r := range recent {
		confSum += r.Confidence
		spreadSum += r.WeightSpread
		if r.Won {
			wins++
		}
	}
	n := float64(len(recent))
	confMean := confSum / n

	var confVar float64
	for _, r := range recent {
		d := r.Confidence - confMean
		confVar += d * d
	}
	confVar /= n

	winRate := float64(wins) / n
	avgSpread := spreadSum / n

	score := 1 - 2*confVar - 1.5*math.Abs(winRate-0.5) - 0.5*avgSpread
	return math.Max(healthFloor, score)
}

// RecentWinRate is the win fraction over the resolved tail, 0.5 when
// fewer than healthMinTrade trades have resolved.
func RecentWinRate(records []models.TradeRecord) float64 {
	recent := resolvedTail(records, healthWindow)
	if len(recent) < healthMinTrade {
		return 0.5
	}
	wins := 0
	for _, r := range recent {
		if r.Won {
			wins++
		}
	}
	return float64(wins) / float64(len(recent))
}

func resolvedTail(records []models.TradeRecord, n int) []models.TradeRecord {
	out := make([]models.TradeRecord, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		if records[i].Resolved {
			out = append(out, records[i])
		}
	}
	return out
}

// AdaptiveThreshold adjusts the base confidence bar by health and by
// the current entropy regime, then clamps into its working band.
func AdaptiveThreshold(base, health, entropy float64) float64 {
	t := base
	if health < 0.6 {
		t += 0.08
	} else if health > 0.85 {
		t -= 0.03
	}
	if entropy > entropyExplore {
		t += 0.05
	}
	return clamp(t, thresholdMin, thresholdMax)
}

// SelectMode picks the operating mode from the entropy regime.
func SelectMode(entropy float64) models.Mode {
	switch {
	case entropy > entropyExplore:
		return models.ModeExploration
	case entropy < entropyPrecise:
		return models.ModePrecision
	default:
		return models.ModeBalanced
	}
}

// ModeEpsilon is the exploration rate for a mode. Precision never
// explores; exploration overrides a tenth of decisions.
func ModeEpsilon(mode models.Mode, baseEpsilon float64) float64 {
	switch mode {
	case models.ModePrecision:
		return 0
	case models.ModeExploration:
		return 0.1
	default:
		return baseEpsilon
	}
}

// TuneLearningRate nudges the learning rate against the recent win
// rate: raise it when losing (the tables are stale), decay it when
// winning (they have converged). Bounded by the base-rate ceiling and
// the floor.
func TuneLearningRate(current, base, decay, winRate float64) float64 {
	switch {
	case winRate < 0.45:
		lr := current * 1.05
		if cap := base * lrBoostCap; lr > cap {
			lr = cap
		}
		return lr
	case winRate > 0.55:
		lr := current * decay
		if lr < lrFloor {
			lr = lrFloor
		}
		return lr
	default:
		return current
	}
}

// DecayLearningRate applies the per-update multiplicative decay.
func DecayLearningRate(current, decay float64) float64 {
	lr := current * decay
	if lr < lrFloor {
		lr = lrFloor
	}
	return lr
}
