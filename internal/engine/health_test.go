package engine

import (
	"math"
	"testing"

	"DigitPulse/internal/domain/models"
)

func resolvedRecords(n int, winEvery int, conf float64) []models.TradeRecord {
	out := make([]models.TradeRecord, n)
	for i := range out {
		out[i] = models.TradeRecord{
			Seq:        int64(i + 1),
			Confidence: conf,
			Resolved:   true,
			Won:        winEvery > 0 && i%winEvery == 0,
		}
	}
	return out
}

func TestHealthDefaultsWithoutHistory(t *testing.T) {
	if h := HealthScore(resolvedRecords(healthMinTrade-1, 2, 0.6)); h != 1.0 {
		t.Fatalf("expected 1.0 with insufficient trades, got %v", h)
	}
}

func TestHealthPenalizesWinRateDrift(t *testing.T) {
	balanced := HealthScore(resolvedRecords(20, 2, 0.6))
	losing := HealthScore(resolvedRecords(20, 0, 0.6))
	if losing >= balanced {
		t.Fatalf("all-loss run must score below a balanced run: %v vs %v", losing, balanced)
	}
	if losing < healthFloor {
		t.Fatalf("health below floor: %v", losing)
	}
}

func TestAdaptiveThresholdClamps(t *testing.T) {
	if got := AdaptiveThreshold(0.5, 1.0, 0.5); got != thresholdMin {
		t.Fatalf("expected floor %v, got %v", thresholdMin, got)
	}
	if got := AdaptiveThreshold(0.74, 0.4, 0.95); got != thresholdMax {
		t.Fatalf("expected ceiling %v, got %v", thresholdMax, got)
	}
	mid := AdaptiveThreshold(0.6, 0.5, 0.5)
	if math.Abs(mid-0.68) > 1e-9 {
		t.Fatalf("low health must add 0.08: got %v", mid)
	}
}

func TestSelectMode(t *testing.T) {
	if SelectMode(0.95) != models.ModeExploration {
		t.Fatalf("high entropy must select exploration")
	}
	if SelectMode(0.5) != models.ModePrecision {
		t.Fatalf("low entropy must select precision")
	}
	if SelectMode(0.8) != models.ModeBalanced {
		t.Fatalf("middling entropy must select balanced")
	}
}

func TestModeEpsilon(t *testing.T) {
	if ModeEpsilon(models.ModePrecision, 0.05) != 0 {
		t.Fatalf("precision must never explore")
	}
	if ModeEpsilon(models.ModeExploration, 0.05) != 0.1 {
		t.Fatalf("exploration epsilon must be 0.1")
	}
	if ModeEpsilon(models.ModeBalanced, 0.05) != 0.05 {
		t.Fatalf("balanced must use the base rate")
	}
}

func TestTuneLearningRate(t *testing.T) {
	base := 0.3
	boosted := TuneLearningRate(base, base, 0.99, 0.4)
	if boosted <= base {
		t.Fatalf("losing run must raise the rate, got %v", boosted)
	}
	capped := base
	for i := 0; i < 100; i++ {
		capped = TuneLearningRate(capped, base, 0.99, 0.4)
	}
	if capped > base*lrBoostCap+1e-12 {
		t.Fatalf("rate exceeded the boost ceiling: %v", capped)
	}
	decayed := TuneLearningRate(base, base, 0.5, 0.6)
	if decayed >= base {
		t.Fatalf("winning run must decay the rate, got %v", decayed)
	}
	if floor := TuneLearningRate(0.011, base, 0.1, 0.6); floor != lrFloor {
		t.Fatalf("rate must floor at %v, got %v", lrFloor, floor)
	}
}
