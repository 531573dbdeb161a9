package engine

import (
	"math"
	"testing"

	"DigitPulse/internal/domain/models"
)

func obsFromDigits(digits []int) []models.Observation {
	out := make([]models.Observation, len(digits))
	for i, d := range digits {
		out[i] = models.Observation{
			Seq:    int64(i + 1),
			Price:  100 + float64(d)/100,
			Digit:  d,
			Parity: models.Parity(d % 2),
		}
	}
	return out
}

func TestEntropyUniform(t *testing.T) {
	digits := make([]int, entropyWindow)
	for i := range digits {
		digits[i] = i % 10
	}
	e := Entropy(obsFromDigits(digits))
	if math.Abs(e-1.0) > 1e-9 {
		t.Fatalf("uniform 10-way distribution must give entropy 1, got %v", e)
	}
}

func TestEntropyConstant(t *testing.T) {
	digits := make([]int, entropyWindow)
	for i := range digits {
		digits[i] = 7
	}
	if e := Entropy(obsFromDigits(digits)); e != 0 {
		t.Fatalf("constant digit must give entropy 0, got %v", e)
	}
}

func TestEntropyBounds(t *testing.T) {
	cases := [][]int{
		{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 0, 0},
		{1, 3, 1, 3, 1, 3, 1, 3, 1, 3, 1, 3, 1, 3, 1, 3, 1, 3, 1, 3},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0},
	}
	for i, digits := range cases {
		e := Entropy(obsFromDigits(digits))
		if e < 0 || e > 1 {
			t.Fatalf("case %d: entropy %v out of [0,1]", i, e)
		}
	}
}

func TestEntropyInsufficientHistory(t *testing.T) {
	if e := Entropy(obsFromDigits([]int{1, 2, 3})); e != 0 {
		t.Fatalf("short window must give entropy 0, got %v", e)
	}
}

func TestDetectCyclePeriodTwo(t *testing.T) {
	digits := make([]int, 60)
	for i := range digits {
		digits[i] = (i % 2) + 1 // alternating odd/even
	}
	period, strength, has := DetectCycle(obsFromDigits(digits))
	if !has {
		t.Fatalf("expected a cycle")
	}
	if period != 2 {
		t.Fatalf("expected period 2, got %d", period)
	}
	if strength != 1.0 {
		t.Fatalf("expected strength 1.0, got %v", strength)
	}
}

func TestDetectCycleInsufficientHistory(t *testing.T) {
	digits := make([]int, 3*maxCyclePeriod-1)
	if _, _, has := DetectCycle(obsFromDigits(digits)); has {
		t.Fatalf("short history must not declare a cycle")
	}
}

func TestStreak(t *testing.T) {
	obs := obsFromDigits([]int{2, 4, 1, 3, 5})
	length, side := Streak(obs)
	if length != 3 || side != models.Odd {
		t.Fatalf("expected odd streak of 3, got %v of %d", side, length)
	}
}

func TestVolatilityConstantPrice(t *testing.T) {
	obs := make([]models.Observation, 30)
	for i := range obs {
		obs[i] = models.Observation{Seq: int64(i + 1), Price: 100}
	}
	raw, norm := Volatility(obs)
	if raw != 0 || norm != 0 {
		t.Fatalf("constant price must give zero volatility, got raw=%v norm=%v", raw, norm)
	}
}

func TestVolLevels(t *testing.T) {
	if VolLevel(0.1) != 0 || VolLevel(0.45) != 1 || VolLevel(0.9) != 2 {
		t.Fatalf("volatility bucketing wrong")
	}
	if TrendLevel(-0.05) != 0 || TrendLevel(0) != 1 || TrendLevel(0.05) != 2 {
		t.Fatalf("trend bucketing wrong")
	}
	if StreakLevel(2) != 0 || StreakLevel(4) != 1 || StreakLevel(7) != 2 {
		t.Fatalf("streak bucketing wrong")
	}
	if EntropyLevel(0.5) != 0 || EntropyLevel(0.8) != 1 || EntropyLevel(0.95) != 2 {
		t.Fatalf("entropy bucketing wrong")
	}
}
