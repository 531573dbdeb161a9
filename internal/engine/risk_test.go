package engine

import (
	"testing"

	"DigitPulse/internal/domain/models"
)

func TestStakeCapped(t *testing.T) {
	for _, losses := range []int{0, 3, 10, 40} {
		stake := Stake(1.0, 2.0, losses, models.Aggressive, 0.9)
		if stake > 10.0 {
			t.Fatalf("losses=%d: stake %v exceeds cap", losses, stake)
		}
	}
}

func TestStakeMartingaleProgression(t *testing.T) {
	if got := Stake(1.0, 2.0, 2, models.Balanced, 0.6); got != 4.0 {
		t.Fatalf("expected 4.0 after two losses, got %v", got)
	}
}

func TestStrategyMultiplier(t *testing.T) {
	if StrategyMultiplier(models.Conservative, 0.9) != 0.75 {
		t.Fatalf("conservative multiplier wrong")
	}
	if StrategyMultiplier(models.Aggressive, 0.7) != 1.25 {
		t.Fatalf("confident aggressive multiplier wrong")
	}
	if StrategyMultiplier(models.Aggressive, 0.6) != 1.0 {
		t.Fatalf("unconfident aggressive must fall back to 1.0")
	}
	if StrategyMultiplier(models.Balanced, 0.9) != 1.0 {
		t.Fatalf("balanced multiplier wrong")
	}
}

func TestStakeRounding(t *testing.T) {
	if got := Stake(1.0, 1.5, 1, models.Conservative, 0.6); got != 1.13 {
		t.Fatalf("expected 1.13, got %v", got)
	}
}
