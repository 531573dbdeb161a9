package engine

import (
	"math"
	"testing"

	"DigitPulse/internal/domain/models"
)

func TestWeightsSumAndFloor(t *testing.T) {
	var stats [NumModels]models.ModelStats
	stats[0] = models.ModelStats{Correct: 19, Total: 20}
	stats[1] = models.ModelStats{Correct: 1, Total: 20}
	w := Weights(stats)
	sum := 0.0
	for i, v := range w {
		if v < weightFloor-1e-12 {
			t.Fatalf("weight %d below floor: %v", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("weights sum to %v", sum)
	}
}

func TestWeightsFloorRedistributionKeepsSum(t *testing.T) {
	var stats [NumModels]models.ModelStats
	// One near-perfect model against seven hopeless ones pins every
	// laggard at the floor; the dominant model carries the rest.
	stats[0] = models.ModelStats{Correct: 20, Total: 20}
	for i := 1; i < NumModels; i++ {
		stats[i] = models.ModelStats{Correct: 1, Total: 20}
	}
	w := Weights(stats)
	sum := 0.0
	for i, v := range w {
		if v < weightFloor-1e-12 {
			t.Fatalf("weight %d below floor: %v", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("weights sum to %v", sum)
	}
	want := 1 - float64(NumModels-1)*weightFloor
	if math.Abs(w[0]-want) > 1e-9 {
		t.Fatalf("dominant model must carry the unpinned mass %v, got %v", want, w[0])
	}
}

func TestPerfectModelOutweighsMediocre(t *testing.T) {
	var stats [NumModels]models.ModelStats
	stats[0] = models.ModelStats{Correct: 10, Total: 10}
	for i := 1; i < NumModels; i++ {
		stats[i] = models.ModelStats{Correct: 5, Total: 10}
	}
	w := Weights(stats)
	for i := 1; i < NumModels; i++ {
		if w[0] <= w[i] {
			t.Fatalf("perfect model weight %v not above model %d weight %v", w[0], i, w[i])
		}
	}
}

func TestFuseNormalized(t *testing.T) {
	var preds [NumModels]models.ProbPair
	for i := range preds {
		preds[i] = pairFor(models.Odd, 0.4+float64(i)*0.05)
	}
	var stats [NumModels]models.ModelStats
	fused := Fuse(preds, Weights(stats))
	sum := fused[0] + fused[1]
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("fused probabilities sum to %v", sum)
	}
	if fused[0] < 0 || fused[0] > 1 || fused[1] < 0 || fused[1] > 1 {
		t.Fatalf("fused probabilities out of range: %v", fused)
	}
}

func TestConsensusRange(t *testing.T) {
	var preds [NumModels]models.ProbPair
	for i := range preds {
		side := models.Odd
		if i%2 == 0 {
			side = models.Even
		}
		preds[i] = pairFor(side, 0.7)
	}
	score, _ := Consensus(preds)
	if score < 0.5 || score > 1 {
		t.Fatalf("split votes: consensus %v out of [0.5,1]", score)
	}

	for i := range preds {
		preds[i] = pairFor(models.Odd, 0.7)
	}
	score, majority := Consensus(preds)
	if score != 1 || majority != models.Odd {
		t.Fatalf("unanimous votes: got score %v majority %v", score, majority)
	}
}

func TestContextBiasOnlyFromWins(t *testing.T) {
	fused := models.Neutral()
	lost := models.ContextEntry{Side: models.Odd, Won: false}
	if got := ApplyContextBias(fused, lost, 0.9); got != fused {
		t.Fatalf("losing context must not bias, got %v", got)
	}
	won := models.ContextEntry{Side: models.Odd, Won: true}
	got := ApplyContextBias(fused, won, 0.9)
	if got.Of(models.Odd) <= 0.5 {
		t.Fatalf("winning odd context must raise oddProb, got %v", got.Of(models.Odd))
	}
	if math.Abs(got[0]+got[1]-1) > 1e-9 {
		t.Fatalf("biased pair not normalized: %v", got)
	}
}

func TestIntegrityPullTowardNeutral(t *testing.T) {
	fused := pairFor(models.Odd, 0.8)
	pulled := ApplyIntegrityPull(fused, 0.5)
	if pulled.Of(models.Odd) >= fused.Of(models.Odd) {
		t.Fatalf("low integrity must pull toward 0.5: %v vs %v", pulled.Of(models.Odd), fused.Of(models.Odd))
	}
	if same := ApplyIntegrityPull(fused, 0.95); same != fused {
		t.Fatalf("high integrity must not change the pair")
	}
}
