package engine

import "DigitPulse/internal/domain/models"

const (
	weightFloor   = 0.05
	consensusGate = 0.6
	contextWeight = 0.1
	cycleBlend    = 0.15
	integrityGate = 0.9
)

// Weights derives per-model fusion weights from lifetime accuracy.
// Squaring widens the gap between good and mediocre models; the floor
// keeps every model minimally heard. Result sums to 1 with every
// weight at or above the floor.
func Weights(stats [NumModels]models.ModelStats) [NumModels]float64 {
	var w [NumModels]float64
	sum := 0.0
	for i, s := range stats {
		acc := s.Accuracy()
		w[i] = acc * acc
		sum += w[i]
	}
	if sum <= 0 {
		for i := range w {
			w[i] = 1.0 / NumModels
		}
		return w
	}
	for i := range w {
		w[i] /= sum
	}

	// Pin underweight models at the floor and renormalize only the
	// remaining mass over the rest. Renormalizing can push further
	// models under the floor, so repeat until the pinned set is stable.
	var pinned [NumModels]bool
	for {
		free, k := 0.0, 0
		for i := range w {
			if pinned[i] {
				k++
			} else {
				free += w[i]
			}
		}
		target := 1 - weightFloor*float64(k)
		changed := false
		for i := range w {
			if pinned[i] {
				w[i] = weightFloor
				continue
			}
			w[i] = w[i] / free * target
			if w[i] < weightFloor {
				pinned[i] = true
				changed = true
			}
		}
		if !changed {
			return w
		}
	}
}

// WeightSpread is the gap between the strongest and weakest model
// weights, one of the health score inputs.
func WeightSpread(w [NumModels]float64) float64 {
	lo, hi := w[0], w[0]
	for _, v := range w[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// Fuse combines the model outputs into one probability pair using the
// adaptive weights, then normalizes.
func Fuse(preds [NumModels]models.ProbPair, w [NumModels]float64) models.ProbPair {
	var fused models.ProbPair
	for c := 0; c < 2; c++ {
		p := 0.5
		for m := 0; m < NumModels; m++ {
			p += w[m] * preds[m][c]
		}
		fused[c] = p
	}
	return normalize(fused)
}

// Consensus is the fraction of discrete model votes agreeing with the
// majority side. With an even model count it lands in [0.5, 1].
func Consensus(preds [NumModels]models.ProbPair) (score float64, majority models.Parity) {
	oddVotes := 0
	for _, p := range preds {
		if p.Favored() == models.Odd {
			oddVotes++
		}
	}
	evenVotes := NumModels - oddVotes
	majority = models.Odd
	agree := oddVotes
	if evenVotes > oddVotes {
		majority = models.Even
		agree = evenVotes
	}
	return float64(agree) / NumModels, majority
}

// HasConsensus reports whether the agreement fraction clears the gate.
func HasConsensus(score float64) bool { return score >= consensusGate }

// ApplyContextBias nudges the fused pair toward the side a similar
// past context won with. Losing contexts contribute nothing.
func ApplyContextBias(fused models.ProbPair, ctx models.ContextEntry, similarity float64) models.ProbPair {
	if !ctx.Won {
		return fused
	}
	bias := contextWeight * similarity
	fused[ctx.Side] += bias
	fused[ctx.Side.Other()] -= bias
	return normalize(fused)
}

// ApplyCycleBlend mixes the fused pair 85/15 with the cyclic model's
// output while a strong cycle is active.
func ApplyCycleBlend(fused, cyclic models.ProbPair) models.ProbPair {
	for c := 0; c < 2; c++ {
		fused[c] = fused[c]*(1-cycleBlend) + cyclic[c]*cycleBlend
	}
	return normalize(fused)
}

// ApplyIntegrityPull drags the fused pair toward even odds when recent
// anomalies have eroded trust in the data.
func ApplyIntegrityPull(fused models.ProbPair, integrity float64) models.ProbPair {
	if integrity >= integrityGate {
		return fused
	}
	pull := 1 - integrity
	for c := 0; c < 2; c++ {
		fused[c] = fused[c]*(1-pull) + 0.5*pull
	}
	return normalize(fused)
}

func normalize(p models.ProbPair) models.ProbPair {
	sum := p[0] + p[1]
	if sum <= 0 {
		return models.Neutral()
	}
	p[0] /= sum
	p[1] /= sum
	return p
}
