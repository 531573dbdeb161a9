package engine

import (
	"math"

	"DigitPulse/internal/domain/models"
)

const (
	patternLength     = 5
	patternMinMatch   = 0.8 // ≥4 of 5 positions
	contextMinSim     = 0.7
	contextTrimFactor = 0.6
)

// PatternMemory stores short discrete parity sequences and their
// realized outcomes, bounded by capacity. Eviction is incremental: the
// entry with the lowest successRate×occurrences score is replaced on
// insert, so no sort pass is ever needed.
type PatternMemory struct {
	Capacity int                   `json:"capacity"`
	Entries  []models.PatternEntry `json:"entries"`
}

// NewPatternMemory creates an empty memory with the given bound.
func NewPatternMemory(capacity int) PatternMemory {
	return PatternMemory{Capacity: capacity}
}

// Observe records an outcome for the exact sequence, inserting it on
// first sight. The predicted side is fixed at insertion.
func (m *PatternMemory) Observe(seq [patternLength]models.Parity, predicted models.Parity, won bool) {
	for i := range m.Entries {
		if m.Entries[i].Sequence == seq {
			e := &m.Entries[i]
			e.Occurrences++
			if won {
				e.Successes++
			}
			e.SuccessRate = float64(e.Successes) / float64(e.Occurrences)
			return
		}
	}

	entry := models.PatternEntry{
		Sequence:    seq,
		Predicted:   predicted,
		Occurrences: 1,
	}
	if won {
		entry.Successes = 1
		entry.SuccessRate = 1
	}

	if len(m.Entries) < m.Capacity {
		m.Entries = append(m.Entries, entry)
		return
	}
	// Full: replace the lowest-scoring entry, but only if the newcomer
	// would not itself be the weakest.
	minIdx := 0
	for i := 1; i < len(m.Entries); i++ {
		if m.Entries[i].Score() < m.Entries[minIdx].Score() {
			minIdx = i
		}
	}
	if entry.Score() >= m.Entries[minIdx].Score() {
		m.Entries[minIdx] = entry
	}
}

// BestMatch returns the stored entry most similar to seq, provided the
// similarity clears patternMinMatch.
func (m *PatternMemory) BestMatch(seq [patternLength]models.Parity) (models.PatternEntry, float64, bool) {
	var best models.PatternEntry
	bestSim := 0.0
	for _, e := range m.Entries {
		matches := 0
		for i := 0; i < patternLength; i++ {
			if e.Sequence[i] == seq[i] {
				matches++
			}
		}
		sim := float64(matches) / patternLength
		if sim > bestSim {
			best, bestSim = e, sim
		}
	}
	if bestSim < patternMinMatch {
		return models.PatternEntry{}, 0, false
	}
	return best, bestSim, true
}

// Len returns the number of stored patterns.
func (m *PatternMemory) Len() int { return len(m.Entries) }

// ContextMemory is an append-only bounded log of feature snapshots.
// Overflow trims oldest-first down to 60% of capacity; entries are
// never re-scored or reordered.
type ContextMemory struct {
	Capacity int                   `json:"capacity"`
	Entries  []models.ContextEntry `json:"entries"`
}

// NewContextMemory creates an empty memory with the given bound.
func NewContextMemory(capacity int) ContextMemory {
	return ContextMemory{Capacity: capacity}
}

// Append records a snapshot, truncating when over capacity.
func (m *ContextMemory) Append(e models.ContextEntry) {
	m.Entries = append(m.Entries, e)
	if len(m.Entries) > m.Capacity {
		keep := int(float64(m.Capacity) * contextTrimFactor)
		m.Entries = append(m.Entries[:0], m.Entries[len(m.Entries)-keep:]...)
	}
}

// MostSimilar returns the stored context closest to the given features,
// provided similarity clears contextMinSim. Similarity is one minus the
// mean absolute feature distance, with streak length scaled by 10.
func (m *ContextMemory) MostSimilar(volatility, entropy float64, streakLen int) (models.ContextEntry, float64, bool) {
	var best models.ContextEntry
	bestSim := 0.0
	for _, e := range m.Entries {
		dv := math.Abs(e.Volatility - volatility)
		de := math.Abs(e.Entropy - entropy)
		ds := math.Abs(float64(e.StreakLen-streakLen)) / 10
		sim := clamp01(1 - (dv+de+ds)/3)
		if sim > bestSim {
			best, bestSim = e, sim
		}
	}
	if bestSim < contextMinSim {
		return models.ContextEntry{}, 0, false
	}
	return best, bestSim, true
}

// Len returns the number of stored contexts.
func (m *ContextMemory) Len() int { return len(m.Entries) }
