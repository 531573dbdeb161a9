package engine

import (
	"testing"

	"DigitPulse/internal/domain/models"
)

func seqOf(bits ...int) [patternLength]models.Parity {
	var s [patternLength]models.Parity
	for i, b := range bits {
		s[i] = models.Parity(b)
	}
	return s
}

func TestPatternObserveUpdatesExisting(t *testing.T) {
	m := NewPatternMemory(10)
	s := seqOf(1, 0, 1, 1, 0)
	m.Observe(s, models.Odd, true)
	m.Observe(s, models.Odd, false)
	m.Observe(s, models.Odd, true)
	if m.Len() != 1 {
		t.Fatalf("repeated sequence must stay one entry, got %d", m.Len())
	}
	e := m.Entries[0]
	if e.Occurrences != 3 || e.Successes != 2 {
		t.Fatalf("unexpected counters: %+v", e)
	}
	if e.SuccessRate < 0.66 || e.SuccessRate > 0.67 {
		t.Fatalf("unexpected success rate %v", e.SuccessRate)
	}
}

func TestPatternEvictsLowestScore(t *testing.T) {
	m := NewPatternMemory(2)
	strong := seqOf(1, 1, 1, 1, 1)
	weak := seqOf(0, 0, 0, 0, 0)
	m.Observe(strong, models.Odd, true)
	m.Observe(strong, models.Odd, true)
	m.Observe(weak, models.Even, false)

	newcomer := seqOf(1, 0, 1, 0, 1)
	m.Observe(newcomer, models.Odd, true)
	if m.Len() != 2 {
		t.Fatalf("capacity must hold, got %d", m.Len())
	}
	for _, e := range m.Entries {
		if e.Sequence == weak {
			t.Fatalf("lowest-scoring entry must have been evicted")
		}
	}
}

func TestPatternKeepsIncumbentOverWeakerNewcomer(t *testing.T) {
	m := NewPatternMemory(1)
	strong := seqOf(1, 1, 1, 1, 1)
	m.Observe(strong, models.Odd, true)
	m.Observe(seqOf(0, 0, 0, 0, 0), models.Even, false)
	if m.Entries[0].Sequence != strong {
		t.Fatalf("a losing newcomer must not displace a winning incumbent")
	}
}

func TestPatternBestMatchFuzzy(t *testing.T) {
	m := NewPatternMemory(10)
	m.Observe(seqOf(1, 1, 0, 0, 1), models.Odd, true)

	// One mismatched position: similarity 0.8, still a match.
	entry, sim, ok := m.BestMatch(seqOf(1, 1, 0, 0, 0))
	if !ok || sim != 0.8 {
		t.Fatalf("expected 0.8 match, got ok=%v sim=%v", ok, sim)
	}
	if entry.Predicted != models.Odd {
		t.Fatalf("unexpected predicted side %v", entry.Predicted)
	}

	// Two mismatches: similarity 0.6, below the gate.
	if _, _, ok := m.BestMatch(seqOf(1, 1, 0, 1, 0)); ok {
		t.Fatalf("0.6 similarity must not match")
	}
}

func TestContextTrimOldestFirst(t *testing.T) {
	m := NewContextMemory(10)
	for i := 0; i <= 10; i++ {
		m.Append(models.ContextEntry{Volatility: float64(i)})
	}
	keep := int(10 * contextTrimFactor)
	if m.Len() != keep {
		t.Fatalf("expected trim to %d, got %d", keep, m.Len())
	}
	if m.Entries[0].Volatility != float64(11-keep) {
		t.Fatalf("oldest entries must go first, head=%v", m.Entries[0].Volatility)
	}
}

func TestContextMostSimilar(t *testing.T) {
	m := NewContextMemory(10)
	m.Append(models.ContextEntry{Volatility: 0.4, Entropy: 0.8, StreakLen: 3, Side: models.Odd, Won: true})
	m.Append(models.ContextEntry{Volatility: 0.9, Entropy: 0.2, StreakLen: 9, Side: models.Even, Won: false})

	got, sim, ok := m.MostSimilar(0.42, 0.78, 3)
	if !ok {
		t.Fatalf("expected a similar context")
	}
	if got.Side != models.Odd || sim < contextMinSim {
		t.Fatalf("unexpected match: side=%v sim=%v", got.Side, sim)
	}

	if _, _, ok := m.MostSimilar(0.0, 0.0, 20); ok {
		t.Fatalf("dissimilar features must not match")
	}
}
