package engine

import "DigitPulse/internal/domain/models"

// QTable is the shallow table: binary state (last observed parity) ×
// binary action (predicted parity). Values start as the neutral 0.5.
//
// The update rule is deliberately unclamped, so a long reward run can
// push values outside [0,1]. That matches the historical behavior this
// table replicates; values are clamped at the point of use (the blended
// Q predictor), never in the table itself.
type QTable struct {
	V [2][2]float64 `json:"v"`
}

// NewQTable returns a table initialized to 0.5 everywhere.
func NewQTable() QTable {
	return QTable{V: [2][2]float64{{0.5, 0.5}, {0.5, 0.5}}}
}

// Update applies Q[s][a] += lr·(reward − Q[s][a]).
func (q *QTable) Update(state, action models.Parity, reward, lr float64) {
	q.V[state][action] += lr * (reward - q.V[state][action])
}

// DeepQTable is the bucketed table over volatility × trend × streak
// (3×3×3 = 27 states). The state space is closed and small, so it is a
// fixed array indexed by an enumerated tuple rather than a keyed map.
type DeepQTable struct {
	V [27][2]float64 `json:"v"`
}

// NewDeepQTable returns a table initialized to 0.5 everywhere.
func NewDeepQTable() DeepQTable {
	var t DeepQTable
	for i := range t.V {
		t.V[i] = [2]float64{0.5, 0.5}
	}
	return t
}

// DeepBucket enumerates the (volatility, trend, streak) tuple.
func DeepBucket(volLevel, trendLevel, streakLevel int) int {
	return volLevel*9 + trendLevel*3 + streakLevel
}

// Max returns the highest action value in a bucket.
func (q *DeepQTable) Max(bucket int) float64 {
	if q.V[bucket][0] > q.V[bucket][1] {
		return q.V[bucket][0]
	}
	return q.V[bucket][1]
}

// Update applies the TD rule Q[b][a] += lr·(reward + γ·max(Q[b][*]) − Q[b][a]).
func (q *DeepQTable) Update(bucket int, action models.Parity, reward, lr, gamma float64) {
	q.V[bucket][action] += lr * (reward + gamma*q.Max(bucket) - q.V[bucket][action])
}

// Meta Q-learning constants are fixed, not configuration.
const (
	metaAlpha = 0.1
	metaGamma = 0.9
)

// MetaQTable scores the three strategy variants per volatility ×
// entropy bucket (3×3 = 9 states).
type MetaQTable struct {
	V [9][3]float64 `json:"v"`
}

// NewMetaQTable returns a table initialized to 0.5 everywhere.
func NewMetaQTable() MetaQTable {
	var t MetaQTable
	for i := range t.V {
		t.V[i] = [3]float64{0.5, 0.5, 0.5}
	}
	return t
}

// MetaBucket enumerates the (volatility, entropy) tuple.
func MetaBucket(volLevel, entropyLevel int) int {
	return volLevel*3 + entropyLevel
}

// Best returns the strategy with the highest learned value. Ties keep
// "balanced", which is also the answer for untouched buckets.
func (q *MetaQTable) Best(bucket int) models.Strategy {
	best := models.Balanced
	bestV := q.V[bucket][models.Balanced]
	for _, s := range []models.Strategy{models.Conservative, models.Aggressive} {
		if q.V[bucket][s] > bestV {
			best, bestV = s, q.V[bucket][s]
		}
	}
	return best
}

// Max returns the highest strategy value in a bucket.
func (q *MetaQTable) Max(bucket int) float64 {
	m := q.V[bucket][0]
	for _, v := range q.V[bucket][1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Update applies the fixed-rate TD rule for the strategy taken.
func (q *MetaQTable) Update(bucket int, strat models.Strategy, reward float64) {
	q.V[bucket][strat] += metaAlpha * (reward + metaGamma*q.Max(bucket) - q.V[bucket][strat])
}
