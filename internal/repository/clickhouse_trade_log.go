package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"DigitPulse/internal/domain/models"
	"DigitPulse/internal/domain/repository"
)

const tradeSchema = `
CREATE TABLE IF NOT EXISTS %s (
    seq          Int64,
    ts           DateTime64(3),
    side         LowCardinality(String),
    confidence   Float64,
    consensus    Float64,
    stake        Float64,
    strategy     LowCardinality(String),
    mode         LowCardinality(String),
    volatility   Float64,
    entropy      Float64,
    streak_len   Int32,
    weight_spread Float64,
    exploring    UInt8,
    won          UInt8,
    profit       Float64
) ENGINE = MergeTree()
ORDER BY (ts, seq)
TTL toDateTime(ts) + INTERVAL 90 DAY
`

// ClickHouseTradeLog archives resolved trade records for diagnostics
// and the status API.
type ClickHouseTradeLog struct {
	db    *sql.DB
	table string
}

// NewClickHouseTradeLog creates the trade archive over a ClickHouse pool.
func NewClickHouseTradeLog(db *sql.DB, table string) repository.TradeLog {
	return &ClickHouseTradeLog{db: db, table: table}
}

func (l *ClickHouseTradeLog) Init(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, fmt.Sprintf(tradeSchema, l.table))
	if err != nil {
		return fmt.Errorf("trade log init: %w", err)
	}
	return nil
}

func (l *ClickHouseTradeLog) Store(ctx context.Context, r *models.TradeRecord) error {
	return l.StoreBatch(ctx, []*models.TradeRecord{r})
}

func (l *ClickHouseTradeLog) StoreBatch(ctx context.Context, records []*models.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*15)
	for _, r := range records {
		if r == nil || !r.Resolved {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.Seq, r.Time, r.Side.String(), r.Confidence, r.Consensus,
			r.Stake, r.Strategy.String(), r.Mode.String(), r.Volatility,
			r.Entropy, int32(r.StreakLen), r.WeightSpread,
			boolToUInt8(r.Exploring), boolToUInt8(r.Won), r.Profit,
		)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (seq, ts, side, confidence, consensus, stake, strategy, mode, volatility, entropy, streak_len, weight_spread, exploring, won, profit) VALUES %s",
		l.table, strings.Join(values, ","))
	if _, err := l.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("trade log insert: %w", err)
	}
	return nil
}

func (l *ClickHouseTradeLog) Recent(ctx context.Context, limit int) ([]*models.TradeRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := fmt.Sprintf(
		"SELECT seq, ts, side, confidence, consensus, stake, strategy, mode, volatility, entropy, streak_len, weight_spread, exploring, won, profit FROM %s ORDER BY ts DESC LIMIT ?",
		l.table)
	rows, err := l.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("trade log query: %w", err)
	}
	defer rows.Close()

	var out []*models.TradeRecord
	for rows.Next() {
		var (
			r                     models.TradeRecord
			ts                    time.Time
			side, strategy, mode  string
			streakLen             int32
			exploring, won        uint8
		)
		if err := rows.Scan(&r.Seq, &ts, &side, &r.Confidence, &r.Consensus,
			&r.Stake, &strategy, &mode, &r.Volatility, &r.Entropy,
			&streakLen, &r.WeightSpread, &exploring, &won, &r.Profit); err != nil {
			return nil, fmt.Errorf("trade log scan: %w", err)
		}
		r.Time = ts
		r.Side = parityFromString(side)
		r.Strategy = strategyFromString(strategy)
		r.Mode = modeFromString(mode)
		r.StreakLen = int(streakLen)
		r.Exploring = exploring == 1
		r.Won = won == 1
		r.Resolved = true
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (l *ClickHouseTradeLog) Health(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *ClickHouseTradeLog) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func parityFromString(s string) models.Parity {
	if s == "odd" {
		return models.Odd
	}
	return models.Even
}

func strategyFromString(s string) models.Strategy {
	switch s {
	case "conservative":
		return models.Conservative
	case "aggressive":
		return models.Aggressive
	default:
		return models.Balanced
	}
}

func modeFromString(s string) models.Mode {
	switch s {
	case "precision":
		return models.ModePrecision
	case "exploration":
		return models.ModeExploration
	default:
		return models.ModeBalanced
	}
}
