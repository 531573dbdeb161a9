package repository

import (
	"context"

	"DigitPulse/internal/domain/models"
)

// VenueStream is the wire transport to the trading venue. It delivers a
// closed set of typed events and accepts trade commands; connection
// lifecycle is its own concern.
type VenueStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.VenueEvent, <-chan error)
	Buy(ctx context.Context, cmd *models.TradeCommand) error
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// StateStore is opaque durable storage for engine tables and memories.
// Absent keys must surface as kv.ErrNotFound so callers fall back to
// defaults; no schema versioning is assumed.
type StateStore interface {
	Load(ctx context.Context, key string, dest interface{}) error
	Save(ctx context.Context, key string, value interface{}) error
	Health(ctx context.Context) error
	Close() error
}

// TradeLog archives resolved trade records for diagnostics and the API.
type TradeLog interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, r *models.TradeRecord) error
	StoreBatch(ctx context.Context, records []*models.TradeRecord) error
	Recent(ctx context.Context, limit int) ([]*models.TradeRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// EventSink receives structured engine events; one-way, best-effort.
type EventSink interface {
	Publish(ctx context.Context, ev *models.EngineEvent) error
	Close() error
}

// Notifier delivers human-facing notifications; one-way, best-effort.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Metrics records operational measurements. Implementations must be
// cheap enough to call from the decision path.
type Metrics interface {
	RecordObservation(parity string)
	RecordAnomaly()
	RecordDecision(side string)
	RecordSkip(reason string)
	RecordOutcome(won bool, profit float64)
	RecordConfidence(v float64)
	RecordHealth(v float64)
	RecordMode(mode string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
