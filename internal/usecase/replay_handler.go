package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"DigitPulse/internal/domain/models"
	"DigitPulse/pkg/logger"
)

// replayTick is the wire shape of an archived tick on the replay topic.
type replayTick struct {
	Epoch int64   `json:"epoch"`
	Quote float64 `json:"quote"`
}

// ReplayHandler feeds archived ticks from Kafka into the collector's
// dispatch loop. Run it with trading disabled to warm the tables from
// history without placing trades.
type ReplayHandler struct {
	topic     string
	collector *TickCollector
	log       *logger.Logger
}

// NewReplayHandler creates the handler for one topic.
func NewReplayHandler(topic string, collector *TickCollector, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{topic: topic, collector: collector, log: log}
}

func (h *ReplayHandler) Topic() string { return h.topic }

// Handle parses one archived tick and submits it. A malformed message
// is a permanent failure; retrying it cannot help.
func (h *ReplayHandler) Handle(ctx context.Context, value []byte) error {
	var t replayTick
	if err := json.Unmarshal(value, &t); err != nil {
		return fmt.Errorf("replay tick decode: %w", err)
	}
	if t.Quote <= 0 {
		h.log.Warn("replay tick skipped", logger.Int64("epoch", t.Epoch), logger.Float64("quote", t.Quote))
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	h.collector.Submit(models.TickEvent{Epoch: t.Epoch, Price: t.Quote})
	return nil
}
