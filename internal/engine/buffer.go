package engine

import (
	"errors"

	"DigitPulse/internal/domain/models"
)

// ErrOutOfOrder is returned for duplicate or non-increasing sequence ids.
var ErrOutOfOrder = errors.New("engine: observation out of order")

// Buffer is the bounded, ordered tick history every model reads from.
// Owned exclusively by the engine; only Append mutates it.
type Buffer struct {
	capacity int
	obs      []models.Observation
}

// NewBuffer creates a buffer that evicts its oldest entry past capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		capacity: capacity,
		obs:      make([]models.Observation, 0, capacity),
	}
}

// Append adds an observation, evicting the oldest when full. Sequence
// ids must be strictly increasing; anything else is rejected unchanged.
func (b *Buffer) Append(o models.Observation) error {
	if n := len(b.obs); n > 0 && o.Seq <= b.obs[n-1].Seq {
		return ErrOutOfOrder
	}
	if len(b.obs) == b.capacity {
		copy(b.obs, b.obs[1:])
		b.obs = b.obs[:b.capacity-1]
	}
	b.obs = append(b.obs, o)
	return nil
}

// Len returns the number of buffered observations.
func (b *Buffer) Len() int { return len(b.obs) }

// Last returns the newest observation, if any.
func (b *Buffer) Last() (models.Observation, bool) {
	if len(b.obs) == 0 {
		return models.Observation{}, false
	}
	return b.obs[len(b.obs)-1], true
}

// Window returns the newest n observations (fewer if the buffer is
// shorter). The slice aliases the buffer and must not be retained.
func (b *Buffer) Window(n int) []models.Observation {
	if n >= len(b.obs) {
		return b.obs
	}
	return b.obs[len(b.obs)-n:]
}

// Tail returns the last n parities, oldest first. ok is false when the
// buffer holds fewer than n observations.
func (b *Buffer) Tail(n int) ([]models.Parity, bool) {
	if len(b.obs) < n {
		return nil, false
	}
	out := make([]models.Parity, n)
	for i, o := range b.obs[len(b.obs)-n:] {
		out[i] = o.Parity
	}
	return out, true
}
