package engine

import (
	"testing"

	"DigitPulse/internal/domain/models"
)

func TestBufferRejectsOutOfOrder(t *testing.T) {
	b := NewBuffer(10)
	if err := b.Append(models.Observation{Seq: 1, Price: 100}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := b.Append(models.Observation{Seq: 1, Price: 101}); err != ErrOutOfOrder {
		t.Fatalf("expected ErrOutOfOrder for duplicate, got %v", err)
	}
	if err := b.Append(models.Observation{Seq: 0, Price: 101}); err != ErrOutOfOrder {
		t.Fatalf("expected ErrOutOfOrder for regression, got %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("rejected observations must not change the buffer, len=%d", b.Len())
	}
}

func TestBufferEvictsOldest(t *testing.T) {
	b := NewBuffer(3)
	for i := int64(1); i <= 5; i++ {
		if err := b.Append(models.Observation{Seq: i, Price: float64(i)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if b.Len() != 3 {
		t.Fatalf("expected len 3, got %d", b.Len())
	}
	w := b.Window(3)
	if w[0].Seq != 3 || w[2].Seq != 5 {
		t.Fatalf("expected seqs 3..5, got %d..%d", w[0].Seq, w[2].Seq)
	}
}

func TestBufferTail(t *testing.T) {
	b := NewBuffer(10)
	parities := []models.Parity{models.Odd, models.Even, models.Odd, models.Odd, models.Even, models.Odd}
	for i, p := range parities {
		b.Append(models.Observation{Seq: int64(i + 1), Parity: p})
	}
	if _, ok := b.Tail(10); ok {
		t.Fatalf("tail longer than buffer must report not ok")
	}
	tail, ok := b.Tail(5)
	if !ok {
		t.Fatalf("expected tail")
	}
	want := parities[1:]
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("tail[%d] = %v, want %v", i, tail[i], want[i])
		}
	}
}
