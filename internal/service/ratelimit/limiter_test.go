package ratelimit

import "testing"

func TestLimiterExhaustsBucket(t *testing.T) {
	l := New(3, 0.001)
	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("token %d should be available", i)
		}
	}
	if l.Allow() {
		t.Fatalf("empty bucket must refuse")
	}
}
