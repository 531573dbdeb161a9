package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has never been written.
// Callers fall back to their own defaults on this error.
var ErrNotFound = errors.New("kv: key not found")

// Store defines durable key-value operations. Values are JSON-encoded
// structs; absent keys are reported via ErrNotFound, never invented.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Health(ctx context.Context) error
	Close() error
}
