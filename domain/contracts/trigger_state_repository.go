package contracts

import (
	"context"
	"time"
)

// TriggerState is the last value a modification trigger stored for a key.
type TriggerState struct {
	Key       string
	Value     int64 // epoch milliseconds
	UpdatedAt time.Time
}

// TriggerStateRepository persists trigger state between runs.
type TriggerStateRepository interface {
	// Get returns ErrStateNotFound when key was never stored.
	Get(ctx context.Context, key string) (*TriggerState, error)
	Set(ctx context.Context, key string, value int64) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]*TriggerState, error)
}
