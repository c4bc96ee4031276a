package app

import (
	"context"
	"fmt"
)

// Pinger is the minimal interface for a backend capable of Ping. The pgx
// pool, the Redis session store, and the Kafka producer all satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck converts an optional backend into a readiness probe. A nil
// backend yields a nil check, which the readiness handler skips.
func ReadinessCheck(name string, p Pinger) func(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}
