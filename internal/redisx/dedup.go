package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Dedup remembers processed event ids per consuming service. Seen marks the
// id on first sight, so at-least-once delivery collapses to at-most-one
// side effect within the TTL window.
type Dedup struct {
	R       *redis.Client
	Service string
}

func (d *Dedup) Seen(ctx context.Context, eventID string) bool {
	key := fmt.Sprintf(KeyDedup, d.Service, eventID)
	ok, err := d.R.SetNX(ctx, key, "1", TTLDedup).Result()
	if err != nil {
		// fail open: better a duplicate notification than a dropped one
		return false
	}
	return !ok
}
