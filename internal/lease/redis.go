package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const leaseKey = "quickbuck:tick-lease"

// unlockScript deletes the lease key only when its value still matches the
// caller's owner token, so a holder cannot release a lease that was taken
// over after going stale.
const unlockScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Redis implements Lease with SETNX plus a TTL equal to the staleness
// window; expiry is the takeover mechanism.
type Redis struct {
	rdb    *redis.Client
	unlock *redis.Script
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, unlock: redis.NewScript(unlockScript)}
}

func (l *Redis) TryAcquire(ctx context.Context, owner string, staleAfter time.Duration) error {
	ok, err := l.rdb.SetNX(ctx, leaseKey, owner, staleAfter).Result()
	if err != nil {
		return fmt.Errorf("lease: redis acquire: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	return nil
}

func (l *Redis) Release(ctx context.Context, owner string) error {
	if err := l.unlock.Run(ctx, l.rdb, []string{leaseKey}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("lease: redis release: %w", err)
	}
	return nil
}

var _ Lease = (*Redis)(nil)
