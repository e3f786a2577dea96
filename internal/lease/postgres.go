package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Lease as a compare-and-swap on a singleton row. The
// row is created lazily on first use and never deleted.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (l *Postgres) TryAcquire(ctx context.Context, owner string, staleAfter time.Duration) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO tick_locks (lock_id, is_locked, locked_at, locked_by)
		VALUES ('singleton', false, now(), '')
		ON CONFLICT (lock_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("lease: ensure row: %w", err)
	}

	cmd, err := l.pool.Exec(ctx, `
		UPDATE tick_locks
		SET is_locked = true, locked_at = now(), locked_by = $1
		WHERE lock_id = 'singleton'
		  AND (is_locked = false OR locked_at < now() - make_interval(secs => $2))
	`, owner, staleAfter.Seconds())
	if err != nil {
		return fmt.Errorf("lease: acquire: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrHeld
	}
	return nil
}

func (l *Postgres) Release(ctx context.Context, owner string) error {
	_, err := l.pool.Exec(ctx, `
		UPDATE tick_locks
		SET is_locked = false, locked_by = ''
		WHERE lock_id = 'singleton' AND locked_by = $1
	`, owner)
	if err != nil {
		return fmt.Errorf("lease: release: %w", err)
	}
	return nil
}

var _ Lease = (*Postgres)(nil)
