// Package lease provides the single-holder lease that guards a world tick.
// At most one owner holds the lease at a time; a lease older than the
// staleness window is treated as abandoned by a crashed cycle and may be
// forcibly taken over.
package lease

import (
	"context"
	"errors"
	"time"
)

// ErrHeld is returned by TryAcquire when another owner holds a fresh lease.
var ErrHeld = errors.New("lease is held by another owner")

type Lease interface {
	// TryAcquire obtains the lease for owner or fails fast with ErrHeld.
	// A lease whose acquisition time is older than staleAfter is reclaimed
	// regardless of its holder.
	TryAcquire(ctx context.Context, owner string, staleAfter time.Duration) error
	// Release frees the lease if owner still holds it. Releasing a lease
	// already taken over by someone else is a no-op.
	Release(ctx context.Context, owner string) error
}
