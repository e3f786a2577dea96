package lease

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Lease for tests and single-node development runs.
type Memory struct {
	mu       sync.Mutex
	locked   bool
	owner    string
	lockedAt time.Time
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (l *Memory) TryAcquire(_ context.Context, owner string, staleAfter time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked && l.now().Sub(l.lockedAt) <= staleAfter {
		return ErrHeld
	}
	l.locked = true
	l.owner = owner
	l.lockedAt = l.now()
	return nil
}

func (l *Memory) Release(_ context.Context, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked && l.owner == owner {
		l.locked = false
		l.owner = ""
	}
	return nil
}

var _ Lease = (*Memory)(nil)
