// internal/infra/lock/memory.go
package lock

import (
	"context"
	"sync"
	"time"

	"splforge/internal/application/usecase"
)

// MemoryLocker is an in-process Locker, used when no Redis is configured.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memEntry
	now   func() time.Time
	token uint64
}

type memEntry struct {
	token   uint64
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]memEntry{}, now: time.Now}
}

var _ usecase.Locker = (*MemoryLocker)(nil)

func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (usecase.UnlockFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, usecase.ErrLockHeld
	}
	l.token++
	tok := l.token
	l.held[key] = memEntry{token: tok, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.token == tok {
			delete(l.held, key)
		}
		return nil
	}, nil
}
