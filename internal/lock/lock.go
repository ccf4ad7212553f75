// Package lock provides named, non-blocking mutual exclusion for periodic work.
package lock

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrHeld is returned by TryLock when someone else holds the lock.
	ErrHeld = errors.New("lock is held")
	// ErrNotHeld is returned when releasing a lock that's no longer ours.
	ErrNotHeld = errors.New("lock not held")
)

// Unlock releases an acquired lock. Calling it more than once is safe.
type Unlock func(ctx context.Context) error

type Locker interface {
	TryLock(ctx context.Context, name string) (Unlock, error)
}

// Local is an in-process Locker, good enough when a single daemon runs scans.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: map[string]struct{}{}}
}

func (l *Local) TryLock(_ context.Context, name string) (Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[name]; ok {
		return nil, ErrHeld
	}
	l.held[name] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
