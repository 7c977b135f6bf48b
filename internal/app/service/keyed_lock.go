package service

import (
	"context"
	"sync"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"golang.org/x/sync/semaphore"
)

// lineLocks serializes mutations per cart line. Waiting honours ctx, and an
// entry is dropped once nobody holds or waits for it.
type lineLocks struct {
	mu    sync.Mutex
	locks map[model.LineKey]*lineLock
}

type lineLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newLineLocks() *lineLocks {
	return &lineLocks{locks: make(map[model.LineKey]*lineLock)}
}

// Lock blocks until the line is free or ctx is done. The returned func releases it.
func (l *lineLocks) Lock(ctx context.Context, key model.LineKey) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &lineLock{sem: semaphore.NewWeighted(1)}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	if err := lock.sem.Acquire(ctx, 1); err != nil {
		l.release(key, lock)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.sem.Release(1)
			l.release(key, lock)
		})
	}, nil
}

func (l *lineLocks) release(key model.LineKey, lock *lineLock) {
	l.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

func (l *lineLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
