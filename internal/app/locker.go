package app

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// UnitLocker serializes lease mutations per unit. Each unit gets a weighted
// semaphore of size one, so waiting honours context cancellation; entries
// are dropped once no caller holds or waits on them.
type UnitLocker struct {
	mu    sync.Mutex
	locks map[string]*unitLock
}

type unitLock struct {
	sem  *semaphore.Weighted
	refs int
}

// NewUnitLocker returns an empty locker.
func NewUnitLocker() *UnitLocker {
	return &UnitLocker{locks: make(map[string]*unitLock)}
}

// Lock blocks until the unit is free or ctx is done. The returned function
// releases the lock and must be called exactly once.
func (l *UnitLocker) Lock(ctx context.Context, unitID string) (func(), error) {
	l.mu.Lock()
	ul, ok := l.locks[unitID]
	if !ok {
		ul = &unitLock{sem: semaphore.NewWeighted(1)}
		l.locks[unitID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	if err := ul.sem.Acquire(ctx, 1); err != nil {
		l.unref(unitID, ul)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ul.sem.Release(1)
			l.unref(unitID, ul)
		})
	}, nil
}

func (l *UnitLocker) unref(unitID string, ul *unitLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, unitID)
	}
}

// held returns the number of units with an outstanding holder or waiter.
func (l *UnitLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
