package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const lockTimeout = 5 * time.Second

// WeekLocks serializes mutations per week slot. A transaction acquires
// every week it may touch up front, in ascending week order, so two
// overlapping transactions cannot deadlock; acquisition past the
// timeout fails with ErrBusy instead of blocking.
type WeekLocks struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

func NewWeekLocks() *WeekLocks {
	return &WeekLocks{locks: make(map[string]*semaphore.Weighted)}
}

func (weekLocks *WeekLocks) lockFor(key string) *semaphore.Weighted {
	weekLocks.mu.Lock()
	defer weekLocks.mu.Unlock()

	lock, ok := weekLocks.locks[key]
	if !ok {
		lock = semaphore.NewWeighted(1)
		weekLocks.locks[key] = lock
	}
	return lock
}

// Acquire locks the given set of weeks and returns a release function.
// Duplicate weeks are collapsed; the zero time is skipped.
func (weekLocks *WeekLocks) Acquire(ctx context.Context, weeks ...time.Time) (func(), error) {
	keys := make([]string, 0, len(weeks))
	seen := make(map[string]bool, len(weeks))
	for _, week := range weeks {
		if week.IsZero() {
			continue
		}
		key := FormatWeek(week)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	var held []*semaphore.Weighted
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}

	for _, key := range keys {
		lock := weekLocks.lockFor(key)
		if err := lock.Acquire(ctx, 1); err != nil {
			release()
			return nil, fmt.Errorf("acquiring lock for week %s: %w", key, ErrBusy)
		}
		held = append(held, lock)
	}

	return release, nil
}
