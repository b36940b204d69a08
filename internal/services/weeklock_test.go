package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gitviola/hass-flatmate/internal/services"
)

func TestWeekLocks_AcquireAndRelease(t *testing.T) {
	locks := services.NewWeekLocks()
	ctx := context.Background()
	week := mustWeek(t, "2024-01-01")

	release, err := locks.Acquire(ctx, week)
	if err != nil {
		t.Fatalf("acquiring lock: %v", err)
	}
	release()

	// The same week is free again after release.
	release, err = locks.Acquire(ctx, week)
	if err != nil {
		t.Fatalf("reacquiring lock: %v", err)
	}
	release()
}

func TestWeekLocks_ContentionReportsBusy(t *testing.T) {
	locks := services.NewWeekLocks()
	week := mustWeek(t, "2024-01-01")

	release, err := locks.Acquire(context.Background(), week)
	if err != nil {
		t.Fatalf("acquiring lock: %v", err)
	}
	defer release()

	// A second caller with a short deadline cannot get the same week.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := locks.Acquire(ctx, week); !errors.Is(err, services.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
}

func TestWeekLocks_DistinctWeeksDoNotBlock(t *testing.T) {
	locks := services.NewWeekLocks()
	ctx := context.Background()

	releaseFirst, err := locks.Acquire(ctx, mustWeek(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("acquiring first week: %v", err)
	}
	defer releaseFirst()

	releaseSecond, err := locks.Acquire(ctx, mustWeek(t, "2024-01-08"))
	if err != nil {
		t.Fatalf("acquiring second week: %v", err)
	}
	releaseSecond()
}

func TestWeekLocks_DuplicateWeeksInOneAcquire(t *testing.T) {
	locks := services.NewWeekLocks()
	week := mustWeek(t, "2024-01-01")

	release, err := locks.Acquire(context.Background(), week, week, week)
	if err != nil {
		t.Fatalf("acquiring with duplicates: %v", err)
	}
	release()
}
