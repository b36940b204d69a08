package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gitviola/hass-flatmate/internal/repository"
	"github.com/gitviola/hass-flatmate/internal/services"
)

func TestDueNotifications_MondayAssignment(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	// Monday 2024-01-08 at 11:00, second rotation week.
	at := time.Date(2024, 1, 8, 11, 0, 0, 0, time.UTC)
	notifications, err := service.DueNotifications(ctx, at)
	if err != nil {
		t.Fatalf("computing due notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected one weekly assignment notice, got %d", len(notifications))
	}

	notice := notifications[0]
	if notice.MemberID == nil || *notice.MemberID != members[1].ID {
		t.Errorf("notice should target Bob, got %v", notice.MemberID)
	}
	if notice.Slot != "monday_11" || notice.Kind != "weekly_assignment" {
		t.Errorf("unexpected slot/kind: %s/%s", notice.Slot, notice.Kind)
	}
	// The first week was never confirmed.
	if !strings.Contains(notice.Message, "last week is still unconfirmed") {
		t.Errorf("expected unconfirmed warning, got %q", notice.Message)
	}
}

func TestDueNotifications_NoWarningWhenPreviousDone(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	if _, err := service.MarkDone(ctx, services.DoneInput{WeekStart: mustWeek(t, "2024-01-01")}); err != nil {
		t.Fatalf("marking done: %v", err)
	}

	at := time.Date(2024, 1, 8, 11, 0, 0, 0, time.UTC)
	notifications, err := service.DueNotifications(ctx, at)
	if err != nil {
		t.Fatalf("computing due notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected one notice, got %d", len(notifications))
	}
	if strings.Contains(notifications[0].Message, "unconfirmed") {
		t.Errorf("no warning expected, got %q", notifications[0].Message)
	}
}

func TestDueNotifications_SundayReminders(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	for _, hour := range []int{18, 21} {
		at := time.Date(2024, 1, 7, hour, 0, 0, 0, time.UTC)
		notifications, err := service.DueNotifications(ctx, at)
		if err != nil {
			t.Fatalf("computing due notifications at %d:00: %v", hour, err)
		}
		if len(notifications) != 1 {
			t.Fatalf("expected one reminder at %d:00, got %d", hour, len(notifications))
		}
		if notifications[0].Kind != "weekly_reminder" {
			t.Errorf("unexpected kind: %s", notifications[0].Kind)
		}
	}

	// Once the week is confirmed the reminders stop.
	if _, err := service.MarkDone(ctx, services.DoneInput{WeekStart: mustWeek(t, "2024-01-01")}); err != nil {
		t.Fatalf("marking done: %v", err)
	}
	at := time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)
	notifications, err := service.DueNotifications(ctx, at)
	if err != nil {
		t.Fatalf("computing due notifications: %v", err)
	}
	if len(notifications) != 0 {
		t.Errorf("expected no reminders after completion, got %d", len(notifications))
	}
}

func TestDueNotifications_OffSlotIsQuiet(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	offSlots := []time.Time{
		time.Date(2024, 1, 8, 11, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 9, 11, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 19, 0, 0, 0, time.UTC),
	}
	for _, at := range offSlots {
		notifications, err := service.DueNotifications(ctx, at)
		if err != nil {
			t.Fatalf("computing due notifications: %v", err)
		}
		if len(notifications) != 0 {
			t.Errorf("expected quiet slot at %s, got %d notices", at, len(notifications))
		}
	}
}

func TestRecordNotificationDispatches(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	title := "Weekly Cleaning Shift"
	inserted, err := service.RecordNotificationDispatches(ctx, []services.DispatchRecord{
		{
			WeekStart: "2024-01-01",
			MemberID:  &members[0].ID,
			Title:     &title,
			Status:    "sent",
		},
		{
			WeekStart: "2024-01-01",
			MemberID:  &members[1].ID,
			Status:    "SKIPPED",
		},
	})
	if err != nil {
		t.Fatalf("recording dispatches: %v", err)
	}
	if inserted != 2 {
		t.Errorf("expected 2 records, got %d", inserted)
	}

	activityRepo := repository.NewActivityRepository(db)
	events, err := activityRepo.FindByWeek(ctx, mustWeek(t, "2024-01-01"))
	if err != nil {
		t.Fatalf("listing activity: %v", err)
	}
	dispatches := 0
	for _, event := range events {
		if event.Action == "cleaning_notification_dispatch" {
			dispatches++
			if event.Payload["dispatch_id"] == nil || event.Payload["dispatch_id"] == "" {
				t.Error("dispatch event missing dispatch id")
			}
		}
	}
	if dispatches != 2 {
		t.Errorf("expected 2 dispatch events, got %d", dispatches)
	}
}

func TestRecordNotificationDispatches_RejectsBadStatus(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	createMembers(t, db, "Alice", "Bob", "Carol")

	_, err := service.RecordNotificationDispatches(ctx, []services.DispatchRecord{
		{WeekStart: "2024-01-01", Status: "delivered"},
	})
	if !errors.Is(err, services.ErrInvalidDispatch) {
		t.Errorf("expected ErrInvalidDispatch, got %v", err)
	}
}
