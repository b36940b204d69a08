package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/repository"
	"github.com/gitviola/hass-flatmate/internal/services"
	"github.com/gitviola/hass-flatmate/internal/testutil"
)

func scheduleRowFor(t *testing.T, service *services.CleaningService, today time.Time, week string) services.ScheduleRow {
	t.Helper()
	rows, err := service.Schedule(context.Background(), today, 12, 4)
	if err != nil {
		t.Fatalf("projecting schedule: %v", err)
	}
	for _, row := range rows {
		if row.WeekStart == week {
			return row
		}
	}
	t.Fatalf("week %s not in schedule projection", week)
	return services.ScheduleRow{}
}

func TestSwapWeek_CreatesPairedOverrides(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	week := mustWeek(t, "2024-01-01")
	notifications, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: week,
		MemberAID: members[0].ID,
		MemberBID: members[1].ID,
	})
	if err != nil {
		t.Fatalf("creating swap: %v", err)
	}
	if len(notifications) != 2 {
		t.Errorf("expected 2 swap notices, got %d", len(notifications))
	}

	today := mustWeek(t, "2024-01-01")
	selected := scheduleRowFor(t, service, today, "2024-01-01")
	if selected.AssigneeMemberID == nil || *selected.AssigneeMemberID != members[1].ID {
		t.Errorf("selected week should go to Bob, got %v", selected.AssigneeMemberID)
	}
	if selected.OverrideType == nil || *selected.OverrideType != models.OverrideTypeManualSwap {
		t.Errorf("selected week should carry a manual swap, got %v", selected.OverrideType)
	}

	// Bob's next regular week returns to Alice.
	returned := scheduleRowFor(t, service, today, "2024-01-08")
	if returned.AssigneeMemberID == nil || *returned.AssigneeMemberID != members[0].ID {
		t.Errorf("return week should go to Alice, got %v", returned.AssigneeMemberID)
	}
	if returned.SourceWeekStart == nil || *returned.SourceWeekStart != "2024-01-01" {
		t.Errorf("return week should reference the selected week, got %v", returned.SourceWeekStart)
	}
}

func TestSwapWeek_RetryIsNoop(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	input := services.SwapInput{
		WeekStart: mustWeek(t, "2024-01-01"),
		MemberAID: members[0].ID,
		MemberBID: members[1].ID,
	}
	if _, err := service.SwapWeek(ctx, input); err != nil {
		t.Fatalf("first swap: %v", err)
	}
	if _, err := service.SwapWeek(ctx, input); err != nil {
		t.Fatalf("retry should be a no-op, got: %v", err)
	}

	overrideRepo := repository.NewOverrideRepository(db)
	planned, err := overrideRepo.FindPlanned(ctx)
	if err != nil {
		t.Fatalf("listing overrides: %v", err)
	}
	if len(planned) != 2 {
		t.Errorf("expected exactly the swap pair, got %d planned overrides", len(planned))
	}
}

func TestSwapWeek_CancelRestoresBaseline(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	week := mustWeek(t, "2024-01-01")
	if _, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: week,
		MemberAID: members[0].ID,
		MemberBID: members[1].ID,
	}); err != nil {
		t.Fatalf("creating swap: %v", err)
	}

	if _, err := service.SwapWeek(ctx, services.SwapInput{WeekStart: week, Cancel: true}); err != nil {
		t.Fatalf("canceling swap: %v", err)
	}

	today := mustWeek(t, "2024-01-01")
	selected := scheduleRowFor(t, service, today, "2024-01-01")
	if selected.AssigneeMemberID == nil || *selected.AssigneeMemberID != members[0].ID {
		t.Errorf("selected week should revert to Alice, got %v", selected.AssigneeMemberID)
	}
	returned := scheduleRowFor(t, service, today, "2024-01-08")
	if returned.AssigneeMemberID == nil || *returned.AssigneeMemberID != members[1].ID {
		t.Errorf("return week should revert to Bob, got %v", returned.AssigneeMemberID)
	}

	overrideRepo := repository.NewOverrideRepository(db)
	planned, err := overrideRepo.FindPlanned(ctx)
	if err != nil {
		t.Fatalf("listing overrides: %v", err)
	}
	if len(planned) != 0 {
		t.Errorf("expected no planned overrides after cancel, got %d", len(planned))
	}
}

func TestSwapWeek_CancelWithoutSwap(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	_, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: mustWeek(t, "2024-01-01"),
		Cancel:    true,
	})
	if !errors.Is(err, services.ErrNoActiveSwap) {
		t.Errorf("expected ErrNoActiveSwap, got %v", err)
	}
}

func TestSwapWeek_CancelDetectsMovedPartner(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	anchor := mustWeek(t, "2024-01-01")
	locks := services.NewWeekLocks()
	service := services.NewCleaningService(db, locks, &anchor)
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	week := mustWeek(t, "2024-01-01")
	if _, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: week,
		MemberAID: members[0].ID,
		MemberBID: members[1].ID,
	}); err != nil {
		t.Fatalf("creating swap: %v", err)
	}

	// Hold the selected week so the cancel queues behind us after its
	// pre-lock read.
	releaseWeek, err := locks.Acquire(ctx, week)
	if err != nil {
		t.Fatalf("acquiring week lock: %v", err)
	}

	cancelErr := make(chan error, 1)
	go func() {
		_, err := service.SwapWeek(ctx, services.SwapInput{WeekStart: week, Cancel: true})
		cancelErr <- err
	}()

	// Move the partner week underneath the waiting cancel.
	time.Sleep(100 * time.Millisecond)
	overrideRepo := repository.NewOverrideRepository(db)
	planned, err := overrideRepo.FindPlannedByWeek(ctx, week)
	if err != nil {
		t.Fatalf("loading planned override: %v", err)
	}
	moved := mustWeek(t, "2024-03-04")
	planned.PartnerWeekStart = &moved
	if err := overrideRepo.Update(ctx, planned); err != nil {
		t.Fatalf("moving partner week: %v", err)
	}
	releaseWeek()

	if err := <-cancelErr; !errors.Is(err, services.ErrBusy) {
		t.Errorf("expected ErrBusy when the partner week moves mid-cancel, got %v", err)
	}
}

func TestSwapWeek_WrongAssigneeRejected(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	// Bob does not hold the first week; a stale client must not swap it
	// away on his behalf.
	_, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: mustWeek(t, "2024-01-01"),
		MemberAID: members[1].ID,
		MemberBID: members[2].ID,
	})
	if !errors.Is(err, services.ErrInvalidParticipants) {
		t.Errorf("expected ErrInvalidParticipants, got %v", err)
	}
}

func TestSwapWeek_UnknownMemberRejected(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	_, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: mustWeek(t, "2024-01-01"),
		MemberAID: members[0].ID,
		MemberBID: 9999,
	})
	if !errors.Is(err, services.ErrUnknownMember) {
		t.Errorf("expected ErrUnknownMember for member_b_id, got %v", err)
	}

	_, err = service.SwapWeek(ctx, services.SwapInput{
		WeekStart: mustWeek(t, "2024-01-01"),
		MemberAID: 9999,
		MemberBID: members[1].ID,
	})
	if !errors.Is(err, services.ErrUnknownMember) {
		t.Errorf("expected ErrUnknownMember for member_a_id, got %v", err)
	}
}

func TestSwapWeek_NonMondayRejected(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	_, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		MemberAID: members[0].ID,
		MemberBID: members[1].ID,
	})
	if !errors.Is(err, services.ErrInvalidWeek) {
		t.Errorf("expected ErrInvalidWeek, got %v", err)
	}
}

func TestMarkTakeoverDone_PlansCompensation(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	week := mustWeek(t, "2024-01-01")
	notifications, err := service.MarkTakeoverDone(ctx, services.TakeoverInput{
		WeekStart:                week,
		OriginalAssigneeMemberID: members[0].ID,
		CleanerMemberID:          members[1].ID,
	})
	if err != nil {
		t.Fatalf("recording takeover: %v", err)
	}
	if len(notifications) != 2 {
		t.Errorf("expected 2 compensation notices, got %d", len(notifications))
	}

	today := mustWeek(t, "2024-01-01")
	taken := scheduleRowFor(t, service, today, "2024-01-01")
	if taken.Status != models.AssignmentStatusDone {
		t.Errorf("taken week should be done, got %s", taken.Status)
	}
	if taken.CompletionMode == nil || *taken.CompletionMode != models.CompletionModeTakeover {
		t.Errorf("expected takeover completion mode, got %v", taken.CompletionMode)
	}
	if taken.CompletedByMemberID == nil || *taken.CompletedByMemberID != members[1].ID {
		t.Errorf("expected Bob as completer, got %v", taken.CompletedByMemberID)
	}

	// Bob's next regular week goes back to Alice as the return shift.
	compensated := scheduleRowFor(t, service, today, "2024-01-08")
	if compensated.AssigneeMemberID == nil || *compensated.AssigneeMemberID != members[0].ID {
		t.Errorf("compensation week should go to Alice, got %v", compensated.AssigneeMemberID)
	}
	if compensated.OverrideType == nil || *compensated.OverrideType != models.OverrideTypeCompensation {
		t.Errorf("expected compensation override, got %v", compensated.OverrideType)
	}
	if compensated.OverrideSource == nil || *compensated.OverrideSource != models.OverrideSourceTakeover {
		t.Errorf("expected takeover source, got %v", compensated.OverrideSource)
	}
}

func TestMarkTakeoverDone_RetryIsNoop(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	input := services.TakeoverInput{
		WeekStart:                mustWeek(t, "2024-01-01"),
		OriginalAssigneeMemberID: members[0].ID,
		CleanerMemberID:          members[1].ID,
	}
	if _, err := service.MarkTakeoverDone(ctx, input); err != nil {
		t.Fatalf("first takeover: %v", err)
	}
	if _, err := service.MarkTakeoverDone(ctx, input); err != nil {
		t.Fatalf("retry should be a no-op, got: %v", err)
	}

	overrideRepo := repository.NewOverrideRepository(db)
	planned, err := overrideRepo.FindPlanned(ctx)
	if err != nil {
		t.Fatalf("listing overrides: %v", err)
	}
	if len(planned) != 1 {
		t.Errorf("retry must not plan a second compensation, got %d overrides", len(planned))
	}
}

func TestMarkTakeoverDone_SelfTakeoverRejected(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	_, err := service.MarkTakeoverDone(ctx, services.TakeoverInput{
		WeekStart:                mustWeek(t, "2024-01-01"),
		OriginalAssigneeMemberID: members[0].ID,
		CleanerMemberID:          members[0].ID,
	})
	if !errors.Is(err, services.ErrInvalidParticipants) {
		t.Errorf("expected ErrInvalidParticipants, got %v", err)
	}
}

func TestSwapWeek_CompensationWeekRejected(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	if _, err := service.MarkTakeoverDone(ctx, services.TakeoverInput{
		WeekStart:                mustWeek(t, "2024-01-01"),
		OriginalAssigneeMemberID: members[0].ID,
		CleanerMemberID:          members[1].ID,
	}); err != nil {
		t.Fatalf("recording takeover: %v", err)
	}

	// 2024-01-08 now carries the compensation; a swap there must not
	// silently destroy the return shift.
	_, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: mustWeek(t, "2024-01-08"),
		MemberAID: members[0].ID,
		MemberBID: members[2].ID,
	})
	if !errors.Is(err, services.ErrInvalidParticipants) {
		t.Errorf("expected ErrInvalidParticipants, got %v", err)
	}
}

func TestSwapWeek_CancelCompensation(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	if _, err := service.MarkTakeoverDone(ctx, services.TakeoverInput{
		WeekStart:                mustWeek(t, "2024-01-01"),
		OriginalAssigneeMemberID: members[0].ID,
		CleanerMemberID:          members[1].ID,
	}); err != nil {
		t.Fatalf("recording takeover: %v", err)
	}

	if _, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: mustWeek(t, "2024-01-08"),
		Cancel:    true,
	}); err != nil {
		t.Fatalf("canceling compensation: %v", err)
	}

	today := mustWeek(t, "2024-01-01")
	row := scheduleRowFor(t, service, today, "2024-01-08")
	if row.AssigneeMemberID == nil || *row.AssigneeMemberID != members[1].ID {
		t.Errorf("canceled compensation week should revert to Bob, got %v", row.AssigneeMemberID)
	}
}

func TestUpdateSwap_ReplacesPartner(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	week := mustWeek(t, "2024-01-01")
	if _, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: week,
		MemberAID: members[0].ID,
		MemberBID: members[1].ID,
	}); err != nil {
		t.Fatalf("creating swap: %v", err)
	}

	notifications, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: week,
		MemberAID: members[0].ID,
		MemberBID: members[2].ID,
	})
	if err != nil {
		t.Fatalf("updating swap: %v", err)
	}
	// Two swap notices plus the notice to the replaced partner.
	if len(notifications) != 3 {
		t.Errorf("expected 3 notices on update, got %d", len(notifications))
	}

	today := mustWeek(t, "2024-01-01")
	selected := scheduleRowFor(t, service, today, "2024-01-01")
	if selected.AssigneeMemberID == nil || *selected.AssigneeMemberID != members[2].ID {
		t.Errorf("selected week should go to Carol now, got %v", selected.AssigneeMemberID)
	}

	// Bob's old return week reverts, Carol's regular week flips to Alice.
	bobWeek := scheduleRowFor(t, service, today, "2024-01-08")
	if bobWeek.AssigneeMemberID == nil || *bobWeek.AssigneeMemberID != members[1].ID {
		t.Errorf("Bob's week should revert to Bob, got %v", bobWeek.AssigneeMemberID)
	}
	carolWeek := scheduleRowFor(t, service, today, "2024-01-15")
	if carolWeek.AssigneeMemberID == nil || *carolWeek.AssigneeMemberID != members[0].ID {
		t.Errorf("Carol's week should flip to Alice, got %v", carolWeek.AssigneeMemberID)
	}
}

func TestCancelOverridesForInactiveMembers(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	if _, err := service.SwapWeek(ctx, services.SwapInput{
		WeekStart: mustWeek(t, "2024-01-01"),
		MemberAID: members[0].ID,
		MemberBID: members[1].ID,
	}); err != nil {
		t.Fatalf("creating swap: %v", err)
	}

	memberRepo := repository.NewMemberRepository(db)
	bob := members[1]
	bob.Active = false
	if err := memberRepo.Update(ctx, bob); err != nil {
		t.Fatalf("deactivating Bob: %v", err)
	}

	notifications, err := service.CancelOverridesForInactiveMembers(ctx, []int64{bob.ID}, nil)
	if err != nil {
		t.Fatalf("canceling overrides: %v", err)
	}
	if len(notifications) != 2 {
		t.Errorf("expected notices to both remaining participants, got %d", len(notifications))
	}

	overrideRepo := repository.NewOverrideRepository(db)
	planned, err := overrideRepo.FindPlanned(ctx)
	if err != nil {
		t.Fatalf("listing overrides: %v", err)
	}
	if len(planned) != 0 {
		t.Errorf("expected all overrides involving Bob to be canceled, got %d", len(planned))
	}
}

func TestMarkTakeoverDone_DeferredDebtNotDuplicated(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	// Fill every one of Bob's baseline weeks inside the lookahead so the
	// takeover has nowhere to plan the make-up week.
	assignmentRepo := repository.NewAssignmentRepository(db)
	anchor := mustWeek(t, "2024-01-01")
	for offset := 1; offset <= 157; offset += 2 {
		week := services.AddWeeks(anchor, offset)
		if err := assignmentRepo.Upsert(ctx, models.WeekAssignment{
			WeekStart:        week,
			AssigneeMemberID: &members[1].ID,
			Status:           models.AssignmentStatusDone,
		}); err != nil {
			t.Fatalf("seeding done week %s: %v", services.FormatWeek(week), err)
		}
	}

	takeover := services.TakeoverInput{
		WeekStart:                anchor,
		OriginalAssigneeMemberID: members[0].ID,
		CleanerMemberID:          members[1].ID,
	}
	if _, err := service.MarkTakeoverDone(ctx, takeover); err != nil {
		t.Fatalf("recording takeover: %v", err)
	}

	debtRepo := repository.NewCompensationDebtRepository(db)
	debts, err := debtRepo.FindUnsettledBySourceWeek(ctx, anchor)
	if err != nil {
		t.Fatalf("listing debts: %v", err)
	}
	if len(debts) != 1 {
		t.Fatalf("expected one deferred debt, got %d", len(debts))
	}

	// Undo and redo the takeover; the open debt must not stack.
	if _, err := service.MarkUndone(ctx, services.UndoneInput{WeekStart: anchor}); err != nil {
		t.Fatalf("undoing takeover: %v", err)
	}
	if _, err := service.MarkTakeoverDone(ctx, takeover); err != nil {
		t.Fatalf("repeating takeover: %v", err)
	}

	debts, err = debtRepo.FindUnsettledBySourceWeek(ctx, anchor)
	if err != nil {
		t.Fatalf("listing debts: %v", err)
	}
	if len(debts) != 1 {
		t.Errorf("expected the deferred debt to stay single, got %d", len(debts))
	}
}

func TestSettleCompensationDebts(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	// A debt recorded by hand, as if no week had been free at takeover
	// time.
	debtRepo := repository.NewCompensationDebtRepository(db)
	debt, err := debtRepo.Create(ctx, models.CompensationDebt{
		SourceWeekStart:          mustWeek(t, "2024-01-01"),
		CleanerMemberID:          members[1].ID,
		OriginalAssigneeMemberID: members[0].ID,
	})
	if err != nil {
		t.Fatalf("creating debt: %v", err)
	}

	notifications, err := service.SettleCompensationDebts(ctx)
	if err != nil {
		t.Fatalf("settling debts: %v", err)
	}
	if len(notifications) != 2 {
		t.Errorf("expected 2 compensation notices, got %d", len(notifications))
	}

	unsettled, err := debtRepo.FindUnsettled(ctx)
	if err != nil {
		t.Fatalf("listing debts: %v", err)
	}
	for _, remaining := range unsettled {
		if remaining.ID == debt.ID {
			t.Error("debt should be settled")
		}
	}

	overrideRepo := repository.NewOverrideRepository(db)
	planned, err := overrideRepo.FindPlanned(ctx)
	if err != nil {
		t.Fatalf("listing overrides: %v", err)
	}
	if len(planned) != 1 {
		t.Fatalf("expected one compensation override, got %d", len(planned))
	}
	if planned[0].Type != models.OverrideTypeCompensation || planned[0].MemberToID != members[0].ID {
		t.Errorf("unexpected compensation override: %+v", planned[0])
	}
}

func TestMarkTakeoverDone_WrongOriginalRejected(t *testing.T) {
	service, db := setupCleaningService(t, "2024-01-01")
	ctx := context.Background()
	members := createMembers(t, db, "Alice", "Bob", "Carol")
	if _, err := service.SyncRotation(ctx); err != nil {
		t.Fatalf("syncing rotation: %v", err)
	}

	// Carol is not the assignee of the first week.
	_, err := service.MarkTakeoverDone(ctx, services.TakeoverInput{
		WeekStart:                mustWeek(t, "2024-01-01"),
		OriginalAssigneeMemberID: members[2].ID,
		CleanerMemberID:          members[1].ID,
	})
	if !errors.Is(err, services.ErrInvalidParticipants) {
		t.Errorf("expected ErrInvalidParticipants, got %v", err)
	}
}
