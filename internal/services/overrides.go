package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/repository"
)

type SwapInput struct {
	WeekStart   time.Time
	MemberAID   int64
	MemberBID   int64
	ActorUserID *string
	Cancel      bool
}

type TakeoverInput struct {
	WeekStart                time.Time
	OriginalAssigneeMemberID int64
	CleanerMemberID          int64
	ActorUserID              *string
}

// SwapWeek creates, updates, or cancels a manual swap. The selected
// week and the partner's return week always change together inside one
// transaction, guarded by the week-set lock.
func (service *CleaningService) SwapWeek(ctx context.Context, input SwapInput) ([]models.NotificationIntent, error) {
	weekStart, err := service.ensureMutableWeek(input.WeekStart)
	if err != nil {
		return nil, err
	}

	if input.Cancel {
		return service.cancelSwap(ctx, weekStart, input.ActorUserID)
	}
	return service.upsertSwap(ctx, weekStart, input)
}

func (service *CleaningService) upsertSwap(ctx context.Context, weekStart time.Time, input SwapInput) ([]models.NotificationIntent, error) {
	if input.MemberAID == input.MemberBID {
		return nil, fmt.Errorf("member_a_id and member_b_id must differ: %w", ErrInvalidParticipants)
	}
	if _, err := service.requireActiveMember(ctx, service.store, input.MemberAID, "member_a_id"); err != nil {
		return nil, err
	}
	if _, err := service.requireActiveMember(ctx, service.store, input.MemberBID, "member_b_id"); err != nil {
		return nil, err
	}

	// Plan phase: compute the full week set before taking any lock.
	plannedReturnWeek, oldPartnerWeek, err := service.planSwapWeeks(ctx, weekStart, input.MemberBID)
	if err != nil {
		return nil, err
	}

	release, err := service.locks.Acquire(ctx, weekStart, plannedReturnWeek, oldPartnerWeek)
	if err != nil {
		return nil, err
	}
	defer release()

	var notifications []models.NotificationIntent
	err = service.withTx(ctx, func(store *repository.Store) error {
		config, err := service.syncRotationConfig(ctx, store)
		if err != nil {
			return err
		}

		memberA, err := service.requireActiveMember(ctx, store, input.MemberAID, "member_a_id")
		if err != nil {
			return err
		}
		memberB, err := service.requireActiveMember(ctx, store, input.MemberBID, "member_b_id")
		if err != nil {
			return err
		}

		existingAny, err := plannedOverride(ctx, store, weekStart)
		if err != nil {
			return err
		}
		if existingAny != nil && existingAny.Type != models.OverrideTypeManualSwap {
			return fmt.Errorf("week %s already carries a %s override: %w",
				FormatWeek(weekStart), existingAny.Type, ErrInvalidParticipants)
		}
		existing := existingAny

		// Lost-update guard: member A must still be the one giving the
		// week away.
		if existing != nil {
			if existing.MemberFromID != input.MemberAID {
				return fmt.Errorf("member_a_id does not match the existing swap: %w", ErrInvalidParticipants)
			}
			if existing.MemberToID == input.MemberBID {
				// Same swap already planned; retry is a no-op.
				return nil
			}
		} else if baselineID := baselineAssignee(config, weekStart); baselineID == nil || *baselineID != input.MemberAID {
			return fmt.Errorf("member_a_id is not the assignee of week %s: %w",
				FormatWeek(weekStart), ErrInvalidParticipants)
		}

		ignoreIDs := map[int64]bool{}
		var oldPartner *models.Override
		if existing != nil {
			ignoreIDs[existing.ID] = true
			oldPartner, err = service.partnerOverride(ctx, store, *existing)
			if err != nil {
				return err
			}
			if oldPartner != nil {
				ignoreIDs[oldPartner.ID] = true
			}
		}

		returnWeek, found, err := service.nextBaselineWeekFor(ctx, store, config, input.MemberBID, AddWeeks(weekStart, 1), ignoreIDs)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no eligible return week for member %d within the lookahead horizon: %w",
				input.MemberBID, ErrInvalidWeek)
		}
		if !returnWeek.Equal(plannedReturnWeek) {
			// The week set shifted between planning and locking.
			return fmt.Errorf("swap target moved during planning: %w", ErrBusy)
		}

		action := "created"
		var oldPartnerMemberID *int64
		if existing != nil {
			action = "updated"
			oldMemberToID := existing.MemberToID
			oldPartnerMemberID = &oldMemberToID
		}

		actorMember := service.resolveActor(ctx, store, input.ActorUserID)
		event, err := store.Activity.Log(ctx, models.ActivityEvent{
			Domain:        "cleaning",
			Action:        "cleaning_swap_" + action,
			ActorMemberID: memberIDPtr(actorMember),
			ActorUserID:   input.ActorUserID,
			Payload: map[string]any{
				"week_start":        FormatWeek(weekStart),
				"member_a_id":       input.MemberAID,
				"member_b_id":       input.MemberBID,
				"return_week_start": FormatWeek(returnWeek),
			},
			CreatedAt: service.now(),
		})
		if err != nil {
			return err
		}

		if existing == nil {
			created, err := store.Overrides.Create(ctx, models.Override{
				WeekStart:         weekStart,
				Type:              models.OverrideTypeManualSwap,
				Source:            models.OverrideSourceManual,
				MemberFromID:      input.MemberAID,
				MemberToID:        input.MemberBID,
				PartnerWeekStart:  &returnWeek,
				SourceEventID:     &event.ID,
				CreatedByMemberID: memberIDPtr(actorMember),
			})
			if err != nil {
				return err
			}
			existing = &created
		} else {
			if oldPartner != nil {
				if err := store.Overrides.UpdateStatus(ctx, oldPartner.ID, models.OverrideStatusCanceled); err != nil {
					return err
				}
			}
			existing.MemberToID = input.MemberBID
			existing.PartnerWeekStart = &returnWeek
			existing.SourceEventID = &event.ID
			existing.CreatedByMemberID = memberIDPtr(actorMember)
			if err := store.Overrides.Update(ctx, *existing); err != nil {
				return err
			}
		}

		if _, err := store.Overrides.Create(ctx, models.Override{
			WeekStart:         returnWeek,
			Type:              models.OverrideTypeManualSwap,
			Source:            models.OverrideSourceManual,
			MemberFromID:      input.MemberBID,
			MemberToID:        input.MemberAID,
			PartnerWeekStart:  &weekStart,
			SourceWeekStart:   &weekStart,
			SourceEventID:     &event.ID,
			CreatedByMemberID: memberIDPtr(actorMember),
		}); err != nil {
			return err
		}

		for _, week := range []time.Time{weekStart, returnWeek} {
			if _, err := service.ensureAssignment(ctx, store, config, week); err != nil {
				return err
			}
		}
		if oldPartner != nil && !oldPartner.WeekStart.Equal(returnWeek) {
			if _, err := service.ensureAssignment(ctx, store, config, oldPartner.WeekStart); err != nil {
				return err
			}
		}

		notifications = service.buildSwapNotifications(ctx, store, config,
			memberA, memberB, weekStart, &returnWeek, action, actorMember)
		if action == "updated" && oldPartnerMemberID != nil && *oldPartnerMemberID != input.MemberBID {
			notifications = append(notifications,
				service.buildSwapReplacedNotification(ctx, store, weekStart, *oldPartnerMemberID, memberB, actorMember)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// planSwapWeeks performs the read-only lookups that determine which
// weeks the transaction will touch.
func (service *CleaningService) planSwapWeeks(ctx context.Context, weekStart time.Time, memberBID int64) (returnWeek, oldPartnerWeek time.Time, err error) {
	config, err := service.store.Rotation.Get(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	ignoreIDs := map[int64]bool{}
	existing, err := plannedOverride(ctx, service.store, weekStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if existing != nil && existing.Type == models.OverrideTypeManualSwap {
		ignoreIDs[existing.ID] = true
		if partner, err := service.partnerOverride(ctx, service.store, *existing); err != nil {
			return time.Time{}, time.Time{}, err
		} else if partner != nil {
			ignoreIDs[partner.ID] = true
			oldPartnerWeek = partner.WeekStart
		}
	}

	returnWeek, found, err := service.nextBaselineWeekFor(ctx, service.store, config, memberBID, AddWeeks(weekStart, 1), ignoreIDs)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !found {
		return time.Time{}, time.Time{}, fmt.Errorf(
			"no eligible return week for member %d within the lookahead horizon: %w", memberBID, ErrInvalidWeek)
	}
	return returnWeek, oldPartnerWeek, nil
}

// partnerOverride resolves the other half of a manual swap pair and
// verifies the pairing invariant.
func (service *CleaningService) partnerOverride(ctx context.Context, store *repository.Store, swap models.Override) (*models.Override, error) {
	if swap.PartnerWeekStart == nil {
		return nil, nil
	}
	partner, err := plannedOverride(ctx, store, *swap.PartnerWeekStart)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, nil
	}
	if partner.Type != models.OverrideTypeManualSwap ||
		partner.PartnerWeekStart == nil || !partner.PartnerWeekStart.Equal(swap.WeekStart) {
		slog.Error("swap pairing out of sync",
			"week_start", FormatWeek(swap.WeekStart),
			"partner_week_start", FormatWeek(partner.WeekStart))
		return nil, fmt.Errorf("swap pairing for week %s is inconsistent: %w",
			FormatWeek(swap.WeekStart), ErrInvariantViolation)
	}
	return partner, nil
}

func (service *CleaningService) cancelSwap(ctx context.Context, weekStart time.Time, actorUserID *string) ([]models.NotificationIntent, error) {
	existing, err := plannedOverride(ctx, service.store, weekStart)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("week %s has no planned override: %w", FormatWeek(weekStart), ErrNoActiveSwap)
	}

	var partnerWeek time.Time
	if existing.PartnerWeekStart != nil {
		partnerWeek = *existing.PartnerWeekStart
	}

	release, err := service.locks.Acquire(ctx, weekStart, partnerWeek)
	if err != nil {
		return nil, err
	}
	defer release()

	var notifications []models.NotificationIntent
	err = service.withTx(ctx, func(store *repository.Store) error {
		config, err := service.syncRotationConfig(ctx, store)
		if err != nil {
			return err
		}
		actorMember := service.resolveActor(ctx, store, actorUserID)

		override, err := plannedOverride(ctx, store, weekStart)
		if err != nil {
			return err
		}
		if override == nil {
			return fmt.Errorf("week %s has no planned override: %w", FormatWeek(weekStart), ErrNoActiveSwap)
		}

		// The lock set was computed from a pre-lock read. If the partner
		// week moved in between, the current partner is not locked.
		var currentPartnerWeek time.Time
		if override.PartnerWeekStart != nil {
			currentPartnerWeek = *override.PartnerWeekStart
		}
		if !currentPartnerWeek.Equal(partnerWeek) {
			return fmt.Errorf("swap for week %s changed during planning: %w", FormatWeek(weekStart), ErrBusy)
		}

		switch override.Type {
		case models.OverrideTypeManualSwap:
			partner, err := service.partnerOverride(ctx, store, *override)
			if err != nil {
				return err
			}

			if err := store.Overrides.UpdateStatus(ctx, override.ID, models.OverrideStatusCanceled); err != nil {
				return err
			}
			var returnWeek *time.Time
			if partner != nil {
				if err := store.Overrides.UpdateStatus(ctx, partner.ID, models.OverrideStatusCanceled); err != nil {
					return err
				}
				returnWeek = &partner.WeekStart
			}

			if _, err := store.Activity.Log(ctx, models.ActivityEvent{
				Domain:        "cleaning",
				Action:        "cleaning_swap_canceled",
				ActorMemberID: memberIDPtr(actorMember),
				ActorUserID:   actorUserID,
				Payload: map[string]any{
					"week_start":        FormatWeek(weekStart),
					"member_a_id":       override.MemberFromID,
					"member_b_id":       override.MemberToID,
					"return_week_start": formatWeekPayload(returnWeek),
				},
				CreatedAt: service.now(),
			}); err != nil {
				return err
			}

			memberA := service.memberByID(ctx, store, override.MemberFromID)
			memberB := service.memberByID(ctx, store, override.MemberToID)
			if memberA != nil && memberB != nil {
				notifications = service.buildSwapNotifications(ctx, store, config,
					*memberA, *memberB, weekStart, returnWeek, "canceled", actorMember)
			}

			if _, err := service.ensureAssignment(ctx, store, config, weekStart); err != nil {
				return err
			}
			if returnWeek != nil {
				if _, err := service.ensureAssignment(ctx, store, config, *returnWeek); err != nil {
					return err
				}
			}

		case models.OverrideTypeCompensation:
			// Explicit cancellation of a planned make-up week. The source
			// completion itself stays untouched.
			if err := store.Overrides.UpdateStatus(ctx, override.ID, models.OverrideStatusCanceled); err != nil {
				return err
			}

			if _, err := store.Activity.Log(ctx, models.ActivityEvent{
				Domain:        "cleaning",
				Action:        "cleaning_compensation_canceled",
				ActorMemberID: memberIDPtr(actorMember),
				ActorUserID:   actorUserID,
				Payload: map[string]any{
					"week_start":        FormatWeek(weekStart),
					"member_from_id":    override.MemberFromID,
					"member_to_id":      override.MemberToID,
					"source_week_start": formatWeekPayload(override.SourceWeekStart),
				},
				CreatedAt: service.now(),
			}); err != nil {
				return err
			}

			notifications = service.buildCompensationCanceledNotifications(ctx, store,
				*override, actorMember)

			if _, err := service.ensureAssignment(ctx, store, config, weekStart); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkTakeoverDone records that another member completed the week and
// plans the make-up week that restores fairness.
func (service *CleaningService) MarkTakeoverDone(ctx context.Context, input TakeoverInput) ([]models.NotificationIntent, error) {
	weekStart, err := service.ensureMutableWeek(input.WeekStart)
	if err != nil {
		return nil, err
	}
	if input.OriginalAssigneeMemberID == input.CleanerMemberID {
		return nil, fmt.Errorf("cleaner must differ from the original assignee: %w", ErrInvalidParticipants)
	}

	plannedCompWeek, compFound, err := service.planCompensationWeek(ctx, input.CleanerMemberID, weekStart)
	if err != nil {
		return nil, err
	}

	lockWeeks := []time.Time{weekStart}
	if compFound {
		lockWeeks = append(lockWeeks, plannedCompWeek)
	}
	release, err := service.locks.Acquire(ctx, lockWeeks...)
	if err != nil {
		return nil, err
	}
	defer release()

	var notifications []models.NotificationIntent
	err = service.withTx(ctx, func(store *repository.Store) error {
		config, err := service.syncRotationConfig(ctx, store)
		if err != nil {
			return err
		}

		original, err := service.requireActiveMember(ctx, store, input.OriginalAssigneeMemberID, "original_assignee_member_id")
		if err != nil {
			return err
		}
		cleaner, err := service.requireActiveMember(ctx, store, input.CleanerMemberID, "cleaner_member_id")
		if err != nil {
			return err
		}

		assignment, err := service.ensureAssignment(ctx, store, config, weekStart)
		if err != nil {
			return err
		}

		if assignment.Status == models.AssignmentStatusDone {
			if assignment.CompletionMode != nil && *assignment.CompletionMode == models.CompletionModeTakeover &&
				assignment.CompletedByMemberID != nil && *assignment.CompletedByMemberID == input.CleanerMemberID {
				// Retry of an already-recorded takeover.
				return nil
			}
			return fmt.Errorf("week %s is already completed: %w", FormatWeek(weekStart), ErrInvalidParticipants)
		}

		// Lost-update guard: the caller's view of the assignee must
		// match the ledger.
		effectiveID, override, err := service.effectiveAssignee(ctx, store, config, weekStart)
		if err != nil {
			return err
		}
		if effectiveID == nil || *effectiveID != input.OriginalAssigneeMemberID {
			return fmt.Errorf("original_assignee_member_id does not match the current assignee of week %s: %w",
				FormatWeek(weekStart), ErrInvalidParticipants)
		}

		now := service.now()
		mode := models.CompletionModeTakeover
		assignment.Status = models.AssignmentStatusDone
		assignment.CompletedByMemberID = &cleaner.ID
		assignment.CompletionMode = &mode
		assignment.CompletedAt = &now
		if err := store.Assignments.Upsert(ctx, assignment); err != nil {
			return err
		}

		if override != nil {
			if err := store.Overrides.UpdateStatus(ctx, override.ID, models.OverrideStatusApplied); err != nil {
				return err
			}
		}

		actorMember := service.resolveActor(ctx, store, input.ActorUserID)
		takeoverEvent, err := store.Activity.Log(ctx, models.ActivityEvent{
			Domain:        "cleaning",
			Action:        "cleaning_takeover_done",
			ActorMemberID: memberIDPtr(actorMember),
			ActorUserID:   input.ActorUserID,
			Payload: map[string]any{
				"week_start":                  FormatWeek(weekStart),
				"original_assignee_member_id": input.OriginalAssigneeMemberID,
				"cleaner_member_id":           input.CleanerMemberID,
				"completion_mode":             string(models.CompletionModeTakeover),
			},
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		compWeek, found, err := service.nextBaselineWeekFor(ctx, store, config, input.CleanerMemberID, AddWeeks(weekStart, 1), nil)
		if err != nil {
			return err
		}
		if found != compFound || (found && !compWeek.Equal(plannedCompWeek)) {
			return fmt.Errorf("compensation target moved during planning: %w", ErrBusy)
		}

		var compWeekStart *time.Time
		if found {
			compensation, err := store.Overrides.Create(ctx, models.Override{
				WeekStart:         compWeek,
				Type:              models.OverrideTypeCompensation,
				Source:            models.OverrideSourceTakeover,
				MemberFromID:      cleaner.ID,
				MemberToID:        original.ID,
				SourceWeekStart:   &weekStart,
				SourceEventID:     &takeoverEvent.ID,
				CreatedByMemberID: memberIDPtr(actorMember),
			})
			if err != nil {
				return err
			}
			compWeekStart = &compWeek

			if _, err := store.Activity.Log(ctx, models.ActivityEvent{
				Domain:        "cleaning",
				Action:        "cleaning_compensation_planned",
				ActorMemberID: memberIDPtr(actorMember),
				ActorUserID:   input.ActorUserID,
				Payload: map[string]any{
					"source_week_start":       FormatWeek(weekStart),
					"compensation_week_start": FormatWeek(compensation.WeekStart),
					"member_from_id":          cleaner.ID,
					"member_to_id":            original.ID,
					"override_type":           string(models.OverrideTypeCompensation),
				},
				CreatedAt: now,
			}); err != nil {
				return err
			}

			if _, err := service.ensureAssignment(ctx, store, config, compWeek); err != nil {
				return err
			}
		} else {
			// No eligible week inside the horizon: record the debt and
			// let the sweeper settle it once a week opens up. A takeover
			// that was undone and redone must not stack a second debt.
			existingDebts, err := store.Debts.FindUnsettledBySourceWeek(ctx, weekStart)
			if err != nil {
				return err
			}
			if len(existingDebts) == 0 {
				if _, err := store.Debts.Create(ctx, models.CompensationDebt{
					SourceWeekStart:          weekStart,
					CleanerMemberID:          cleaner.ID,
					OriginalAssigneeMemberID: original.ID,
					SourceEventID:            &takeoverEvent.ID,
				}); err != nil {
					return err
				}

				if _, err := store.Activity.Log(ctx, models.ActivityEvent{
					Domain:        "cleaning",
					Action:        "cleaning_compensation_deferred",
					ActorMemberID: memberIDPtr(actorMember),
					ActorUserID:   input.ActorUserID,
					Payload: map[string]any{
						"source_week_start": FormatWeek(weekStart),
						"member_from_id":    cleaner.ID,
						"member_to_id":      original.ID,
					},
					CreatedAt: now,
				}); err != nil {
					return err
				}
			}
		}

		notifications = service.buildCompensationNotifications(
			cleaner, original, compWeekStart, &weekStart, actorMember)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (service *CleaningService) planCompensationWeek(ctx context.Context, cleanerMemberID int64, weekStart time.Time) (time.Time, bool, error) {
	config, err := service.store.Rotation.Get(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	return service.nextBaselineWeekFor(ctx, service.store, config, cleanerMemberID, AddWeeks(weekStart, 1), nil)
}

// CancelOverridesForInactiveMembers voids every planned override that
// references a member who just left the flat, notifying the remaining
// participants.
func (service *CleaningService) CancelOverridesForInactiveMembers(ctx context.Context, inactiveMemberIDs []int64, actorUserID *string) ([]models.NotificationIntent, error) {
	if len(inactiveMemberIDs) == 0 {
		return nil, nil
	}
	inactive := make(map[int64]bool, len(inactiveMemberIDs))
	for _, memberID := range inactiveMemberIDs {
		inactive[memberID] = true
	}

	planned, err := service.store.Overrides.FindPlanned(ctx)
	if err != nil {
		return nil, err
	}
	var affectedWeeks []time.Time
	for _, override := range planned {
		if inactive[override.MemberFromID] || inactive[override.MemberToID] {
			affectedWeeks = append(affectedWeeks, override.WeekStart)
		}
	}
	if len(affectedWeeks) == 0 {
		return nil, nil
	}

	release, err := service.locks.Acquire(ctx, affectedWeeks...)
	if err != nil {
		return nil, err
	}
	defer release()

	var notifications []models.NotificationIntent
	err = service.withTx(ctx, func(store *repository.Store) error {
		config, err := service.syncRotationConfig(ctx, store)
		if err != nil {
			return err
		}
		actorMember := service.resolveActor(ctx, store, actorUserID)

		overrides, err := store.Overrides.FindPlanned(ctx)
		if err != nil {
			return err
		}

		for _, override := range overrides {
			impacted := []int64{}
			for _, memberID := range []int64{override.MemberFromID, override.MemberToID} {
				if inactive[memberID] {
					impacted = append(impacted, memberID)
				}
			}
			if len(impacted) == 0 {
				continue
			}

			notifications = append(notifications,
				service.buildInactiveOverrideNotifications(ctx, store, override, inactive)...)

			if err := store.Overrides.UpdateStatus(ctx, override.ID, models.OverrideStatusCanceled); err != nil {
				return err
			}

			if _, err := store.Activity.Log(ctx, models.ActivityEvent{
				Domain:        "cleaning",
				Action:        "cleaning_override_auto_canceled_member_inactive",
				ActorMemberID: memberIDPtr(actorMember),
				ActorUserID:   actorUserID,
				Payload: map[string]any{
					"week_start":          FormatWeek(override.WeekStart),
					"override_type":       string(override.Type),
					"member_from_id":      override.MemberFromID,
					"member_to_id":        override.MemberToID,
					"inactive_member_ids": impacted,
				},
				CreatedAt: service.now(),
			}); err != nil {
				return err
			}

			if _, err := service.ensureAssignment(ctx, store, config, override.WeekStart); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// SettleCompensationDebts places make-up weeks for takeovers that could
// not be compensated when they happened. Invoked periodically.
func (service *CleaningService) SettleCompensationDebts(ctx context.Context) ([]models.NotificationIntent, error) {
	debts, err := service.store.Debts.FindUnsettled(ctx)
	if err != nil {
		return nil, err
	}
	if len(debts) == 0 {
		return nil, nil
	}

	var notifications []models.NotificationIntent
	for _, debt := range debts {
		settled, err := service.settleDebt(ctx, debt)
		if err != nil {
			slog.Error("settling compensation debt", "debt_id", debt.ID, "error", err)
			continue
		}
		notifications = append(notifications, settled...)
	}
	return notifications, nil
}

func (service *CleaningService) settleDebt(ctx context.Context, debt models.CompensationDebt) ([]models.NotificationIntent, error) {
	config, err := service.store.Rotation.Get(ctx)
	if err != nil {
		return nil, err
	}

	searchStart := AddWeeks(MondayFor(service.now()), 1)
	if next := AddWeeks(debt.SourceWeekStart, 1); next.After(searchStart) {
		searchStart = next
	}
	plannedWeek, found, err := service.nextBaselineWeekFor(ctx, service.store, config, debt.CleanerMemberID, searchStart, nil)
	if err != nil || !found {
		return nil, err
	}

	release, err := service.locks.Acquire(ctx, plannedWeek)
	if err != nil {
		return nil, err
	}
	defer release()

	var notifications []models.NotificationIntent
	err = service.withTx(ctx, func(store *repository.Store) error {
		config, err := service.syncRotationConfig(ctx, store)
		if err != nil {
			return err
		}

		compWeek, found, err := service.nextBaselineWeekFor(ctx, store, config, debt.CleanerMemberID, searchStart, nil)
		if err != nil {
			return err
		}
		if !found || !compWeek.Equal(plannedWeek) {
			return fmt.Errorf("compensation target moved during planning: %w", ErrBusy)
		}

		compensation, err := store.Overrides.Create(ctx, models.Override{
			WeekStart:       compWeek,
			Type:            models.OverrideTypeCompensation,
			Source:          models.OverrideSourceTakeover,
			MemberFromID:    debt.CleanerMemberID,
			MemberToID:      debt.OriginalAssigneeMemberID,
			SourceWeekStart: &debt.SourceWeekStart,
			SourceEventID:   debt.SourceEventID,
		})
		if err != nil {
			return err
		}

		now := service.now()
		if err := store.Debts.Settle(ctx, debt.ID, compensation.ID, now); err != nil {
			return err
		}

		if _, err := store.Activity.Log(ctx, models.ActivityEvent{
			Domain: "cleaning",
			Action: "cleaning_compensation_settled",
			Payload: map[string]any{
				"source_week_start":       FormatWeek(debt.SourceWeekStart),
				"compensation_week_start": FormatWeek(compWeek),
				"member_from_id":          debt.CleanerMemberID,
				"member_to_id":            debt.OriginalAssigneeMemberID,
			},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if _, err := service.ensureAssignment(ctx, store, config, compWeek); err != nil {
			return err
		}

		cleaner := service.memberByID(ctx, store, debt.CleanerMemberID)
		original := service.memberByID(ctx, store, debt.OriginalAssigneeMemberID)
		if cleaner != nil && original != nil {
			notifications = service.buildCompensationNotifications(
				*cleaner, *original, &compWeek, &debt.SourceWeekStart, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func memberIDPtr(member *models.Member) *int64 {
	if member == nil {
		return nil
	}
	return &member.ID
}

func formatWeekPayload(weekStart *time.Time) any {
	if weekStart == nil {
		return nil
	}
	return FormatWeek(*weekStart)
}
