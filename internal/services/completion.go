package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/repository"
)

type DoneInput struct {
	WeekStart           time.Time
	CompletedByMemberID *int64
	ActorUserID         *string
}

type UndoneInput struct {
	WeekStart   time.Time
	ActorUserID *string
}

// MarkDone records a regular completion of the week's duty. When no
// completer is given the current assignee is assumed.
func (service *CleaningService) MarkDone(ctx context.Context, input DoneInput) ([]models.NotificationIntent, error) {
	weekStart, err := service.ensureMutableWeek(input.WeekStart)
	if err != nil {
		return nil, err
	}

	release, err := service.locks.Acquire(ctx, weekStart)
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

		assignment, err := service.ensureAssignment(ctx, store, config, weekStart)
		if err != nil {
			return err
		}

		effectiveID, override, err := service.effectiveAssignee(ctx, store, config, weekStart)
		if err != nil {
			return err
		}

		completerID := effectiveID
		if input.CompletedByMemberID != nil {
			completerID = input.CompletedByMemberID
		}
		if completerID == nil {
			return fmt.Errorf("week %s has no assignee and no completer was given: %w",
				FormatWeek(weekStart), ErrInvalidParticipants)
		}
		completer, err := service.requireActiveMember(ctx, store, *completerID, "completed_by_member_id")
		if err != nil {
			return err
		}

		if assignment.Status == models.AssignmentStatusDone {
			if assignment.CompletedByMemberID != nil && *assignment.CompletedByMemberID == completer.ID {
				// Retry of the same completion.
				return nil
			}
			return fmt.Errorf("week %s is already completed by someone else: %w",
				FormatWeek(weekStart), ErrInvalidParticipants)
		}

		// A completer who is not the week's assignee is a takeover and must
		// go through MarkTakeoverDone so the make-up bookkeeping happens.
		if effectiveID == nil || *effectiveID != completer.ID {
			return fmt.Errorf("completed_by_member_id does not match the assignee of week %s; record a takeover instead: %w",
				FormatWeek(weekStart), ErrInvalidParticipants)
		}

		now := service.now()
		mode := models.CompletionModeOwn
		assignment.Status = models.AssignmentStatusDone
		assignment.CompletedByMemberID = &completer.ID
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
		if _, err := store.Activity.Log(ctx, models.ActivityEvent{
			Domain:        "cleaning",
			Action:        "cleaning_done",
			ActorMemberID: memberIDPtr(actorMember),
			ActorUserID:   input.ActorUserID,
			Payload: map[string]any{
				"week_start":             FormatWeek(weekStart),
				"completed_by_member_id": completer.ID,
				"completion_mode":        string(models.CompletionModeOwn),
				"confirmed_by_member_id": memberIDPtr(actorMember),
			},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		notifications = service.buildDoneNotifications(ctx, store, completer, weekStart, actorMember)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkUndone reverts a completion back to pending. A planned override
// that had been marked applied by the completion becomes planned again;
// compensation bookkeeping created by a takeover is left alone.
func (service *CleaningService) MarkUndone(ctx context.Context, input UndoneInput) ([]models.NotificationIntent, error) {
	weekStart, err := service.ensureMutableWeek(input.WeekStart)
	if err != nil {
		return nil, err
	}

	release, err := service.locks.Acquire(ctx, weekStart)
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

		assignment, err := service.ensureAssignment(ctx, store, config, weekStart)
		if err != nil {
			return err
		}
		if assignment.Status != models.AssignmentStatusDone {
			// Nothing to revert.
			return nil
		}

		previousCompleterID := assignment.CompletedByMemberID
		previousMode := assignment.CompletionMode

		assignment.Status = models.AssignmentStatusPending
		assignment.CompletedByMemberID = nil
		assignment.CompletionMode = nil
		assignment.CompletedAt = nil
		if err := store.Assignments.Upsert(ctx, assignment); err != nil {
			return err
		}

		applied, err := store.Overrides.FindAppliedByWeek(ctx, weekStart)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err == nil {
			if err := store.Overrides.UpdateStatus(ctx, applied.ID, models.OverrideStatusPlanned); err != nil {
				return err
			}
		}

		actorMember := service.resolveActor(ctx, store, input.ActorUserID)
		payload := map[string]any{
			"week_start": FormatWeek(weekStart),
		}
		if previousCompleterID != nil {
			payload["previous_completed_by_member_id"] = *previousCompleterID
		}
		if previousMode != nil {
			payload["previous_completion_mode"] = string(*previousMode)
		}
		if _, err := store.Activity.Log(ctx, models.ActivityEvent{
			Domain:        "cleaning",
			Action:        "cleaning_undone",
			ActorMemberID: memberIDPtr(actorMember),
			ActorUserID:   input.ActorUserID,
			Payload:       payload,
			CreatedAt:     service.now(),
		}); err != nil {
			return err
		}

		effectiveID, _, err := service.effectiveAssignee(ctx, store, config, weekStart)
		if err != nil {
			return err
		}
		notifications = service.buildUndoneNotifications(ctx, store, effectiveID, previousCompleterID, weekStart, actorMember)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}
