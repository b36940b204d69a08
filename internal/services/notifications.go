package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/repository"
)

const notificationTitle = "Weekly Cleaning Shift"

type DispatchRecord struct {
	WeekStart     string     `json:"week_start"`
	MemberID      *int64     `json:"member_id"`
	NotifyService *string    `json:"notify_service"`
	Title         *string    `json:"title"`
	Message       *string    `json:"message"`
	Kind          *string    `json:"notification_kind"`
	Slot          *string    `json:"notification_slot"`
	SourceAction  *string    `json:"source_action"`
	Status        string     `json:"status"`
	Reason        *string    `json:"reason"`
	DispatchedAt  *time.Time `json:"dispatched_at"`
}

func memberIntent(member *models.Member, title, message string, weekStart time.Time, kind, slot, sourceAction string) []models.NotificationIntent {
	if member == nil || !member.Active {
		return nil
	}
	return []models.NotificationIntent{{
		MemberID:      &member.ID,
		NotifyService: member.NotifyService,
		Title:         title,
		Message:       message,
		WeekStart:     FormatWeek(weekStart),
		Kind:          kind,
		Slot:          slot,
		SourceAction:  sourceAction,
	}}
}

func actorPrefix(actorMember *models.Member) string {
	if actorMember != nil {
		return actorMember.DisplayName + " "
	}
	return "A flatmate "
}

func (service *CleaningService) buildSwapNotifications(ctx context.Context, store *repository.Store, config models.RotationConfig,
	memberA, memberB models.Member, weekStart time.Time, returnWeek *time.Time, action string, actorMember *models.Member) []models.NotificationIntent {

	selectedLabel := FormatWeek(weekStart)
	returnLabel := "the next regular week"
	if returnWeek != nil {
		returnLabel = FormatWeek(*returnWeek)
	}
	prefix := actorPrefix(actorMember)

	var messageA, messageB string
	switch action {
	case "created":
		messageA = fmt.Sprintf("%sswapped shifts between week %s and week %s with %s. %s is assigned for %s, and you are assigned for %s.",
			prefix, selectedLabel, returnLabel, memberB.DisplayName, memberB.DisplayName, selectedLabel, returnLabel)
		messageB = fmt.Sprintf("%sswapped shifts between week %s and week %s with %s. You are assigned for %s, and %s is assigned for %s.",
			prefix, selectedLabel, returnLabel, memberA.DisplayName, selectedLabel, memberA.DisplayName, returnLabel)
	case "updated":
		messageA = fmt.Sprintf("%supdated the shift swap: %s now covers week %s, and you cover week %s.",
			prefix, memberB.DisplayName, selectedLabel, returnLabel)
		messageB = fmt.Sprintf("%supdated the shift swap: you now cover week %s, and %s covers week %s.",
			prefix, selectedLabel, memberA.DisplayName, returnLabel)
	default:
		canceled := fmt.Sprintf("%scanceled the shift swap between week %s and week %s. Everyone is back on their regular schedule.",
			prefix, selectedLabel, returnLabel)
		messageA, messageB = canceled, canceled
	}

	if baselineID := baselineAssignee(config, weekStart); baselineID != nil {
		if original := service.memberByID(ctx, store, *baselineID); original != nil {
			suffix := fmt.Sprintf(" Original assignee for %s: %s.", selectedLabel, original.DisplayName)
			messageA += suffix
			messageB += suffix
		}
	}

	sourceAction := "cleaning_swap_" + action
	notifications := memberIntent(&memberA, notificationTitle, messageA, weekStart, "swap_notice", "", sourceAction)
	notifications = append(notifications,
		memberIntent(&memberB, notificationTitle, messageB, weekStart, "swap_notice", "", sourceAction)...)
	return notifications
}

func (service *CleaningService) buildSwapReplacedNotification(ctx context.Context, store *repository.Store,
	weekStart time.Time, oldPartnerID int64, newPartner models.Member, actorMember *models.Member) []models.NotificationIntent {

	oldPartner := service.memberByID(ctx, store, oldPartnerID)
	message := fmt.Sprintf("%schanged the swap for week %s. %s is now swapped in instead of you. Your original schedule is restored.",
		actorPrefix(actorMember), FormatWeek(weekStart), newPartner.DisplayName)
	return memberIntent(oldPartner, notificationTitle, message, weekStart, "swap_notice", "", "cleaning_swap_updated")
}

// buildCompensationNotifications informs both sides of a takeover about
// the planned return shift. A nil compensation week means the return
// shift is deferred until the rotation opens up.
func (service *CleaningService) buildCompensationNotifications(cleaner, original models.Member,
	compensationWeek, sourceWeek *time.Time, actorMember *models.Member) []models.NotificationIntent {

	prefix := "A flatmate recorded that "
	if actorMember != nil {
		prefix = actorMember.DisplayName + " recorded that "
	}
	sourceLabel := "this week"
	if sourceWeek != nil {
		sourceLabel = FormatWeek(*sourceWeek)
	}
	makeUpLabel := "the next regular week"
	noticeWeek := time.Time{}
	if compensationWeek != nil {
		makeUpLabel = FormatWeek(*compensationWeek)
		noticeWeek = *compensationWeek
	} else if sourceWeek != nil {
		noticeWeek = *sourceWeek
	}

	messageOriginal := fmt.Sprintf("%s%s took over your shift in week %s. Your return shift is planned for week %s.",
		prefix, cleaner.DisplayName, sourceLabel, makeUpLabel)
	messageCleaner := fmt.Sprintf("%syou took over %s's shift in week %s. %s is assigned to your regular week %s as a return shift.",
		prefix, original.DisplayName, sourceLabel, original.DisplayName, makeUpLabel)

	notifications := memberIntent(&original, notificationTitle, messageOriginal, noticeWeek,
		"takeover_compensation_notice", "", "cleaning_takeover_done")
	return append(notifications, memberIntent(&cleaner, notificationTitle, messageCleaner, noticeWeek,
		"takeover_compensation_notice", "", "cleaning_takeover_done")...)
}

func (service *CleaningService) buildCompensationCanceledNotifications(ctx context.Context, store *repository.Store,
	override models.Override, actorMember *models.Member) []models.NotificationIntent {

	prefix := actorPrefix(actorMember)
	weekLabel := FormatWeek(override.WeekStart)

	cleaner := service.memberByID(ctx, store, override.MemberFromID)
	original := service.memberByID(ctx, store, override.MemberToID)

	messageOriginal := fmt.Sprintf("%scanceled your return shift for week %s.", prefix, weekLabel)
	messageCleaner := fmt.Sprintf("%scanceled the return shift for week %s. Your regular schedule is restored.",
		prefix, weekLabel)

	notifications := memberIntent(original, notificationTitle, messageOriginal, override.WeekStart,
		"override_canceled_notice", "", "cleaning_compensation_canceled")
	return append(notifications, memberIntent(cleaner, notificationTitle, messageCleaner, override.WeekStart,
		"override_canceled_notice", "", "cleaning_compensation_canceled")...)
}

func (service *CleaningService) buildInactiveOverrideNotifications(ctx context.Context, store *repository.Store,
	override models.Override, inactive map[int64]bool) []models.NotificationIntent {

	var inactiveIDs []int64
	for _, memberID := range []int64{override.MemberFromID, override.MemberToID} {
		if inactive[memberID] {
			inactiveIDs = append(inactiveIDs, memberID)
		}
	}
	sort.Slice(inactiveIDs, func(i, j int) bool { return inactiveIDs[i] < inactiveIDs[j] })

	var inactiveNames []string
	for _, memberID := range inactiveIDs {
		if member := service.memberByID(ctx, store, memberID); member != nil {
			inactiveNames = append(inactiveNames, member.DisplayName)
		}
	}
	inactiveLabel := "a former flatmate"
	if len(inactiveNames) > 0 {
		inactiveLabel = strings.Join(inactiveNames, ", ")
	}

	subject := "return shift"
	if override.Type == models.OverrideTypeManualSwap {
		subject = "swap"
	}
	message := fmt.Sprintf("A planned cleaning %s for week %s was canceled because %s is no longer active in the flat.",
		subject, FormatWeek(override.WeekStart), inactiveLabel)

	var notifications []models.NotificationIntent
	seen := map[int64]bool{}
	for _, memberID := range []int64{override.MemberFromID, override.MemberToID} {
		if inactive[memberID] || seen[memberID] {
			continue
		}
		seen[memberID] = true
		member := service.memberByID(ctx, store, memberID)
		notifications = append(notifications, memberIntent(member, notificationTitle, message,
			override.WeekStart, "override_canceled_notice", "", "cleaning_override_auto_canceled_member_inactive")...)
	}
	return notifications
}

func (service *CleaningService) buildDoneNotifications(ctx context.Context, store *repository.Store,
	completer models.Member, weekStart time.Time, actorMember *models.Member) []models.NotificationIntent {

	// Only worth a push when someone else confirmed the completion.
	if actorMember == nil || actorMember.ID == completer.ID {
		return nil
	}
	message := fmt.Sprintf("%s marked your cleaning shift as done for week %s.",
		actorMember.DisplayName, FormatWeek(weekStart))
	return memberIntent(&completer, notificationTitle, message, weekStart,
		"completion_confirmation", "", "cleaning_done")
}

func (service *CleaningService) buildUndoneNotifications(ctx context.Context, store *repository.Store,
	effectiveID, previousCompleterID *int64, weekStart time.Time, actorMember *models.Member) []models.NotificationIntent {

	prefix := actorPrefix(actorMember)
	weekLabel := FormatWeek(weekStart)

	var notifications []models.NotificationIntent
	if effectiveID != nil {
		assignee := service.memberByID(ctx, store, *effectiveID)
		message := fmt.Sprintf("%smarked the cleaning shift for week %s as not done yet.", prefix, weekLabel)
		notifications = append(notifications, memberIntent(assignee, notificationTitle, message,
			weekStart, "undo_notice", "", "cleaning_undone")...)
	}
	if previousCompleterID != nil && (effectiveID == nil || *previousCompleterID != *effectiveID) {
		completer := service.memberByID(ctx, store, *previousCompleterID)
		message := fmt.Sprintf("%sundid the completion for week %s. The shift still needs to be done.", prefix, weekLabel)
		notifications = append(notifications, memberIntent(completer, notificationTitle, message,
			weekStart, "undo_notice", "", "cleaning_undone")...)
	}
	return notifications
}

// DueNotifications computes the reminders owed at the given instant.
// Monday 11:00 announces the week's assignee, Sunday 18:00 and 21:00
// nag while the week is still pending. The read is side-effect free, so
// callers may poll it as often as they like.
func (service *CleaningService) DueNotifications(ctx context.Context, at time.Time) ([]models.NotificationIntent, error) {
	if at.Minute() != 0 {
		return nil, nil
	}
	weekday := at.Weekday()
	isMondayMorning := weekday == time.Monday && at.Hour() == 11
	isSundayEvening := weekday == time.Sunday && (at.Hour() == 18 || at.Hour() == 21)
	if !isMondayMorning && !isSundayEvening {
		return nil, nil
	}

	config, err := service.store.Rotation.Get(ctx)
	if err != nil {
		return nil, err
	}
	weekStart := MondayFor(at)

	assigneeID, _, err := service.effectiveAssignee(ctx, service.store, config, weekStart)
	if err != nil {
		return nil, err
	}
	var assignee *models.Member
	if assigneeID != nil {
		assignee = service.memberByID(ctx, service.store, *assigneeID)
	}

	status, err := service.assignmentStatus(ctx, weekStart)
	if err != nil {
		return nil, err
	}

	if isMondayMorning {
		warning := ""
		previousStatus, err := service.assignmentStatus(ctx, AddWeeks(weekStart, -1))
		if err != nil {
			return nil, err
		}
		if previousStatus != models.AssignmentStatusDone {
			warning = " Warning: last week is still unconfirmed."
		}
		message := "It is your turn to clean the common areas this week." + warning
		return memberIntent(assignee, notificationTitle, message, weekStart,
			"weekly_assignment", "monday_11", "cleaning_notifications_due"), nil
	}

	if status != models.AssignmentStatusPending {
		return nil, nil
	}
	message := "Please mark this week's cleaning as done in Home Assistant after you finish. " +
		"If it is not confirmed, the next person may miss a reminder."
	if at.Hour() == 21 {
		message = "Final reminder: mark this week's cleaning as done in Home Assistant now " +
			"so next week's reminder can be sent correctly."
	}
	return memberIntent(assignee, notificationTitle, message, weekStart,
		"weekly_reminder", fmt.Sprintf("sunday_%d", at.Hour()), "cleaning_notifications_due"), nil
}

func (service *CleaningService) assignmentStatus(ctx context.Context, weekStart time.Time) (models.AssignmentStatus, error) {
	assignment, err := service.store.Assignments.Get(ctx, weekStart)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.AssignmentStatusPending, nil
		}
		return "", err
	}
	return assignment.Status, nil
}

// RecordNotificationDispatches lets the delivery layer report what it
// actually pushed. Each record lands in the activity log under a fresh
// dispatch id.
func (service *CleaningService) RecordNotificationDispatches(ctx context.Context, records []DispatchRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	allowed := map[string]bool{
		"sent": true, "failed": true, "skipped": true,
		"suppressed": true, "test_redirected": true,
	}

	inserted := 0
	for _, record := range records {
		weekStart, err := ParseWeekStart(record.WeekStart)
		if err != nil {
			return inserted, err
		}
		status := strings.ToLower(strings.TrimSpace(record.Status))
		if !allowed[status] {
			return inserted, fmt.Errorf("status must be one of: sent, failed, skipped, suppressed, test_redirected: %w",
				ErrInvalidDispatch)
		}

		createdAt := service.now()
		if record.DispatchedAt != nil {
			createdAt = record.DispatchedAt.UTC()
		}

		if _, err := service.store.Activity.Log(ctx, models.ActivityEvent{
			Domain: "cleaning",
			Action: "cleaning_notification_dispatch",
			Payload: map[string]any{
				"dispatch_id":       uuid.NewString(),
				"week_start":        FormatWeek(weekStart),
				"member_id":         record.MemberID,
				"notify_service":    record.NotifyService,
				"title":             record.Title,
				"message":           record.Message,
				"notification_kind": record.Kind,
				"notification_slot": record.Slot,
				"source_action":     record.SourceAction,
				"status":            status,
				"reason":            record.Reason,
			},
			CreatedAt: createdAt,
		}); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
