package services

import (
	"context"
	"errors"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/repository"
)

type ScheduleRow struct {
	WeekStart                string                  `json:"week_start"`
	WeekEnd                  string                  `json:"week_end"`
	WeekNumber               int                     `json:"week_number"`
	Status                   models.AssignmentStatus `json:"status"`
	AssigneeMemberID         *int64                  `json:"assignee_member_id"`
	AssigneeName             *string                 `json:"assignee_name"`
	OriginalAssigneeMemberID *int64                  `json:"original_assignee_member_id"`
	OriginalAssigneeName     *string                 `json:"original_assignee_name"`
	CompletedByMemberID      *int64                  `json:"completed_by_member_id"`
	CompletedByName          *string                 `json:"completed_by_name"`
	CompletionMode           *models.CompletionMode  `json:"completion_mode"`
	CompletedAt              *time.Time              `json:"completed_at"`
	OverrideType             *models.OverrideType    `json:"override_type"`
	OverrideSource           *models.OverrideSource  `json:"override_source"`
	SourceWeekStart          *string                 `json:"source_week_start"`
	IsCurrent                bool                    `json:"is_current"`
	IsPrevious               bool                    `json:"is_previous"`
	IsPast                   bool                    `json:"is_past"`
	IsNext                   bool                    `json:"is_next"`
	Timeline                 []TimelineEntry         `json:"timeline"`
}

type TimelineEntry struct {
	Action        string    `json:"action"`
	ActorMemberID *int64    `json:"actor_member_id"`
	ActorName     *string   `json:"actor_name"`
	CreatedAt     time.Time `json:"created_at"`
}

type CurrentWeek struct {
	WeekStart                 string                  `json:"week_start"`
	BaselineAssigneeMemberID  *int64                  `json:"baseline_assignee_member_id"`
	EffectiveAssigneeMemberID *int64                  `json:"effective_assignee_member_id"`
	Status                    models.AssignmentStatus `json:"status"`
	CompletedByMemberID       *int64                  `json:"completed_by_member_id"`
}

// Schedule projects the rotation around today: weeksBack historical
// weeks, the current week, and weeksAhead future weeks. The projection
// never writes; weeks without a materialized assignment are derived on
// the fly and past pending weeks surface as missed without being
// persisted.
func (service *CleaningService) Schedule(ctx context.Context, today time.Time, weeksAhead, weeksBack int) ([]ScheduleRow, error) {
	if weeksAhead < 0 {
		weeksAhead = 0
	}
	if weeksBack < 0 {
		weeksBack = 0
	}

	config, err := service.store.Rotation.Get(ctx)
	if err != nil {
		return nil, err
	}

	currentWeek := MondayFor(today)
	start := AddWeeks(currentWeek, -weeksBack)
	names := map[int64]*string{}

	// One range query instead of a planned-override lookup per week.
	plannedRows, err := service.store.Overrides.FindPlannedInRange(ctx, start, AddWeeks(start, weeksBack+weeksAhead))
	if err != nil {
		return nil, err
	}
	planned := make(map[string]models.Override, len(plannedRows))
	for _, override := range plannedRows {
		planned[FormatWeek(override.WeekStart)] = override
	}

	rows := make([]ScheduleRow, 0, weeksBack+weeksAhead+1)
	for offset := 0; offset <= weeksBack+weeksAhead; offset++ {
		week := AddWeeks(start, offset)
		row, err := service.projectWeek(ctx, config, week, currentWeek, planned, names)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (service *CleaningService) projectWeek(ctx context.Context, config models.RotationConfig,
	week, currentWeek time.Time, planned map[string]models.Override, names map[int64]*string) (ScheduleRow, error) {

	_, weekNumber := week.ISOWeek()

	row := ScheduleRow{
		WeekStart:  FormatWeek(week),
		WeekEnd:    FormatWeek(week.AddDate(0, 0, 6)),
		WeekNumber: weekNumber,
		Status:     models.AssignmentStatusPending,
		IsCurrent:  week.Equal(currentWeek),
		IsPrevious: week.Equal(AddWeeks(currentWeek, -1)),
		IsPast:     week.Before(currentWeek),
		IsNext:     week.Equal(AddWeeks(currentWeek, 1)),
	}

	row.OriginalAssigneeMemberID = baselineAssignee(config, week)

	assignment, err := service.store.Assignments.Get(ctx, week)
	switch {
	case err == nil:
		row.Status = assignment.Status
		row.AssigneeMemberID = assignment.AssigneeMemberID
		row.CompletedByMemberID = assignment.CompletedByMemberID
		row.CompletionMode = assignment.CompletionMode
		row.CompletedAt = assignment.CompletedAt
	case errors.Is(err, repository.ErrNotFound):
	default:
		return ScheduleRow{}, err
	}

	override, err := service.overrideForWeek(ctx, week, row.Status, planned)
	if err != nil {
		return ScheduleRow{}, err
	}
	if override != nil {
		overrideType := override.Type
		overrideSource := override.Source
		row.OverrideType = &overrideType
		row.OverrideSource = &overrideSource
		if override.SourceWeekStart != nil {
			sourceWeek := FormatWeek(*override.SourceWeekStart)
			row.SourceWeekStart = &sourceWeek
		}
	}

	if row.AssigneeMemberID == nil {
		effective := row.OriginalAssigneeMemberID
		if override != nil && override.Status == models.OverrideStatusPlanned {
			effective = applyOverride(effective, override)
		}
		row.AssigneeMemberID = effective
	}

	if row.Status == models.AssignmentStatusPending && row.IsPast {
		row.Status = models.AssignmentStatusMissed
	}

	row.AssigneeName = service.memberName(ctx, names, row.AssigneeMemberID)
	row.OriginalAssigneeName = service.memberName(ctx, names, row.OriginalAssigneeMemberID)
	row.CompletedByName = service.memberName(ctx, names, row.CompletedByMemberID)

	timeline, err := service.weekTimeline(ctx, week, names)
	if err != nil {
		return ScheduleRow{}, err
	}
	row.Timeline = timeline
	return row, nil
}

// overrideForWeek prefers the planned override; for completed weeks the
// applied one documents how the assignee came to differ from baseline.
func (service *CleaningService) overrideForWeek(ctx context.Context, week time.Time, status models.AssignmentStatus, planned map[string]models.Override) (*models.Override, error) {
	if override, ok := planned[FormatWeek(week)]; ok {
		return &override, nil
	}
	if status != models.AssignmentStatusDone {
		return nil, nil
	}
	applied, err := service.store.Overrides.FindAppliedByWeek(ctx, week)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &applied, nil
}

func (service *CleaningService) weekTimeline(ctx context.Context, week time.Time, names map[int64]*string) ([]TimelineEntry, error) {
	events, err := service.store.Activity.FindByWeek(ctx, week)
	if err != nil {
		return nil, err
	}
	entries := make([]TimelineEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, TimelineEntry{
			Action:        event.Action,
			ActorMemberID: event.ActorMemberID,
			ActorName:     service.memberName(ctx, names, event.ActorMemberID),
			CreatedAt:     event.CreatedAt,
		})
	}
	return entries, nil
}

func (service *CleaningService) memberName(ctx context.Context, names map[int64]*string, memberID *int64) *string {
	if memberID == nil {
		return nil
	}
	if name, ok := names[*memberID]; ok {
		return name
	}
	var name *string
	if member := service.memberByID(ctx, service.store, *memberID); member != nil {
		name = &member.DisplayName
	}
	names[*memberID] = name
	return name
}

// Current reports the state of the week containing the given instant.
func (service *CleaningService) Current(ctx context.Context, at time.Time) (CurrentWeek, error) {
	config, err := service.store.Rotation.Get(ctx)
	if err != nil {
		return CurrentWeek{}, err
	}
	weekStart := MondayFor(at)

	current := CurrentWeek{
		WeekStart:                FormatWeek(weekStart),
		BaselineAssigneeMemberID: baselineAssignee(config, weekStart),
		Status:                   models.AssignmentStatusPending,
	}

	assignment, err := service.store.Assignments.Get(ctx, weekStart)
	switch {
	case err == nil:
		current.Status = assignment.Status
		current.CompletedByMemberID = assignment.CompletedByMemberID
		if assignment.AssigneeMemberID != nil {
			current.EffectiveAssigneeMemberID = assignment.AssigneeMemberID
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return CurrentWeek{}, err
	}

	if current.EffectiveAssigneeMemberID == nil {
		effectiveID, _, err := service.effectiveAssignee(ctx, service.store, config, weekStart)
		if err != nil {
			return CurrentWeek{}, err
		}
		current.EffectiveAssigneeMemberID = effectiveID
	}
	return current, nil
}
