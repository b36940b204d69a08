package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/repository"
)

// compensationLookahead bounds the search for a make-up week. A
// takeover whose cleaner has no eligible baseline week inside the
// horizon is recorded as deferred debt instead of failing.
const compensationLookahead = 156

type CleaningService struct {
	db     *sql.DB
	store  *repository.Store
	locks  *WeekLocks
	anchor *time.Time
	now    func() time.Time
}

func NewCleaningService(db *sql.DB, locks *WeekLocks, anchor *time.Time) *CleaningService {
	return &CleaningService{
		db:     db,
		store:  repository.NewStore(db),
		locks:  locks,
		anchor: anchor,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (service *CleaningService) withTx(ctx context.Context, fn func(store *repository.Store) error) error {
	tx, err := service.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(repository.NewStore(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SyncRotation refreshes the rotation order from the active member
// list: surviving members keep their relative order, newcomers are
// appended, and the anchor week is pinned on first use so past
// baseline assignments never move.
func (service *CleaningService) SyncRotation(ctx context.Context) (models.RotationConfig, error) {
	var config models.RotationConfig
	err := service.withTx(ctx, func(store *repository.Store) error {
		var err error
		config, err = service.syncRotationConfig(ctx, store)
		return err
	})
	return config, err
}

func (service *CleaningService) syncRotationConfig(ctx context.Context, store *repository.Store) (models.RotationConfig, error) {
	config, err := store.Rotation.Get(ctx)
	if err != nil {
		return models.RotationConfig{}, err
	}

	activeMembers, err := store.Members.FindActive(ctx)
	if err != nil {
		return models.RotationConfig{}, err
	}
	activeIDs := make([]int64, 0, len(activeMembers))
	for _, member := range activeMembers {
		activeIDs = append(activeIDs, member.ID)
	}

	ordered := make([]int64, 0, len(activeIDs))
	for _, memberID := range config.OrderedMemberIDs {
		if slices.Contains(activeIDs, memberID) {
			ordered = append(ordered, memberID)
		}
	}
	for _, memberID := range activeIDs {
		if !slices.Contains(ordered, memberID) {
			ordered = append(ordered, memberID)
		}
	}
	config.OrderedMemberIDs = ordered

	if config.AnchorWeekStart == nil && len(ordered) > 0 {
		anchor := MondayFor(service.now())
		if service.anchor != nil {
			anchor = *service.anchor
		}
		config.AnchorWeekStart = &anchor
	}

	if err := store.Rotation.Save(ctx, config); err != nil {
		return models.RotationConfig{}, err
	}
	return config, nil
}

// baselineAssignee is the pure round-robin function of the week index
// since the rotation anchor.
func baselineAssignee(config models.RotationConfig, weekStart time.Time) *int64 {
	if len(config.OrderedMemberIDs) == 0 {
		return nil
	}

	anchor := weekStart
	if config.AnchorWeekStart != nil {
		anchor = *config.AnchorWeekStart
	}

	// Both dates are UTC Mondays, so the delta is an exact number of weeks.
	deltaWeeks := int(weekStart.Sub(anchor)/(24*time.Hour)) / 7

	count := len(config.OrderedMemberIDs)
	index := ((deltaWeeks % count) + count) % count
	return &config.OrderedMemberIDs[index]
}

// BaselineAssignee resolves the unmodified rotation assignee for a
// week, ignoring all overrides.
func (service *CleaningService) BaselineAssignee(ctx context.Context, weekStart time.Time) (*int64, error) {
	weekStart, err := ensureWeekStart(weekStart)
	if err != nil {
		return nil, err
	}
	config, err := service.store.Rotation.Get(ctx)
	if err != nil {
		return nil, err
	}
	return baselineAssignee(config, weekStart), nil
}

// applyOverride maps the baseline assignee through a planned override.
// Manual swaps are symmetric; compensations only redirect the member
// who owes the week.
func applyOverride(assigneeID *int64, override *models.Override) *int64 {
	if assigneeID == nil || override == nil {
		return assigneeID
	}

	switch override.Type {
	case models.OverrideTypeManualSwap:
		if *assigneeID == override.MemberFromID {
			return &override.MemberToID
		}
		if *assigneeID == override.MemberToID {
			return &override.MemberFromID
		}
	case models.OverrideTypeCompensation:
		if *assigneeID == override.MemberFromID {
			return &override.MemberToID
		}
	}
	return assigneeID
}

func plannedOverride(ctx context.Context, store *repository.Store, weekStart time.Time) (*models.Override, error) {
	override, err := store.Overrides.FindPlannedByWeek(ctx, weekStart)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (service *CleaningService) effectiveAssignee(ctx context.Context, store *repository.Store, config models.RotationConfig, weekStart time.Time) (*int64, *models.Override, error) {
	override, err := plannedOverride(ctx, store, weekStart)
	if err != nil {
		return nil, nil, err
	}
	return applyOverride(baselineAssignee(config, weekStart), override), override, nil
}

// ensureAssignment materializes the week slot if absent and keeps the
// stored assignee snapshot current while the week is still pending.
// Completed weeks are never touched.
func (service *CleaningService) ensureAssignment(ctx context.Context, store *repository.Store, config models.RotationConfig, weekStart time.Time) (models.WeekAssignment, error) {
	effectiveID, _, err := service.effectiveAssignee(ctx, store, config, weekStart)
	if err != nil {
		return models.WeekAssignment{}, err
	}

	assignment, err := store.Assignments.Get(ctx, weekStart)
	if errors.Is(err, repository.ErrNotFound) {
		assignment = models.WeekAssignment{
			WeekStart:        weekStart,
			AssigneeMemberID: effectiveID,
			Status:           models.AssignmentStatusPending,
		}
		if err := store.Assignments.Upsert(ctx, assignment); err != nil {
			return models.WeekAssignment{}, err
		}
		return assignment, nil
	}
	if err != nil {
		return models.WeekAssignment{}, err
	}

	if assignment.Status == models.AssignmentStatusPending && !equalMemberID(assignment.AssigneeMemberID, effectiveID) {
		assignment.AssigneeMemberID = effectiveID
		if err := store.Assignments.Upsert(ctx, assignment); err != nil {
			return models.WeekAssignment{}, err
		}
	}
	return assignment, nil
}

// nextBaselineWeekFor scans forward for the member's next baseline week
// that carries no planned override and is not already completed.
// Overrides being replaced in the same transaction can be ignored by
// id.
func (service *CleaningService) nextBaselineWeekFor(ctx context.Context, store *repository.Store, config models.RotationConfig, memberID int64, startWeek time.Time, ignoreOverrideIDs map[int64]bool) (time.Time, bool, error) {
	candidate := startWeek
	for i := 0; i < compensationLookahead; i++ {
		baselineID := baselineAssignee(config, candidate)
		override, err := plannedOverride(ctx, store, candidate)
		if err != nil {
			return time.Time{}, false, err
		}
		if override != nil && ignoreOverrideIDs[override.ID] {
			override = nil
		}
		if baselineID != nil && *baselineID == memberID && override == nil {
			assignment, err := store.Assignments.Get(ctx, candidate)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return time.Time{}, false, err
			}
			if errors.Is(err, repository.ErrNotFound) || assignment.Status != models.AssignmentStatusDone {
				return candidate, true, nil
			}
		}
		candidate = AddWeeks(candidate, 1)
	}
	return time.Time{}, false, nil
}

func (service *CleaningService) resolveActor(ctx context.Context, store *repository.Store, actorUserID *string) *models.Member {
	if actorUserID == nil || *actorUserID == "" {
		return nil
	}
	member, err := store.Members.FindByHAUserID(ctx, *actorUserID)
	if err != nil {
		return nil
	}
	return &member
}

func (service *CleaningService) memberByID(ctx context.Context, store *repository.Store, memberID int64) *models.Member {
	member, err := store.Members.FindByID(ctx, memberID)
	if err != nil {
		return nil
	}
	return &member
}

// requireActiveMember maps missing or inactive members to
// ErrUnknownMember with the offending field named.
func (service *CleaningService) requireActiveMember(ctx context.Context, store *repository.Store, memberID int64, fieldName string) (models.Member, error) {
	member, err := store.Members.FindByID(ctx, memberID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Member{}, fmt.Errorf("%s %d not found: %w", fieldName, memberID, ErrUnknownMember)
	}
	if err != nil {
		return models.Member{}, err
	}
	if !member.Active {
		return models.Member{}, fmt.Errorf("%s %d is inactive: %w", fieldName, memberID, ErrUnknownMember)
	}
	return member, nil
}

func equalMemberID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
