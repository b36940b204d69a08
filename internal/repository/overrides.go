package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
)

type OverrideRepository interface {
	FindByID(ctx context.Context, id int64) (models.Override, error)
	FindPlannedByWeek(ctx context.Context, weekStart time.Time) (models.Override, error)
	FindAppliedByWeek(ctx context.Context, weekStart time.Time) (models.Override, error)
	FindPlanned(ctx context.Context) ([]models.Override, error)
	FindPlannedInRange(ctx context.Context, from, to time.Time) ([]models.Override, error)
	Create(ctx context.Context, override models.Override) (models.Override, error)
	Update(ctx context.Context, override models.Override) error
	UpdateStatus(ctx context.Context, id int64, status models.OverrideStatus) error
}

type SQLiteOverrideRepository struct {
	database DBTX
}

func NewOverrideRepository(database DBTX) *SQLiteOverrideRepository {
	return &SQLiteOverrideRepository{database: database}
}

const overrideColumns = `id, week_start, type, source, status, member_from_id, member_to_id,
	partner_week_start, source_week_start, source_event_id, created_by_member_id, created_at`

func scanOverride(row interface{ Scan(...any) error }) (models.Override, error) {
	var override models.Override
	var weekStart string
	var partnerWeek, sourceWeek sql.NullString

	err := row.Scan(&override.ID, &weekStart, &override.Type, &override.Source,
		&override.Status, &override.MemberFromID, &override.MemberToID,
		&partnerWeek, &sourceWeek, &override.SourceEventID,
		&override.CreatedByMemberID, &override.CreatedAt)
	if err != nil {
		return models.Override{}, err
	}

	override.WeekStart, err = parseWeek(weekStart)
	if err != nil {
		return models.Override{}, err
	}
	override.PartnerWeekStart, err = scanWeekPtr(partnerWeek)
	if err != nil {
		return models.Override{}, err
	}
	override.SourceWeekStart, err = scanWeekPtr(sourceWeek)
	if err != nil {
		return models.Override{}, err
	}
	return override, nil
}

func (repository *SQLiteOverrideRepository) FindByID(ctx context.Context, id int64) (models.Override, error) {
	override, err := scanOverride(repository.database.QueryRowContext(ctx,
		"SELECT "+overrideColumns+" FROM overrides WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Override{}, fmt.Errorf("finding override %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Override{}, fmt.Errorf("finding override by id: %w", err)
	}
	return override, nil
}

func (repository *SQLiteOverrideRepository) FindPlannedByWeek(ctx context.Context, weekStart time.Time) (models.Override, error) {
	override, err := scanOverride(repository.database.QueryRowContext(ctx,
		"SELECT "+overrideColumns+" FROM overrides WHERE week_start = ? AND status = 'planned'",
		formatWeek(weekStart)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Override{}, fmt.Errorf("finding planned override: %w", ErrNotFound)
	}
	if err != nil {
		return models.Override{}, fmt.Errorf("finding planned override: %w", err)
	}
	return override, nil
}

func (repository *SQLiteOverrideRepository) FindAppliedByWeek(ctx context.Context, weekStart time.Time) (models.Override, error) {
	override, err := scanOverride(repository.database.QueryRowContext(ctx,
		"SELECT "+overrideColumns+" FROM overrides WHERE week_start = ? AND status = 'applied'",
		formatWeek(weekStart)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Override{}, fmt.Errorf("finding applied override: %w", ErrNotFound)
	}
	if err != nil {
		return models.Override{}, fmt.Errorf("finding applied override: %w", err)
	}
	return override, nil
}

func (repository *SQLiteOverrideRepository) FindPlanned(ctx context.Context) ([]models.Override, error) {
	return repository.query(ctx,
		"SELECT "+overrideColumns+" FROM overrides WHERE status = 'planned' ORDER BY week_start, created_at")
}

func (repository *SQLiteOverrideRepository) FindPlannedInRange(ctx context.Context, from, to time.Time) ([]models.Override, error) {
	return repository.query(ctx,
		"SELECT "+overrideColumns+" FROM overrides WHERE status = 'planned' AND week_start >= ? AND week_start <= ? ORDER BY week_start",
		formatWeek(from), formatWeek(to))
}

func (repository *SQLiteOverrideRepository) query(ctx context.Context, query string, args ...any) ([]models.Override, error) {
	rows, err := repository.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding overrides: %w", err)
	}
	defer rows.Close()

	var overrides []models.Override
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning override: %w", err)
		}
		overrides = append(overrides, override)
	}
	return overrides, rows.Err()
}

func (repository *SQLiteOverrideRepository) Create(ctx context.Context, override models.Override) (models.Override, error) {
	override.CreatedAt = time.Now().UTC()
	if override.Status == "" {
		override.Status = models.OverrideStatusPlanned
	}

	result, err := repository.database.ExecContext(ctx,
		`INSERT INTO overrides (week_start, type, source, status, member_from_id, member_to_id,
			partner_week_start, source_week_start, source_event_id, created_by_member_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatWeek(override.WeekStart), override.Type, override.Source, override.Status,
		override.MemberFromID, override.MemberToID,
		formatWeekPtr(override.PartnerWeekStart), formatWeekPtr(override.SourceWeekStart),
		override.SourceEventID, override.CreatedByMemberID, override.CreatedAt,
	)
	if err != nil {
		return models.Override{}, fmt.Errorf("creating override: %w", err)
	}

	override.ID, err = result.LastInsertId()
	if err != nil {
		return models.Override{}, fmt.Errorf("reading override id: %w", err)
	}
	return override, nil
}

func (repository *SQLiteOverrideRepository) Update(ctx context.Context, override models.Override) error {
	_, err := repository.database.ExecContext(ctx,
		`UPDATE overrides SET week_start = ?, type = ?, source = ?, status = ?,
			member_from_id = ?, member_to_id = ?, partner_week_start = ?,
			source_week_start = ?, source_event_id = ?, created_by_member_id = ?
		WHERE id = ?`,
		formatWeek(override.WeekStart), override.Type, override.Source, override.Status,
		override.MemberFromID, override.MemberToID,
		formatWeekPtr(override.PartnerWeekStart), formatWeekPtr(override.SourceWeekStart),
		override.SourceEventID, override.CreatedByMemberID, override.ID,
	)
	if err != nil {
		return fmt.Errorf("updating override: %w", err)
	}
	return nil
}

func (repository *SQLiteOverrideRepository) UpdateStatus(ctx context.Context, id int64, status models.OverrideStatus) error {
	_, err := repository.database.ExecContext(ctx,
		"UPDATE overrides SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("updating override status: %w", err)
	}
	return nil
}
