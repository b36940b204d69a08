package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
)

type CompensationDebtRepository interface {
	Create(ctx context.Context, debt models.CompensationDebt) (models.CompensationDebt, error)
	FindUnsettled(ctx context.Context) ([]models.CompensationDebt, error)
	FindUnsettledBySourceWeek(ctx context.Context, sourceWeekStart time.Time) ([]models.CompensationDebt, error)
	Settle(ctx context.Context, id int64, overrideID int64, settledAt time.Time) error
}

type SQLiteCompensationDebtRepository struct {
	database DBTX
}

func NewCompensationDebtRepository(database DBTX) *SQLiteCompensationDebtRepository {
	return &SQLiteCompensationDebtRepository{database: database}
}

func (repository *SQLiteCompensationDebtRepository) Create(ctx context.Context, debt models.CompensationDebt) (models.CompensationDebt, error) {
	debt.CreatedAt = time.Now().UTC()

	result, err := repository.database.ExecContext(ctx,
		`INSERT INTO compensation_debts (source_week_start, cleaner_member_id, original_assignee_member_id, source_event_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		formatWeek(debt.SourceWeekStart), debt.CleanerMemberID,
		debt.OriginalAssigneeMemberID, debt.SourceEventID, debt.CreatedAt,
	)
	if err != nil {
		return models.CompensationDebt{}, fmt.Errorf("creating compensation debt: %w", err)
	}

	debt.ID, err = result.LastInsertId()
	if err != nil {
		return models.CompensationDebt{}, fmt.Errorf("reading debt id: %w", err)
	}
	return debt, nil
}

func (repository *SQLiteCompensationDebtRepository) FindUnsettled(ctx context.Context) ([]models.CompensationDebt, error) {
	return repository.query(ctx,
		`SELECT id, source_week_start, cleaner_member_id, original_assignee_member_id, source_event_id, created_at, settled_override_id, settled_at
		FROM compensation_debts WHERE settled_at IS NULL ORDER BY created_at, id`)
}

func (repository *SQLiteCompensationDebtRepository) FindUnsettledBySourceWeek(ctx context.Context, sourceWeekStart time.Time) ([]models.CompensationDebt, error) {
	return repository.query(ctx,
		`SELECT id, source_week_start, cleaner_member_id, original_assignee_member_id, source_event_id, created_at, settled_override_id, settled_at
		FROM compensation_debts WHERE settled_at IS NULL AND source_week_start = ? ORDER BY created_at, id`,
		formatWeek(sourceWeekStart))
}

func (repository *SQLiteCompensationDebtRepository) query(ctx context.Context, query string, args ...any) ([]models.CompensationDebt, error) {
	rows, err := repository.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding compensation debts: %w", err)
	}
	defer rows.Close()

	var debts []models.CompensationDebt
	for rows.Next() {
		var debt models.CompensationDebt
		var sourceWeek string
		if err := rows.Scan(&debt.ID, &sourceWeek, &debt.CleanerMemberID,
			&debt.OriginalAssigneeMemberID, &debt.SourceEventID, &debt.CreatedAt,
			&debt.SettledOverrideID, &debt.SettledAt); err != nil {
			return nil, fmt.Errorf("scanning compensation debt: %w", err)
		}
		debt.SourceWeekStart, err = parseWeek(sourceWeek)
		if err != nil {
			return nil, err
		}
		debts = append(debts, debt)
	}
	return debts, rows.Err()
}

func (repository *SQLiteCompensationDebtRepository) Settle(ctx context.Context, id int64, overrideID int64, settledAt time.Time) error {
	_, err := repository.database.ExecContext(ctx,
		"UPDATE compensation_debts SET settled_override_id = ?, settled_at = ? WHERE id = ?",
		overrideID, settledAt, id)
	if err != nil {
		return fmt.Errorf("settling compensation debt: %w", err)
	}
	return nil
}
