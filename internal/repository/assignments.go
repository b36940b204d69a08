package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
)

type AssignmentRepository interface {
	Get(ctx context.Context, weekStart time.Time) (models.WeekAssignment, error)
	GetRange(ctx context.Context, from, to time.Time) ([]models.WeekAssignment, error)
	Upsert(ctx context.Context, assignment models.WeekAssignment) error
}

type SQLiteAssignmentRepository struct {
	database DBTX
}

func NewAssignmentRepository(database DBTX) *SQLiteAssignmentRepository {
	return &SQLiteAssignmentRepository{database: database}
}

const assignmentColumns = "week_start, assignee_member_id, status, completed_by_member_id, completion_mode, completed_at"

func scanAssignment(row interface{ Scan(...any) error }) (models.WeekAssignment, error) {
	var assignment models.WeekAssignment
	var weekStart string
	var mode sql.NullString

	err := row.Scan(&weekStart, &assignment.AssigneeMemberID, &assignment.Status,
		&assignment.CompletedByMemberID, &mode, &assignment.CompletedAt)
	if err != nil {
		return models.WeekAssignment{}, err
	}

	assignment.WeekStart, err = parseWeek(weekStart)
	if err != nil {
		return models.WeekAssignment{}, err
	}
	if mode.Valid {
		completionMode := models.CompletionMode(mode.String)
		assignment.CompletionMode = &completionMode
	}
	return assignment, nil
}

func (repository *SQLiteAssignmentRepository) Get(ctx context.Context, weekStart time.Time) (models.WeekAssignment, error) {
	assignment, err := scanAssignment(repository.database.QueryRowContext(ctx,
		"SELECT "+assignmentColumns+" FROM week_assignments WHERE week_start = ?",
		formatWeek(weekStart)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.WeekAssignment{}, fmt.Errorf("finding assignment: %w", ErrNotFound)
	}
	if err != nil {
		return models.WeekAssignment{}, fmt.Errorf("finding assignment: %w", err)
	}
	return assignment, nil
}

func (repository *SQLiteAssignmentRepository) GetRange(ctx context.Context, from, to time.Time) ([]models.WeekAssignment, error) {
	rows, err := repository.database.QueryContext(ctx,
		"SELECT "+assignmentColumns+" FROM week_assignments WHERE week_start >= ? AND week_start <= ? ORDER BY week_start",
		formatWeek(from), formatWeek(to))
	if err != nil {
		return nil, fmt.Errorf("finding assignments in range: %w", err)
	}
	defer rows.Close()

	var assignments []models.WeekAssignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

func (repository *SQLiteAssignmentRepository) Upsert(ctx context.Context, assignment models.WeekAssignment) error {
	var mode any
	if assignment.CompletionMode != nil {
		mode = string(*assignment.CompletionMode)
	}

	_, err := repository.database.ExecContext(ctx,
		`INSERT INTO week_assignments (week_start, assignee_member_id, status, completed_by_member_id, completion_mode, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(week_start) DO UPDATE SET
			assignee_member_id = excluded.assignee_member_id,
			status = excluded.status,
			completed_by_member_id = excluded.completed_by_member_id,
			completion_mode = excluded.completion_mode,
			completed_at = excluded.completed_at`,
		formatWeek(assignment.WeekStart), assignment.AssigneeMemberID,
		assignment.Status, assignment.CompletedByMemberID, mode, assignment.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting assignment: %w", err)
	}
	return nil
}
