package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

// DBTX is the executor shared by *sql.DB and *sql.Tx so that the same
// repository code serves both plain reads and the override engine's
// all-or-nothing transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the per-aggregate repositories over one executor.
type Store struct {
	Members     MemberRepository
	Rotation    RotationConfigRepository
	Assignments AssignmentRepository
	Overrides   OverrideRepository
	Debts       CompensationDebtRepository
	Activity    ActivityRepository
}

func NewStore(db DBTX) *Store {
	return &Store{
		Members:     NewMemberRepository(db),
		Rotation:    NewRotationConfigRepository(db),
		Assignments: NewAssignmentRepository(db),
		Overrides:   NewOverrideRepository(db),
		Debts:       NewCompensationDebtRepository(db),
		Activity:    NewActivityRepository(db),
	}
}

const weekLayout = "2006-01-02"

func formatWeek(weekStart time.Time) string {
	return weekStart.Format(weekLayout)
}

func parseWeek(value string) (time.Time, error) {
	weekStart, err := time.Parse(weekLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing week date %q: %w", value, err)
	}
	return weekStart, nil
}

func formatWeekPtr(weekStart *time.Time) any {
	if weekStart == nil {
		return nil
	}
	return formatWeek(*weekStart)
}

func scanWeekPtr(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	weekStart, err := parseWeek(value.String)
	if err != nil {
		return nil, err
	}
	return &weekStart, nil
}
