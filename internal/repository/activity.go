package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
)

type ActivityRepository interface {
	Log(ctx context.Context, event models.ActivityEvent) (models.ActivityEvent, error)
	FindRecent(ctx context.Context, limit int) ([]models.ActivityEvent, error)
	FindByWeek(ctx context.Context, weekStart time.Time) ([]models.ActivityEvent, error)
}

type SQLiteActivityRepository struct {
	database DBTX
}

func NewActivityRepository(database DBTX) *SQLiteActivityRepository {
	return &SQLiteActivityRepository{database: database}
}

const activityColumns = "id, domain, action, actor_member_id, actor_user_id, payload, created_at"

func (repository *SQLiteActivityRepository) Log(ctx context.Context, event models.ActivityEvent) (models.ActivityEvent, error) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return models.ActivityEvent{}, fmt.Errorf("encoding activity payload: %w", err)
	}

	result, err := repository.database.ExecContext(ctx,
		`INSERT INTO activity_events (domain, action, actor_member_id, actor_user_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.Domain, event.Action, event.ActorMemberID, event.ActorUserID,
		string(payload), event.CreatedAt,
	)
	if err != nil {
		return models.ActivityEvent{}, fmt.Errorf("logging activity event: %w", err)
	}

	event.ID, err = result.LastInsertId()
	if err != nil {
		return models.ActivityEvent{}, fmt.Errorf("reading activity event id: %w", err)
	}
	return event, nil
}

func (repository *SQLiteActivityRepository) FindRecent(ctx context.Context, limit int) ([]models.ActivityEvent, error) {
	return repository.query(ctx,
		"SELECT "+activityColumns+" FROM activity_events ORDER BY created_at DESC, id DESC LIMIT ?",
		limit)
}

func (repository *SQLiteActivityRepository) FindByWeek(ctx context.Context, weekStart time.Time) ([]models.ActivityEvent, error) {
	week := formatWeek(weekStart)
	return repository.query(ctx,
		`SELECT `+activityColumns+` FROM activity_events
		WHERE json_extract(payload, '$.week_start') = ?
			OR json_extract(payload, '$.source_week_start') = ?
			OR json_extract(payload, '$.compensation_week_start') = ?
		ORDER BY created_at, id`,
		week, week, week)
}

func (repository *SQLiteActivityRepository) query(ctx context.Context, query string, args ...any) ([]models.ActivityEvent, error) {
	rows, err := repository.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding activity events: %w", err)
	}
	defer rows.Close()

	var events []models.ActivityEvent
	for rows.Next() {
		var event models.ActivityEvent
		var payload string
		if err := rows.Scan(&event.ID, &event.Domain, &event.Action,
			&event.ActorMemberID, &event.ActorUserID, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity event: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &event.Payload); err != nil {
			return nil, fmt.Errorf("parsing activity payload: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
