package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gitviola/hass-flatmate/internal/models"
)

type RotationConfigRepository interface {
	Get(ctx context.Context) (models.RotationConfig, error)
	Save(ctx context.Context, config models.RotationConfig) error
}

type SQLiteRotationConfigRepository struct {
	database DBTX
}

func NewRotationConfigRepository(database DBTX) *SQLiteRotationConfigRepository {
	return &SQLiteRotationConfigRepository{database: database}
}

func (repository *SQLiteRotationConfigRepository) Get(ctx context.Context) (models.RotationConfig, error) {
	var orderedJSON string
	var anchor sql.NullString

	err := repository.database.QueryRowContext(ctx,
		"SELECT ordered_member_ids, anchor_week_start FROM rotation_config WHERE id = 1",
	).Scan(&orderedJSON, &anchor)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RotationConfig{}, nil
	}
	if err != nil {
		return models.RotationConfig{}, fmt.Errorf("loading rotation config: %w", err)
	}

	var config models.RotationConfig
	if err := json.Unmarshal([]byte(orderedJSON), &config.OrderedMemberIDs); err != nil {
		return models.RotationConfig{}, fmt.Errorf("parsing rotation order: %w", err)
	}
	config.AnchorWeekStart, err = scanWeekPtr(anchor)
	if err != nil {
		return models.RotationConfig{}, fmt.Errorf("parsing rotation anchor: %w", err)
	}
	return config, nil
}

func (repository *SQLiteRotationConfigRepository) Save(ctx context.Context, config models.RotationConfig) error {
	ordered := config.OrderedMemberIDs
	if ordered == nil {
		ordered = []int64{}
	}
	orderedJSON, err := json.Marshal(ordered)
	if err != nil {
		return fmt.Errorf("encoding rotation order: %w", err)
	}

	_, err = repository.database.ExecContext(ctx,
		`INSERT INTO rotation_config (id, ordered_member_ids, anchor_week_start)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ordered_member_ids = excluded.ordered_member_ids,
			anchor_week_start = excluded.anchor_week_start`,
		string(orderedJSON), formatWeekPtr(config.AnchorWeekStart),
	)
	if err != nil {
		return fmt.Errorf("saving rotation config: %w", err)
	}
	return nil
}
