package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
)

type MemberRepository interface {
	FindByID(ctx context.Context, id int64) (models.Member, error)
	FindByHAUserID(ctx context.Context, haUserID string) (models.Member, error)
	FindAll(ctx context.Context) ([]models.Member, error)
	FindActive(ctx context.Context) ([]models.Member, error)
	Create(ctx context.Context, member models.Member) (models.Member, error)
	Update(ctx context.Context, member models.Member) error
}

type SQLiteMemberRepository struct {
	database DBTX
}

func NewMemberRepository(database DBTX) *SQLiteMemberRepository {
	return &SQLiteMemberRepository{database: database}
}

const memberColumns = "id, display_name, ha_user_id, ha_person_entity_id, notify_service, active, created_at, updated_at"

func scanMember(row interface{ Scan(...any) error }) (models.Member, error) {
	var member models.Member
	err := row.Scan(&member.ID, &member.DisplayName, &member.HAUserID,
		&member.HAPersonEntityID, &member.NotifyService, &member.Active,
		&member.CreatedAt, &member.UpdatedAt)
	return member, err
}

func (repository *SQLiteMemberRepository) FindByID(ctx context.Context, id int64) (models.Member, error) {
	member, err := scanMember(repository.database.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Member{}, fmt.Errorf("finding member %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("finding member by id: %w", err)
	}
	return member, nil
}

func (repository *SQLiteMemberRepository) FindByHAUserID(ctx context.Context, haUserID string) (models.Member, error) {
	member, err := scanMember(repository.database.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE ha_user_id = ?", haUserID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Member{}, fmt.Errorf("finding member by ha user id: %w", ErrNotFound)
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("finding member by ha user id: %w", err)
	}
	return member, nil
}

func (repository *SQLiteMemberRepository) FindAll(ctx context.Context) ([]models.Member, error) {
	return repository.query(ctx,
		"SELECT "+memberColumns+" FROM members ORDER BY display_name, id")
}

func (repository *SQLiteMemberRepository) FindActive(ctx context.Context) ([]models.Member, error) {
	return repository.query(ctx,
		"SELECT "+memberColumns+" FROM members WHERE active = 1 ORDER BY display_name, id")
}

func (repository *SQLiteMemberRepository) query(ctx context.Context, query string) ([]models.Member, error) {
	rows, err := repository.database.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("finding members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (repository *SQLiteMemberRepository) Create(ctx context.Context, member models.Member) (models.Member, error) {
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	result, err := repository.database.ExecContext(ctx,
		`INSERT INTO members (display_name, ha_user_id, ha_person_entity_id, notify_service, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		member.DisplayName, member.HAUserID, member.HAPersonEntityID,
		member.NotifyService, member.Active, member.CreatedAt, member.UpdatedAt,
	)
	if err != nil {
		return models.Member{}, fmt.Errorf("creating member: %w", err)
	}

	member.ID, err = result.LastInsertId()
	if err != nil {
		return models.Member{}, fmt.Errorf("reading member id: %w", err)
	}
	return member, nil
}

func (repository *SQLiteMemberRepository) Update(ctx context.Context, member models.Member) error {
	_, err := repository.database.ExecContext(ctx,
		`UPDATE members SET display_name = ?, ha_user_id = ?, ha_person_entity_id = ?,
		notify_service = ?, active = ?, updated_at = ? WHERE id = ?`,
		member.DisplayName, member.HAUserID, member.HAPersonEntityID,
		member.NotifyService, member.Active, time.Now().UTC(), member.ID,
	)
	if err != nil {
		return fmt.Errorf("updating member: %w", err)
	}
	return nil
}
