package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/repository"
)

type MemberSyncItem struct {
	DisplayName      string  `json:"display_name"`
	HAUserID         *string `json:"ha_user_id"`
	HAPersonEntityID *string `json:"ha_person_entity_id"`
	NotifyService    *string `json:"notify_service"`
	Active           bool    `json:"active"`
}

type MemberService struct {
	db    *sql.DB
	store *repository.Store
}

func NewMemberService(db *sql.DB) *MemberService {
	return &MemberService{db: db, store: repository.NewStore(db)}
}

func (service *MemberService) List(ctx context.Context) ([]models.Member, error) {
	return service.store.Members.FindAll(ctx)
}

func (service *MemberService) ListActive(ctx context.Context) ([]models.Member, error) {
	return service.store.Members.FindActive(ctx)
}

// Sync upserts the flat's members from the Home Assistant person
// registry, keyed by ha_user_id. Members that vanish from the payload
// are soft-deactivated instead of deleted so the activity history keeps
// resolving. Returns the full roster plus the ids that just went
// inactive.
func (service *MemberService) Sync(ctx context.Context, items []MemberSyncItem) ([]models.Member, []int64, error) {
	tx, err := service.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()
	store := repository.NewStore(tx)

	existing, err := store.Members.FindAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	byUserID := make(map[string]models.Member, len(existing))
	for _, member := range existing {
		if member.HAUserID != nil {
			byUserID[*member.HAUserID] = member
		}
	}

	seenUserIDs := map[string]bool{}
	deactivated := map[int64]bool{}

	for _, item := range items {
		displayName := strings.TrimSpace(item.DisplayName)

		var current *models.Member
		if item.HAUserID != nil {
			if member, ok := byUserID[*item.HAUserID]; ok {
				current = &member
			}
			seenUserIDs[*item.HAUserID] = true
		}

		if current == nil {
			if _, err := store.Members.Create(ctx, models.Member{
				DisplayName:      displayName,
				HAUserID:         item.HAUserID,
				HAPersonEntityID: item.HAPersonEntityID,
				NotifyService:    item.NotifyService,
				Active:           item.Active,
			}); err != nil {
				return nil, nil, err
			}
			continue
		}

		wasActive := current.Active
		current.DisplayName = displayName
		current.HAPersonEntityID = item.HAPersonEntityID
		current.NotifyService = item.NotifyService
		current.Active = item.Active
		if err := store.Members.Update(ctx, *current); err != nil {
			return nil, nil, err
		}
		if wasActive && !item.Active {
			deactivated[current.ID] = true
		}
	}

	for _, member := range existing {
		if member.HAUserID == nil || seenUserIDs[*member.HAUserID] || !member.Active {
			continue
		}
		member.Active = false
		if err := store.Members.Update(ctx, member); err != nil {
			return nil, nil, err
		}
		deactivated[member.ID] = true
	}

	roster, err := store.Members.FindAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	deactivatedIDs := make([]int64, 0, len(deactivated))
	for memberID := range deactivated {
		deactivatedIDs = append(deactivatedIDs, memberID)
	}
	sort.Slice(deactivatedIDs, func(i, j int) bool { return deactivatedIDs[i] < deactivatedIDs[j] })
	return roster, deactivatedIDs, nil
}

func (service *MemberService) FindByID(ctx context.Context, memberID int64) (models.Member, error) {
	member, err := service.store.Members.FindByID(ctx, memberID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Member{}, ErrUnknownMember
	}
	return member, err
}
