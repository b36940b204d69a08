package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/services"
)

type MemberHandler struct {
	memberService   *services.MemberService
	cleaningService *services.CleaningService
}

func NewMemberHandler(memberService *services.MemberService, cleaningService *services.CleaningService) *MemberHandler {
	return &MemberHandler{memberService: memberService, cleaningService: cleaningService}
}

type memberSyncRequest struct {
	Members     []services.MemberSyncItem `json:"members"`
	ActorUserID *string                   `json:"actor_user_id"`
}

type memberSyncResponse struct {
	Members              []models.Member             `json:"members"`
	DeactivatedMemberIDs []int64                     `json:"deactivated_member_ids"`
	Notifications        []models.NotificationIntent `json:"notifications"`
}

func (handler *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := handler.memberService.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// Sync takes the HA person registry snapshot, reconciles the roster,
// rebuilds the rotation order, and voids overrides that reference
// anyone who just left.
func (handler *MemberHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var request memberSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ctx := r.Context()
	members, deactivatedIDs, err := handler.memberService.Sync(ctx, request.Members)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if _, err := handler.cleaningService.SyncRotation(ctx); err != nil {
		writeServiceError(w, err)
		return
	}

	notifications, err := handler.cleaningService.CancelOverridesForInactiveMembers(ctx, deactivatedIDs, request.ActorUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if notifications == nil {
		notifications = []models.NotificationIntent{}
	}
	if deactivatedIDs == nil {
		deactivatedIDs = []int64{}
	}

	writeJSON(w, http.StatusOK, memberSyncResponse{
		Members:              members,
		DeactivatedMemberIDs: deactivatedIDs,
		Notifications:        notifications,
	})
}
