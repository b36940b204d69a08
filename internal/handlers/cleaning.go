package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/services"
)

type CleaningHandler struct {
	cleaningService *services.CleaningService
}

func NewCleaningHandler(cleaningService *services.CleaningService) *CleaningHandler {
	return &CleaningHandler{cleaningService: cleaningService}
}

type markDoneRequest struct {
	WeekStart           string  `json:"week_start"`
	CompletedByMemberID *int64  `json:"completed_by_member_id"`
	ActorUserID         *string `json:"actor_user_id"`
}

type markUndoneRequest struct {
	WeekStart   string  `json:"week_start"`
	ActorUserID *string `json:"actor_user_id"`
}

type markTakeoverDoneRequest struct {
	WeekStart                string  `json:"week_start"`
	OriginalAssigneeMemberID int64   `json:"original_assignee_member_id"`
	CleanerMemberID          int64   `json:"cleaner_member_id"`
	ActorUserID              *string `json:"actor_user_id"`
}

type swapRequest struct {
	WeekStart   string  `json:"week_start"`
	MemberAID   int64   `json:"member_a_id"`
	MemberBID   int64   `json:"member_b_id"`
	ActorUserID *string `json:"actor_user_id"`
	Cancel      bool    `json:"cancel"`
}

type dispatchRequest struct {
	Records []services.DispatchRecord `json:"records"`
}

type operationResponse struct {
	OK            bool                        `json:"ok"`
	Notifications []models.NotificationIntent `json:"notifications"`
}

func (handler *CleaningHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	var request markDoneRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	weekStart, err := services.ParseWeekStart(request.WeekStart)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	notifications, err := handler.cleaningService.MarkDone(r.Context(), services.DoneInput{
		WeekStart:           weekStart,
		CompletedByMemberID: request.CompletedByMemberID,
		ActorUserID:         request.ActorUserID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOperation(w, notifications)
}

func (handler *CleaningHandler) MarkUndone(w http.ResponseWriter, r *http.Request) {
	var request markUndoneRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	weekStart, err := services.ParseWeekStart(request.WeekStart)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	notifications, err := handler.cleaningService.MarkUndone(r.Context(), services.UndoneInput{
		WeekStart:   weekStart,
		ActorUserID: request.ActorUserID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOperation(w, notifications)
}

func (handler *CleaningHandler) MarkTakeoverDone(w http.ResponseWriter, r *http.Request) {
	var request markTakeoverDoneRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	weekStart, err := services.ParseWeekStart(request.WeekStart)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	notifications, err := handler.cleaningService.MarkTakeoverDone(r.Context(), services.TakeoverInput{
		WeekStart:                weekStart,
		OriginalAssigneeMemberID: request.OriginalAssigneeMemberID,
		CleanerMemberID:          request.CleanerMemberID,
		ActorUserID:              request.ActorUserID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOperation(w, notifications)
}

func (handler *CleaningHandler) Swap(w http.ResponseWriter, r *http.Request) {
	var request swapRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	weekStart, err := services.ParseWeekStart(request.WeekStart)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	notifications, err := handler.cleaningService.SwapWeek(r.Context(), services.SwapInput{
		WeekStart:   weekStart,
		MemberAID:   request.MemberAID,
		MemberBID:   request.MemberBID,
		ActorUserID: request.ActorUserID,
		Cancel:      request.Cancel,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOperation(w, notifications)
}

func (handler *CleaningHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	today := time.Now().UTC()
	if raw := r.URL.Query().Get("today"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid today parameter"})
			return
		}
		today = parsed
	}
	weeksAhead := queryInt(r, "weeks_ahead", 8)
	weeksBack := queryInt(r, "weeks_back", 4)

	rows, err := handler.cleaningService.Schedule(r.Context(), today, weeksAhead, weeksBack)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (handler *CleaningHandler) Current(w http.ResponseWriter, r *http.Request) {
	at := time.Now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid at parameter"})
			return
		}
		at = parsed.UTC()
	}

	current, err := handler.cleaningService.Current(r.Context(), at)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (handler *CleaningHandler) DueNotifications(w http.ResponseWriter, r *http.Request) {
	at := time.Now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid at parameter"})
			return
		}
		at = parsed.UTC()
	}

	notifications, err := handler.cleaningService.DueNotifications(r.Context(), at)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOperation(w, notifications)
}

func (handler *CleaningHandler) RecordDispatches(w http.ResponseWriter, r *http.Request) {
	var request dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	inserted, err := handler.cleaningService.RecordNotificationDispatches(r.Context(), request.Records)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeOperation(w http.ResponseWriter, notifications []models.NotificationIntent) {
	if notifications == nil {
		notifications = []models.NotificationIntent{}
	}
	writeJSON(w, http.StatusOK, operationResponse{OK: true, Notifications: notifications})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownMember):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidParticipants), errors.Is(err, services.ErrNoActiveSwap):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidWeek):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidDispatch):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrBusy):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "another change for this week is in flight, try again"})
	default:
		slog.Error("cleaning operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
