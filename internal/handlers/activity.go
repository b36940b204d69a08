package handlers

import (
	"net/http"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/repository"
	"github.com/gitviola/hass-flatmate/internal/services"
)

type ActivityHandler struct {
	activityRepo repository.ActivityRepository
}

func NewActivityHandler(activityRepo repository.ActivityRepository) *ActivityHandler {
	return &ActivityHandler{activityRepo: activityRepo}
}

func (handler *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var events []models.ActivityEvent
	var err error
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		weekStart, parseErr := services.ParseWeekStart(raw)
		if parseErr != nil {
			writeServiceError(w, parseErr)
			return
		}
		events, err = handler.activityRepo.FindByWeek(r.Context(), weekStart)
	} else {
		events, err = handler.activityRepo.FindRecent(r.Context(), limit)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []models.ActivityEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
