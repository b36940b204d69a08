package handlers

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/gitviola/hass-flatmate/internal/models"
	"github.com/gitviola/hass-flatmate/internal/services"
)

type ICalHandler struct {
	cleaningService *services.CleaningService
	apiToken        string
	baseURL         string
}

func NewICalHandler(cleaningService *services.CleaningService, apiToken, baseURL string) *ICalHandler {
	return &ICalHandler{cleaningService: cleaningService, apiToken: apiToken, baseURL: baseURL}
}

// Share returns the subscription URL for the rotation calendar, ready to
// paste into a calendar app.
func (handler *ICalHandler) Share(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ical_url": handler.baseURL + "/ical?token=" + url.QueryEscape(handler.apiToken),
	})
}

// Feed serves the rotation as an iCal calendar of all-day week events.
// Calendar apps cannot send an Authorization header, so the token rides
// in the query string instead.
func (handler *ICalHandler) Feed(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(handler.apiToken)) != 1 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	rows, err := handler.cleaningService.Schedule(r.Context(), time.Now().UTC(), 12, 4)
	if err != nil {
		slog.Error("projecting schedule for ical", "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	calendar := ics.NewCalendar()
	calendar.SetMethod(ics.MethodPublish)
	calendar.SetProductId("-//hass-flatmate//Cleaning Rotation//EN")
	calendar.SetXWRCalName("Cleaning Rotation")

	for _, row := range rows {
		weekStart, err := time.Parse("2006-01-02", row.WeekStart)
		if err != nil {
			continue
		}

		assignee := "Unassigned"
		if row.AssigneeName != nil {
			assignee = *row.AssigneeName
		}
		summary := fmt.Sprintf("Cleaning: %s", assignee)
		if row.Status == models.AssignmentStatusDone {
			summary += " (done)"
		}

		event := calendar.AddEvent(fmt.Sprintf("cleaning-%s@hass-flatmate", row.WeekStart))
		event.SetAllDayStartAt(weekStart)
		event.SetAllDayEndAt(weekStart.AddDate(0, 0, 7))
		event.SetSummary(summary)
		event.SetDtStampTime(time.Now().UTC())
		if row.OverrideType != nil {
			event.SetDescription(fmt.Sprintf("Override: %s (%s)", *row.OverrideType, *row.OverrideSource))
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=cleaning-rotation.ics")
	if _, err := w.Write([]byte(calendar.Serialize())); err != nil {
		slog.Error("writing ical feed", "error", err)
	}
}
