package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gitviola/hass-flatmate/internal/config"
	"github.com/gitviola/hass-flatmate/internal/handlers"
	"github.com/gitviola/hass-flatmate/internal/middleware"
	"github.com/gitviola/hass-flatmate/internal/repository"
	"github.com/gitviola/hass-flatmate/internal/services"
)

type Server struct {
	router *chi.Mux
	config config.Config
}

func New(database *sql.DB, cfg config.Config, cleaningService *services.CleaningService, memberService *services.MemberService) *Server {
	activityRepo := repository.NewActivityRepository(database)

	cleaningHandler := handlers.NewCleaningHandler(cleaningService)
	memberHandler := handlers.NewMemberHandler(memberService, cleaningService)
	activityHandler := handlers.NewActivityHandler(activityRepo)
	icalHandler := handlers.NewICalHandler(cleaningService, cfg.APIToken, cfg.BaseURL)

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	router.Get("/ical", icalHandler.Feed)

	router.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(cfg.APIToken))

		r.Route("/v1", func(r chi.Router) {
			r.Post("/cleaning/mark-done", cleaningHandler.MarkDone)
			r.Post("/cleaning/mark-undone", cleaningHandler.MarkUndone)
			r.Post("/cleaning/mark-takeover-done", cleaningHandler.MarkTakeoverDone)
			r.Post("/cleaning/swap", cleaningHandler.Swap)
			r.Get("/cleaning/schedule", cleaningHandler.Schedule)
			r.Get("/cleaning/current", cleaningHandler.Current)
			r.Get("/cleaning/notifications/due", cleaningHandler.DueNotifications)
			r.Post("/cleaning/notifications/dispatched", cleaningHandler.RecordDispatches)
			r.Get("/cleaning/ical-url", icalHandler.Share)

			r.Get("/members", memberHandler.List)
			r.Put("/members/sync", memberHandler.Sync)

			r.Get("/activity", activityHandler.List)
		})
	})

	return &Server{router: router, config: cfg}
}

func (server *Server) Start() error {
	address := ":" + server.config.Port
	slog.Info("starting server", "address", address)
	return http.ListenAndServe(address, server.router)
}

func (server *Server) Router() *chi.Mux {
	return server.router
}
