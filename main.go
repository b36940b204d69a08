package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gitviola/hass-flatmate/internal/config"
	"github.com/gitviola/hass-flatmate/internal/database"
	"github.com/gitviola/hass-flatmate/internal/server"
	"github.com/gitviola/hass-flatmate/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	locks := services.NewWeekLocks()
	cleaningService := services.NewCleaningService(db, locks, cfg.RotationAnchor)
	memberService := services.NewMemberService(db)

	if _, err := cleaningService.SyncRotation(context.Background()); err != nil {
		slog.Error("syncing rotation", "error", err)
		os.Exit(1)
	}

	go runDebtSweeper(cleaningService)

	srv := server.New(db, cfg, cleaningService, memberService)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// runDebtSweeper retries deferred takeover compensations until the
// rotation has a free week for them.
func runDebtSweeper(cleaningService *services.CleaningService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		ctx := context.Background()
		if _, err := cleaningService.SettleCompensationDebts(ctx); err != nil {
			slog.Error("settling compensation debts", "error", err)
		}
		<-ticker.C
	}
}
